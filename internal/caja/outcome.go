package caja

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Outcome classifies a variance.
type Outcome int

const (
	Balanced Outcome = iota
	Surplus
	Shortage
)

func (o Outcome) String() string {
	switch o {
	case Balanced:
		return "cuadra"
	case Surplus:
		return "sobrante"
	case Shortage:
		return "faltante"
	default:
		return "desconocido"
	}
}

// Classify maps a variance sign to an outcome.
func Classify(variance decimal.Decimal) Outcome {
	switch variance.Sign() {
	case 0:
		return Balanced
	case 1:
		return Surplus
	default:
		return Shortage
	}
}

// Missing is the absolute shortage; zero unless the outcome is Shortage.
func (r ClosingRecord) Missing() decimal.Decimal {
	if r.Outcome != Shortage {
		return decimal.Zero
	}
	return r.Variance.Abs()
}

// Label is the operator-facing summary of the variance.
func (r ClosingRecord) Label() string {
	switch r.Outcome {
	case Balanced:
		return "Cuadra perfecto"
	case Surplus:
		return "Sobra " + FormatMoney(r.Variance)
	default:
		return "Falta " + FormatMoney(r.Missing())
	}
}

// FormatMoney renders an amount as "$1,234.50" ("-$20.00" for negatives).
func FormatMoney(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := "$" + b.String() + frac
	if neg {
		return "-" + out
	}
	return out
}
