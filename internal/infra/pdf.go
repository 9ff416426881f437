package infra

// pdf.go: closing report ("corte de caja") generation with go-pdf/fpdf.
// A4 portrait with:
//   - Business name and session header
//   - Per-method totals
//   - Expected, counted and the variance label
//   - Operator note
//
// The output file is saved to dir/corte_{id}_{yyyymmdd_hhmm}.pdf.

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"ventafacil/internal/caja"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// GenerateCortePDF writes the closing report and returns its path.
func GenerateCortePDF(r caja.Report, businessName, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	closedAt := r.Record.ClosedAt
	fileName := fmt.Sprintf("corte_%d_%s.pdf", r.Session.ID, closedAt.Format("20060102_1504"))
	filePath := filepath.Join(dir, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, tr(businessName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, "CORTE DE CAJA", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 9)
	info := [][2]string{
		{"Corte N°", fmt.Sprintf("%d", r.Session.ID)},
		{"Cajero", r.Session.CashierName},
		{"Apertura", r.Session.OpenedAt.Format("02/01/2006 15:04")},
		{"Cierre", closedAt.Format("02/01/2006 15:04")},
		{"Transacciones", fmt.Sprintf("%d", r.Session.Transactions)},
	}
	for _, row := range info {
		pdf.CellFormat(contentW*0.4, 5, tr(row[0]+":"), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.6, 5, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(3)

	// ── Totals ───────────────────────────────────────────────────────────────
	labelW, amountW := contentW*0.7, contentW*0.3
	line := func(label string, d decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelW, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(amountW, 6, caja.FormatMoney(d), "", 1, "R", false, 0, "")
	}

	line("Fondo inicial", r.Session.OpeningFloat, false)
	line("Ventas en efectivo", r.Session.CashSales, false)
	line("Ventas con tarjeta", r.Session.CardSales, false)
	line("Ventas por transferencia", r.Session.TransferSales, false)
	line("Egresos en efectivo", r.Session.CashExpenses.Neg(), false)
	line("Devoluciones", r.Session.Refunds.Neg(), false)
	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)
	line("Efectivo esperado", r.Record.Expected, true)
	line("Efectivo contado", r.Record.Counted, true)
	line("Diferencia", r.Record.Variance, true)

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 8, tr(r.Record.Label()), "1", 1, "C", false, 0, "")

	// ── Note ─────────────────────────────────────────────────────────────────
	if r.Record.Note != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(contentW, 5, "Nota:", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentW, 5, tr(r.Record.Note), "", "L", false)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

// PDFExporter writes closing reports to a directory.
type PDFExporter struct {
	BusinessName string
	Dir          string
	// LastPath is the most recent file written.
	LastPath string
}

// Export implements caja.Exporter.
func (e *PDFExporter) Export(ctx context.Context, r caja.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := GenerateCortePDF(r, e.BusinessName, e.Dir)
	if err != nil {
		return err
	}
	e.LastPath = path
	log.Info().Int64("session_id", r.Session.ID).Str("path", path).Msg("corte PDF generated")
	return nil
}
