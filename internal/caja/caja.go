// Package caja is the cash register reconciliation engine: it tracks the
// lifecycle of the single drawer session (no session → open → closed) and
// computes the close-out variance between counted and expected cash.
//
// The backend aggregates totals per payment method; the engine only re-reads
// them. Card and transfer sales never enter the expected cash figure.
package caja

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ventafacil/internal/apierror"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// State of the drawer as seen by this terminal.
type State int

const (
	NoActiveSession State = iota
	Open
	// Closed is transient: it is immediately followed by a re-query.
	Closed
)

func (s State) String() string {
	switch s {
	case NoActiveSession:
		return "sin_corte"
	case Open:
		return "abierta"
	case Closed:
		return "cerrada"
	default:
		return "desconocido"
	}
}

// RegisterSession is one open-to-close drawer period ("corte").
type RegisterSession struct {
	ID            int64
	OpenedAt      time.Time
	OpeningFloat  decimal.Decimal
	CashSales     decimal.Decimal
	CardSales     decimal.Decimal
	TransferSales decimal.Decimal
	CashExpenses  decimal.Decimal
	Refunds       decimal.Decimal
	Transactions  int
	CashierName   string
	State         State
}

// ClosingRecord is the immutable result of a close-out.
type ClosingRecord struct {
	SessionID int64
	Expected  decimal.Decimal
	Counted   decimal.Decimal
	Variance  decimal.Decimal
	Outcome   Outcome
	Note      string
	ClosedAt  time.Time
	// ExportErr is set when the document export failed. The close itself
	// succeeded regardless.
	ExportErr error
}

// Report is what the exporter receives after a close.
type Report struct {
	Session RegisterSession
	Record  ClosingRecord
}

// BalanceAPI is the backend for drawer sessions. Active returns nil, nil when
// no session is open.
type BalanceAPI interface {
	Active(ctx context.Context) (*RegisterSession, error)
	Open(ctx context.Context, openingFloat decimal.Decimal) error
	Close(ctx context.Context, counted decimal.Decimal, note string) (*CloseResult, error)
}

// CloseResult holds the figures the backend stored when closing.
type CloseResult struct {
	SessionID int64
	Expected  decimal.Decimal
	Counted   decimal.Decimal
	Variance  decimal.Decimal
}

// Exporter produces the closing document.
type Exporter interface {
	Export(ctx context.Context, r Report) error
}

// Route is where a cash-dependent screen should go.
type Route string

const (
	RouteOpenCash Route = "/abrir-caja"
	RouteSales    Route = "/ventas"
)

var (
	// ErrAlreadyActive marks a backend rejection of an open because a
	// session already exists.
	ErrAlreadyActive = errors.New("caja: ya existe un corte activo")
	// ErrNoActiveSession is returned by operations that need an open drawer.
	ErrNoActiveSession = errors.New("caja: no hay corte activo")
	errBusy            = errors.New("caja: operación en curso")
)

// ── Pure calculations ─────────────────────────────────────────────────────────

// ComputeExpected returns openingFloat + cashSales − cashExpenses − refunds.
func ComputeExpected(s RegisterSession) decimal.Decimal {
	return s.OpeningFloat.Add(s.CashSales).Sub(s.CashExpenses).Sub(s.Refunds)
}

// ComputeVariance returns counted − expected: positive is a surplus,
// negative a shortage.
func ComputeVariance(expected, counted decimal.Decimal) decimal.Decimal {
	return counted.Sub(expected)
}

// ── Engine ────────────────────────────────────────────────────────────────────

// Engine drives the drawer state machine for one terminal.
type Engine struct {
	api      BalanceAPI
	exporter Exporter
	now      func() time.Time

	mu    sync.RWMutex
	state State
	busy  atomic.Bool
}

// NewEngine returns an engine in NoActiveSession. exporter may be nil.
func NewEngine(api BalanceAPI, exporter Exporter) *Engine {
	return &Engine{api: api, exporter: exporter, now: time.Now}
}

// State is the last state observed or produced.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// GetActiveSession probes the backend and updates the state.
func (e *Engine) GetActiveSession(ctx context.Context) (*RegisterSession, error) {
	s, err := e.api.Active(ctx)
	if err != nil {
		return nil, backendErr("caja.active", "No se pudo consultar el corte activo", err)
	}
	if s == nil {
		e.setState(NoActiveSession)
		return nil, nil
	}
	s.State = Open
	e.setState(Open)
	return s, nil
}

// Route tells a cash-dependent screen where to go: the open-cash flow when
// there is no session, the sales screen otherwise.
func (e *Engine) Route(ctx context.Context) (Route, error) {
	s, err := e.GetActiveSession(ctx)
	if err != nil {
		return "", err
	}
	if s == nil {
		return RouteOpenCash, nil
	}
	return RouteSales, nil
}

// RequireOpen returns the open session or a StateConflict wrapping
// ErrNoActiveSession.
func (e *Engine) RequireOpen(ctx context.Context) (*RegisterSession, error) {
	s, err := e.GetActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apierror.E(apierror.StateConflict, "caja.require", "No hay caja abierta", ErrNoActiveSession)
	}
	return s, nil
}

// OpenResult carries the session after an open. AlreadyActive is true when
// the backend already had a session and nothing new was created.
type OpenResult struct {
	Session       *RegisterSession
	AlreadyActive bool
}

// OpenSession opens the drawer with a non-negative float.
func (e *Engine) OpenSession(ctx context.Context, openingFloat float64) (*OpenResult, error) {
	const op = "caja.open"
	if !validAmount(openingFloat) {
		return nil, apierror.E(apierror.Validation, op, "Ingresa un fondo inicial válido (0 o mayor).", nil)
	}
	if !e.busy.CompareAndSwap(false, true) {
		return nil, apierror.E(apierror.StateConflict, op, "Ya hay una operación de caja en curso", errBusy)
	}
	defer e.busy.Store(false)

	already := false
	if err := e.api.Open(ctx, decimal.NewFromFloat(openingFloat)); err != nil {
		if !errors.Is(err, ErrAlreadyActive) {
			return nil, backendErr(op, "No se pudo abrir caja.", err)
		}
		already = true
		log.Info().Msg("caja: open rejected, a session is already active; using it")
	}

	s, err := e.GetActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apierror.E(apierror.Backend, op, "La caja no quedó abierta. Intenta de nuevo.", nil)
	}
	if !already {
		log.Info().Int64("session_id", s.ID).Str("opening_float", s.OpeningFloat.StringFixed(2)).Msg("caja: session opened")
	}
	return &OpenResult{Session: s, AlreadyActive: already}, nil
}

// CloseSession closes the open drawer with the counted cash. The export runs
// after the backend accepted the close and cannot change its outcome.
func (e *Engine) CloseSession(ctx context.Context, countedCash float64, note string) (*ClosingRecord, error) {
	const op = "caja.close"
	if !validAmount(countedCash) {
		return nil, apierror.E(apierror.Validation, op, "Ingresa el efectivo contado (0 o mayor).", nil)
	}
	if !e.busy.CompareAndSwap(false, true) {
		return nil, apierror.E(apierror.StateConflict, op, "Ya hay una operación de caja en curso", errBusy)
	}
	defer e.busy.Store(false)

	s, err := e.GetActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apierror.E(apierror.StateConflict, op, "No hay caja abierta", ErrNoActiveSession)
	}

	counted := decimal.NewFromFloat(countedCash)
	expected := ComputeExpected(*s)
	variance := ComputeVariance(expected, counted)
	note = strings.TrimSpace(note)

	res, err := e.api.Close(ctx, counted, note)
	if err != nil {
		return nil, backendErr(op, "No se pudo cerrar la caja.", err)
	}
	if res != nil {
		if !res.Expected.Equal(expected) || !res.Counted.Equal(counted) {
			log.Warn().
				Int64("session_id", s.ID).
				Str("local_expected", expected.StringFixed(2)).
				Str("server_expected", res.Expected.StringFixed(2)).
				Msg("caja: backend closed with different figures, using them")
		}
		expected, counted, variance = res.Expected, res.Counted, res.Variance
	}

	rec := &ClosingRecord{
		SessionID: s.ID,
		Expected:  expected,
		Counted:   counted,
		Variance:  variance,
		Outcome:   Classify(variance),
		Note:      note,
		ClosedAt:  e.now(),
	}
	s.State = Closed
	e.setState(Closed)

	log.Info().
		Int64("session_id", s.ID).
		Str("expected", expected.StringFixed(2)).
		Str("counted", counted.StringFixed(2)).
		Str("variance", variance.StringFixed(2)).
		Msg("caja: session closed")

	if err := e.export(ctx, Report{Session: *s, Record: *rec}); err != nil {
		rec.ExportErr = apierror.E(apierror.SideEffect, "caja.export", "La caja se cerró, pero no se pudo generar el PDF", err)
		log.Warn().Err(err).Int64("session_id", s.ID).Msg("caja: corte export failed")
	}

	if _, err := e.GetActiveSession(ctx); err != nil {
		e.setState(NoActiveSession)
	}
	return rec, nil
}

func (e *Engine) export(ctx context.Context, r Report) (err error) {
	if e.exporter == nil {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = errors.New("export panicked")
			log.Error().Interface("panic", p).Msg("caja: export panic recovered")
		}
	}()
	return e.exporter.Export(ctx, r)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func validAmount(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}

func backendErr(op, fallback string, err error) error {
	var ae *apierror.Error
	if errors.As(err, &ae) {
		return err
	}
	return apierror.E(apierror.Backend, op, fallback, err)
}

// ParseAmount converts operator input into a number. Empty or non-numeric
// input is a validation error; the sign is checked by the operation.
func ParseAmount(text string) (float64, error) {
	t := strings.TrimSpace(text)
	t = strings.TrimPrefix(t, "$")
	t = strings.ReplaceAll(t, ",", "")
	if t == "" {
		return 0, apierror.E(apierror.Validation, "caja.parse", "Ingresa un monto", nil)
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apierror.E(apierror.Validation, "caja.parse", "Monto inválido", err)
	}
	return f, nil
}
