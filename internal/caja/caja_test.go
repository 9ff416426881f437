package caja

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"ventafacil/internal/apierror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── In-memory backend ─────────────────────────────────────────────────────────

type fakeBalances struct {
	mu       sync.Mutex
	active   *RegisterSession
	nextID   int64
	calls    int
	openErr  error
	closeErr error
	closed   []decimal.Decimal
	block    chan struct{}
	// lateCash is a cash sale the server records after the engine read the totals.
	lateCash decimal.Decimal
}

func (f *fakeBalances) Active(_ context.Context) (*RegisterSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.active == nil {
		return nil, nil
	}
	cp := *f.active
	return &cp, nil
}

func (f *fakeBalances) Open(_ context.Context, float decimal.Decimal) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.openErr != nil {
		return f.openErr
	}
	if f.active != nil {
		return apierror.E(apierror.StateConflict, "api", "Ya existe un corte activo", ErrAlreadyActive)
	}
	f.nextID++
	f.active = &RegisterSession{ID: f.nextID, OpeningFloat: float, OpenedAt: time.Now(), CashierName: "Ana"}
	return nil
}

func (f *fakeBalances) Close(_ context.Context, counted decimal.Decimal, _ string) (*CloseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.closeErr != nil {
		return nil, f.closeErr
	}
	if f.active == nil {
		return nil, apierror.E(apierror.StateConflict, "api", "No hay corte activo", nil)
	}
	f.active.CashSales = f.active.CashSales.Add(f.lateCash)
	expected := ComputeExpected(*f.active)
	res := &CloseResult{SessionID: f.active.ID, Expected: expected, Counted: counted, Variance: ComputeVariance(expected, counted)}
	f.closed = append(f.closed, counted)
	f.active = nil
	return res, nil
}

func (f *fakeBalances) record(cash, card, transfer, expenses, refunds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active.CashSales = decimal.NewFromFloat(cash)
	f.active.CardSales = decimal.NewFromFloat(card)
	f.active.TransferSales = decimal.NewFromFloat(transfer)
	f.active.CashExpenses = decimal.NewFromFloat(expenses)
	f.active.Refunds = decimal.NewFromFloat(refunds)
}

func (f *fakeBalances) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type exporterFunc func(ctx context.Context, r Report) error

func (fn exporterFunc) Export(ctx context.Context, r Report) error { return fn(ctx, r) }

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// ── Pure functions ────────────────────────────────────────────────────────────

func TestComputeExpectedIgnoresCardAndTransfer(t *testing.T) {
	cases := []struct {
		float, cash, expenses, refunds float64
	}{
		{0, 0, 0, 0},
		{500, 1200, 150, 50},
		{100.25, 0.1, 0.2, 0},
		{1000, 0, 999.99, 0.01},
	}
	for _, tc := range cases {
		base := RegisterSession{
			OpeningFloat: d(tc.float), CashSales: d(tc.cash),
			CashExpenses: d(tc.expenses), Refunds: d(tc.refunds),
		}
		want := d(tc.float).Add(d(tc.cash)).Sub(d(tc.expenses)).Sub(d(tc.refunds))
		assert.True(t, want.Equal(ComputeExpected(base)), "case %+v", tc)

		withOthers := base
		withOthers.CardSales = d(98765.43)
		withOthers.TransferSales = d(1234)
		assert.True(t, ComputeExpected(base).Equal(ComputeExpected(withOthers)))
	}
}

func TestComputeVarianceSign(t *testing.T) {
	assert.Equal(t, 1, ComputeVariance(d(100), d(100.01)).Sign())
	assert.Equal(t, -1, ComputeVariance(d(100), d(99.99)).Sign())
	assert.Equal(t, 0, ComputeVariance(d(100), d(100)).Sign())

	assert.Equal(t, Surplus, Classify(d(5)))
	assert.Equal(t, Shortage, Classify(d(-5)))
	assert.Equal(t, Balanced, Classify(decimal.Zero))
}

func TestClosingRecordLabel(t *testing.T) {
	r := ClosingRecord{Variance: d(-20), Outcome: Shortage}
	assert.Equal(t, "Falta $20.00", r.Label())
	assert.True(t, r.Missing().Equal(d(20)))

	r = ClosingRecord{Variance: d(1500.5), Outcome: Surplus}
	assert.Equal(t, "Sobra $1,500.50", r.Label())
	assert.True(t, r.Missing().IsZero())

	assert.Equal(t, "Cuadra perfecto", ClosingRecord{Outcome: Balanced}.Label())
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$0.00", FormatMoney(decimal.Zero))
	assert.Equal(t, "$999.90", FormatMoney(d(999.9)))
	assert.Equal(t, "$1,234,567.89", FormatMoney(d(1234567.89)))
	assert.Equal(t, "-$20.00", FormatMoney(d(-20)))
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount(" $1,480.50 ")
	require.NoError(t, err)
	assert.Equal(t, 1480.5, v)

	for _, in := range []string{"", "   ", "abc", "NaN", "Inf"} {
		_, err := ParseAmount(in)
		assert.True(t, apierror.IsKind(err, apierror.Validation), "input %q", in)
	}
}

// ── State machine ─────────────────────────────────────────────────────────────

func TestRouteFollowsActiveSession(t *testing.T) {
	api := &fakeBalances{}
	e := NewEngine(api, nil)

	r, err := e.Route(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RouteOpenCash, r)
	assert.Equal(t, NoActiveSession, e.State())

	_, err = e.OpenSession(context.Background(), 200)
	require.NoError(t, err)
	r, err = e.Route(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RouteSales, r)
	assert.Equal(t, Open, e.State())
}

func TestRequireOpenWithoutSession(t *testing.T) {
	e := NewEngine(&fakeBalances{}, nil)
	_, err := e.RequireOpen(context.Background())
	assert.True(t, apierror.IsKind(err, apierror.StateConflict))
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestOpenSessionValidatesLocally(t *testing.T) {
	api := &fakeBalances{}
	e := NewEngine(api, nil)
	for _, v := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := e.OpenSession(context.Background(), v)
		assert.True(t, apierror.IsKind(err, apierror.Validation))
	}
	assert.Equal(t, 0, api.callCount())
}

func TestOpenSessionWhenAlreadyActiveReturnsExisting(t *testing.T) {
	api := &fakeBalances{}
	e := NewEngine(api, nil)

	first, err := e.OpenSession(context.Background(), 500)
	require.NoError(t, err)
	assert.False(t, first.AlreadyActive)

	second, err := e.OpenSession(context.Background(), 900)
	require.NoError(t, err)
	assert.True(t, second.AlreadyActive)
	assert.Equal(t, first.Session.ID, second.Session.ID)
	assert.True(t, second.Session.OpeningFloat.Equal(d(500)))
	assert.Equal(t, int64(1), api.nextID)
	assert.Equal(t, Open, e.State())
}

func TestOpenSessionOtherConflictIsNotAlreadyActive(t *testing.T) {
	api := &fakeBalances{active: &RegisterSession{ID: 3, OpeningFloat: d(100)}}
	api.openErr = apierror.E(apierror.StateConflict, "api", "No hay corte activo", nil)
	e := NewEngine(api, nil)

	res, err := e.OpenSession(context.Background(), 10)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, apierror.IsKind(err, apierror.StateConflict))
	assert.Equal(t, "No hay corte activo", apierror.UserMessage(err))
}

func TestOpenSessionBackendFailure(t *testing.T) {
	api := &fakeBalances{openErr: apierror.E(apierror.Backend, "api", "Base de datos no disponible", nil)}
	e := NewEngine(api, nil)
	_, err := e.OpenSession(context.Background(), 10)
	assert.True(t, apierror.IsKind(err, apierror.Backend))
	assert.Equal(t, "Base de datos no disponible", apierror.UserMessage(err))
	assert.Equal(t, NoActiveSession, e.State())
}

func TestCloseSessionValidatesLocally(t *testing.T) {
	api := &fakeBalances{active: &RegisterSession{ID: 1}}
	e := NewEngine(api, nil)
	for _, v := range []float64{math.NaN(), -5} {
		_, err := e.CloseSession(context.Background(), v, "")
		assert.True(t, apierror.IsKind(err, apierror.Validation))
	}
	assert.Equal(t, 0, api.callCount())
	assert.NotNil(t, api.active)
}

func TestCloseSessionWithoutOpenSession(t *testing.T) {
	e := NewEngine(&fakeBalances{}, nil)
	_, err := e.CloseSession(context.Background(), 100, "")
	assert.True(t, apierror.IsKind(err, apierror.StateConflict))
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestCloseSessionBackendFailureKeepsOpen(t *testing.T) {
	api := &fakeBalances{active: &RegisterSession{ID: 1, OpeningFloat: d(100)}}
	api.closeErr = errors.New("connection reset")
	e := NewEngine(api, nil)

	_, err := e.CloseSession(context.Background(), 100, "")
	assert.True(t, apierror.IsKind(err, apierror.Backend))
	assert.Equal(t, Open, e.State())
	assert.NotNil(t, api.active)
}

func TestEndToEndShortage(t *testing.T) {
	ctx := context.Background()
	api := &fakeBalances{}
	var exported Report
	e := NewEngine(api, exporterFunc(func(_ context.Context, r Report) error {
		exported = r
		return nil
	}))

	_, err := e.OpenSession(ctx, 500)
	require.NoError(t, err)
	api.record(1200, 800, 300, 150, 50)

	s, err := e.GetActiveSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1500", ComputeExpected(*s).String())

	rec, err := e.CloseSession(ctx, 1480, "  faltó cambio ")
	require.NoError(t, err)
	assert.Equal(t, "1500", rec.Expected.String())
	assert.Equal(t, "-20", rec.Variance.String())
	assert.Equal(t, Shortage, rec.Outcome)
	assert.Equal(t, "20", rec.Missing().String())
	assert.Equal(t, "faltó cambio", rec.Note)
	assert.NoError(t, rec.ExportErr)

	assert.Equal(t, int64(1), exported.Session.ID)
	assert.Equal(t, Closed, exported.Session.State)
	assert.Equal(t, NoActiveSession, e.State())
	require.Len(t, api.closed, 1)
	assert.Equal(t, "1480", api.closed[0].String())
}

func TestCloseSessionRecordsServerFigures(t *testing.T) {
	ctx := context.Background()
	api := &fakeBalances{}
	var exported Report
	e := NewEngine(api, exporterFunc(func(_ context.Context, r Report) error {
		exported = r
		return nil
	}))
	_, err := e.OpenSession(ctx, 500)
	require.NoError(t, err)
	api.record(100, 0, 0, 0, 0)
	api.lateCash = d(40)

	rec, err := e.CloseSession(ctx, 600, "")
	require.NoError(t, err)
	assert.Equal(t, "640", rec.Expected.String())
	assert.Equal(t, "-40", rec.Variance.String())
	assert.Equal(t, Shortage, rec.Outcome)
	assert.True(t, exported.Record.Expected.Equal(rec.Expected))
}

func TestCloseSucceedsWhenExportFails(t *testing.T) {
	ctx := context.Background()
	api := &fakeBalances{}
	e := NewEngine(api, exporterFunc(func(context.Context, Report) error {
		return errors.New("disk full")
	}))
	_, err := e.OpenSession(ctx, 100)
	require.NoError(t, err)

	rec, err := e.CloseSession(ctx, 100, "")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, Balanced, rec.Outcome)
	assert.True(t, apierror.IsKind(rec.ExportErr, apierror.SideEffect))
	assert.Equal(t, NoActiveSession, e.State())
	assert.Nil(t, api.active)
}

func TestCloseSucceedsWhenExportPanics(t *testing.T) {
	ctx := context.Background()
	api := &fakeBalances{}
	e := NewEngine(api, exporterFunc(func(context.Context, Report) error {
		panic("nil font")
	}))
	_, err := e.OpenSession(ctx, 100)
	require.NoError(t, err)

	rec, err := e.CloseSession(ctx, 130, "")
	require.NoError(t, err)
	assert.Equal(t, Surplus, rec.Outcome)
	assert.Error(t, rec.ExportErr)
	assert.Equal(t, NoActiveSession, e.State())
}

func TestConcurrentOpenIsRejectedWhileInFlight(t *testing.T) {
	api := &fakeBalances{block: make(chan struct{})}
	e := NewEngine(api, nil)

	done := make(chan error, 1)
	go func() {
		_, err := e.OpenSession(context.Background(), 100)
		done <- err
	}()
	require.Eventually(t, func() bool { return e.busy.Load() }, time.Second, time.Millisecond)

	_, err := e.OpenSession(context.Background(), 100)
	assert.True(t, apierror.IsKind(err, apierror.StateConflict))

	close(api.block)
	require.NoError(t, <-done)
}
