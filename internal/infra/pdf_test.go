package infra

import (
	"context"
	"os"
	"testing"
	"time"

	"ventafacil/internal/caja"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() caja.Report {
	s := caja.RegisterSession{
		ID:           7,
		OpenedAt:     time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		OpeningFloat: decimal.NewFromInt(500),
		CashSales:    decimal.NewFromInt(1200),
		CardSales:    decimal.NewFromInt(300),
		CashExpenses: decimal.NewFromInt(150),
		Refunds:      decimal.NewFromInt(50),
		Transactions: 12,
		CashierName:  "María López",
	}
	expected := caja.ComputeExpected(s)
	counted := decimal.NewFromInt(1480)
	v := caja.ComputeVariance(expected, counted)
	return caja.Report{
		Session: s,
		Record: caja.ClosingRecord{
			SessionID: 7, Expected: expected, Counted: counted, Variance: v,
			Outcome: caja.Classify(v), Note: "Faltó cambio de $20", ClosedAt: time.Date(2026, 3, 2, 20, 15, 0, 0, time.UTC),
		},
	}
}

func TestGenerateCortePDF(t *testing.T) {
	dir := t.TempDir()
	path, err := GenerateCortePDF(sampleReport(), "Venta Fácil", dir)
	require.NoError(t, err)

	assert.Contains(t, path, "corte_7_20260302_2015.pdf")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestPDFExporter_RecordsPath(t *testing.T) {
	e := &PDFExporter{BusinessName: "Venta Fácil", Dir: t.TempDir()}
	require.NoError(t, e.Export(context.Background(), sampleReport()))
	assert.FileExists(t, e.LastPath)
}

func TestPDFExporter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := &PDFExporter{BusinessName: "x", Dir: t.TempDir()}
	assert.ErrorIs(t, e.Export(ctx, sampleReport()), context.Canceled)
	assert.Empty(t, e.LastPath)
}
