package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// AbrirCajaRequest is the body of POST /api/balances.
type AbrirCajaRequest struct {
	InitialAmount decimal.Decimal `json:"initial_amount" validate:"min=0"`
}

// CerrarCajaRequest is the body of PUT /api/balances.
type CerrarCajaRequest struct {
	CountedCash *decimal.Decimal `json:"counted_cash" validate:"required,min=0"`
	Note        string           `json:"note"         validate:"max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// CorteActivo is the open drawer with its per-method totals, as returned by
// GET /api/balances (data is null when nothing is open).
type CorteActivo struct {
	ID            int64           `json:"id"`
	OpenDate      string          `json:"open_date"`
	InitialCash   decimal.Decimal `json:"initial_cash"`
	CashSales     decimal.Decimal `json:"cash_sales"`
	TransferSales decimal.Decimal `json:"transfer_sales"`
	CardSales     decimal.Decimal `json:"card_sales"`
	CashExpenses  decimal.Decimal `json:"cash_expenses"`
	RefundSales   decimal.Decimal `json:"refund_sales"`
	Transactions  int             `json:"transactions"`
	Name          string          `json:"name"`
}

// CorteCerrado is returned by PUT /api/balances.
type CorteCerrado struct {
	ID           int64           `json:"id"`
	ExpectedCash decimal.Decimal `json:"expected_cash"`
	CountedCash  decimal.Decimal `json:"counted_cash"`
	Difference   decimal.Decimal `json:"difference"`
	Note         string          `json:"note,omitempty"`
	CloseDate    string          `json:"close_date"`
}

// CorteHistorial is one row of GET /api/balances/history.
type CorteHistorial struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	OpenDate     string           `json:"open_date"`
	CloseDate    *string          `json:"close_date"`
	InitialCash  decimal.Decimal  `json:"initial_cash"`
	ExpectedCash *decimal.Decimal `json:"expected_cash"`
	CountedCash  *decimal.Decimal `json:"counted_cash"`
	Difference   *decimal.Decimal `json:"difference"`
	Note         string           `json:"note,omitempty"`
}
