package dto

import "github.com/shopspring/decimal"

// Payment methods accepted on sales and expenses.
const (
	MetodoEfectivo      = "efectivo"
	MetodoTarjeta       = "tarjeta"
	MetodoTransferencia = "transferencia"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemVentaRequest struct {
	ProductID   int64           `json:"product_id"  validate:"required,min=1"`
	Description string          `json:"description" validate:"max=200"`
	Quantity    int             `json:"quantity"    validate:"required,min=1"`
	Price       decimal.Decimal `json:"price"       validate:"min=0"`
	Cost        decimal.Decimal `json:"cost"        validate:"min=0"`
	Subtotal    decimal.Decimal `json:"subtotal"    validate:"min=0"`
}

// RegistrarVentaRequest is the body of POST /api/sales.
type RegistrarVentaRequest struct {
	PayMethod    string             `json:"pay_method"    validate:"required,oneof=efectivo tarjeta transferencia"`
	Total        decimal.Decimal    `json:"total"         validate:"gt=0"`
	CashReceived decimal.Decimal    `json:"cash_received" validate:"min=0"`
	Change       decimal.Decimal    `json:"change"        validate:"min=0"`
	Products     []ItemVentaRequest `json:"products"      validate:"required,min=1,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// VentaResponse is a row of GET /api/sales.
type VentaResponse struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	BalanceID      int64           `json:"balance_id"`
	PayMethod      string          `json:"pay_method"`
	Total          decimal.Decimal `json:"total"`
	CashReceived   decimal.Decimal `json:"cash_received"`
	ChangeReturned decimal.Decimal `json:"change_returned"`
	Date           string          `json:"date"`
	Status         int             `json:"status"` // 1 activa, 0 cancelada
	User           string          `json:"user,omitempty"`
}

// ItemVentaResponse is a line of GET /api/sales/:id.
type ItemVentaResponse struct {
	ID          int64           `json:"id"`
	Quantity    int             `json:"quantity"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}
