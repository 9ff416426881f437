package dto

import "github.com/shopspring/decimal"

// Expense categories.
const (
	CategoriaServicio   = "Servicio"
	CategoriaTransporte = "Transporte"
	CategoriaOtro       = "Otro"
)

// RegistrarGastoRequest is the body of POST /api/expenses.
type RegistrarGastoRequest struct {
	Description  string          `json:"description"   validate:"required,min=3,max=200"`
	Amount       decimal.Decimal `json:"amount"        validate:"gt=0"`
	Category     string          `json:"category"      validate:"required,oneof=Servicio Transporte Otro"`
	PayMethod    string          `json:"pay_method"    validate:"required,oneof=efectivo tarjeta transferencia"`
	Note         *string         `json:"note"          validate:"omitempty,max=500"`
	RegisterDate string          `json:"register_date" validate:"omitempty,datetime=2006-01-02 15:04:05"`
}

// GastoResponse is a row of GET /api/expenses.
type GastoResponse struct {
	ID           int64           `json:"id"`
	BalanceID    int64           `json:"balance_id"`
	UserID       int64           `json:"user_id"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	PayMethod    string          `json:"pay_method"`
	Note         *string         `json:"note"`
	RegisterDate string          `json:"register_date"`
	Status       int             `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
}
