package dto

import "github.com/shopspring/decimal"

// InfoVentasResponse is the body of GET /api/reports/sales-info.
type InfoVentasResponse struct {
	DailyTransactions   int             `json:"daily_transactions"`
	DailyTotal          decimal.Decimal `json:"daily_total"`
	MonthlyTransactions int             `json:"monthly_transactions"`
	MonthlyTotal        decimal.Decimal `json:"monthly_total"`
}

// GananciaResponse is the body of GET /api/reports/profit.
type GananciaResponse struct {
	DayAmount   decimal.Decimal `json:"day_amount"`
	MonthAmount decimal.Decimal `json:"month_amount"`
}
