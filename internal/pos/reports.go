package pos

import (
	"context"

	"ventafacil/internal/dto"
	"ventafacil/internal/permission"
)

// ReportsAPI is the backend for the dashboard figures.
type ReportsAPI interface {
	SalesInfo(ctx context.Context) (*dto.InfoVentasResponse, error)
	Profit(ctx context.Context) (*dto.GananciaResponse, error)
}

// Dashboard is today's and this month's sales and profit.
type Dashboard struct {
	Sales  dto.InfoVentasResponse
	Profit dto.GananciaResponse
}

type Reports struct {
	guard Guard
	api   ReportsAPI
}

func NewReports(g Guard, api ReportsAPI) *Reports { return &Reports{guard: g, api: api} }

// Dashboard needs VER_REPORTES and fails if either figure is unavailable.
func (r *Reports) Dashboard(ctx context.Context) (*Dashboard, error) {
	if err := r.guard.Require(permission.VerReportes); err != nil {
		return nil, err
	}
	sales, err := r.api.SalesInfo(ctx)
	if err != nil {
		return nil, err
	}
	profit, err := r.api.Profit(ctx)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Sales: *sales, Profit: *profit}, nil
}
