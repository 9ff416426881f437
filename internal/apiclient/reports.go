package apiclient

import (
	"context"
	"net/http"

	"ventafacil/internal/apierror"
	"ventafacil/internal/dto"
)

// SalesInfo returns today's and this month's transaction counts and totals.
func (c *Client) SalesInfo(ctx context.Context) (*dto.InfoVentasResponse, error) {
	res, err := call[dto.InfoVentasResponse](ctx, c, request{op: "reports.sales", method: http.MethodGet, path: "/api/reports/sales-info"})
	if err == nil && res == nil {
		err = apierror.E(apierror.Backend, "reports.sales", "Respuesta de reporte vacía", nil)
	}
	return res, err
}

// Profit returns today's and this month's profit.
func (c *Client) Profit(ctx context.Context) (*dto.GananciaResponse, error) {
	res, err := call[dto.GananciaResponse](ctx, c, request{op: "reports.profit", method: http.MethodGet, path: "/api/reports/profit"})
	if err == nil && res == nil {
		err = apierror.E(apierror.Backend, "reports.profit", "Respuesta de reporte vacía", nil)
	}
	return res, err
}
