package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"ventafacil/internal/dto"
)

// CreateSale registers a sale in the open drawer.
func (c *Client) CreateSale(ctx context.Context, in dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	return call[dto.VentaResponse](ctx, c, request{op: "sales.create", method: http.MethodPost, path: "/api/sales", body: in})
}

// Sales lists the sales of the open drawer.
func (c *Client) Sales(ctx context.Context) ([]dto.VentaResponse, error) {
	res, err := call[[]dto.VentaResponse](ctx, c, request{op: "sales.list", method: http.MethodGet, path: "/api/sales"})
	if err != nil || res == nil {
		return nil, err
	}
	return *res, nil
}

// SaleDetail returns the lines of one sale.
func (c *Client) SaleDetail(ctx context.Context, id int64) ([]dto.ItemVentaResponse, error) {
	res, err := call[[]dto.ItemVentaResponse](ctx, c, request{
		op:     "sales.detail",
		method: http.MethodGet,
		path:   "/api/sales/" + strconv.FormatInt(id, 10),
	})
	if err != nil || res == nil {
		return nil, err
	}
	return *res, nil
}

// CancelSale cancels a sale; its cash is refunded from the drawer.
func (c *Client) CancelSale(ctx context.Context, id int64) error {
	_, err := call[struct{}](ctx, c, request{
		op:     "sales.cancel",
		method: http.MethodDelete,
		path:   "/api/sales/" + strconv.FormatInt(id, 10),
	})
	return err
}
