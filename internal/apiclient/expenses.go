package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"ventafacil/internal/dto"
)

// CreateExpense registers an expense in the open drawer.
func (c *Client) CreateExpense(ctx context.Context, in dto.RegistrarGastoRequest) (*dto.GastoResponse, error) {
	return call[dto.GastoResponse](ctx, c, request{op: "expenses.create", method: http.MethodPost, path: "/api/expenses", body: in})
}

// Expenses lists the expenses of the open drawer.
func (c *Client) Expenses(ctx context.Context) ([]dto.GastoResponse, error) {
	res, err := call[[]dto.GastoResponse](ctx, c, request{op: "expenses.list", method: http.MethodGet, path: "/api/expenses"})
	if err != nil || res == nil {
		return nil, err
	}
	return *res, nil
}

// DeleteExpense voids an expense.
func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	_, err := call[struct{}](ctx, c, request{
		op:     "expenses.delete",
		method: http.MethodDelete,
		path:   "/api/expenses/" + strconv.FormatInt(id, 10),
	})
	return err
}
