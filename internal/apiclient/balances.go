package apiclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ventafacil/internal/apierror"
	"ventafacil/internal/caja"
	"ventafacil/internal/dto"

	"github.com/shopspring/decimal"
)

// Active implements caja.BalanceAPI. It returns nil, nil when no drawer is
// open.
func (c *Client) Active(ctx context.Context) (*caja.RegisterSession, error) {
	res, err := call[dto.CorteActivo](ctx, c, request{op: "balances.active", method: http.MethodGet, path: "/api/balances"})
	if err != nil || res == nil {
		return nil, err
	}
	return &caja.RegisterSession{
		ID:            res.ID,
		OpenedAt:      parseWireTime(res.OpenDate),
		OpeningFloat:  res.InitialCash,
		CashSales:     res.CashSales,
		CardSales:     res.CardSales,
		TransferSales: res.TransferSales,
		CashExpenses:  res.CashExpenses,
		Refunds:       res.RefundSales,
		Transactions:  res.Transactions,
		CashierName:   res.Name,
		State:         caja.Open,
	}, nil
}

// Open implements caja.BalanceAPI. The only conflict this route answers is
// an already open drawer, so a 409 comes back wrapping caja.ErrAlreadyActive.
func (c *Client) Open(ctx context.Context, openingFloat decimal.Decimal) error {
	_, err := call[struct{}](ctx, c, request{
		op:     "balances.open",
		method: http.MethodPost,
		path:   "/api/balances",
		body:   dto.AbrirCajaRequest{InitialAmount: openingFloat},
	})
	var ae *apierror.Error
	if errors.As(err, &ae) && ae.Status == http.StatusConflict {
		ae.Err = caja.ErrAlreadyActive
	}
	return err
}

// Close implements caja.BalanceAPI and returns the figures the server stored.
func (c *Client) Close(ctx context.Context, counted decimal.Decimal, note string) (*caja.CloseResult, error) {
	res, err := call[dto.CorteCerrado](ctx, c, request{
		op:     "balances.close",
		method: http.MethodPut,
		path:   "/api/balances",
		body:   dto.CerrarCajaRequest{CountedCash: &counted, Note: note},
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, apierror.E(apierror.Backend, "balances.close", "Respuesta de cierre inválida", nil)
	}
	return &caja.CloseResult{
		SessionID: res.ID,
		Expected:  res.ExpectedCash,
		Counted:   res.CountedCash,
		Variance:  res.Difference,
	}, nil
}

// BalanceHistory lists past drawer sessions, newest first.
func (c *Client) BalanceHistory(ctx context.Context) ([]dto.CorteHistorial, error) {
	res, err := call[[]dto.CorteHistorial](ctx, c, request{op: "balances.history", method: http.MethodGet, path: "/api/balances/history"})
	if err != nil || res == nil {
		return nil, err
	}
	return *res, nil
}

// parseWireTime accepts the API layout and RFC 3339. Unparsable values are
// the zero time.
func parseWireTime(s string) time.Time {
	if t, err := time.ParseInLocation(dto.DateTimeLayout, s, time.Local); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
