package pos

import (
	"context"
	"strings"
	"time"

	"ventafacil/internal/apierror"
	"ventafacil/internal/dto"
	"ventafacil/internal/permission"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ExpensesAPI is the backend for expenses.
type ExpensesAPI interface {
	CreateExpense(ctx context.Context, in dto.RegistrarGastoRequest) (*dto.GastoResponse, error)
	Expenses(ctx context.Context) ([]dto.GastoResponse, error)
	DeleteExpense(ctx context.Context, id int64) error
}

// ExpenseInput is the expense form.
type ExpenseInput struct {
	Description string
	Amount      decimal.Decimal
	Category    string
	Method      PayMethod
	Note        string
}

var categories = map[string]string{
	"servicio":   dto.CategoriaServicio,
	"transporte": dto.CategoriaTransporte,
	"otro":       dto.CategoriaOtro,
}

// Expenses runs the expense flow.
type Expenses struct {
	guard  Guard
	drawer DrawerChecker
	api    ExpensesAPI
	now    func() time.Time
}

func NewExpenses(g Guard, drawer DrawerChecker, api ExpensesAPI) *Expenses {
	return &Expenses{guard: g, drawer: drawer, api: api, now: time.Now}
}

// Register validates the form and records it against the open drawer.
func (e *Expenses) Register(ctx context.Context, in ExpenseInput) (*dto.GastoResponse, error) {
	const op = "pos.expense"
	if err := e.guard.Require(permission.AccesoEgresos); err != nil {
		return nil, err
	}
	desc := strings.TrimSpace(in.Description)
	if len([]rune(desc)) < 3 {
		return nil, apierror.E(apierror.Validation, op, "La descripción es obligatoria", nil)
	}
	if !in.Amount.IsPositive() {
		return nil, apierror.E(apierror.Validation, op, "El monto debe ser mayor a cero", nil)
	}
	cat, ok := categories[strings.ToLower(strings.TrimSpace(in.Category))]
	if !ok {
		return nil, apierror.E(apierror.Validation, op, "Categoría inválida", nil)
	}
	method, err := ParsePayMethod(string(in.Method))
	if err != nil {
		return nil, err
	}
	if _, err := e.drawer.RequireOpen(ctx); err != nil {
		return nil, err
	}

	req := dto.RegistrarGastoRequest{
		Description:  desc,
		Amount:       in.Amount.Round(2),
		Category:     cat,
		PayMethod:    string(method),
		RegisterDate: e.now().Format(dto.DateTimeLayout),
	}
	if note := strings.TrimSpace(in.Note); note != "" {
		req.Note = &note
	}
	g, err := e.api.CreateExpense(ctx, req)
	if err != nil {
		return nil, err
	}
	if g != nil {
		log.Info().Int64("expense_id", g.ID).Str("amount", req.Amount.StringFixed(2)).Msg("pos: expense registered")
	}
	return g, nil
}

func (e *Expenses) List(ctx context.Context) ([]dto.GastoResponse, error) {
	if err := e.guard.Require(permission.AccesoEgresos); err != nil {
		return nil, err
	}
	return e.api.Expenses(ctx)
}

func (e *Expenses) Delete(ctx context.Context, id int64) error {
	if err := e.guard.Require(permission.AccesoEgresos); err != nil {
		return err
	}
	return e.api.DeleteExpense(ctx, id)
}
