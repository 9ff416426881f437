package pos

import (
	"context"
	"fmt"
	"strings"

	"ventafacil/internal/apierror"
	"ventafacil/internal/caja"
	"ventafacil/internal/dto"
	"ventafacil/internal/permission"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PayMethod is how a sale or expense was paid.
type PayMethod string

const (
	Cash     PayMethod = dto.MetodoEfectivo
	Card     PayMethod = dto.MetodoTarjeta
	Transfer PayMethod = dto.MetodoTransferencia
)

// ParsePayMethod accepts the wire values in any case.
func ParsePayMethod(s string) (PayMethod, error) {
	switch m := PayMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case Cash, Card, Transfer:
		return m, nil
	}
	return "", apierror.E(apierror.Validation, "pos.paymethod", "Método de pago inválido", nil)
}

// DrawerChecker is satisfied by *caja.Engine.
type DrawerChecker interface {
	RequireOpen(ctx context.Context) (*caja.RegisterSession, error)
}

// SalesAPI is the backend for sales; *apiclient.Client implements it.
type SalesAPI interface {
	CreateSale(ctx context.Context, in dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	Sales(ctx context.Context) ([]dto.VentaResponse, error)
	SaleDetail(ctx context.Context, id int64) ([]dto.ItemVentaResponse, error)
	CancelSale(ctx context.Context, id int64) error
}

// SaleLine is one product in the cart.
type SaleLine struct {
	ProductID   int64
	Description string
	Quantity    int
	Price       decimal.Decimal
	Cost        decimal.Decimal
}

// SaleInput is a checkout. CashReceived only matters for cash sales.
type SaleInput struct {
	Method       PayMethod
	Lines        []SaleLine
	CashReceived decimal.Decimal
}

// Quote is the priced checkout.
type Quote struct {
	Total    decimal.Decimal
	Received decimal.Decimal
	Change   decimal.Decimal
}

// QuoteSale validates the cart and computes total and change. Card and
// transfer sales receive exactly the total.
func QuoteSale(in SaleInput) (Quote, error) {
	const op = "pos.quote"
	if len(in.Lines) == 0 {
		return Quote{}, apierror.E(apierror.Validation, op, "Agrega al menos un producto", nil)
	}
	total := decimal.Zero
	for i, l := range in.Lines {
		if l.Quantity <= 0 {
			return Quote{}, apierror.E(apierror.Validation, op, fmt.Sprintf("Cantidad inválida en la línea %d", i+1), nil)
		}
		if l.Price.IsNegative() || l.Cost.IsNegative() {
			return Quote{}, apierror.E(apierror.Validation, op, fmt.Sprintf("Precio inválido en la línea %d", i+1), nil)
		}
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	total = total.Round(2)
	if !total.IsPositive() {
		return Quote{}, apierror.E(apierror.Validation, op, "El total debe ser mayor a cero", nil)
	}

	switch in.Method {
	case Cash:
		if in.CashReceived.LessThan(total) {
			return Quote{}, apierror.E(apierror.Validation, op, "El efectivo recibido es menor al total", nil)
		}
		return Quote{Total: total, Received: in.CashReceived, Change: in.CashReceived.Sub(total)}, nil
	case Card, Transfer:
		return Quote{Total: total, Received: total, Change: decimal.Zero}, nil
	default:
		return Quote{}, apierror.E(apierror.Validation, op, "Método de pago inválido", nil)
	}
}

// Sales runs the checkout flow.
type Sales struct {
	guard  Guard
	drawer DrawerChecker
	api    SalesAPI
}

func NewSales(g Guard, drawer DrawerChecker, api SalesAPI) *Sales {
	return &Sales{guard: g, drawer: drawer, api: api}
}

// Register validates, checks the drawer is open, and submits the sale.
func (s *Sales) Register(ctx context.Context, in SaleInput) (*dto.VentaResponse, Quote, error) {
	if err := s.guard.Require(permission.AccesoVentas); err != nil {
		return nil, Quote{}, err
	}
	q, err := QuoteSale(in)
	if err != nil {
		return nil, Quote{}, err
	}
	if _, err := s.drawer.RequireOpen(ctx); err != nil {
		return nil, Quote{}, err
	}

	req := dto.RegistrarVentaRequest{
		PayMethod:    string(in.Method),
		Total:        q.Total,
		CashReceived: q.Received,
		Change:       q.Change,
		Products:     make([]dto.ItemVentaRequest, 0, len(in.Lines)),
	}
	for _, l := range in.Lines {
		req.Products = append(req.Products, dto.ItemVentaRequest{
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
			Price:       l.Price,
			Cost:        l.Cost,
			Subtotal:    l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2),
		})
	}

	v, err := s.api.CreateSale(ctx, req)
	if err != nil {
		return nil, Quote{}, err
	}
	if v != nil {
		log.Info().Int64("sale_id", v.ID).Str("total", q.Total.StringFixed(2)).Str("method", string(in.Method)).Msg("pos: sale registered")
	}
	return v, q, nil
}

func (s *Sales) List(ctx context.Context) ([]dto.VentaResponse, error) {
	if err := s.guard.Require(permission.AccesoVentas); err != nil {
		return nil, err
	}
	return s.api.Sales(ctx)
}

func (s *Sales) Detail(ctx context.Context, id int64) ([]dto.ItemVentaResponse, error) {
	if err := s.guard.Require(permission.AccesoVentas); err != nil {
		return nil, err
	}
	return s.api.SaleDetail(ctx, id)
}

// Cancel voids a sale. The server restricts this to administrators.
func (s *Sales) Cancel(ctx context.Context, id int64) error {
	if err := s.guard.Require(permission.AccesoVentas); err != nil {
		return err
	}
	if id <= 0 {
		return apierror.E(apierror.Validation, "pos.cancel", "Venta inválida", nil)
	}
	return s.api.CancelSale(ctx, id)
}
