package service

import (
	"context"
	"fmt"
	"time"

	"ventafacil/internal/dto"
	"ventafacil/internal/model"
	"ventafacil/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ventaCompletada = "completada"
	ventaCancelada  = "cancelada"
)

// tolerance for client-computed totals.
var centavo = decimal.RequireFromString("0.01")

type VentaService interface {
	Registrar(ctx context.Context, usuarioID int64, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	// Listar returns the sales of the open session; empty when none is open.
	Listar(ctx context.Context) ([]dto.VentaResponse, error)
	Detalle(ctx context.Context, id int64) ([]dto.ItemVentaResponse, error)
	Cancelar(ctx context.Context, id int64) error
}

type ventaService struct {
	repo     repository.VentaRepository
	cajaRepo repository.CajaRepository
	caja     CajaService
	now      func() time.Time
}

func NewVentaService(repo repository.VentaRepository, cajaRepo repository.CajaRepository, cajaSvc CajaService) VentaService {
	return &ventaService{repo: repo, cajaRepo: cajaRepo, caja: cajaSvc, now: time.Now}
}

// ── Registrar ─────────────────────────────────────────────────────────────────
//   1. Recompute the total from the lines; reject a mismatch
//   2. Cash: received >= total, change computed here. Card/transfer: exact
//   3. BEGIN TX: require open session, create venta+items, ledger movement
//   4. COMMIT

func (s *ventaService) Registrar(ctx context.Context, usuarioID int64, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	total := decimal.Zero
	items := make([]model.VentaItem, len(req.Products))
	for i, p := range req.Products {
		sub := p.Price.Mul(decimal.NewFromInt(int64(p.Quantity))).Round(2)
		total = total.Add(sub)
		desc := p.Description
		if desc == "" {
			desc = fmt.Sprintf("Producto %d", p.ProductID)
		}
		items[i] = model.VentaItem{
			ProductoID:  p.ProductID,
			Descripcion: desc,
			Cantidad:    p.Quantity,
			Precio:      p.Price,
			Costo:       p.Cost,
			Subtotal:    sub,
		}
	}
	if total.Sub(req.Total).Abs().GreaterThan(centavo) {
		return nil, ErrTotalInvalido
	}

	recibido, cambio := total, decimal.Zero
	if req.PayMethod == dto.MetodoEfectivo {
		if req.CashReceived.LessThan(total) {
			return nil, ErrEfectivoInsuf
		}
		recibido = req.CashReceived
		cambio = recibido.Sub(total)
	}

	venta := model.Venta{
		UsuarioID:        usuarioID,
		MetodoPago:       req.PayMethod,
		Total:            total,
		EfectivoRecibido: recibido,
		Cambio:           cambio,
		Estado:           ventaCompletada,
		CreatedAt:        s.now(),
		Items:            items,
	}

	err := runTx(ctx, s.cajaRepo.DB(), func(tx *gorm.DB) error {
		sesion, err := s.caja.RequireAbierta(ctx, tx)
		if err != nil {
			return err
		}
		venta.SesionCajaID = sesion.ID
		if err := s.repo.Create(ctx, tx, &venta); err != nil {
			return err
		}
		return s.cajaRepo.CreateMovimiento(ctx, tx, &model.MovimientoCaja{
			SesionCajaID: sesion.ID,
			Tipo:         model.MovVenta,
			MetodoPago:   venta.MetodoPago,
			Monto:        total,
			Descripcion:  fmt.Sprintf("Venta #%d", venta.ID),
			ReferenciaID: venta.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int64("sale_id", venta.ID).Int64("session_id", venta.SesionCajaID).
		Str("total", total.StringFixed(2)).Str("metodo", venta.MetodoPago).Msg("venta registrada")
	return ventaToResponse(&venta), nil
}

// ── Listar / Detalle ──────────────────────────────────────────────────────────

func (s *ventaService) Listar(ctx context.Context) ([]dto.VentaResponse, error) {
	sesion, err := s.cajaRepo.FindAbierta(ctx, nil)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return []dto.VentaResponse{}, nil
	}
	ventas, err := s.repo.ListBySesion(ctx, sesion.ID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.VentaResponse, len(ventas))
	for i := range ventas {
		out[i] = *ventaToResponse(&ventas[i])
	}
	return out, nil
}

func (s *ventaService) Detalle(ctx context.Context, id int64) ([]dto.ItemVentaResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	out := make([]dto.ItemVentaResponse, len(v.Items))
	for i, it := range v.Items {
		out[i] = dto.ItemVentaResponse{
			ID:          it.ID,
			Quantity:    it.Cantidad,
			Description: it.Descripcion,
			Price:       it.Precio,
			Subtotal:    it.Subtotal,
		}
	}
	return out, nil
}

// ── Cancelar ──────────────────────────────────────────────────────────────────
// A cancellation is an inverse ledger entry; the sale row is only flagged.

func (s *ventaService) Cancelar(ctx context.Context, id int64) error {
	venta, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if venta.Estado == ventaCancelada {
		return ErrVentaCancelada
	}

	err = runTx(ctx, s.cajaRepo.DB(), func(tx *gorm.DB) error {
		sesion, err := s.caja.RequireAbierta(ctx, tx)
		if err != nil {
			return err
		}
		if sesion.ID != venta.SesionCajaID {
			return ErrFueraDeCorte
		}
		now := s.now()
		venta.Estado = ventaCancelada
		venta.CanceladaAt = &now
		if err := s.repo.UpdateEstado(ctx, tx, venta); err != nil {
			return err
		}
		return s.cajaRepo.CreateMovimiento(ctx, tx, &model.MovimientoCaja{
			SesionCajaID: sesion.ID,
			Tipo:         model.MovAnulacion,
			MetodoPago:   venta.MetodoPago,
			Monto:        venta.Total,
			Descripcion:  fmt.Sprintf("Cancelación venta #%d", venta.ID),
			ReferenciaID: venta.ID,
		})
	})
	if err != nil {
		return err
	}
	log.Info().Int64("sale_id", id).Msg("venta cancelada")
	return nil
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	status := 1
	if v.Estado == ventaCancelada {
		status = 0
	}
	resp := &dto.VentaResponse{
		ID:             v.ID,
		UserID:         v.UsuarioID,
		BalanceID:      v.SesionCajaID,
		PayMethod:      v.MetodoPago,
		Total:          v.Total,
		CashReceived:   v.EfectivoRecibido,
		ChangeReturned: v.Cambio,
		Date:           v.CreatedAt.Format(dto.DateTimeLayout),
		Status:         status,
	}
	if v.Usuario != nil {
		resp.User = v.Usuario.NombreCompleto()
	}
	return resp
}
