package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ventafacil/internal/dto"
	"ventafacil/internal/model"
	"ventafacil/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type GastoService interface {
	Registrar(ctx context.Context, usuarioID int64, req dto.RegistrarGastoRequest) (*dto.GastoResponse, error)
	Listar(ctx context.Context) ([]dto.GastoResponse, error)
	Eliminar(ctx context.Context, id int64) error
}

type gastoService struct {
	repo     repository.GastoRepository
	cajaRepo repository.CajaRepository
	caja     CajaService
	now      func() time.Time
}

func NewGastoService(repo repository.GastoRepository, cajaRepo repository.CajaRepository, cajaSvc CajaService) GastoService {
	return &gastoService{repo: repo, cajaRepo: cajaRepo, caja: cajaSvc, now: time.Now}
}

// Registrar records the expense and its ledger movement. Only cash
// movements reduce the expected cash on close.
func (s *gastoService) Registrar(ctx context.Context, usuarioID int64, req dto.RegistrarGastoRequest) (*dto.GastoResponse, error) {
	fecha := s.now()
	if req.RegisterDate != "" {
		t, err := time.ParseInLocation(dto.DateTimeLayout, req.RegisterDate, time.Local)
		if err != nil {
			return nil, ErrFechaInvalida
		}
		fecha = t
	}
	if !req.Amount.IsPositive() {
		return nil, ErrMontoInvalido
	}

	g := model.Gasto{
		UsuarioID:     usuarioID,
		Descripcion:   strings.TrimSpace(req.Description),
		Categoria:     req.Category,
		MetodoPago:    req.PayMethod,
		Nota:          req.Note,
		Monto:         req.Amount.Round(2),
		Activo:        true,
		FechaRegistro: fecha,
	}
	err := runTx(ctx, s.cajaRepo.DB(), func(tx *gorm.DB) error {
		sesion, err := s.caja.RequireAbierta(ctx, tx)
		if err != nil {
			return err
		}
		g.SesionCajaID = sesion.ID
		if err := s.repo.Create(ctx, tx, &g); err != nil {
			return err
		}
		return s.cajaRepo.CreateMovimiento(ctx, tx, &model.MovimientoCaja{
			SesionCajaID: sesion.ID,
			Tipo:         model.MovEgreso,
			MetodoPago:   g.MetodoPago,
			Monto:        g.Monto,
			Descripcion:  fmt.Sprintf("Egreso #%d: %s", g.ID, g.Descripcion),
			ReferenciaID: g.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int64("expense_id", g.ID).Int64("session_id", g.SesionCajaID).
		Str("monto", g.Monto.StringFixed(2)).Str("metodo", g.MetodoPago).Msg("egreso registrado")
	return gastoToResponse(&g), nil
}

func (s *gastoService) Listar(ctx context.Context) ([]dto.GastoResponse, error) {
	sesion, err := s.cajaRepo.FindAbierta(ctx, nil)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return []dto.GastoResponse{}, nil
	}
	gs, err := s.repo.ListBySesion(ctx, sesion.ID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.GastoResponse, len(gs))
	for i := range gs {
		out[i] = *gastoToResponse(&gs[i])
	}
	return out, nil
}

// Eliminar voids an expense of the open session with an inverse movement.
func (s *gastoService) Eliminar(ctx context.Context, id int64) error {
	g, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if !g.Activo {
		return ErrNoEncontrado
	}
	err = runTx(ctx, s.cajaRepo.DB(), func(tx *gorm.DB) error {
		sesion, err := s.caja.RequireAbierta(ctx, tx)
		if err != nil {
			return err
		}
		if sesion.ID != g.SesionCajaID {
			return ErrFueraDeCorte
		}
		if err := s.repo.Desactivar(ctx, tx, g.ID); err != nil {
			return err
		}
		return s.cajaRepo.CreateMovimiento(ctx, tx, &model.MovimientoCaja{
			SesionCajaID: sesion.ID,
			Tipo:         model.MovEgresoAnulado,
			MetodoPago:   g.MetodoPago,
			Monto:        g.Monto,
			Descripcion:  fmt.Sprintf("Egreso #%d anulado", g.ID),
			ReferenciaID: g.ID,
		})
	})
	if err != nil {
		return err
	}
	log.Info().Int64("expense_id", id).Msg("egreso eliminado")
	return nil
}

func gastoToResponse(g *model.Gasto) *dto.GastoResponse {
	return &dto.GastoResponse{
		ID:           g.ID,
		BalanceID:    g.SesionCajaID,
		UserID:       g.UsuarioID,
		Description:  g.Descripcion,
		Category:     g.Categoria,
		PayMethod:    g.MetodoPago,
		Note:         g.Nota,
		RegisterDate: g.FechaRegistro.Format(dto.DateTimeLayout),
		Status:       boolToStatus(g.Activo),
		Amount:       g.Monto,
	}
}
