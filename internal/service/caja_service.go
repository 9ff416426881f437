package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ventafacil/internal/caja"
	"ventafacil/internal/dto"
	"ventafacil/internal/model"
	"ventafacil/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CorteNotifier is told about every closed session; the worker dispatcher
// implements it.
type CorteNotifier interface {
	EnqueueCorte(ctx context.Context, sesionID int64) error
}

type CajaService interface {
	Abrir(ctx context.Context, usuarioID int64, req dto.AbrirCajaRequest) error
	// Activa returns nil, nil when no session is open.
	Activa(ctx context.Context) (*dto.CorteActivo, error)
	Cerrar(ctx context.Context, usuarioID int64, req dto.CerrarCajaRequest) (*dto.CorteCerrado, error)
	Historial(ctx context.Context, limit int) ([]dto.CorteHistorial, error)
	// Reporte rebuilds the closing report of a closed session.
	Reporte(ctx context.Context, sesionID int64) (*caja.Report, error)
	// RequireAbierta is called by VentaService and GastoService inside their
	// transactions.
	RequireAbierta(ctx context.Context, tx *gorm.DB) (*model.SesionCaja, error)
}

type cajaService struct {
	repo     repository.CajaRepository
	notifier CorteNotifier
	now      func() time.Time
}

// NewCajaService accepts a nil notifier.
func NewCajaService(repo repository.CajaRepository, notifier CorteNotifier) CajaService {
	return &cajaService{repo: repo, notifier: notifier, now: time.Now}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────
// One open drawer system-wide, whichever terminal asks.

func (s *cajaService) Abrir(ctx context.Context, usuarioID int64, req dto.AbrirCajaRequest) error {
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		existing, err := s.repo.FindAbierta(ctx, tx)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrCorteActivo
		}
		return s.repo.CreateSesion(ctx, tx, &model.SesionCaja{
			UsuarioID:    usuarioID,
			MontoInicial: req.InitialAmount.Round(2),
			Estado:       "abierta",
			OpenedAt:     s.now(),
		})
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrCorteActivo
	}
	if err != nil {
		return err
	}
	log.Info().Int64("user_id", usuarioID).Str("monto_inicial", req.InitialAmount.StringFixed(2)).Msg("caja abierta")
	return nil
}

// ── Activa ────────────────────────────────────────────────────────────────────

func (s *cajaService) Activa(ctx context.Context) (*dto.CorteActivo, error) {
	sesion, err := s.repo.FindAbierta(ctx, nil)
	if err != nil || sesion == nil {
		return nil, err
	}
	tot, err := s.repo.Totales(ctx, nil, sesion.ID)
	if err != nil {
		return nil, err
	}
	return &dto.CorteActivo{
		ID:            sesion.ID,
		OpenDate:      sesion.OpenedAt.Format(dto.DateTimeLayout),
		InitialCash:   sesion.MontoInicial,
		CashSales:     tot.VentasEfectivo,
		TransferSales: tot.VentasTransferencia,
		CardSales:     tot.VentasTarjeta,
		CashExpenses:  tot.EgresosEfectivo,
		RefundSales:   tot.Devoluciones,
		Transactions:  tot.Transacciones,
		Name:          nombreCajero(sesion),
	}, nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Expected cash is recomputed from the ledger inside the transaction; the
// counted amount is the operator's declaration.

func (s *cajaService) Cerrar(ctx context.Context, usuarioID int64, req dto.CerrarCajaRequest) (*dto.CorteCerrado, error) {
	if req.CountedCash == nil || req.CountedCash.IsNegative() {
		return nil, ErrMontoInvalido
	}
	var out *dto.CorteCerrado
	var sesionID int64
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		sesion, err := s.repo.FindAbierta(ctx, tx)
		if err != nil {
			return err
		}
		if sesion == nil {
			return ErrSinCorte
		}
		tot, err := s.repo.Totales(ctx, tx, sesion.ID)
		if err != nil {
			return err
		}

		rs := registerSession(sesion, tot)
		expected := caja.ComputeExpected(rs)
		counted := req.CountedCash.Round(2)
		diff := caja.ComputeVariance(expected, counted)
		closedAt := s.now()

		sesion.MontoEsperado = &expected
		sesion.MontoDeclarado = &counted
		sesion.Diferencia = &diff
		sesion.Observaciones = strings.TrimSpace(req.Note)
		sesion.Estado = "cerrada"
		sesion.ClosedAt = &closedAt
		if err := s.repo.UpdateSesion(ctx, tx, sesion); err != nil {
			return err
		}

		sesionID = sesion.ID
		out = &dto.CorteCerrado{
			ID:           sesion.ID,
			ExpectedCash: expected,
			CountedCash:  counted,
			Difference:   diff,
			Note:         sesion.Observaciones,
			CloseDate:    closedAt.Format(dto.DateTimeLayout),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("session_id", sesionID).
		Int64("user_id", usuarioID).
		Str("esperado", out.ExpectedCash.StringFixed(2)).
		Str("contado", out.CountedCash.StringFixed(2)).
		Str("diferencia", out.Difference.StringFixed(2)).
		Msg("caja cerrada")

	// Best-effort: the close is committed regardless.
	if s.notifier != nil {
		if err := s.notifier.EnqueueCorte(ctx, sesionID); err != nil {
			log.Warn().Err(err).Int64("session_id", sesionID).Msg("no se pudo encolar el reporte de corte")
		}
	}
	return out, nil
}

// ── Historial / Reporte ───────────────────────────────────────────────────────

func (s *cajaService) Historial(ctx context.Context, limit int) ([]dto.CorteHistorial, error) {
	ss, err := s.repo.Historial(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CorteHistorial, len(ss))
	for i := range ss {
		sesion := &ss[i]
		h := dto.CorteHistorial{
			ID:           sesion.ID,
			Name:         nombreCajero(sesion),
			OpenDate:     sesion.OpenedAt.Format(dto.DateTimeLayout),
			InitialCash:  sesion.MontoInicial,
			ExpectedCash: sesion.MontoEsperado,
			CountedCash:  sesion.MontoDeclarado,
			Difference:   sesion.Diferencia,
			Note:         sesion.Observaciones,
		}
		if sesion.ClosedAt != nil {
			c := sesion.ClosedAt.Format(dto.DateTimeLayout)
			h.CloseDate = &c
		}
		out[i] = h
	}
	return out, nil
}

func (s *cajaService) Reporte(ctx context.Context, sesionID int64) (*caja.Report, error) {
	sesion, err := s.repo.FindByID(ctx, sesionID)
	if err != nil {
		return nil, notFound(err)
	}
	if sesion.Estado != "cerrada" || sesion.MontoDeclarado == nil || sesion.MontoEsperado == nil {
		return nil, ErrCorteActivo
	}
	tot, err := s.repo.Totales(ctx, nil, sesionID)
	if err != nil {
		return nil, err
	}
	rs := registerSession(sesion, tot)
	rs.State = caja.Closed
	diff := caja.ComputeVariance(*sesion.MontoEsperado, *sesion.MontoDeclarado)
	rec := caja.ClosingRecord{
		SessionID: sesion.ID,
		Expected:  *sesion.MontoEsperado,
		Counted:   *sesion.MontoDeclarado,
		Variance:  diff,
		Outcome:   caja.Classify(diff),
		Note:      sesion.Observaciones,
	}
	if sesion.ClosedAt != nil {
		rec.ClosedAt = *sesion.ClosedAt
	}
	return &caja.Report{Session: rs, Record: rec}, nil
}

// ── RequireAbierta ────────────────────────────────────────────────────────────

func (s *cajaService) RequireAbierta(ctx context.Context, tx *gorm.DB) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindAbierta(ctx, tx)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, ErrSinCorte
	}
	return sesion, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func registerSession(s *model.SesionCaja, t repository.TotalesCaja) caja.RegisterSession {
	return caja.RegisterSession{
		ID:            s.ID,
		OpenedAt:      s.OpenedAt,
		OpeningFloat:  s.MontoInicial,
		CashSales:     t.VentasEfectivo,
		CardSales:     t.VentasTarjeta,
		TransferSales: t.VentasTransferencia,
		CashExpenses:  t.EgresosEfectivo,
		Refunds:       t.Devoluciones,
		Transactions:  t.Transacciones,
		CashierName:   nombreCajero(s),
		State:         caja.Open,
	}
}

func nombreCajero(s *model.SesionCaja) string {
	if s.Usuario == nil {
		return ""
	}
	return s.Usuario.NombreCompleto()
}
