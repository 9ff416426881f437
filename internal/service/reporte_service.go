package service

import (
	"context"
	"time"

	"ventafacil/internal/dto"
	"ventafacil/internal/repository"
)

// ReporteService feeds the dashboard. Day and month follow the server's
// local calendar; cancelled sales are excluded.
type ReporteService interface {
	InfoVentas(ctx context.Context) (*dto.InfoVentasResponse, error)
	Ganancia(ctx context.Context) (*dto.GananciaResponse, error)
}

type reporteService struct {
	repo repository.ReporteRepository
	now  func() time.Time
}

func NewReporteService(repo repository.ReporteRepository) ReporteService {
	return &reporteService{repo: repo, now: time.Now}
}

// ventanas returns the start of today, the start of tomorrow, and the
// bounds of the current month.
func (s *reporteService) ventanas() (dia, manana, mes, sigMes time.Time) {
	now := s.now()
	y, m, d := now.Date()
	dia = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	mes = time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	return dia, dia.AddDate(0, 0, 1), mes, mes.AddDate(0, 1, 0)
}

func (s *reporteService) InfoVentas(ctx context.Context) (*dto.InfoVentasResponse, error) {
	dia, manana, mes, sigMes := s.ventanas()
	hoy, err := s.repo.Ventas(ctx, dia, manana)
	if err != nil {
		return nil, err
	}
	mensual, err := s.repo.Ventas(ctx, mes, sigMes)
	if err != nil {
		return nil, err
	}
	return &dto.InfoVentasResponse{
		DailyTransactions:   hoy.Transacciones,
		DailyTotal:          hoy.Total,
		MonthlyTransactions: mensual.Transacciones,
		MonthlyTotal:        mensual.Total,
	}, nil
}

func (s *reporteService) Ganancia(ctx context.Context) (*dto.GananciaResponse, error) {
	dia, manana, mes, sigMes := s.ventanas()
	hoy, err := s.repo.Ganancia(ctx, dia, manana)
	if err != nil {
		return nil, err
	}
	mensual, err := s.repo.Ganancia(ctx, mes, sigMes)
	if err != nil {
		return nil, err
	}
	return &dto.GananciaResponse{DayAmount: hoy, MonthAmount: mensual}, nil
}
