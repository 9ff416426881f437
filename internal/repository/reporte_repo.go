package repository

import (
	"context"
	"time"

	"ventafacil/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ResumenVentas counts and totals completed sales in a time window.
type ResumenVentas struct {
	Transacciones int
	Total         decimal.Decimal
}

// ReporteRepository aggregates sales for the dashboard. Windows are
// half-open: [desde, hasta).
type ReporteRepository interface {
	Ventas(ctx context.Context, desde, hasta time.Time) (ResumenVentas, error)
	Ganancia(ctx context.Context, desde, hasta time.Time) (decimal.Decimal, error)
}

type reporteRepo struct{ db *gorm.DB }

func NewReporteRepository(db *gorm.DB) ReporteRepository { return &reporteRepo{db: db} }

func (r *reporteRepo) Ventas(ctx context.Context, desde, hasta time.Time) (ResumenVentas, error) {
	var row struct {
		Transacciones int
		Total         decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&model.Venta{}).
		Select("COUNT(*) AS transacciones, COALESCE(SUM(total), 0) AS total").
		Where("estado = ? AND created_at >= ? AND created_at < ?", "completada", desde, hasta).
		Scan(&row).Error
	if err != nil {
		return ResumenVentas{}, err
	}
	return ResumenVentas{Transacciones: row.Transacciones, Total: row.Total.Round(2)}, nil
}

// Ganancia sums (precio - costo) * cantidad over the items of completed sales.
func (r *reporteRepo) Ganancia(ctx context.Context, desde, hasta time.Time) (decimal.Decimal, error) {
	var row struct{ Ganancia decimal.Decimal }
	err := r.db.WithContext(ctx).
		Model(&model.VentaItem{}).
		Select("COALESCE(SUM((venta_items.precio - venta_items.costo) * venta_items.cantidad), 0) AS ganancia").
		Joins("JOIN ventas ON ventas.id = venta_items.venta_id").
		Where("ventas.estado = ? AND ventas.created_at >= ? AND ventas.created_at < ?", "completada", desde, hasta).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Ganancia.Round(2), nil
}
