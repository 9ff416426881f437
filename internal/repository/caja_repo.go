package repository

import (
	"context"
	"errors"

	"ventafacil/internal/dto"
	"ventafacil/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TotalesCaja are the per-method aggregates of one session's ledger.
type TotalesCaja struct {
	VentasEfectivo      decimal.Decimal
	VentasTarjeta       decimal.Decimal
	VentasTransferencia decimal.Decimal
	EgresosEfectivo     decimal.Decimal
	Devoluciones        decimal.Decimal
	Transacciones       int
}

type CajaRepository interface {
	// FindAbierta returns nil, nil when no session is open. Inside a
	// transaction the row is locked.
	FindAbierta(ctx context.Context, tx *gorm.DB) (*model.SesionCaja, error)
	FindByID(ctx context.Context, id int64) (*model.SesionCaja, error)
	CreateSesion(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error
	UpdateSesion(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error
	CreateMovimiento(ctx context.Context, tx *gorm.DB, m *model.MovimientoCaja) error
	Totales(ctx context.Context, tx *gorm.DB, sesionID int64) (TotalesCaja, error)
	Historial(ctx context.Context, limit int) ([]model.SesionCaja, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) DB() *gorm.DB { return r.db }

func (r *cajaRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *cajaRepo) FindAbierta(ctx context.Context, tx *gorm.DB) (*model.SesionCaja, error) {
	q := r.conn(tx).WithContext(ctx).Preload("Usuario")
	if tx != nil && r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var s model.SesionCaja
	err := q.Where("estado = ?", "abierta").Order("id DESC").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) FindByID(ctx context.Context, id int64) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).Preload("Usuario").First(&s, id).Error
	return &s, err
}

func (r *cajaRepo) CreateSesion(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error {
	return r.conn(tx).WithContext(ctx).Create(s).Error
}

func (r *cajaRepo) UpdateSesion(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error {
	return r.conn(tx).WithContext(ctx).Omit("Usuario", "Movimientos").Save(s).Error
}

func (r *cajaRepo) CreateMovimiento(ctx context.Context, tx *gorm.DB, m *model.MovimientoCaja) error {
	return r.conn(tx).WithContext(ctx).Create(m).Error
}

type totalRow struct {
	Tipo       string
	MetodoPago string
	Total      decimal.Decimal
	Cantidad   int
}

// Totales folds the ledger with one GROUP BY over (tipo, metodo_pago).
// Cancelled cash sales stay in VentasEfectivo and show up again as
// Devoluciones; cancelled card or transfer sales are netted out.
func (r *cajaRepo) Totales(ctx context.Context, tx *gorm.DB, sesionID int64) (TotalesCaja, error) {
	var rows []totalRow
	err := r.conn(tx).WithContext(ctx).
		Model(&model.MovimientoCaja{}).
		Select("tipo, metodo_pago, COALESCE(SUM(monto), 0) AS total, COUNT(*) AS cantidad").
		Where("sesion_caja_id = ?", sesionID).
		Group("tipo, metodo_pago").
		Scan(&rows).Error
	if err != nil {
		return TotalesCaja{}, err
	}

	t := TotalesCaja{
		VentasEfectivo:      decimal.Zero,
		VentasTarjeta:       decimal.Zero,
		VentasTransferencia: decimal.Zero,
		EgresosEfectivo:     decimal.Zero,
		Devoluciones:        decimal.Zero,
	}
	for _, row := range rows {
		switch row.Tipo {
		case model.MovVenta:
			t.Transacciones += row.Cantidad
			switch row.MetodoPago {
			case dto.MetodoEfectivo:
				t.VentasEfectivo = t.VentasEfectivo.Add(row.Total)
			case dto.MetodoTarjeta:
				t.VentasTarjeta = t.VentasTarjeta.Add(row.Total)
			case dto.MetodoTransferencia:
				t.VentasTransferencia = t.VentasTransferencia.Add(row.Total)
			}
		case model.MovAnulacion:
			t.Transacciones -= row.Cantidad
			switch row.MetodoPago {
			case dto.MetodoEfectivo:
				t.Devoluciones = t.Devoluciones.Add(row.Total)
			case dto.MetodoTarjeta:
				t.VentasTarjeta = t.VentasTarjeta.Sub(row.Total)
			case dto.MetodoTransferencia:
				t.VentasTransferencia = t.VentasTransferencia.Sub(row.Total)
			}
		case model.MovEgreso:
			if row.MetodoPago == dto.MetodoEfectivo {
				t.EgresosEfectivo = t.EgresosEfectivo.Add(row.Total)
			}
		case model.MovEgresoAnulado:
			if row.MetodoPago == dto.MetodoEfectivo {
				t.EgresosEfectivo = t.EgresosEfectivo.Sub(row.Total)
			}
		}
	}
	return t, nil
}

func (r *cajaRepo) Historial(ctx context.Context, limit int) ([]model.SesionCaja, error) {
	var ss []model.SesionCaja
	err := r.db.WithContext(ctx).Preload("Usuario").
		Order("id DESC").Limit(limit).
		Find(&ss).Error
	return ss, err
}
