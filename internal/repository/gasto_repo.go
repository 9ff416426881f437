package repository

import (
	"context"

	"ventafacil/internal/model"

	"gorm.io/gorm"
)

type GastoRepository interface {
	Create(ctx context.Context, tx *gorm.DB, g *model.Gasto) error
	FindByID(ctx context.Context, id int64) (*model.Gasto, error)
	Desactivar(ctx context.Context, tx *gorm.DB, id int64) error
	ListBySesion(ctx context.Context, sesionID int64) ([]model.Gasto, error)
}

type gastoRepo struct{ db *gorm.DB }

func NewGastoRepository(db *gorm.DB) GastoRepository { return &gastoRepo{db: db} }

func (r *gastoRepo) Create(ctx context.Context, tx *gorm.DB, g *model.Gasto) error {
	return tx.WithContext(ctx).Create(g).Error
}

func (r *gastoRepo) FindByID(ctx context.Context, id int64) (*model.Gasto, error) {
	var g model.Gasto
	err := r.db.WithContext(ctx).First(&g, id).Error
	return &g, err
}

func (r *gastoRepo) Desactivar(ctx context.Context, tx *gorm.DB, id int64) error {
	return tx.WithContext(ctx).Model(&model.Gasto{}).Where("id = ?", id).Update("activo", false).Error
}

// ListBySesion returns active expenses only.
func (r *gastoRepo) ListBySesion(ctx context.Context, sesionID int64) ([]model.Gasto, error) {
	var gs []model.Gasto
	err := r.db.WithContext(ctx).
		Where("sesion_caja_id = ? AND activo = ?", sesionID, true).
		Order("fecha_registro DESC, id DESC").
		Find(&gs).Error
	return gs, err
}
