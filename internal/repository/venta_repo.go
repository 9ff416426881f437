package repository

import (
	"context"

	"ventafacil/internal/model"

	"gorm.io/gorm"
)

type VentaRepository interface {
	Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	FindByID(ctx context.Context, id int64) (*model.Venta, error)
	UpdateEstado(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	ListBySesion(ctx context.Context, sesionID int64) ([]model.Venta, error)
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

// Create stores the sale with its items.
func (r *ventaRepo) Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return tx.WithContext(ctx).Omit("Usuario").Create(v).Error
}

func (r *ventaRepo) FindByID(ctx context.Context, id int64) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).Preload("Items").Preload("Usuario").First(&v, id).Error
	return &v, err
}

func (r *ventaRepo) UpdateEstado(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return tx.WithContext(ctx).Model(&model.Venta{}).Where("id = ?", v.ID).
		Updates(map[string]any{"estado": v.Estado, "cancelada_at": v.CanceladaAt}).Error
}

func (r *ventaRepo) ListBySesion(ctx context.Context, sesionID int64) ([]model.Venta, error) {
	var ventas []model.Venta
	err := r.db.WithContext(ctx).Preload("Usuario").
		Where("sesion_caja_id = ?", sesionID).
		Order("created_at DESC, id DESC").
		Find(&ventas).Error
	return ventas, err
}
