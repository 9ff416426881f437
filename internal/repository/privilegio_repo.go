package repository

import (
	"context"

	"ventafacil/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PrivilegioRepository interface {
	List(ctx context.Context) ([]model.Privilegio, error)
	FindByID(ctx context.Context, id int64) (*model.Privilegio, error)
	// Upsert inserts catalog entries by clave, updating descriptions.
	Upsert(ctx context.Context, ps []model.Privilegio) error
	ListByUsuario(ctx context.Context, usuarioID int64) ([]model.Privilegio, error)
	Asignar(ctx context.Context, usuarioID, privilegioID int64) error
	Quitar(ctx context.Context, usuarioID, privilegioID int64) error
}

type privilegioRepo struct{ db *gorm.DB }

func NewPrivilegioRepository(db *gorm.DB) PrivilegioRepository { return &privilegioRepo{db: db} }

func (r *privilegioRepo) List(ctx context.Context) ([]model.Privilegio, error) {
	var ps []model.Privilegio
	err := r.db.WithContext(ctx).Order("id ASC").Find(&ps).Error
	return ps, err
}

func (r *privilegioRepo) FindByID(ctx context.Context, id int64) (*model.Privilegio, error) {
	var p model.Privilegio
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *privilegioRepo) Upsert(ctx context.Context, ps []model.Privilegio) error {
	if len(ps) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "clave"}},
		DoUpdates: clause.AssignmentColumns([]string{"descripcion"}),
	}).Create(&ps).Error
}

func (r *privilegioRepo) ListByUsuario(ctx context.Context, usuarioID int64) ([]model.Privilegio, error) {
	var ps []model.Privilegio
	err := r.db.WithContext(ctx).
		Joins("JOIN usuario_privilegios up ON up.privilegio_id = privilegios.id").
		Where("up.usuario_id = ?", usuarioID).
		Order("privilegios.id ASC").
		Find(&ps).Error
	return ps, err
}

// Asignar is idempotent.
func (r *privilegioRepo) Asignar(ctx context.Context, usuarioID, privilegioID int64) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UsuarioPrivilegio{UsuarioID: usuarioID, PrivilegioID: privilegioID}).Error
}

func (r *privilegioRepo) Quitar(ctx context.Context, usuarioID, privilegioID int64) error {
	return r.db.WithContext(ctx).
		Where("usuario_id = ? AND privilegio_id = ?", usuarioID, privilegioID).
		Delete(&model.UsuarioPrivilegio{}).Error
}
