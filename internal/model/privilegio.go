package model

import "time"

// Privilegio is one entry of the permission catalog. Clave matches a
// permission.Key.
type Privilegio struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Clave       string `gorm:"uniqueIndex;type:varchar(50);not null"`
	Descripcion string `gorm:"not null"`
}

// TableName overrides GORM's default pluralization (privilegios is already plural).
func (Privilegio) TableName() string { return "privilegios" }

// UsuarioPrivilegio grants one catalog privilege to one user.
type UsuarioPrivilegio struct {
	UsuarioID    int64 `gorm:"primaryKey"`
	PrivilegioID int64 `gorm:"primaryKey"`
	CreatedAt    time.Time

	Privilegio *Privilegio `gorm:"foreignKey:PrivilegioID"`
}

func (UsuarioPrivilegio) TableName() string { return "usuario_privilegios" }
