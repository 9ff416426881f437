package model

import "time"

// Usuario stores system users with role-based access.
// Rol: "ADMIN" | "CAJERA" (see permission.Role)
type Usuario struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	Username        string `gorm:"uniqueIndex;type:varchar(150);not null"`
	Nombre          string `gorm:"type:varchar(100);not null"`
	ApellidoPaterno string `gorm:"type:varchar(100)"`
	ApellidoMaterno string `gorm:"type:varchar(100)"`
	PasswordHash    string `gorm:"not null"`
	Rol             string `gorm:"type:varchar(20);not null"`
	Activo          bool   `gorm:"not null;default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NombreCompleto joins the name parts that are present.
func (u Usuario) NombreCompleto() string {
	n := u.Nombre
	for _, p := range []string{u.ApellidoPaterno, u.ApellidoMaterno} {
		if p != "" {
			n += " " + p
		}
	}
	return n
}
