package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Gasto is an expense ("egreso") paid during a drawer session.
// Only cash expenses leave the drawer.
type Gasto struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	SesionCajaID  int64  `gorm:"index;not null"`
	UsuarioID     int64  `gorm:"index;not null"`
	Descripcion   string `gorm:"not null"`
	Categoria     string `gorm:"type:varchar(30);not null"`
	MetodoPago    string `gorm:"type:varchar(20);not null"`
	Nota          *string
	Monto         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Activo        bool            `gorm:"not null;default:true"`
	FechaRegistro time.Time
	CreatedAt     time.Time
}

func (Gasto) TableName() string { return "gastos" }

// All returns every model in migration order.
func All() []any {
	return []any{
		&Usuario{},
		&Privilegio{},
		&UsuarioPrivilegio{},
		&SesionCaja{},
		&MovimientoCaja{},
		&Venta{},
		&VentaItem{},
		&Gasto{},
	}
}
