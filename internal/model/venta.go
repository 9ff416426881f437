package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Venta is one completed sale. Estado: "completada" | "cancelada".
type Venta struct {
	ID               int64           `gorm:"primaryKey;autoIncrement"`
	SesionCajaID     int64           `gorm:"index;not null"`
	UsuarioID        int64           `gorm:"index;not null"`
	MetodoPago       string          `gorm:"type:varchar(20);not null"`
	Total            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	EfectivoRecibido decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Cambio           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Estado           string          `gorm:"type:varchar(20);not null;default:'completada'"`
	CreatedAt        time.Time
	CanceladaAt      *time.Time

	Usuario *Usuario    `gorm:"foreignKey:UsuarioID"`
	Items   []VentaItem `gorm:"foreignKey:VentaID"`
}

// VentaItem is a sold line. The product catalog lives outside this service,
// so the description is captured at sale time.
type VentaItem struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	VentaID     int64           `gorm:"index;not null"`
	ProductoID  int64           `gorm:"not null"`
	Descripcion string          `gorm:"not null"`
	Cantidad    int             `gorm:"not null"`
	Precio      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Costo       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}
