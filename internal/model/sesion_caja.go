package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SesionCaja represents the lifecycle of a cash register session ("corte").
// Estado: "abierta" | "cerrada". At most one row is "abierta" at any time.
type SesionCaja struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	UsuarioID    int64           `gorm:"not null;index"`
	MontoInicial decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// MontoEsperado is computed on close: inicial + ventas efectivo - egresos efectivo - devoluciones
	MontoEsperado  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MontoDeclarado *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Diferencia     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Estado         string           `gorm:"type:varchar(20);not null;default:'abierta';index"`
	Observaciones  string
	OpenedAt       time.Time
	ClosedAt       *time.Time

	Usuario     *Usuario         `gorm:"foreignKey:UsuarioID"`
	Movimientos []MovimientoCaja `gorm:"foreignKey:SesionCajaID"`
}

// TableName keeps the Spanish plural.
func (SesionCaja) TableName() string { return "sesiones_caja" }

// Movement types.
const (
	MovVenta         = "venta"
	MovAnulacion     = "anulacion"
	MovEgreso        = "egreso"
	MovEgresoAnulado = "egreso_anulado"
)

// MovimientoCaja is an immutable event in the cash register ledger.
// Movements are never modified or deleted; cancellations create inverse entries.
type MovimientoCaja struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	SesionCajaID int64           `gorm:"index;not null"`
	Tipo         string          `gorm:"type:varchar(20);not null"`
	MetodoPago   string          `gorm:"type:varchar(20);not null"`
	Monto        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descripcion  string          `gorm:"not null"`
	// ReferenciaID links to the originating Venta or Gasto
	ReferenciaID int64
	CreatedAt    time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }
