package service

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Domain errors. Handlers map them to HTTP statuses; their text is what the
// operator sees.
var (
	ErrCredenciales       = errors.New("Usuario o contraseña incorrectos")
	ErrCorteActivo        = errors.New("Ya existe un corte activo")
	ErrSinCorte           = errors.New("No hay corte activo")
	ErrNoEncontrado       = errors.New("Registro no encontrado")
	ErrVentaCancelada     = errors.New("La venta ya está cancelada")
	ErrFueraDeCorte       = errors.New("Solo se pueden modificar movimientos del corte activo")
	ErrTotalInvalido      = errors.New("El total no coincide con los productos")
	ErrEfectivoInsuf      = errors.New("El efectivo recibido es menor al total")
	ErrUsuarioDuplicado   = errors.New("El nombre de usuario ya existe")
	ErrAutoDesactivacion  = errors.New("No puedes desactivar tu propio usuario")
	ErrPrivilegioInvalido = errors.New("Privilegio inexistente")
	ErrFechaInvalida      = errors.New("Fecha de registro inválida")
	ErrMontoInvalido      = errors.New("Monto inválido")
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoEncontrado
	}
	return err
}
