// Package permission defines the roles and capability keys that gate every
// protected action, plus the static role → default-permission table used
// until the server-confirmed set arrives.
package permission

import (
	"fmt"
	"sort"
)

// Role is the internal user role. The zero value is not a valid role.
type Role int

const (
	RoleAdmin Role = iota + 1
	RoleCashier
)

// Backend role strings as sent by the API.
const (
	APIRoleAdmin   = "Administrador"
	APIRoleCashier = "Cajero"
)

// String returns the persisted form of the role ("ADMIN" | "CAJERA").
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "ADMIN"
	case RoleCashier:
		return "CAJERA"
	default:
		return "unknown"
	}
}

// APIName returns the backend label for the role.
func (r Role) APIName() string {
	switch r {
	case RoleAdmin:
		return APIRoleAdmin
	case RoleCashier:
		return APIRoleCashier
	default:
		return ""
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCashier
}

// ParseRole parses the persisted form produced by Role.String.
func ParseRole(s string) (Role, error) {
	switch s {
	case "ADMIN":
		return RoleAdmin, nil
	case "CAJERA":
		return RoleCashier, nil
	default:
		return 0, fmt.Errorf("permission: rol desconocido %q", s)
	}
}

// ParseAPIRole maps the backend role label to the internal role.
func ParseAPIRole(s string) (Role, error) {
	switch s {
	case APIRoleAdmin:
		return RoleAdmin, nil
	case APIRoleCashier:
		return RoleCashier, nil
	default:
		return 0, fmt.Errorf("permission: rol de API desconocido %q", s)
	}
}

// Key is a capability tag.
type Key string

const (
	AccesoVentas          Key = "ACCESO_VENTAS"
	VistaCorte            Key = "VISTA_CORTE"
	AbrirCaja             Key = "ABRIR_CAJA"
	CerrarCaja            Key = "CERRAR_CAJA"
	AccesoEgresos         Key = "ACCESO_EGRESOS"
	AdministrarProductos  Key = "ADMINISTRAR_PRODUCTOS"
	AdministrarInventario Key = "ADMINISTRAR_INVENTARIO"
	VerReportes           Key = "VER_REPORTES"
	AccesoConfiguracion   Key = "ACCESO_CONFIGURACION"
	AdministrarUsuarios   Key = "ADMINISTRAR_USUARIOS"
)

var catalog = []Key{
	AccesoVentas,
	VistaCorte,
	AbrirCaja,
	CerrarCaja,
	AccesoEgresos,
	AdministrarProductos,
	AdministrarInventario,
	VerReportes,
	AccesoConfiguracion,
	AdministrarUsuarios,
}

// Description is the human-readable label seeded into the privilege catalog.
func (k Key) Description() string {
	switch k {
	case AccesoVentas:
		return "Acceso a ventas"
	case VistaCorte:
		return "Ver corte de caja"
	case AbrirCaja:
		return "Abrir caja"
	case CerrarCaja:
		return "Cerrar caja"
	case AccesoEgresos:
		return "Acceso a egresos"
	case AdministrarProductos:
		return "Administrar productos"
	case AdministrarInventario:
		return "Administrar inventario"
	case VerReportes:
		return "Ver reportes"
	case AccesoConfiguracion:
		return "Acceso a configuración"
	case AdministrarUsuarios:
		return "Administrar usuarios"
	default:
		return string(k)
	}
}

// Catalog returns every known key in declaration order.
func Catalog() []Key {
	out := make([]Key, len(catalog))
	copy(out, catalog)
	return out
}

// Known reports whether k belongs to the catalog.
func Known(k Key) bool {
	for _, c := range catalog {
		if c == k {
			return true
		}
	}
	return false
}

// Defaults returns the static permission set for a role. An invalid role
// yields an empty set.
func Defaults(r Role) Set {
	switch r {
	case RoleAdmin:
		return NewSet(catalog...)
	case RoleCashier:
		return NewSet(AccesoVentas, VistaCorte, AbrirCaja)
	default:
		return Set{}
	}
}

// Set is a set of catalog keys. Treat it as immutable once built.
type Set struct {
	m map[Key]struct{}
}

// NewSet builds a set, silently dropping keys outside the catalog.
func NewSet(keys ...Key) Set {
	m := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		if Known(k) {
			m[k] = struct{}{}
		}
	}
	return Set{m: m}
}

// Has reports membership. The zero Set contains nothing.
func (s Set) Has(k Key) bool {
	_, ok := s.m[k]
	return ok
}

// Len returns the number of keys.
func (s Set) Len() int { return len(s.m) }

// Keys returns the members sorted alphabetically.
func (s Set) Keys() []Key {
	out := make([]Key, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
