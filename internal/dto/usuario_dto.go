package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearUsuarioRequest struct {
	Name             string `json:"name"              validate:"required,min=2,max=100"`
	PaternalLastname string `json:"paternal_lastname" validate:"max=100"`
	MaternalLastname string `json:"maternal_lastname" validate:"max=100"`
	User             string `json:"user"              validate:"required,min=3,max=150"`
	Password         string `json:"password"          validate:"required,min=8"`
	Role             string `json:"role"              validate:"required,oneof=Administrador Cajero"`
}

type ActualizarUsuarioRequest struct {
	Name             string `json:"name"              validate:"omitempty,min=2,max=100"`
	PaternalLastname string `json:"paternal_lastname" validate:"omitempty,max=100"`
	MaternalLastname string `json:"maternal_lastname" validate:"omitempty,max=100"`
	Password         string `json:"password"          validate:"omitempty,min=8"`
	Role             string `json:"role"              validate:"omitempty,oneof=Administrador Cajero"`
	Status           *int   `json:"status"            validate:"omitempty,oneof=0 1"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type UsuarioResponse struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	PaternalLastname string `json:"paternal_lastname"`
	MaternalLastname string `json:"maternal_lastname"`
	User             string `json:"user,omitempty"`
	Role             string `json:"role"`
	Status           int    `json:"status"`
}
