package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	User     string `json:"user"     validate:"required,min=1,max=150"`
	Password string `json:"password" validate:"required,min=1"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// LoginUser is the minimal identity returned on login. Permissions are
// fetched separately.
type LoginUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"` // Administrador | Cajero
}

type LoginResponse struct {
	User  LoginUser `json:"user"`
	Token string    `json:"token"`
}
