package dto

// Privilege is one entry of the permission catalog.
type Privilege struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Key         string `json:"key"`
}

// PrivilegeUser is the user header of GET /api/privileges/:userId.
type PrivilegeUser struct {
	Name             string `json:"name"`
	PaternalLastname string `json:"paternal_lastname"`
	MaternalLastname string `json:"maternal_lastname"`
	Role             string `json:"role"`
	Status           int    `json:"status"`
}

type UserPrivileges struct {
	User        PrivilegeUser `json:"user"`
	Permissions []Privilege   `json:"permissions"`
}

// AsignarPrivilegioRequest is the body of POST and DELETE /api/privileges.
type AsignarPrivilegioRequest struct {
	UserID     int64 `json:"user_id"    validate:"required,min=1"`
	Permission int64 `json:"permission" validate:"required,min=1"`
}
