package pos

import (
	"context"
	"strconv"

	"ventafacil/internal/apierror"
	"ventafacil/internal/dto"
	"ventafacil/internal/permission"
	"ventafacil/internal/session"

	"github.com/rs/zerolog/log"
)

// AdminAPI is the backend for user and privilege administration.
type AdminAPI interface {
	Users(ctx context.Context) ([]dto.UsuarioResponse, error)
	CreateUser(ctx context.Context, in dto.CrearUsuarioRequest) (*dto.UsuarioResponse, error)
	DeleteUser(ctx context.Context, id int64) error
	ActivateUser(ctx context.Context, id int64) error
	Privileges(ctx context.Context) ([]dto.Privilege, error)
	UserPrivileges(ctx context.Context, userID int64) (*dto.UserPrivileges, error)
	GrantPrivilege(ctx context.Context, userID, privilegeID int64) error
	RevokePrivilege(ctx context.Context, userID, privilegeID int64) error
}

// CurrentSession is satisfied by *session.Manager.
type CurrentSession interface {
	Current() (session.Session, bool)
	RefreshPermissions(ctx context.Context) error
}

// Admin runs user administration.
type Admin struct {
	guard Guard
	api   AdminAPI
	sess  CurrentSession
}

func NewAdmin(g Guard, api AdminAPI, sess CurrentSession) *Admin {
	return &Admin{guard: g, api: api, sess: sess}
}

func (a *Admin) Users(ctx context.Context) ([]dto.UsuarioResponse, error) {
	if err := a.guard.Require(permission.AdministrarUsuarios); err != nil {
		return nil, err
	}
	return a.api.Users(ctx)
}

func (a *Admin) CreateUser(ctx context.Context, in dto.CrearUsuarioRequest) (*dto.UsuarioResponse, error) {
	if err := a.guard.Require(permission.AdministrarUsuarios); err != nil {
		return nil, err
	}
	if _, err := permission.ParseAPIRole(in.Role); err != nil {
		return nil, apierror.E(apierror.Validation, "pos.user", "Rol inválido", err)
	}
	return a.api.CreateUser(ctx, in)
}

// DeactivateUser blocks a user's access. The signed-in user cannot
// deactivate themselves.
func (a *Admin) DeactivateUser(ctx context.Context, userID int64) error {
	if err := a.guard.Require(permission.AdministrarUsuarios); err != nil {
		return err
	}
	if cur, ok := a.sess.Current(); ok && cur.UserID == strconv.FormatInt(userID, 10) {
		return apierror.E(apierror.Validation, "pos.user", "No puedes desactivar tu propio usuario", nil)
	}
	return a.api.DeleteUser(ctx, userID)
}

// ReactivateUser restores access for a deactivated user.
func (a *Admin) ReactivateUser(ctx context.Context, userID int64) error {
	if err := a.guard.Require(permission.AdministrarUsuarios); err != nil {
		return err
	}
	return a.api.ActivateUser(ctx, userID)
}

// UserPermissions lists the keys granted to a user.
func (a *Admin) UserPermissions(ctx context.Context, userID int64) (*dto.UserPrivileges, error) {
	if err := a.guard.Require(permission.AdministrarUsuarios); err != nil {
		return nil, err
	}
	return a.api.UserPrivileges(ctx, userID)
}

// SetPermission grants or revokes key for a user. Editing the signed-in
// user refreshes their permissions right away.
func (a *Admin) SetPermission(ctx context.Context, userID int64, key permission.Key, granted bool) error {
	const op = "pos.permission"
	if err := a.guard.Require(permission.AdministrarUsuarios); err != nil {
		return err
	}
	if !permission.Known(key) {
		return apierror.E(apierror.Validation, op, "Permiso desconocido", nil)
	}

	catalog, err := a.api.Privileges(ctx)
	if err != nil {
		return err
	}
	var privID int64
	for _, p := range catalog {
		if permission.Key(p.Key) == key {
			privID = p.ID
			break
		}
	}
	if privID == 0 {
		return apierror.E(apierror.Backend, op, "El permiso no existe en el servidor", nil)
	}

	if granted {
		err = a.api.GrantPrivilege(ctx, userID, privID)
	} else {
		err = a.api.RevokePrivilege(ctx, userID, privID)
	}
	if err != nil {
		return err
	}

	if cur, ok := a.sess.Current(); ok && cur.UserID == strconv.FormatInt(userID, 10) {
		if err := a.sess.RefreshPermissions(ctx); err != nil {
			log.Warn().Err(err).Msg("pos: refresh after self permission edit failed")
		}
	}
	return nil
}
