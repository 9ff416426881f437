package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"ventafacil/internal/apierror"
	"ventafacil/internal/dto"
	"ventafacil/internal/permission"
	"ventafacil/internal/session"
)

// Login implements session.Authenticator.
func (c *Client) Login(ctx context.Context, username, password string) (*session.Identity, error) {
	res, err := call[dto.LoginResponse](ctx, c, request{
		op:        "auth.login",
		method:    http.MethodPost,
		path:      "/api/auth/login",
		body:      dto.LoginRequest{User: username, Password: password},
		anonymous: true,
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return &session.Identity{
		UserID:      strconv.FormatInt(res.User.ID, 10),
		DisplayName: res.User.Name,
		Role:        roleFromWire(res.User.Role),
		Token:       res.Token,
	}, nil
}

// roleFromWire accepts the API names and the internal ones. Unknown roles
// yield the zero Role, which the session manager rejects.
func roleFromWire(s string) permission.Role {
	if r, err := permission.ParseAPIRole(s); err == nil {
		return r
	}
	if r, err := permission.ParseRole(s); err == nil {
		return r
	}
	return 0
}

// UserPermissions implements session.PrivilegeFetcher. The token is passed
// explicitly because it runs before the session is installed.
func (c *Client) UserPermissions(ctx context.Context, token, userID string) ([]permission.Key, error) {
	res, err := call[dto.UserPrivileges](ctx, c, request{
		op:     "privileges.user",
		method: http.MethodGet,
		path:   "/api/privileges/" + userID,
		token:  token,
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, apierror.E(apierror.AuthorizationGap, "privileges.user", "Respuesta de permisos vacía", nil)
	}
	keys := make([]permission.Key, 0, len(res.Permissions))
	for _, p := range res.Permissions {
		keys = append(keys, permission.Key(p.Key))
	}
	return keys, nil
}

// Privileges returns the permission catalog.
func (c *Client) Privileges(ctx context.Context) ([]dto.Privilege, error) {
	res, err := call[[]dto.Privilege](ctx, c, request{op: "privileges.catalog", method: http.MethodGet, path: "/api/privileges"})
	if err != nil || res == nil {
		return nil, err
	}
	return *res, nil
}

// UserPrivileges returns a user header with their granted privileges.
func (c *Client) UserPrivileges(ctx context.Context, userID int64) (*dto.UserPrivileges, error) {
	return call[dto.UserPrivileges](ctx, c, request{
		op:     "privileges.user",
		method: http.MethodGet,
		path:   "/api/privileges/" + strconv.FormatInt(userID, 10),
	})
}

// GrantPrivilege assigns a catalog privilege to a user.
func (c *Client) GrantPrivilege(ctx context.Context, userID, privilegeID int64) error {
	_, err := call[struct{}](ctx, c, request{
		op:     "privileges.grant",
		method: http.MethodPost,
		path:   "/api/privileges",
		body:   dto.AsignarPrivilegioRequest{UserID: userID, Permission: privilegeID},
	})
	return err
}

// RevokePrivilege removes a catalog privilege from a user.
func (c *Client) RevokePrivilege(ctx context.Context, userID, privilegeID int64) error {
	_, err := call[struct{}](ctx, c, request{
		op:     "privileges.revoke",
		method: http.MethodDelete,
		path:   "/api/privileges",
		body:   dto.AsignarPrivilegioRequest{UserID: userID, Permission: privilegeID},
	})
	return err
}
