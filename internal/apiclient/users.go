package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"ventafacil/internal/dto"
)

func userPath(id int64) string { return "/api/users/" + strconv.FormatInt(id, 10) }

// Users lists every user.
func (c *Client) Users(ctx context.Context) ([]dto.UsuarioResponse, error) {
	res, err := call[[]dto.UsuarioResponse](ctx, c, request{op: "users.list", method: http.MethodGet, path: "/api/users"})
	if err != nil || res == nil {
		return nil, err
	}
	return *res, nil
}

func (c *Client) User(ctx context.Context, id int64) (*dto.UsuarioResponse, error) {
	return call[dto.UsuarioResponse](ctx, c, request{op: "users.get", method: http.MethodGet, path: userPath(id)})
}

func (c *Client) CreateUser(ctx context.Context, in dto.CrearUsuarioRequest) (*dto.UsuarioResponse, error) {
	return call[dto.UsuarioResponse](ctx, c, request{op: "users.create", method: http.MethodPost, path: "/api/users", body: in})
}

func (c *Client) UpdateUser(ctx context.Context, id int64, in dto.ActualizarUsuarioRequest) (*dto.UsuarioResponse, error) {
	return call[dto.UsuarioResponse](ctx, c, request{op: "users.update", method: http.MethodPut, path: userPath(id), body: in})
}

// DeleteUser deactivates a user.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	_, err := call[struct{}](ctx, c, request{op: "users.delete", method: http.MethodDelete, path: userPath(id)})
	return err
}

// ActivateUser reactivates a deactivated user.
func (c *Client) ActivateUser(ctx context.Context, id int64) error {
	_, err := call[struct{}](ctx, c, request{op: "users.activate", method: http.MethodPatch, path: userPath(id)})
	return err
}
