package service

import (
	"context"
	"errors"
	"strings"

	"ventafacil/internal/dto"
	"ventafacil/internal/model"
	"ventafacil/internal/permission"
	"ventafacil/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type UsuarioService interface {
	Listar(ctx context.Context) ([]dto.UsuarioResponse, error)
	Obtener(ctx context.Context, id int64) (*dto.UsuarioResponse, error)
	// Crear also grants the role's default privileges.
	Crear(ctx context.Context, req dto.CrearUsuarioRequest) (*dto.UsuarioResponse, error)
	Actualizar(ctx context.Context, id int64, req dto.ActualizarUsuarioRequest) (*dto.UsuarioResponse, error)
	Desactivar(ctx context.Context, actorID, id int64) error
	Reactivar(ctx context.Context, id int64) error
}

type usuarioService struct {
	repo  repository.UsuarioRepository
	privs repository.PrivilegioRepository
	cache PermisosCache
}

// NewUsuarioService accepts a nil cache.
func NewUsuarioService(repo repository.UsuarioRepository, privs repository.PrivilegioRepository, cache PermisosCache) UsuarioService {
	return &usuarioService{repo: repo, privs: privs, cache: cache}
}

func (s *usuarioService) Listar(ctx context.Context) ([]dto.UsuarioResponse, error) {
	users, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UsuarioResponse, len(users))
	for i := range users {
		out[i] = *usuarioToResponse(&users[i])
	}
	return out, nil
}

func (s *usuarioService) Obtener(ctx context.Context, id int64) (*dto.UsuarioResponse, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return usuarioToResponse(u), nil
}

func (s *usuarioService) Crear(ctx context.Context, req dto.CrearUsuarioRequest) (*dto.UsuarioResponse, error) {
	role, err := permission.ParseAPIRole(req.Role)
	if err != nil {
		return nil, err
	}
	username := strings.TrimSpace(req.User)
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, ErrUsuarioDuplicado
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &model.Usuario{
		Username:        username,
		Nombre:          strings.TrimSpace(req.Name),
		ApellidoPaterno: strings.TrimSpace(req.PaternalLastname),
		ApellidoMaterno: strings.TrimSpace(req.MaternalLastname),
		PasswordHash:    hash,
		Rol:             role.String(),
		Activo:          true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsuarioDuplicado
		}
		return nil, err
	}

	if err := s.grantDefaults(ctx, u.ID, role); err != nil {
		log.Warn().Err(err).Int64("user_id", u.ID).Msg("no se pudieron asignar los privilegios por defecto")
	}
	log.Info().Int64("user_id", u.ID).Str("rol", u.Rol).Msg("usuario creado")
	return usuarioToResponse(u), nil
}

func (s *usuarioService) grantDefaults(ctx context.Context, userID int64, role permission.Role) error {
	if s.privs == nil || role == permission.RoleAdmin {
		return nil
	}
	catalog, err := s.privs.List(ctx)
	if err != nil {
		return err
	}
	defaults := permission.Defaults(role)
	for _, p := range catalog {
		if defaults.Has(permission.Key(p.Clave)) {
			if err := s.privs.Asignar(ctx, userID, p.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *usuarioService) Actualizar(ctx context.Context, id int64, req dto.ActualizarUsuarioRequest) (*dto.UsuarioResponse, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if req.Name != "" {
		u.Nombre = strings.TrimSpace(req.Name)
	}
	if req.PaternalLastname != "" {
		u.ApellidoPaterno = strings.TrimSpace(req.PaternalLastname)
	}
	if req.MaternalLastname != "" {
		u.ApellidoMaterno = strings.TrimSpace(req.MaternalLastname)
	}
	if req.Role != "" {
		role, err := permission.ParseAPIRole(req.Role)
		if err != nil {
			return nil, err
		}
		u.Rol = role.String()
	}
	if req.Status != nil {
		u.Activo = *req.Status == 1
	}
	if req.Password != "" {
		hash, err := HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	return usuarioToResponse(u), nil
}

func (s *usuarioService) Desactivar(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return ErrAutoDesactivacion
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFound(err)
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	log.Info().Int64("user_id", id).Int64("actor_id", actorID).Msg("usuario desactivado")
	return nil
}

func (s *usuarioService) Reactivar(ctx context.Context, id int64) error {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if u.Activo {
		return nil
	}
	if err := s.repo.Reactivar(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	log.Info().Int64("user_id", id).Msg("usuario reactivado")
	return nil
}

func usuarioToResponse(u *model.Usuario) *dto.UsuarioResponse {
	role, _ := permission.ParseRole(u.Rol)
	return &dto.UsuarioResponse{
		ID:               u.ID,
		Name:             u.Nombre,
		PaternalLastname: u.ApellidoPaterno,
		MaternalLastname: u.ApellidoMaterno,
		User:             u.Username,
		Role:             role.APIName(),
		Status:           boolToStatus(u.Activo),
	}
}
