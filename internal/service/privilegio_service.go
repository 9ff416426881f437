package service

import (
	"context"

	"ventafacil/internal/dto"
	"ventafacil/internal/model"
	"ventafacil/internal/permission"
	"ventafacil/internal/repository"

	"github.com/rs/zerolog/log"
)

// PermisosCache keeps each user's effective keys for a short time.
type PermisosCache interface {
	Get(ctx context.Context, usuarioID int64) (permission.Set, bool)
	Set(ctx context.Context, usuarioID int64, keys permission.Set)
	Invalidate(ctx context.Context, usuarioID int64)
}

type PrivilegioService interface {
	Catalogo(ctx context.Context) ([]dto.Privilege, error)
	DeUsuario(ctx context.Context, usuarioID int64) (*dto.UserPrivileges, error)
	Asignar(ctx context.Context, req dto.AsignarPrivilegioRequest) error
	Quitar(ctx context.Context, req dto.AsignarPrivilegioRequest) error
	// Efectivos is what the permission middleware checks against.
	Efectivos(ctx context.Context, usuarioID int64) (permission.Set, error)
	SeedCatalogo(ctx context.Context) error
}

type privilegioService struct {
	repo     repository.PrivilegioRepository
	usuarios repository.UsuarioRepository
	cache    PermisosCache
}

// NewPrivilegioService accepts a nil cache.
func NewPrivilegioService(repo repository.PrivilegioRepository, usuarios repository.UsuarioRepository, cache PermisosCache) PrivilegioService {
	return &privilegioService{repo: repo, usuarios: usuarios, cache: cache}
}

func toPrivilege(p model.Privilegio) dto.Privilege {
	return dto.Privilege{ID: p.ID, Description: p.Descripcion, Key: p.Clave}
}

func (s *privilegioService) Catalogo(ctx context.Context) ([]dto.Privilege, error) {
	ps, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.Privilege, len(ps))
	for i, p := range ps {
		out[i] = toPrivilege(p)
	}
	return out, nil
}

// DeUsuario lists a user's privileges. Administrators hold the whole catalog.
func (s *privilegioService) DeUsuario(ctx context.Context, usuarioID int64) (*dto.UserPrivileges, error) {
	u, err := s.usuarios.FindByID(ctx, usuarioID)
	if err != nil {
		return nil, notFound(err)
	}
	role, _ := permission.ParseRole(u.Rol)

	var ps []model.Privilegio
	if role == permission.RoleAdmin {
		ps, err = s.repo.List(ctx)
	} else {
		ps, err = s.repo.ListByUsuario(ctx, usuarioID)
	}
	if err != nil {
		return nil, err
	}

	out := &dto.UserPrivileges{
		User: dto.PrivilegeUser{
			Name:             u.Nombre,
			PaternalLastname: u.ApellidoPaterno,
			MaternalLastname: u.ApellidoMaterno,
			Role:             role.APIName(),
			Status:           boolToStatus(u.Activo),
		},
		Permissions: make([]dto.Privilege, len(ps)),
	}
	for i, p := range ps {
		out.Permissions[i] = toPrivilege(p)
	}
	return out, nil
}

func (s *privilegioService) Asignar(ctx context.Context, req dto.AsignarPrivilegioRequest) error {
	if err := s.check(ctx, req); err != nil {
		return err
	}
	if err := s.repo.Asignar(ctx, req.UserID, req.Permission); err != nil {
		return err
	}
	s.invalidate(ctx, req.UserID)
	log.Info().Int64("user_id", req.UserID).Int64("privilegio_id", req.Permission).Msg("privilegio asignado")
	return nil
}

func (s *privilegioService) Quitar(ctx context.Context, req dto.AsignarPrivilegioRequest) error {
	if err := s.check(ctx, req); err != nil {
		return err
	}
	if err := s.repo.Quitar(ctx, req.UserID, req.Permission); err != nil {
		return err
	}
	s.invalidate(ctx, req.UserID)
	log.Info().Int64("user_id", req.UserID).Int64("privilegio_id", req.Permission).Msg("privilegio retirado")
	return nil
}

func (s *privilegioService) check(ctx context.Context, req dto.AsignarPrivilegioRequest) error {
	if _, err := s.usuarios.FindByID(ctx, req.UserID); err != nil {
		return notFound(err)
	}
	if _, err := s.repo.FindByID(ctx, req.Permission); err != nil {
		if notFound(err) == ErrNoEncontrado {
			return ErrPrivilegioInvalido
		}
		return err
	}
	return nil
}

func (s *privilegioService) invalidate(ctx context.Context, usuarioID int64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, usuarioID)
	}
}

func (s *privilegioService) Efectivos(ctx context.Context, usuarioID int64) (permission.Set, error) {
	if s.cache != nil {
		if set, ok := s.cache.Get(ctx, usuarioID); ok {
			return set, nil
		}
	}
	u, err := s.usuarios.FindByID(ctx, usuarioID)
	if err != nil {
		return permission.Set{}, notFound(err)
	}
	var set permission.Set
	if !u.Activo {
		set = permission.NewSet()
	} else if role, _ := permission.ParseRole(u.Rol); role == permission.RoleAdmin {
		set = permission.Defaults(permission.RoleAdmin)
	} else {
		ps, err := s.repo.ListByUsuario(ctx, usuarioID)
		if err != nil {
			return permission.Set{}, err
		}
		keys := make([]permission.Key, len(ps))
		for i, p := range ps {
			keys[i] = permission.Key(p.Clave)
		}
		set = permission.NewSet(keys...)
	}
	if s.cache != nil {
		s.cache.Set(ctx, usuarioID, set)
	}
	return set, nil
}

func (s *privilegioService) SeedCatalogo(ctx context.Context) error {
	keys := permission.Catalog()
	ps := make([]model.Privilegio, len(keys))
	for i, k := range keys {
		ps[i] = model.Privilegio{Clave: string(k), Descripcion: k.Description()}
	}
	return s.repo.Upsert(ctx, ps)
}

func boolToStatus(b bool) int {
	if b {
		return 1
	}
	return 0
}
