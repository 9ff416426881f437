// cmd/seeduser/main.go: seeds the privilege catalog and the first admin.
// Usage: SEED_ADMIN_PASSWORD=... go run ./cmd/seeduser
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ventafacil/internal/config"
	"ventafacil/internal/dto"
	"ventafacil/internal/infra"
	"ventafacil/internal/permission"
	"ventafacil/internal/repository"
	"ventafacil/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}

	ctx := context.Background()
	usuarios := repository.NewUsuarioRepository(db)
	privs := repository.NewPrivilegioRepository(db)

	if err := service.NewPrivilegioService(privs, usuarios, nil).SeedCatalogo(ctx); err != nil {
		log.Fatal().Err(err).Msg("catalog seed failed")
	}
	log.Info().Int("privileges", len(permission.Catalog())).Msg("catalog seeded")

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if len(password) < 8 {
		log.Fatal().Msg("SEED_ADMIN_PASSWORD must have at least 8 characters")
	}
	req := dto.CrearUsuarioRequest{
		Name:     envOr("SEED_ADMIN_NAME", "Administrador"),
		User:     envOr("SEED_ADMIN_USER", "admin"),
		Password: password,
		Role:     permission.APIRoleAdmin,
	}
	u, err := service.NewUsuarioService(usuarios, privs, nil).Crear(ctx, req)
	switch {
	case errors.Is(err, service.ErrUsuarioDuplicado):
		log.Info().Str("user", req.User).Msg("admin already exists, nothing to do")
	case err != nil:
		log.Fatal().Err(err).Msg("admin creation failed")
	default:
		log.Info().Int64("user_id", u.ID).Str("user", req.User).Msg("admin created")
	}
}
