// posctl is the operator terminal: it logs a cashier in, keeps the session
// and permissions fresh, and runs the drawer, sales, expense and user flows
// against the API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ventafacil/internal/apiclient"
	"ventafacil/internal/authstore"
	"ventafacil/internal/caja"
	"ventafacil/internal/config"
	"ventafacil/internal/infra"
	"ventafacil/internal/pos"
	"ventafacil/internal/session"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(zerolog.WarnLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	durable, closeStore, err := openDurable(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.AuthStoreDriver).Msg("auth store unavailable")
	}
	defer closeStore()

	client := apiclient.New(cfg.APIBaseURL, cfg.APITimeout)
	mgr := session.NewManager(client, client, authstore.NewVault(durable, authstore.NewMemory()))
	defer mgr.Close()
	client.Bind(mgr, mgr.HandleUnauthorized)

	exporter := &infra.PDFExporter{BusinessName: cfg.BusinessName, Dir: cfg.CorteExportPath}
	guard := pos.NewGuard(mgr)
	engine := caja.NewEngine(client, exporter)

	sh := &shell{
		in:       os.Stdin,
		out:      os.Stdout,
		mgr:      mgr,
		client:   client,
		engine:   engine,
		exporter: exporter,
		guard:    guard,
		sales:    pos.NewSales(guard, engine, client),
		expenses: pos.NewExpenses(guard, engine, client),
		admin:    pos.NewAdmin(guard, client, mgr),
		reports:  pos.NewReports(guard, client),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if s, ok := mgr.Init(ctx); ok {
		fmt.Fprintf(sh.out, "Sesión restaurada: %s (%s)\n", s.DisplayName, s.Role.APIName())
	}
	go mgr.Watch(ctx, cfg.PermissionRefreshInterval)

	sh.run(ctx)
}

// openDurable returns the "remember me" backend selected by AUTH_STORE_DRIVER.
func openDurable(cfg *config.Config) (authstore.Backend, func(), error) {
	switch cfg.AuthStoreDriver {
	case "redis":
		rdb, err := infra.NewRedis(cfg.AuthStoreDSN)
		if err != nil {
			return nil, nil, err
		}
		return authstore.NewRedisBackend(rdb, cfg.TerminalID), func() { _ = rdb.Close() }, nil
	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.AuthStoreDSN), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		if err != nil {
			return nil, nil, err
		}
		return gormBackend(db)
	case "sqlite", "":
		db, err := infra.NewSQLite(cfg.AuthStoreDSN)
		if err != nil {
			return nil, nil, err
		}
		return gormBackend(db)
	default:
		return nil, nil, fmt.Errorf("unknown AUTH_STORE_DRIVER %q", cfg.AuthStoreDriver)
	}
}

func gormBackend(db *gorm.DB) (authstore.Backend, func(), error) {
	b, err := authstore.NewGormBackend(db)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return b, closeFn, nil
}
