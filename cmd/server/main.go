package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ventafacil/internal/config"
	"ventafacil/internal/infra"
	"ventafacil/internal/repository"
	"ventafacil/internal/router"
	"ventafacil/internal/service"
	"ventafacil/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	// Redis backs the job queue and the permission cache. Without it the
	// API still serves requests; cortes are just not emailed.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
	} else {
		log.Warn().Msg("REDIS_URL empty: worker pool and permission cache disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pool *worker.Pool
	if rdb != nil {
		cajaSvc := service.NewCajaService(repository.NewCajaRepository(db), nil)
		corte := worker.NewCorteWorker(cajaSvc, infra.NewMailer(cfg), nil, worker.CorteWorkerConfig{
			BusinessName: cfg.BusinessName,
			PDFDir:       cfg.PDFStoragePath,
			To:           cfg.CorteEmailTo,
		})
		pool = worker.NewPool(rdb)
		pool.Register(worker.QueueCorte, worker.JobCorte, corte.Process)

		// Jobs that died while SMTP was down get one more round on boot.
		if _, err := worker.ReplayDLQ(ctx, rdb, worker.QueueCorte, 100); err != nil {
			log.Warn().Err(err).Msg("dlq replay failed")
		}
		pool.Start(ctx, cfg.WorkerPoolSize)
		worker.StartDLQMonitor(ctx, rdb, 5*time.Minute, worker.QueueCorte)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.New(cfg, db, rdb),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("Venta Fácil backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	cancel()
	if pool != nil {
		pool.Wait()
	}
	log.Info().Msg("server exited")
}
