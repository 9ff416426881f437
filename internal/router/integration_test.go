//go:build integration

package router

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"ventafacil/internal/config"
	"ventafacil/internal/dto"
	"ventafacil/internal/infra"
	"ventafacil/internal/permission"
	"ventafacil/internal/repository"
	"ventafacil/internal/service"
	"ventafacil/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
)

type integrationEnv struct {
	api *testAPI
	cfg *config.Config
	db  *gorm.DB
	rdb *redis.Client
}

func setupIntegration(t *testing.T) *integrationEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("ventafacil_test"),
		tcPostgres.WithUsername("ventafacil"),
		tcPostgres.WithPassword("ventafacil"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                "test",
		JWTSecret:          "integration-secret",
		JWTExpirationHours: 1,
		PermissionCacheTTL: time.Minute,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		BusinessName:       "Venta Fácil",
		PDFStoragePath:     t.TempDir(),
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	usuarios := repository.NewUsuarioRepository(db)
	privs := repository.NewPrivilegioRepository(db)
	require.NoError(t, service.NewPrivilegioService(privs, usuarios, nil).SeedCatalogo(ctx))
	users := service.NewUsuarioService(usuarios, privs, nil)
	for _, u := range []dto.CrearUsuarioRequest{
		{Name: "Jefa", User: "jefa", Password: "password123", Role: permission.APIRoleAdmin},
		{Name: "Ana", User: "ana", Password: "password123", Role: permission.APIRoleCashier},
	} {
		_, err := users.Crear(ctx, u)
		require.NoError(t, err)
	}

	return &integrationEnv{
		api: &testAPI{t: t, engine: New(cfg, db, rdb)},
		cfg: cfg,
		db:  db,
		rdb: rdb,
	}
}

// Concurrent opens race on the partial unique index: exactly one wins.
func TestIntegration_SingleOpenDrawer(t *testing.T) {
	env := setupIntegration(t)
	token, _ := env.api.login("ana")

	const n = 8
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = env.api.do(http.MethodPost, "/api/balances", token,
				dto.AbrirCajaRequest{InitialAmount: decimal.NewFromInt(int64(100 + i))}).Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, c := range codes {
		if c == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusConflict, c)
		}
	}
	assert.Equal(t, 1, created)
}

func TestIntegration_PermissionCacheInvalidation(t *testing.T) {
	env := setupIntegration(t)
	cajera, cajeraID := env.api.login("ana")
	admin, _ := env.api.login("jefa")

	assert.Equal(t, http.StatusForbidden, env.api.do(http.MethodGet, "/api/expenses", cajera, nil).Code)
	n, err := env.rdb.Exists(context.Background(), "perm:"+strconv.FormatInt(cajeraID, 10)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "effective set is cached")

	catalog := decode[[]dto.Privilege](t, env.api.do(http.MethodGet, "/api/privileges", admin, nil)).Data
	var egresos int64
	for _, p := range *catalog {
		if p.Key == string(permission.AccesoEgresos) {
			egresos = p.ID
		}
	}
	require.Equal(t, http.StatusOK, env.api.do(http.MethodPost, "/api/privileges", admin,
		dto.AsignarPrivilegioRequest{UserID: cajeraID, Permission: egresos}).Code)

	assert.Equal(t, http.StatusOK, env.api.do(http.MethodGet, "/api/expenses", cajera, nil).Code)
}

func TestIntegration_CorteJobProducesPDF(t *testing.T) {
	env := setupIntegration(t)
	admin, _ := env.api.login("jefa")

	require.Equal(t, http.StatusCreated, env.api.do(http.MethodPost, "/api/balances", admin,
		dto.AbrirCajaRequest{InitialAmount: decimal.NewFromInt(500)}).Code)
	require.Equal(t, http.StatusCreated, env.api.do(http.MethodPost, "/api/sales", admin, cashSale("1200")).Code)
	counted := decimal.NewFromInt(1700)
	w := env.api.do(http.MethodPut, "/api/balances", admin, dto.CerrarCajaRequest{CountedCash: &counted})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cajaSvc := service.NewCajaService(repository.NewCajaRepository(env.db), nil)
	corte := worker.NewCorteWorker(cajaSvc, infra.NewMailer(env.cfg), nil, worker.CorteWorkerConfig{
		BusinessName: env.cfg.BusinessName,
		PDFDir:       env.cfg.PDFStoragePath,
	})
	pool := worker.NewPool(env.rdb)
	pool.Register(worker.QueueCorte, worker.JobCorte, corte.Process)
	pool.Start(ctx, 1)

	require.Eventually(t, func() bool {
		matches, _ := filepath.Glob(filepath.Join(env.cfg.PDFStoragePath, "corte_*.pdf"))
		return len(matches) == 1
	}, 15*time.Second, 200*time.Millisecond)

	matches, _ := filepath.Glob(filepath.Join(env.cfg.PDFStoragePath, "corte_*.pdf"))
	info, err := os.Stat(matches[0])
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	cancel()
	pool.Wait()
}

func TestIntegration_Health(t *testing.T) {
	env := setupIntegration(t)
	w := env.api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"connected"`)
	assert.Contains(t, w.Body.String(), `"corte_dlq":0`)
}
