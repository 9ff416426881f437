package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ventafacil/internal/apiclient"
	"ventafacil/internal/authstore"
	"ventafacil/internal/caja"
	"ventafacil/internal/config"
	"ventafacil/internal/dto"
	"ventafacil/internal/infra"
	"ventafacil/internal/permission"
	"ventafacil/internal/pos"
	"ventafacil/internal/repository"
	"ventafacil/internal/router"
	"ventafacil/internal/service"
	"ventafacil/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSaleLine(t *testing.T) {
	line, err := parseSaleLine("7:2:12.50:Agua_mineral")
	require.NoError(t, err)
	assert.Equal(t, int64(7), line.ProductID)
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, line.Price.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, "Agua mineral", line.Description)

	for _, bad := range []string{"7:2", "x:2:1", "0:1:1", "7:dos:1", "7:1:gratis"} {
		_, err := parseSaleLine(bad)
		assert.Error(t, err, bad)
	}
}

func TestIDArg(t *testing.T) {
	id, err := idArg([]string{"42"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = idArg(nil)
	assert.Error(t, err)
	_, err = idArg([]string{"-1"})
	assert.Error(t, err)
}

// mutationLog records every non-GET request the backend receives.
type mutationLog struct {
	mu   sync.Mutex
	reqs []string
}

func (m *mutationLog) wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			m.mu.Lock()
			m.reqs = append(m.reqs, r.Method+" "+r.URL.Path)
			m.mu.Unlock()
		}
		h.ServeHTTP(w, r)
	})
}

func (m *mutationLog) list() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.reqs...)
}

func newTestShell(t *testing.T, script string) (*shell, *bytes.Buffer, *mutationLog) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := infra.NewSQLite("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))

	ctx := context.Background()
	usuarios := repository.NewUsuarioRepository(db)
	privs := repository.NewPrivilegioRepository(db)
	require.NoError(t, service.NewPrivilegioService(privs, usuarios, nil).SeedCatalogo(ctx))
	_, err = service.NewUsuarioService(usuarios, privs, nil).Crear(ctx, dto.CrearUsuarioRequest{
		Name: "Jefa", User: "jefa", Password: "password123", Role: permission.APIRoleAdmin,
	})
	require.NoError(t, err)

	cfg := &config.Config{Env: "test", JWTSecret: "posctl-secret", JWTExpirationHours: 1, PDFStoragePath: t.TempDir()}
	mutations := &mutationLog{}
	srv := httptest.NewServer(mutations.wrap(router.New(cfg, db, nil)))
	t.Cleanup(srv.Close)

	client := apiclient.New(srv.URL, 5*time.Second)
	mgr := session.NewManager(client, client, authstore.NewVault(authstore.NewMemory(), authstore.NewMemory()))
	t.Cleanup(mgr.Close)
	client.Bind(mgr, mgr.HandleUnauthorized)

	exporter := &infra.PDFExporter{BusinessName: "Venta Fácil", Dir: t.TempDir()}
	engine := caja.NewEngine(client, exporter)
	guard := pos.NewGuard(mgr)

	var out bytes.Buffer
	return &shell{
		in:       strings.NewReader(script),
		out:      &out,
		mgr:      mgr,
		client:   client,
		engine:   engine,
		exporter: exporter,
		guard:    guard,
		sales:    pos.NewSales(guard, engine, client),
		expenses: pos.NewExpenses(guard, engine, client),
		admin:    pos.NewAdmin(guard, client, mgr),
		reports:  pos.NewReports(guard, client),
	}, &out, mutations
}

func TestShell_ShiftFromOpenToClose(t *testing.T) {
	sh, out, _ := newTestShell(t, strings.Join([]string{
		"caja",
		"login jefa",
		"password123",
		"abrir 500",
		"venta efectivo 100 1:2:25:Refresco",
		"gasto efectivo otro 20 Bolsas de hielo",
		"reportes",
		"cerrar 530 todo bien",
		"s",
		"historial",
		"salir",
	}, "\n"))

	sh.run(context.Background())

	got := out.String()
	assert.Contains(t, got, "Inicia sesión primero")
	assert.Contains(t, got, "Bienvenido, Jefa")
	assert.Contains(t, got, "Caja abierta con $500.00")
	assert.Contains(t, got, "Total $50.00, cambio $50.00")
	assert.Contains(t, got, "registrado por $20.00")
	assert.Contains(t, got, "¿Cerrar la caja con $530.00 contados?")
	assert.Contains(t, got, "Ganancia")
	assert.Contains(t, got, "Esperado $530.00, contado $530.00. Cuadra perfecto")
	assert.Contains(t, got, "Corte guardado en")
	assert.Contains(t, got, "$530.00")
}

func TestShell_UnknownCommand(t *testing.T) {
	sh, out, _ := newTestShell(t, "login jefa\npassword123\nbailar\nsalir\n")
	sh.run(context.Background())
	assert.Contains(t, out.String(), "comando desconocido")
}

func TestShell_DecliningDestructiveCommandsCallsNothing(t *testing.T) {
	sh, out, mutations := newTestShell(t, strings.Join([]string{
		"login jefa",
		"password123",
		"abrir 500",
		"venta efectivo 100 1:2:25:Refresco",
		"gasto efectivo otro 20 Bolsas de hielo",
		"cerrar 530",
		"n",
		"cancelar 1",
		"",
		"borrar-gasto 1",
		"no",
		"desactivar 1",
		"N",
		"caja",
		"salir",
	}, "\n"))

	sh.run(context.Background())

	got := out.String()
	assert.Equal(t, 4, strings.Count(got, "Operación cancelada"))
	assert.NotContains(t, got, "Caja cerrada")
	assert.NotContains(t, got, "Venta cancelada")
	assert.NotContains(t, got, "Gasto eliminado")
	assert.Contains(t, got, "Corte N°")

	for _, req := range mutations.list() {
		assert.NotEqual(t, "PUT /api/balances", req)
		assert.False(t, strings.HasPrefix(req, http.MethodDelete), req)
	}
	assert.Equal(t, []string{"POST /api/auth/login", "POST /api/balances", "POST /api/sales", "POST /api/expenses"}, mutations.list())
}

func TestShell_ConfirmedCancelReachesBackend(t *testing.T) {
	sh, out, mutations := newTestShell(t, strings.Join([]string{
		"login jefa",
		"password123",
		"abrir 0",
		"venta tarjeta 0 1:1:40",
		"cancelar 1",
		"sí",
		"salir",
	}, "\n"))

	sh.run(context.Background())

	assert.Contains(t, out.String(), "Venta cancelada")
	assert.Contains(t, mutations.list(), "DELETE /api/sales/1")
}

func TestShell_ReactivateUser(t *testing.T) {
	sh, out, mutations := newTestShell(t, strings.Join([]string{
		"login jefa",
		"password123",
		"activar 1",
		"salir",
	}, "\n"))

	sh.run(context.Background())

	assert.Contains(t, out.String(), "Usuario reactivado")
	assert.Contains(t, mutations.list(), "PATCH /api/users/1")
}
