package service

import (
	"context"
	"os"
	"strings"
	"testing"

	"ventafacil/internal/config"
	"ventafacil/internal/dto"
	"ventafacil/internal/infra"
	"ventafacil/internal/permission"
	"ventafacil/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	bcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type notifierStub struct{ ids []int64 }

func (n *notifierStub) EnqueueCorte(_ context.Context, id int64) error {
	n.ids = append(n.ids, id)
	return nil
}

type cacheStub struct {
	m           map[int64]permission.Set
	invalidated []int64
}

func (c *cacheStub) Get(_ context.Context, id int64) (permission.Set, bool) {
	s, ok := c.m[id]
	return s, ok
}
func (c *cacheStub) Set(_ context.Context, id int64, s permission.Set) { c.m[id] = s }
func (c *cacheStub) Invalidate(_ context.Context, id int64) {
	delete(c.m, id)
	c.invalidated = append(c.invalidated, id)
}

type fixture struct {
	cfg      *config.Config
	auth     AuthService
	caja     CajaService
	ventas   VentaService
	gastos   GastoService
	usuarios UsuarioService
	privs    PrivilegioService
	reportes ReporteService
	notifier *notifierStub
	cache    *cacheStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := infra.NewSQLite("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))

	cfg := &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1}
	usuarioRepo := repository.NewUsuarioRepository(db)
	privRepo := repository.NewPrivilegioRepository(db)
	cajaRepo := repository.NewCajaRepository(db)

	f := &fixture{cfg: cfg, notifier: &notifierStub{}, cache: &cacheStub{m: map[int64]permission.Set{}}}
	f.auth = NewAuthService(usuarioRepo, cfg)
	f.caja = NewCajaService(cajaRepo, f.notifier)
	f.ventas = NewVentaService(repository.NewVentaRepository(db), cajaRepo, f.caja)
	f.gastos = NewGastoService(repository.NewGastoRepository(db), cajaRepo, f.caja)
	f.privs = NewPrivilegioService(privRepo, usuarioRepo, f.cache)
	f.usuarios = NewUsuarioService(usuarioRepo, privRepo, f.cache)
	f.reportes = NewReporteService(repository.NewReporteRepository(db))
	require.NoError(t, f.privs.SeedCatalogo(context.Background()))
	return f
}

func (f *fixture) createUser(t *testing.T, user, role string) int64 {
	t.Helper()
	u, err := f.usuarios.Crear(context.Background(), dto.CrearUsuarioRequest{
		Name: "Nombre " + user, User: user, Password: "password123", Role: role,
	})
	require.NoError(t, err)
	return u.ID
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func cashSale(total string) dto.RegistrarVentaRequest {
	return dto.RegistrarVentaRequest{
		PayMethod:    dto.MetodoEfectivo,
		Total:        d(total),
		CashReceived: d(total),
		Products:     []dto.ItemVentaRequest{{ProductID: 1, Description: "Artículo", Quantity: 1, Price: d(total), Subtotal: d(total)}},
	}
}

// ── Auth ─────────────────────────────────────────────────────────────────────

func TestLogin_IssuesTokenWithAPIRole(t *testing.T) {
	f := newFixture(t)
	id := f.createUser(t, "ana", permission.APIRoleCashier)

	resp, err := f.auth.Login(context.Background(), dto.LoginRequest{User: "ana", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, id, resp.User.ID)
	assert.Equal(t, "Cajero", resp.User.Role)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (any, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, "CAJERA", claims["rol"])
}

func TestLogin_WrongPasswordAndUnknownUserLookTheSame(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "ana", permission.APIRoleCashier)

	_, err1 := f.auth.Login(context.Background(), dto.LoginRequest{User: "ana", Password: "nope"})
	_, err2 := f.auth.Login(context.Background(), dto.LoginRequest{User: "nadie", Password: "nope"})
	assert.ErrorIs(t, err1, ErrCredenciales)
	assert.ErrorIs(t, err2, ErrCredenciales)
}

// ── Caja ─────────────────────────────────────────────────────────────────────

func TestAbrir_OnlyOneActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.createUser(t, "ana", permission.APIRoleCashier)

	require.NoError(t, f.caja.Abrir(ctx, uid, dto.AbrirCajaRequest{InitialAmount: d("500")}))
	err := f.caja.Abrir(ctx, uid, dto.AbrirCajaRequest{InitialAmount: d("100")})
	assert.ErrorIs(t, err, ErrCorteActivo)

	act, err := f.caja.Activa(ctx)
	require.NoError(t, err)
	require.NotNil(t, act)
	assert.True(t, act.InitialCash.Equal(d("500")))
	assert.Equal(t, "Nombre ana", act.Name)
}

func TestActiva_NilWhenClosed(t *testing.T) {
	f := newFixture(t)
	act, err := f.caja.Activa(context.Background())
	require.NoError(t, err)
	assert.Nil(t, act)
}

func TestCorte_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.createUser(t, "ana", permission.APIRoleCashier)
	require.NoError(t, f.caja.Abrir(ctx, uid, dto.AbrirCajaRequest{InitialAmount: d("500")}))

	_, err := f.ventas.Registrar(ctx, uid, cashSale("700"))
	require.NoError(t, err)
	_, err = f.ventas.Registrar(ctx, uid, cashSale("500"))
	require.NoError(t, err)
	refund, err := f.ventas.Registrar(ctx, uid, cashSale("50"))
	require.NoError(t, err)
	card := cashSale("300")
	card.PayMethod, card.CashReceived = dto.MetodoTarjeta, decimal.Zero
	_, err = f.ventas.Registrar(ctx, uid, card)
	require.NoError(t, err)

	_, err = f.gastos.Registrar(ctx, uid, dto.RegistrarGastoRequest{
		Description: "Garrafones", Amount: d("150"), Category: dto.CategoriaServicio, PayMethod: dto.MetodoEfectivo,
	})
	require.NoError(t, err)
	_, err = f.gastos.Registrar(ctx, uid, dto.RegistrarGastoRequest{
		Description: "Paquetería", Amount: d("99"), Category: dto.CategoriaOtro, PayMethod: dto.MetodoTransferencia,
	})
	require.NoError(t, err)

	require.NoError(t, f.ventas.Cancelar(ctx, refund.ID))
	assert.ErrorIs(t, f.ventas.Cancelar(ctx, refund.ID), ErrVentaCancelada)

	act, err := f.caja.Activa(ctx)
	require.NoError(t, err)
	assert.True(t, act.CashSales.Equal(d("1250")), act.CashSales.String())
	assert.True(t, act.CardSales.Equal(d("300")))
	assert.True(t, act.CashExpenses.Equal(d("150")), "transfer expenses are not drawer cash")
	assert.True(t, act.RefundSales.Equal(d("50")))
	assert.Equal(t, 3, act.Transactions)

	closed, err := f.caja.Cerrar(ctx, uid, dto.CerrarCajaRequest{CountedCash: ptr(d("1530")), Note: " faltó cambio "})
	require.NoError(t, err)
	assert.True(t, closed.ExpectedCash.Equal(d("1550")), closed.ExpectedCash.String())
	assert.True(t, closed.Difference.Equal(d("-20")))
	assert.Equal(t, "faltó cambio", closed.Note)
	assert.Equal(t, []int64{act.ID}, f.notifier.ids)

	act, err = f.caja.Activa(ctx)
	require.NoError(t, err)
	assert.Nil(t, act)

	rep, err := f.caja.Reporte(ctx, closed.ID)
	require.NoError(t, err)
	assert.Equal(t, "Falta $20.00", rep.Record.Label())

	hist, err := f.caja.Historial(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	require.NotNil(t, hist[0].CloseDate)
}

func TestCerrar_WithoutSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.caja.Cerrar(context.Background(), 1, dto.CerrarCajaRequest{CountedCash: ptr(d("0"))})
	assert.ErrorIs(t, err, ErrSinCorte)
	assert.Empty(t, f.notifier.ids)
}

// ── Ventas / Gastos ──────────────────────────────────────────────────────────

func TestVenta_RequiresOpenSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.ventas.Registrar(context.Background(), 1, cashSale("10"))
	assert.ErrorIs(t, err, ErrSinCorte)
}

func TestVenta_ServerRecomputesAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.createUser(t, "ana", permission.APIRoleCashier)
	require.NoError(t, f.caja.Abrir(ctx, uid, dto.AbrirCajaRequest{}))

	bad := cashSale("10")
	bad.Total = d("12")
	_, err := f.ventas.Registrar(ctx, uid, bad)
	assert.ErrorIs(t, err, ErrTotalInvalido)

	short := cashSale("10")
	short.CashReceived = d("5")
	_, err = f.ventas.Registrar(ctx, uid, short)
	assert.ErrorIs(t, err, ErrEfectivoInsuf)

	ok := cashSale("10")
	ok.CashReceived = d("20")
	ok.Change = d("999")
	v, err := f.ventas.Registrar(ctx, uid, ok)
	require.NoError(t, err)
	assert.True(t, v.ChangeReturned.Equal(d("10")))

	items, err := f.ventas.Detalle(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Artículo", items[0].Description)

	list, err := f.ventas.Listar(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGasto_EliminarRestoresExpectedCash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.createUser(t, "ana", permission.APIRoleCashier)
	require.NoError(t, f.caja.Abrir(ctx, uid, dto.AbrirCajaRequest{InitialAmount: d("100")}))

	g, err := f.gastos.Registrar(ctx, uid, dto.RegistrarGastoRequest{
		Description: "Taxi", Amount: d("40"), Category: dto.CategoriaTransporte, PayMethod: dto.MetodoEfectivo,
		RegisterDate: "2026-03-02 10:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02 10:00:00", g.RegisterDate)

	require.NoError(t, f.gastos.Eliminar(ctx, g.ID))
	assert.ErrorIs(t, f.gastos.Eliminar(ctx, g.ID), ErrNoEncontrado)

	act, err := f.caja.Activa(ctx)
	require.NoError(t, err)
	assert.True(t, act.CashExpenses.IsZero())

	list, err := f.gastos.Listar(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGasto_BadDate(t *testing.T) {
	f := newFixture(t)
	_, err := f.gastos.Registrar(context.Background(), 1, dto.RegistrarGastoRequest{
		Description: "Taxi", Amount: d("40"), Category: dto.CategoriaTransporte, PayMethod: dto.MetodoEfectivo,
		RegisterDate: "02/03/2026",
	})
	assert.ErrorIs(t, err, ErrFechaInvalida)
}

// ── Usuarios / Privilegios ───────────────────────────────────────────────────

func TestCrearUsuario_GrantsCashierDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.createUser(t, "ana", permission.APIRoleCashier)

	up, err := f.privs.DeUsuario(ctx, uid)
	require.NoError(t, err)
	keys := make([]string, 0)
	for _, p := range up.Permissions {
		keys = append(keys, p.Key)
	}
	assert.ElementsMatch(t, []string{"ACCESO_VENTAS", "VISTA_CORTE", "ABRIR_CAJA"}, keys)

	_, err = f.usuarios.Crear(ctx, dto.CrearUsuarioRequest{Name: "Otra", User: "ANA", Password: "password123", Role: "Cajero"})
	assert.ErrorIs(t, err, ErrUsuarioDuplicado)
}

func TestAdminHoldsWholeCatalog(t *testing.T) {
	f := newFixture(t)
	uid := f.createUser(t, "jefa", permission.APIRoleAdmin)

	set, err := f.privs.Efectivos(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, len(permission.Catalog()), set.Len())
}

func TestAsignar_InvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.createUser(t, "ana", permission.APIRoleCashier)

	set, err := f.privs.Efectivos(ctx, uid)
	require.NoError(t, err)
	assert.False(t, set.Has(permission.CerrarCaja))

	catalog, err := f.privs.Catalogo(ctx)
	require.NoError(t, err)
	var cerrar int64
	for _, p := range catalog {
		if p.Key == string(permission.CerrarCaja) {
			cerrar = p.ID
		}
	}
	require.NoError(t, f.privs.Asignar(ctx, dto.AsignarPrivilegioRequest{UserID: uid, Permission: cerrar}))
	assert.Contains(t, f.cache.invalidated, uid)

	set, err = f.privs.Efectivos(ctx, uid)
	require.NoError(t, err)
	assert.True(t, set.Has(permission.CerrarCaja))

	err = f.privs.Asignar(ctx, dto.AsignarPrivilegioRequest{UserID: uid, Permission: 9999})
	assert.ErrorIs(t, err, ErrPrivilegioInvalido)
}

func TestDesactivar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.createUser(t, "jefa", permission.APIRoleAdmin)
	cajera := f.createUser(t, "ana", permission.APIRoleCashier)

	assert.ErrorIs(t, f.usuarios.Desactivar(ctx, admin, admin), ErrAutoDesactivacion)
	require.NoError(t, f.usuarios.Desactivar(ctx, admin, cajera))

	u, err := f.usuarios.Obtener(ctx, cajera)
	require.NoError(t, err)
	assert.Equal(t, 0, u.Status)

	set, err := f.privs.Efectivos(ctx, cajera)
	require.NoError(t, err)
	assert.Zero(t, set.Len())

	_, err = f.auth.Login(ctx, dto.LoginRequest{User: "ana", Password: "password123"})
	assert.ErrorIs(t, err, ErrCredenciales)
}

func TestReactivar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.createUser(t, "jefa", permission.APIRoleAdmin)
	cajera := f.createUser(t, "ana", permission.APIRoleCashier)
	require.NoError(t, f.usuarios.Desactivar(ctx, admin, cajera))
	f.cache.invalidated = nil

	require.NoError(t, f.usuarios.Reactivar(ctx, cajera))
	assert.Equal(t, []int64{cajera}, f.cache.invalidated)

	u, err := f.usuarios.Obtener(ctx, cajera)
	require.NoError(t, err)
	assert.Equal(t, 1, u.Status)

	set, err := f.privs.Efectivos(ctx, cajera)
	require.NoError(t, err)
	assert.True(t, set.Has(permission.AccesoVentas), "privileges granted before deactivation come back")

	_, err = f.auth.Login(ctx, dto.LoginRequest{User: "ana", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, f.usuarios.Reactivar(ctx, cajera), "already active is a no-op")
	assert.ErrorIs(t, f.usuarios.Reactivar(ctx, 9999), ErrNoEncontrado)
}

// ── Reportes ──────────────────────────────────────────────────────────────────

func TestReportes_ExcludeCancelledSales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.createUser(t, "ana", permission.APIRoleCashier)
	require.NoError(t, f.caja.Abrir(ctx, uid, dto.AbrirCajaRequest{}))

	kept := dto.RegistrarVentaRequest{
		PayMethod: dto.MetodoTarjeta, Total: d("50"),
		Products: []dto.ItemVentaRequest{{ProductID: 1, Description: "Refresco", Quantity: 2, Price: d("25"), Cost: d("15"), Subtotal: d("50")}},
	}
	_, err := f.ventas.Registrar(ctx, uid, kept)
	require.NoError(t, err)

	dropped := cashSale("10")
	dropped.Products[0].Cost = d("4")
	v, err := f.ventas.Registrar(ctx, uid, dropped)
	require.NoError(t, err)
	require.NoError(t, f.ventas.Cancelar(ctx, v.ID))

	info, err := f.reportes.InfoVentas(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.DailyTransactions)
	assert.True(t, info.DailyTotal.Equal(d("50")), info.DailyTotal.String())
	assert.Equal(t, 1, info.MonthlyTransactions)
	assert.True(t, info.MonthlyTotal.Equal(d("50")))

	g, err := f.reportes.Ganancia(ctx)
	require.NoError(t, err)
	assert.True(t, g.DayAmount.Equal(d("20")), g.DayAmount.String())
	assert.True(t, g.MonthAmount.Equal(d("20")))
}

func TestReportes_EmptyIsZero(t *testing.T) {
	f := newFixture(t)
	info, err := f.reportes.InfoVentas(context.Background())
	require.NoError(t, err)
	assert.Zero(t, info.DailyTransactions)
	assert.True(t, info.MonthlyTotal.IsZero())
}

func ptr[T any](v T) *T { return &v }
