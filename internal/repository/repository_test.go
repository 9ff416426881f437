package repository

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"ventafacil/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ── Caja ──────────────────────────────────────────────────────────────────────

func TestCajaRepo_TotalesQueryShape(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewCajaRepository(db)

	rows := sqlmock.NewRows([]string{"tipo", "metodo_pago", "total", "cantidad"}).
		AddRow("venta", "efectivo", "1200.00", 10).
		AddRow("venta", "tarjeta", "300.00", 2).
		AddRow("anulacion", "efectivo", "50.00", 1).
		AddRow("egreso", "efectivo", "150.00", 1).
		AddRow("egreso", "transferencia", "999.00", 1)

	mock.ExpectQuery(`SELECT tipo, metodo_pago, COALESCE\(SUM\(monto\), 0\) AS total, COUNT\(\*\) AS cantidad FROM "movimientos_caja" WHERE sesion_caja_id = \$1 GROUP BY tipo, metodo_pago`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	tot, err := repo.Totales(context.Background(), nil, 7)
	require.NoError(t, err)
	assert.True(t, tot.VentasEfectivo.Equal(dec("1200")))
	assert.True(t, tot.VentasTarjeta.Equal(dec("300")))
	assert.True(t, tot.Devoluciones.Equal(dec("50")))
	assert.True(t, tot.EgresosEfectivo.Equal(dec("150")), "non-cash expenses never leave the drawer")
	assert.Equal(t, 11, tot.Transacciones)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCajaRepo_LedgerRoundTrip(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewCajaRepository(db)
	ctx := context.Background()

	none, err := repo.FindAbierta(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	s := &model.SesionCaja{UsuarioID: 1, MontoInicial: dec("500"), Estado: "abierta", OpenedAt: time.Now()}
	require.NoError(t, repo.CreateSesion(ctx, nil, s))

	movs := []model.MovimientoCaja{
		{Tipo: model.MovVenta, MetodoPago: "efectivo", Monto: dec("700"), Descripcion: "venta 1"},
		{Tipo: model.MovVenta, MetodoPago: "efectivo", Monto: dec("500"), Descripcion: "venta 2"},
		{Tipo: model.MovVenta, MetodoPago: "transferencia", Monto: dec("80"), Descripcion: "venta 3"},
		{Tipo: model.MovAnulacion, MetodoPago: "transferencia", Monto: dec("80"), Descripcion: "anula 3"},
		{Tipo: model.MovEgreso, MetodoPago: "efectivo", Monto: dec("40"), Descripcion: "gasto"},
		{Tipo: model.MovEgresoAnulado, MetodoPago: "efectivo", Monto: dec("40"), Descripcion: "gasto anulado"},
	}
	for i := range movs {
		movs[i].SesionCajaID = s.ID
		require.NoError(t, repo.CreateMovimiento(ctx, nil, &movs[i]))
	}

	tot, err := repo.Totales(ctx, nil, s.ID)
	require.NoError(t, err)
	assert.True(t, tot.VentasEfectivo.Equal(dec("1200")), tot.VentasEfectivo.String())
	assert.True(t, tot.VentasTransferencia.IsZero())
	assert.True(t, tot.EgresosEfectivo.IsZero())
	assert.Equal(t, 2, tot.Transacciones)

	open, err := repo.FindAbierta(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, s.ID, open.ID)

	open.Estado = "cerrada"
	require.NoError(t, repo.UpdateSesion(ctx, nil, open))
	none, err = repo.FindAbierta(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	hist, err := repo.Historial(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

// ── Privilegios ───────────────────────────────────────────────────────────────

func TestPrivilegioRepo_AssignIsIdempotent(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewPrivilegioRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, []model.Privilegio{
		{Clave: "ACCESO_VENTAS", Descripcion: "Ventas"},
		{Clave: "CERRAR_CAJA", Descripcion: "Cerrar"},
	}))
	// re-seeding only updates descriptions
	require.NoError(t, repo.Upsert(ctx, []model.Privilegio{{Clave: "ACCESO_VENTAS", Descripcion: "Acceso a ventas"}}))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Acceso a ventas", all[0].Descripcion)

	require.NoError(t, repo.Asignar(ctx, 9, all[1].ID))
	require.NoError(t, repo.Asignar(ctx, 9, all[1].ID))
	mine, err := repo.ListByUsuario(ctx, 9)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "CERRAR_CAJA", mine[0].Clave)

	require.NoError(t, repo.Quitar(ctx, 9, all[1].ID))
	mine, err = repo.ListByUsuario(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

// ── Usuarios / Ventas / Gastos ────────────────────────────────────────────────

func TestUsuarioRepo_FindByUsernameSkipsInactive(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewUsuarioRepository(db)
	ctx := context.Background()

	u := &model.Usuario{Username: "Ana", Nombre: "Ana", PasswordHash: "x", Rol: "CAJERA", Activo: true}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.FindByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, repo.SoftDelete(ctx, u.ID))
	_, err = repo.FindByUsername(ctx, "ana")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestVentaRepo_CreateWithItems(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewVentaRepository(db)
	ctx := context.Background()

	v := &model.Venta{
		SesionCajaID: 1, UsuarioID: 1, MetodoPago: "efectivo", Total: dec("45"),
		EfectivoRecibido: dec("50"), Cambio: dec("5"), Estado: "completada",
		Items: []model.VentaItem{{ProductoID: 3, Descripcion: "Refresco", Cantidad: 3, Precio: dec("15"), Costo: dec("9"), Subtotal: dec("45")}},
	}
	require.NoError(t, repo.Create(ctx, db, v))

	got, err := repo.FindByID(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Refresco", got.Items[0].Descripcion)

	now := time.Now()
	got.Estado, got.CanceladaAt = "cancelada", &now
	require.NoError(t, repo.UpdateEstado(ctx, db, got))
	list, err := repo.ListBySesion(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "cancelada", list[0].Estado)
}

func TestGastoRepo_ListSkipsInactive(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGastoRepository(db)
	ctx := context.Background()

	a := &model.Gasto{SesionCajaID: 2, UsuarioID: 1, Descripcion: "Luz", Categoria: "Servicio", MetodoPago: "efectivo", Monto: dec("100"), Activo: true, FechaRegistro: time.Now()}
	b := &model.Gasto{SesionCajaID: 2, UsuarioID: 1, Descripcion: "Taxi", Categoria: "Transporte", MetodoPago: "efectivo", Monto: dec("60"), Activo: true, FechaRegistro: time.Now()}
	require.NoError(t, repo.Create(ctx, db, a))
	require.NoError(t, repo.Create(ctx, db, b))
	require.NoError(t, repo.Desactivar(ctx, db, a.ID))

	gs, err := repo.ListBySesion(ctx, 2)
	require.NoError(t, err)
	require.Len(t, gs, 1)
	assert.Equal(t, "Taxi", gs[0].Descripcion)
}

// ── Reportes ──────────────────────────────────────────────────────────────────

func TestReporteRepo_Windows(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewReporteRepository(db)
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	venta := func(at time.Time, estado string, precio, costo string, qty int) {
		sub := dec(precio).Mul(decimal.NewFromInt(int64(qty)))
		v := &model.Venta{
			SesionCajaID: 1, UsuarioID: 1, MetodoPago: "efectivo", Total: sub,
			EfectivoRecibido: sub, Cambio: decimal.Zero, Estado: estado, CreatedAt: at,
			Items: []model.VentaItem{{ProductoID: 1, Descripcion: "x", Cantidad: qty, Precio: dec(precio), Costo: dec(costo), Subtotal: sub}},
		}
		require.NoError(t, db.Create(v).Error)
	}
	venta(day.Add(9*time.Hour), "completada", "20", "12", 3)  // today: 60 sold, 24 profit
	venta(day.Add(10*time.Hour), "cancelada", "99", "1", 1)   // ignored
	venta(day.AddDate(0, 0, -3), "completada", "10", "7", 1)  // earlier this month
	venta(day.AddDate(0, -1, 0), "completada", "500", "0", 1) // last month

	r, err := repo.Ventas(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Transacciones)
	assert.True(t, r.Total.Equal(dec("60")), r.Total.String())

	month := time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)
	r, err = repo.Ventas(ctx, month, month.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, r.Transacciones)
	assert.True(t, r.Total.Equal(dec("70")))

	g, err := repo.Ganancia(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, g.Equal(dec("24")), g.String())
	g, err = repo.Ganancia(ctx, month, month.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.True(t, g.Equal(dec("27")))
}
