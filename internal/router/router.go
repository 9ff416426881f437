package router

import (
	"time"

	"ventafacil/internal/config"
	"ventafacil/internal/handler"
	"ventafacil/internal/infra"
	"ventafacil/internal/middleware"
	"ventafacil/internal/permission"
	"ventafacil/internal/repository"
	"ventafacil/internal/service"
	"ventafacil/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
//
// rdb may be nil: the permission cache and the corte email queue are then
// disabled and closes are only recorded.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.Origins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	var (
		cache    service.PermisosCache
		notifier service.CorteNotifier
	)
	if rdb != nil {
		cache = infra.NewPermissionCache(rdb, cfg.PermissionCacheTTL)
		notifier = worker.NewDispatcher(rdb)
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	privilegioRepo := repository.NewPrivilegioRepository(db)
	cajaRepo := repository.NewCajaRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	gastoRepo := repository.NewGastoRepository(db)
	reporteRepo := repository.NewReporteRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	privilegioSvc := service.NewPrivilegioService(privilegioRepo, usuarioRepo, cache)
	usuarioSvc := service.NewUsuarioService(usuarioRepo, privilegioRepo, cache)
	cajaSvc := service.NewCajaService(cajaRepo, notifier)
	ventaSvc := service.NewVentaService(ventaRepo, cajaRepo, cajaSvc)
	gastoSvc := service.NewGastoService(gastoRepo, cajaRepo, cajaSvc)
	reporteSvc := service.NewReporteService(reporteRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	privilegiosH := handler.NewPrivilegiosHandler(privilegioSvc)
	usuariosH := handler.NewUsuariosHandler(usuarioSvc)
	cajaH := handler.NewCajaHandler(cajaSvc, cfg.BusinessName, cfg.PDFStoragePath)
	ventasH := handler.NewVentasHandler(ventaSvc)
	gastosH := handler.NewGastosHandler(gastoSvc)
	reportesH := handler.NewReportesHandler(reporteSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))
	r.POST("/api/auth/login", middleware.LoginRateLimiter(20), authH.Login)

	// Protected routes. Permissions are resolved server-side per request;
	// the token only identifies the caller.
	need := func(k permission.Key) gin.HandlerFunc { return middleware.RequirePermission(privilegioSvc, k) }
	api := r.Group("/api", middleware.JWTAuth(cfg.JWTSecret))
	{
		priv := api.Group("/privileges")
		{
			priv.GET("", need(permission.AdministrarUsuarios), privilegiosH.Catalogo)
			priv.GET("/:userId", privilegiosH.DeUsuario)
			priv.POST("", need(permission.AdministrarUsuarios), privilegiosH.Asignar)
			priv.DELETE("", need(permission.AdministrarUsuarios), privilegiosH.Quitar)
		}

		bal := api.Group("/balances")
		{
			// Every terminal probes the drawer to route its screens.
			bal.GET("", cajaH.Activa)
			bal.POST("", need(permission.AbrirCaja), cajaH.Abrir)
			bal.PUT("", need(permission.CerrarCaja), cajaH.Cerrar)
			bal.GET("/history", need(permission.VerReportes), cajaH.Historial)
			bal.GET("/:id/report", need(permission.VistaCorte), cajaH.Reporte)
		}

		sales := api.Group("/sales", need(permission.AccesoVentas))
		{
			sales.POST("", ventasH.Registrar)
			sales.GET("", ventasH.Listar)
			sales.GET("/:id", ventasH.Detalle)
			sales.DELETE("/:id", middleware.RequireRole(permission.RoleAdmin), ventasH.Cancelar)
		}

		exp := api.Group("/expenses", need(permission.AccesoEgresos))
		{
			exp.POST("", gastosH.Registrar)
			exp.GET("", gastosH.Listar)
			exp.DELETE("/:id", gastosH.Eliminar)
		}

		users := api.Group("/users", need(permission.AdministrarUsuarios))
		{
			users.POST("", usuariosH.Crear)
			users.GET("", usuariosH.Listar)
			users.GET("/:id", usuariosH.Obtener)
			users.PUT("/:id", usuariosH.Actualizar)
			users.DELETE("/:id", usuariosH.Desactivar)
			users.PATCH("/:id", usuariosH.Reactivar)
		}

		rep := api.Group("/reports", need(permission.VerReportes))
		{
			rep.GET("/sales-info", reportesH.InfoVentas)
			rep.GET("/profit", reportesH.Ganancia)
		}
	}

	// Swagger UI, only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
