package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dropme/rvm-backend/internal/api/handler"
	"github.com/dropme/rvm-backend/internal/api/middleware"
	"github.com/dropme/rvm-backend/internal/core/domain"
	"github.com/dropme/rvm-backend/internal/core/ports"
)

// Deps carries everything the router needs. Services are constructed in
// main so the scheduler can share them.
type Deps struct {
	DB         *mongo.Database
	Redis      *redis.Client
	JWTSecret  string
	Log        zerolog.Logger
	Auth       ports.AuthService
	Deposits   ports.DepositService
	Aggregates ports.AggregateService
	Catalog    ports.CatalogService
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("rvm"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	depositHandler := handler.NewDepositHandler(deps.Deposits)
	accountHandler := handler.NewAccountHandler(deps.Aggregates)
	catalogHandler := handler.NewCatalogHandler(deps.Catalog)
	adminHandler := handler.NewAdminHandler(deps.Deposits, deps.Aggregates)

	authMiddleware := middleware.Auth(deps.JWTSecret)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Authenticated API ---
	v1 := e.Group("/v1", authMiddleware)
	v1.POST("/deposits", depositHandler.Create)
	v1.GET("/deposits", depositHandler.List)
	v1.GET("/account/totals", accountHandler.Totals)
	v1.GET("/account/summary", accountHandler.Summary)
	v1.GET("/materials", catalogHandler.ListMaterials)
	v1.GET("/machines", catalogHandler.ListMachines)

	// --- Admin routes ---
	admin := v1.Group("/admin", middleware.RBAC(domain.RoleAdmin))
	admin.GET("/stats", adminHandler.Stats)
	admin.POST("/users/:user_id/rebuild", adminHandler.RebuildAggregate)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.DB, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operational surfaces ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
