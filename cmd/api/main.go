// @title           Recycling Deposit API
// @version         1.0
// @description     Loyalty backend for reverse vending machines: deposits, points, and aggregates.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	_ "github.com/dropme/rvm-backend/docs"
	"github.com/dropme/rvm-backend/internal/api"
	"github.com/dropme/rvm-backend/internal/core/service"
	"github.com/dropme/rvm-backend/internal/infrastructure/config"
	mongodb "github.com/dropme/rvm-backend/internal/infrastructure/db/mongo"
	redisdb "github.com/dropme/rvm-backend/internal/infrastructure/db/redis"
	"github.com/dropme/rvm-backend/internal/infrastructure/queue"
	"github.com/dropme/rvm-backend/internal/infrastructure/scheduler"
	"github.com/dropme/rvm-backend/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Stores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	// --- Repositories ---
	catalogRepo := mongodb.NewCatalogRepository(db)
	depositRepo := mongodb.NewDepositRepository(db)
	aggregateRepo := mongodb.NewAggregateRepository(db)
	authRepo := mongodb.NewAuthRepository(db)
	guardStore := redisdb.NewGuardStore(rdb)

	for _, ensure := range []func(context.Context) error{
		catalogRepo.EnsureIndexes,
		depositRepo.EnsureIndexes,
		authRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Fatal().Err(err).Msg("index creation failed")
		}
	}

	// --- Services ---
	guard := service.NewDepositGuard(guardStore, depositRepo, guardConfig(cfg, log), log)
	depositService := service.NewDepositService(depositRepo, catalogRepo, guard, log)
	aggregateService := service.NewAggregateService(aggregateRepo, depositRepo, log)
	catalogService := service.NewCatalogService(catalogRepo)
	authService := service.NewAuthService(authRepo, cfg.JWTSecret, 24*time.Hour)

	// --- Background reconciliation ---
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, aggregateService, log)
	dispatcher.Start(ctx)

	audits := scheduler.New(depositRepo, dispatcher, cfg.Audit.Schedule, cfg.Audit.Lookback, log)
	if err := audits.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("audit scheduler failed to start")
	}

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		DB:         db,
		Redis:      rdb,
		JWTSecret:  cfg.JWTSecret,
		Log:        log,
		Auth:       authService,
		Deposits:   depositService,
		Aggregates: aggregateService,
		Catalog:    catalogService,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	<-audits.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

// guardConfig parses the string-typed weight ceilings into decimals. Bad
// values are a deployment error, so they abort startup.
func guardConfig(cfg *config.Config, log zerolog.Logger) service.GuardConfig {
	maxWeight, err := decimal.NewFromString(cfg.Guard.MaxDepositWeightKg)
	if err != nil {
		log.Fatal().Err(err).Str("value", cfg.Guard.MaxDepositWeightKg).Msg("invalid GUARD_MAX_DEPOSIT_WEIGHT_KG")
	}
	machineCap, err := decimal.NewFromString(cfg.Guard.MachineDailyCapacityKg)
	if err != nil {
		log.Fatal().Err(err).Str("value", cfg.Guard.MachineDailyCapacityKg).Msg("invalid GUARD_MACHINE_DAILY_CAPACITY_KG")
	}

	return service.GuardConfig{
		MaxDepositWeightKg:     maxWeight,
		DedupWindow:            cfg.Guard.DedupWindow,
		DailyDepositLimit:      cfg.Guard.DailyDepositLimit,
		VelocityLimit:          cfg.Guard.VelocityLimit,
		VelocityWindow:         cfg.Guard.VelocityWindow,
		MachineDailyCapacityKg: machineCap,
	}
}
