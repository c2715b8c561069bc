package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/stockledger/api"
	"github.com/angelmondragon/stockledger/api/routes"
	"github.com/angelmondragon/stockledger/internal/assembly"
	"github.com/angelmondragon/stockledger/internal/codes"
	"github.com/angelmondragon/stockledger/internal/identity"
	"github.com/angelmondragon/stockledger/internal/inventory"
	"github.com/angelmondragon/stockledger/internal/items"
	"github.com/angelmondragon/stockledger/internal/locations"
	"github.com/angelmondragon/stockledger/internal/movements"
	"github.com/angelmondragon/stockledger/internal/owners"
	"github.com/angelmondragon/stockledger/internal/stock"
	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/db"
	"github.com/angelmondragon/stockledger/pkg/enums"
	"github.com/angelmondragon/stockledger/pkg/instance"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/metrics"
	"github.com/angelmondragon/stockledger/pkg/migrate"
	"github.com/angelmondragon/stockledger/pkg/outbox"
	"github.com/angelmondragon/stockledger/pkg/redis"
)

const serviceKind = "api"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := buildServices(cfg, logg, dbClient, redisClient, promRegistry)
	if err != nil {
		logg.Error(ctx, "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := api.NewServer(addr, routes.NewRouter(cfg, logg, routes.Deps{
		DB:          dbClient,
		Redis:       redisClient,
		Idempotency: redisClient,
		Gatherer:    promRegistry,
	}, services))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}()

	logg.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer) (routes.Services, error) {
	var out routes.Services
	conn := dbClient.DB()

	itemRepo := items.NewRepository(conn)
	locationRepo := locations.NewRepository(conn)
	movementRepo := movements.NewRepository(conn)
	publisher := outbox.NewService(outbox.NewRepository(conn), logg)

	registry := owners.NewRegistry()
	registry.Register(enums.OwnerKindItem, items.NewResolver(itemRepo))

	var locker stock.Locker
	if cfg.Inventory.StockLockEnabled {
		redisLocker, err := stock.NewRedisLocker(redisClient, cfg.Inventory.StockLockTTL, logg)
		if err != nil {
			return out, err
		}
		locker = redisLocker
	}

	var err error
	if out.Items, err = items.NewService(itemRepo); err != nil {
		return out, err
	}
	if out.Locations, err = locations.NewService(locationRepo); err != nil {
		return out, err
	}
	if out.Movements, err = movements.NewService(movementRepo); err != nil {
		return out, err
	}
	out.Stock, err = stock.NewService(stock.ServiceParams{
		DB:        dbClient,
		Stocks:    stock.NewRepository(conn),
		Movements: movementRepo,
		Recorder:  movements.NewRecorder(movementRepo),
		Locations: locationRepo,
		Owners:    registry,
		Outbox:    publisher,
		Identity:  identity.NewContextProvider(cfg.Inventory.AllowNoUser),
		Config:    cfg.Inventory,
		Locker:    locker,
		Metrics:   metrics.NewLedgerMetrics(reg),
		Logger:    logg,
	})
	if err != nil {
		return out, err
	}
	if out.Inventory, err = inventory.NewService(out.Stock); err != nil {
		return out, err
	}
	if out.Assembly, err = assembly.NewService(dbClient, assembly.NewRepository(conn), itemRepo, publisher, logg); err != nil {
		return out, err
	}
	if out.Codes, err = codes.NewService(dbClient, codes.NewRepository(conn), registry, publisher, cfg.Inventory); err != nil {
		return out, err
	}
	return out, nil
}
