package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	inventoryapp "github.com/erp/production/internal/application/inventory"
	productionapp "github.com/erp/production/internal/application/production"
	"github.com/erp/production/internal/domain/production"
	"github.com/erp/production/internal/infrastructure/cache"
	"github.com/erp/production/internal/infrastructure/config"
	"github.com/erp/production/internal/infrastructure/event"
	"github.com/erp/production/internal/infrastructure/logger"
	"github.com/erp/production/internal/infrastructure/migration"
	"github.com/erp/production/internal/infrastructure/persistence"
	"github.com/erp/production/internal/infrastructure/telemetry"
	"github.com/erp/production/internal/interfaces/http/handler"
	"github.com/erp/production/internal/interfaces/http/middleware"
	"github.com/erp/production/internal/interfaces/http/router"
	"github.com/erp/production/migrations"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting production ledger server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	db, err := persistence.Open(&cfg.Database,
		persistence.WithZapLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver))

	if err := prepareSchema(db, &cfg.Database, log); err != nil {
		log.Fatal("Failed to prepare database schema", zap.Error(err))
	}

	dbSystem := "postgresql"
	if db.Driver == config.DriverSQLite {
		dbSystem = "sqlite"
	}
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
	dbMetricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, mp, dbMetricsCfg, log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		defer dbMetrics.Stop()
	}

	// Repositories
	orderRepo := persistence.NewGormProductionOrderRepository(db.DB)
	resultRepo := persistence.NewGormProductionResultRepository(db.DB)
	balanceRepo := persistence.NewGormStockBalanceRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)
	itemRepo := persistence.NewGormItemRepository(db.DB)
	bomRepo := persistence.NewGormBOMRepository(db.DB)
	warehouseRepo := persistence.NewGormWarehouseRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Event bus with the audit trail subscribed to every order event
	serializer := event.NewEventSerializer()
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewOrderAuditHandler(serializer, log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Services
	recorder := inventoryapp.NewMovementRecorder()
	ledgerService := inventoryapp.NewLedgerService(txScope.Ledger(), balanceRepo, ledgerRepo, itemRepo, warehouseRepo, recorder, log)
	ledgerService.SetVerifyOnRead(cfg.Production.VerifyOnRead)

	productionService := productionapp.NewProductionService(txScope, productionapp.Repositories{
		Orders:     orderRepo,
		Results:    resultRepo,
		Ledger:     ledgerRepo,
		Items:      itemRepo,
		BOMs:       bomRepo,
		Warehouses: warehouseRepo,
	}, recorder, log)
	productionService.SetEventPublisher(eventBus)
	productionService.SetOrderNumberGenerator(production.NewTimeOrderNumberGenerator(cfg.Production.OrderPrefix))

	if mp.IsEnabled() {
		productionMetrics, err := telemetry.NewProductionMetrics(telemetry.ProductionMetricsConfig{
			Meter:  mp.Meter("production"),
			Logger: log,
		})
		if err != nil {
			log.Fatal("Failed to create production metrics", zap.Error(err))
		}
		productionService.SetMetrics(productionMetrics)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		productionService.SetOrderLocker(cache.NewRedisOrderLocker(redisClient, cfg.Production.LockTTL, log))
		log.Info("Order transitions locked through Redis",
			zap.String("addr", cfg.Redis.Addr()),
			zap.Duration("lock_ttl", cfg.Production.LockTTL),
		)
	} else {
		log.Info("Redis disabled, order transitions use the in-process lock")
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tp.IsEnabled(),
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: mp,
		Enabled:       mp.IsEnabled(),
		Logger:        log,
	}))
	engine.Use(logger.GinMiddleware(log, logger.SkipPaths("/health")))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))
	engine.Use(middleware.Secure())

	engine.GET("/health", healthHandler(db, redisClient))

	routes := router.Mount(engine, router.DefaultAPIVersion,
		router.ProductionOrderRoutes(handler.NewProductionOrderHandler(productionService)),
		router.StockRoutes(handler.NewStockHandler(ledgerService)),
	)
	log.Debug("Routes mounted", zap.Strings("routes", routes))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop event bus", zap.Error(err))
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown meter provider", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// prepareSchema applies the embedded SQL migrations on postgres over a
// short-lived connection. sqlite tables come from the GORM models.
func prepareSchema(db *persistence.Database, cfg *config.DatabaseConfig, log *zap.Logger) error {
	if db.Driver == config.DriverSQLite {
		return db.AutoMigrate()
	}
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	m, err := migration.NewFromFS(sqlDB, migrations.FS, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer m.Close()
	return m.Up()
}

// healthHandler reports database and, when configured, Redis reachability
func healthHandler(db *persistence.Database, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		status := http.StatusOK
		body := gin.H{
			"status":   "healthy",
			"time":     time.Now().UTC().Format(time.RFC3339),
			"database": "ok",
		}

		if err := db.Ping(c.Request.Context()); err != nil {
			reqLog.Warn("Health check failed", zap.String("component", "database"), zap.Error(err))
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["database"] = "error"
		}
		if redisClient != nil {
			body["redis"] = "ok"
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				reqLog.Warn("Health check failed", zap.String("component", "redis"), zap.Error(err))
				status = http.StatusServiceUnavailable
				body["status"] = "unhealthy"
				body["redis"] = "error"
			}
		}

		c.JSON(status, body)
	}
}
