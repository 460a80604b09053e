package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/flood-alerts/internal/alerting"
	"github.com/mr1hm/flood-alerts/internal/api"
	"github.com/mr1hm/flood-alerts/internal/config"
	"github.com/mr1hm/flood-alerts/internal/forecast"
	internalgrpc "github.com/mr1hm/flood-alerts/internal/grpc"
	"github.com/mr1hm/flood-alerts/internal/ingestion"
	"github.com/mr1hm/flood-alerts/internal/logging"
	"github.com/mr1hm/flood-alerts/internal/notify"
	"github.com/mr1hm/flood-alerts/internal/observability"
	"github.com/mr1hm/flood-alerts/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port, "db_driver", cfg.DB.Driver)

	if cfg.DB.Driver == repository.DriverSQLite && cfg.DB.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
			logging.Fatalf("Failed to create data directory: %v", err)
		}
	}

	clock := clockwork.NewRealClock()
	db, err := repository.Open(cfg.DB.Driver, cfg.DB.Source(), repository.WithClock(clock))
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	rdb, err := notify.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		logging.Fatalf("Failed to connect to redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
		slog.Info("publishing alerts to redis", "channel", cfg.Redis.Channel)
	}
	publisher := notify.NewAlertPublisher(rdb, cfg.Redis.Channel)

	// Create broadcaster for gRPC streaming
	broadcaster := internalgrpc.NewBroadcaster()

	processor := ingestion.NewProcessor(db, alerting.NewRecorder(db, clock), metrics,
		ingestion.WithBroadcaster(broadcaster),
		ingestion.WithPublisher(publisher),
		ingestion.WithClock(clock),
	)

	// Start ingestion manager
	mgr := ingestion.NewManager(cfg, db, processor, metrics, clock)
	mgr.Start(ctx)

	// Start gRPC server
	grpcServer := internalgrpc.NewServer(db, broadcaster)
	go func() {
		grpcAddr := fmt.Sprintf(":%d", cfg.GRPC.Port)
		if err := grpcServer.Start(grpcAddr); err != nil {
			logging.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimit))

	handler := api.NewHandler(api.Deps{
		Store:     db,
		Processor: processor,
		Bundles:   forecast.NewRegistry(cfg.Forecast.BundleTTL, cfg.Forecast.BundleTTL/2),
		Metrics:   metrics,
		Forecast:  cfg.Forecast,
		Clock:     clock,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	mgr.Stop()
	broadcaster.Close() // Close all streams gracefully
	grpcServer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete", "dropped_alerts", broadcaster.Dropped())
}
