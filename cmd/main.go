// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/audit"
	"github.com/Shivanand-hulikatti/event-signup/internal/config"
	"github.com/Shivanand-hulikatti/event-signup/internal/database"
	"github.com/Shivanand-hulikatti/event-signup/internal/database/migrations"
	"github.com/Shivanand-hulikatti/event-signup/internal/handler"
	"github.com/Shivanand-hulikatti/event-signup/internal/logger"
	"github.com/Shivanand-hulikatti/event-signup/internal/notify"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/Shivanand-hulikatti/event-signup/internal/service"
	"github.com/Shivanand-hulikatti/event-signup/internal/telemetry"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Debug:       cfg.App.Debug && !cfg.IsProduction(),
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 1. Tracing ────────────────────────────────────────────────────────
	tel, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	// ── 2. Connect to PostgreSQL and migrate ──────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info("connected to postgres", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	if err := migrations.Apply(ctx, pool, log.Named("migrations")); err != nil {
		return err
	}

	// ── 3. Notification fan-out ───────────────────────────────────────────
	hub := notify.NewHub(log.Named("notify"))
	var notifier service.Notifier = hub
	if cfg.Redis.Enabled {
		rdb, err := notify.NewRedisClient(ctx, cfg.Redis, 3)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()

		bridge := notify.NewBridge(rdb, cfg.Redis.Channel, hub, log.Named("redis"))
		go func() {
			if err := bridge.Run(ctx); err != nil {
				log.Error("redis bridge stopped", zap.Error(err))
			}
		}()
		notifier = bridge
		log.Info("redis fan-out enabled", zap.String("addr", cfg.Redis.Addr()), zap.String("channel", cfg.Redis.Channel))
	}

	// ── 4. Wire up layers ─────────────────────────────────────────────────
	auditDB := stdlib.OpenDBFromPool(pool)
	defer func() { _ = auditDB.Close() }()
	auditStore := audit.NewStore(auditDB)

	tx := repository.NewTxManager(pool)
	eventRepo := repository.NewEventRepository(pool)
	regRepo := repository.NewRegistrationRepository(pool)

	opts := []service.Option{
		service.WithTxTimeout(cfg.TxTimeout),
		service.WithAuditor(auditStore),
		service.WithNotifier(notifier),
		service.WithLogger(log.Named("service")),
		service.WithTracer(tel.Tracer()),
	}
	eventSvc := service.NewEventService(tx, eventRepo, regRepo, opts...)
	regSvc := service.NewRegistrationService(tx, eventRepo, regRepo, opts...)

	// ── 5. Build the router ───────────────────────────────────────────────
	router := handler.NewRouter(handler.RouterConfig{
		Events:        eventSvc,
		Registrations: regSvc,
		Audit:         auditStore,
		Health:        func(ctx context.Context) error { return database.HealthCheck(ctx, pool) },
		WebSocket:     hub.Handler(),
		Tracer:        tel.Tracer(),
		Logger:        log.Named("http"),
		FrontendURL:   cfg.App.FrontendURL,
	})

	// ── 6. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
