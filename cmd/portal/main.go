package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/portfolio-portal/internal/api/http"
	"github.com/spec-kit/portfolio-portal/internal/api/http/handlers"
	"github.com/spec-kit/portfolio-portal/internal/backend"
	"github.com/spec-kit/portfolio-portal/internal/config"
	"github.com/spec-kit/portfolio-portal/internal/domain"
	"github.com/spec-kit/portfolio-portal/internal/guard"
	"github.com/spec-kit/portfolio-portal/internal/notify"
	"github.com/spec-kit/portfolio-portal/internal/observability"
	"github.com/spec-kit/portfolio-portal/internal/persistence"
	"github.com/spec-kit/portfolio-portal/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	dependencies := map[string]handlers.Pinger{}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	ledgers := notify.MemoryLedgers
	if pg.Enabled() {
		dependencies["postgres"] = pg
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		if cfg.Poller.Ledger == "postgres" {
			pool := pg.PoolHandle()
			ledgers = func(userID int64) notify.Ledger {
				return notify.NewPostgresLedger(pool, userID)
			}
		}
	}

	var kv session.KV = session.NewMemoryKV()
	if cfg.Session.Store == "redis" {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		dependencies["redis"] = redis
		kv = redis.SessionKV()
	}
	sessions := session.NewManager(kv, cfg.Session.Secret, cfg.Session.TTL())

	api := backend.NewClient(cfg.Backend, &http.Client{}, config.NewCircuitBreaker("portfolio-api", logger), logger)

	pollers := notify.NewRegistry(api, ledgers, notify.RegistryOptions{
		Interval:    cfg.Poller.Interval(),
		IdleTimeout: cfg.Poller.IdleTimeout(),
		Logger:      logger,
		Metrics:     metrics,
	})
	go pollers.RunJanitor(ctx)
	defer pollers.Shutdown()

	guardMiddleware := guard.NewMiddleware(guard.New(api, logger, metrics), sessions, cfg.Session.CookieName, guard.Hooks{
		Mounted: func(p *guard.Principal) {
			if p.Area.Name == domain.StudentArea.Name {
				pollers.Ensure(ctx, p.Credentials, p.User.ID)
			}
		},
		Unmounted: pollers.Stop,
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Session: handlers.NewSessionHandler(api, sessions, pollers, handlers.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
		}, logger),
		Areas:   handlers.NewAreaHandler(),
		Alerts:  handlers.NewAlertsHandler(pollers),
		Guard:   guardMiddleware,
		Metrics: metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
