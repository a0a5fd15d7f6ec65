package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-sla/internal/api/http"
	"github.com/spec-kit/helpdesk-sla/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-sla/internal/config"
	"github.com/spec-kit/helpdesk-sla/internal/events"
	"github.com/spec-kit/helpdesk-sla/internal/observability"
	"github.com/spec-kit/helpdesk-sla/internal/persistence"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	"github.com/spec-kit/helpdesk-sla/internal/repository/catalog"
	"github.com/spec-kit/helpdesk-sla/internal/service"
	"github.com/spec-kit/helpdesk-sla/internal/sla"
	"github.com/spec-kit/helpdesk-sla/internal/worker"
)

const shutdownTimeout = 10 * time.Second

type repositories struct {
	tickets    repository.TicketRepository
	priorities repository.PriorityRepository
	stages     repository.StageRepository
	expedients repository.ExpedientRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	repos, err := buildRepositories(pg, cfg.SLA, logger)
	if err != nil {
		logger.Fatal("failed to load SLA catalog", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger, metrics, cfg.Notification).RegisterHandlers()

	slaService := service.NewSLAService(service.SLADependencies{
		TicketRepo:    repos.tickets,
		PriorityRepo:  repos.priorities,
		StageRepo:     repos.stages,
		ExpedientRepo: repos.expedients,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
		Location:      cfg.SLA.Location,
		Locale:        sla.ParseLocale(cfg.SLA.Locale),
		Clock:         service.SystemClock{},
	})

	watcher := worker.NewBreachWatcher(repos.tickets, slaService, redis, logger, worker.BreachWatcherConfig{
		Schedule:  cfg.SLA.WatchSchedule,
		Location:  cfg.SLA.Location,
		BatchSize: cfg.SLA.WatchBatchSize,
		DedupeTTL: cfg.SLA.BreachDedupeTTL(),
	})
	if err := watcher.Start(); err != nil {
		logger.Fatal("failed to start breach watcher", zap.Error(err))
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		SLA:     handlers.NewSLAHandler(slaService),
		Metrics: metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	watcher.Stop(shutdownCtx)
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
}

// buildRepositories prefers Postgres, then a YAML catalog, then an empty catalog.
func buildRepositories(pg *persistence.Postgres, cfg config.SLAConfig, logger *zap.Logger) (repositories, error) {
	if pg.Enabled() {
		pool := pg.PoolHandle()
		return repositories{
			tickets:    repository.NewTicketRepository(pool),
			priorities: repository.NewPriorityRepository(pool),
			stages:     repository.NewStageRepository(pool),
			expedients: repository.NewExpedientRepository(pool),
		}, nil
	}

	store := catalog.New()
	if cfg.CatalogPath != "" {
		loaded, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			return repositories{}, err
		}
		store = loaded
		logger.Info("serving SLA data from catalog", zap.String("path", cfg.CatalogPath))
	} else {
		logger.Warn("neither POSTGRES_DSN nor SLA_CATALOG_PATH set; serving an empty catalog")
	}
	return repositories{
		tickets:    store.Tickets(),
		priorities: store.Priorities(),
		stages:     store.Stages(),
		expedients: store.Expedients(),
	}, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
