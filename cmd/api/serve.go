package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/itsupport-service/internal/api/http"
	"github.com/spec-kit/itsupport-service/internal/api/http/handlers"
	"github.com/spec-kit/itsupport-service/internal/auth"
	"github.com/spec-kit/itsupport-service/internal/classifier"
	"github.com/spec-kit/itsupport-service/internal/config"
	"github.com/spec-kit/itsupport-service/internal/events"
	"github.com/spec-kit/itsupport-service/internal/kafka"
	"github.com/spec-kit/itsupport-service/internal/observability"
	"github.com/spec-kit/itsupport-service/internal/persistence"
	"github.com/spec-kit/itsupport-service/internal/repository"
	"github.com/spec-kit/itsupport-service/internal/service"
	"github.com/spec-kit/itsupport-service/internal/worker"
	"github.com/spec-kit/itsupport-service/internal/workflow"
)

const (
	httpShutdownTimeout = 10 * time.Second
	sweepTimeout        = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	ticketRepo, userRepo := newRepositories(pg)
	dispatcher := events.NewInMemoryDispatcher()

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	pool := worker.NewPool(worker.PoolOptions{
		Workers:   cfg.Worker.Count,
		QueueSize: cfg.Worker.QueueSize,
		Logger:    logger,
		Metrics:   metrics,
	})

	claims := service.NewLocalClaimer(cfg.Workflow.ClaimTTL())
	if redis != nil {
		claims = service.NewRedisClaimer(redis, cfg.Workflow.ClaimTTL())
	}

	httpClient := &http.Client{}
	orchestrator := service.NewOrchestrator(service.OrchestratorDependencies{
		Tickets:              tickets,
		TicketRepo:           ticketRepo,
		Classifier:           classifier.NewClient(cfg.Classifier.URL, cfg.Classifier.Timeout(), httpClient),
		Workflow:             workflow.NewClient(cfg.Workflow, httpClient),
		Runner:               pool,
		Claims:               claims,
		Logger:               logger,
		Metrics:              metrics,
		WorkflowDefinitionID: cfg.Workflow.DefinitionID,
		ReclassifyMinAge:     cfg.Reclassify.MinAge(),
		ReclassifyBatch:      cfg.Reclassify.BatchSize,
	})
	orchestrator.RegisterHooks(dispatcher)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	producer.RegisterHooks(dispatcher)

	sweep, err := worker.NewSweep(cfg.Reclassify.Schedule, orchestrator, sweepTimeout, logger)
	if err != nil {
		return fmt.Errorf("reclassify schedule: %w", err)
	}

	authService := service.NewAuthService(cfg.Auth, userRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(tickets),
		Support:        handlers.NewSupportTicketsHandler(tickets, orchestrator),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	sweep.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			return fmt.Errorf("fiber listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return shutdown(app, sweep, pool, producer, cfg.Worker.ShutdownTimeout(), logger)
	})
	return g.Wait()
}

func newRepositories(pg *persistence.Postgres) (repository.TicketRepository, repository.UserRepository) {
	if !pg.Enabled() {
		return repository.NewMemoryTicketRepository(), repository.NewMemoryUserRepository()
	}
	return repository.NewTicketRepository(pg.PoolHandle()), repository.NewUserRepository(pg.PoolHandle())
}

// shutdown stops intake first, then drains queued background tasks.
func shutdown(app *fiber.App, sweep *worker.Sweep, pool *worker.Pool, producer *kafka.Producer, drain time.Duration, logger *zap.Logger) error {
	if err := app.ShutdownWithTimeout(httpShutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	ctx := context.Background()
	if drain > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, drain)
		defer cancel()
	}
	sweep.Stop(ctx)
	if err := pool.Shutdown(ctx); err != nil {
		logger.Warn("background tasks abandoned", zap.Error(err))
	}
	if err := producer.Close(); err != nil {
		logger.Warn("close kafka producer", zap.Error(err))
	}
	return nil
}
