package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/dca-case-service/internal/api/http"
	"github.com/spec-kit/dca-case-service/internal/api/http/handlers"
	"github.com/spec-kit/dca-case-service/internal/auth"
	"github.com/spec-kit/dca-case-service/internal/config"
	"github.com/spec-kit/dca-case-service/internal/events"
	"github.com/spec-kit/dca-case-service/internal/observability"
	"github.com/spec-kit/dca-case-service/internal/persistence"
	"github.com/spec-kit/dca-case-service/internal/repository"
	"github.com/spec-kit/dca-case-service/internal/scoring"
	"github.com/spec-kit/dca-case-service/internal/service"
	"github.com/spec-kit/dca-case-service/internal/worker"
)

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

	model, err := scoring.LoadModel(cfg.Scoring.ModelPath)
	if err != nil {
		logger.Fatal("failed to load scoring model", zap.Error(err))
	}

	pool := pg.PoolHandle()
	caseRepo := repository.NewCaseRepository(pool)
	activityRepo := repository.NewCaseActivityRepository(pool)
	auditRepo := repository.NewCaseAuditRepository(pool)
	slaRepo := repository.NewCaseSLARepository(pool)
	dcaRepo := repository.NewDCARepository(pool)
	userRepo := repository.NewUserRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo: userRepo,
		DCARepo:  dcaRepo,
	})
	caseService := service.NewCaseService(service.CaseDependencies{
		CaseRepo:     caseRepo,
		ActivityRepo: activityRepo,
		AuditRepo:    auditRepo,
		SLARepo:      slaRepo,
		Dispatcher:   dispatcher,
	})
	transitionService := service.NewTransitionService(service.TransitionDependencies{
		CaseRepo:     caseRepo,
		ActivityRepo: activityRepo,
		AuditRepo:    auditRepo,
		Dispatcher:   dispatcher,
		NextActionIn: cfg.SLA.NextActionIn(),
	})
	scoringService := service.NewScoringService(service.ScoringDependencies{
		CaseRepo:     caseRepo,
		ActivityRepo: activityRepo,
		AuditRepo:    auditRepo,
		Dispatcher:   dispatcher,
		Model:        model,
	})
	allocationService := service.NewAllocationService(service.AllocationDependencies{
		CaseRepo:     caseRepo,
		ActivityRepo: activityRepo,
		AuditRepo:    auditRepo,
		DCARepo:      dcaRepo,
		Dispatcher:   dispatcher,
		SLADueIn:     cfg.SLA.DueIn(),
		NextActionIn: cfg.SLA.NextActionIn(),
	})
	slaService := service.NewSLAService(service.SLADependencies{
		CaseRepo:     caseRepo,
		ActivityRepo: activityRepo,
		AuditRepo:    auditRepo,
		SLARepo:      slaRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})

	worker.StartIntakeWorker(dispatcher, scoringService, allocationService, logger)

	var slaWorker *worker.SLAWorker
	if cfg.SLA.SweepEnabled {
		slaWorker = worker.NewSLAWorker(slaService, redis, metrics, logger, cfg.SLA.SweepInterval(), cfg.SLA.SweepLockTTL())
		slaWorker.Start()
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Cases:          handlers.NewCasesHandler(caseService, transitionService, scoringService, allocationService),
		Agencies:       handlers.NewAgenciesHandler(dcaRepo, allocationService),
		SLA:            handlers.NewSLAHandler(slaService, metrics, cfg.SLA.CronSecret),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if slaWorker != nil {
		slaWorker.Stop()
	}
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
