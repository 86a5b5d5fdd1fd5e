package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/canteen-service/internal/api/http"
	"github.com/spec-kit/canteen-service/internal/api/http/handlers"
	"github.com/spec-kit/canteen-service/internal/auth"
	"github.com/spec-kit/canteen-service/internal/config"
	"github.com/spec-kit/canteen-service/internal/dingtalk"
	"github.com/spec-kit/canteen-service/internal/observability"
	"github.com/spec-kit/canteen-service/internal/persistence"
	"github.com/spec-kit/canteen-service/internal/repository"
	"github.com/spec-kit/canteen-service/internal/service"
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

	pool := pg.PoolHandle()
	dishRepo := repository.NewDishRepository(pool)
	evaluationRepo := repository.NewEvaluationRepository(pool)
	statisticsRepo := repository.NewStatisticsRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	gateway := dingtalk.NewClient(cfg.DingTalk, logger)
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	dishService := service.NewDishService(dishRepo)
	evaluationService := service.NewEvaluationService(evaluationRepo)
	statisticsService := service.NewStatisticsService(statisticsRepo)
	identityService := service.NewIdentityService(service.IdentityDependencies{
		Gateway:          gateway,
		UserRepo:         userRepo,
		TokenManager:     tokenManager,
		DefaultCompanyID: cfg.DingTalk.DefaultCompanyID,
		Logger:           logger,
	})

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg),
		Dishes:      handlers.NewDishesHandler(dishService),
		Evaluations: handlers.NewEvaluationsHandler(evaluationService),
		DingTalk:    handlers.NewDingTalkHandler(gateway, identityService),
		Statistics:  handlers.NewStatisticsHandler(statisticsService),
		AppName:     cfg.App.Name,
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
