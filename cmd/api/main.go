package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/car-service/internal/api/http"
	"github.com/spec-kit/car-service/internal/api/http/handlers"
	"github.com/spec-kit/car-service/internal/auth"
	"github.com/spec-kit/car-service/internal/config"
	"github.com/spec-kit/car-service/internal/events"
	"github.com/spec-kit/car-service/internal/observability"
	"github.com/spec-kit/car-service/internal/persistence"
	"github.com/spec-kit/car-service/internal/repository"
	"github.com/spec-kit/car-service/internal/service"
	"github.com/spec-kit/car-service/internal/worker"
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

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	vehicleRepo := repository.NewVehicleRepository(pool)
	serviceRepo := repository.NewServiceRepository(pool)
	historyRepo := repository.NewServiceHistoryRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(*cfg, userRepo, nil)
	accountService := service.NewAccountService(*cfg, userRepo)
	vehicleService := service.NewVehicleService(*cfg, vehicleRepo, serviceRepo)
	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		ServiceRepo: serviceRepo,
		HistoryRepo: historyRepo,
		UserRepo:    userRepo,
		VehicleRepo: vehicleRepo,
		Dispatcher:  dispatcher,
	})
	dashboardService := service.NewDashboardService(*cfg, lifecycleService, redis.Client, logger)
	dashboardService.RegisterHandlers(dispatcher)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService, accountService),
		Vehicles:       handlers.NewVehiclesHandler(vehicleService),
		Services:       handlers.NewServicesHandler(lifecycleService),
		StaffServices:  handlers.NewStaffServicesHandler(lifecycleService, dashboardService),
		AdminUsers:     handlers.NewAdminUsersHandler(accountService),
		AuthMiddleware: authMiddleware,
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
