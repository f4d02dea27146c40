package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VanitasCaesar1/problemdetails/binding"
	"github.com/VanitasCaesar1/problemdetails/config"
	"github.com/VanitasCaesar1/problemdetails/handlers"
	"github.com/VanitasCaesar1/problemdetails/health"
	"github.com/VanitasCaesar1/problemdetails/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Fiber    *fiber.App
	Postgres *pgxpool.Pool
	Redis    *redis.Client
	Config   *config.Config
	Logger   *zap.Logger
	Problems *middleware.ErrorHandlingMiddleware
	Started  time.Time
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func NewApp() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %v", err)
	}

	for _, problem := range cfg.Validate() {
		logger.Warn("configuration problem", zap.String("problem", problem))
	}

	ctx := context.Background()

	// Backends are optional; they only feed the health report.
	var pgPool *pgxpool.Pool
	if cfg.PostgresURL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("unable to parse pool config: %v", err)
		}
		poolConfig.MaxConns = 4
		poolConfig.MaxConnIdleTime = 30 * time.Minute

		pgPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("unable to create postgres pool: %v", err)
		}
		if err := pgPool.Ping(ctx); err != nil {
			logger.Warn("postgres not reachable at startup", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis URL parsing failed: %v", err)
		}
		redisClient = redis.NewClient(redisOpt)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not reachable at startup", zap.Error(err))
		}
	}

	problems := middleware.NewErrorHandlingMiddleware(middleware.ErrorHandlingConfig{
		Logger:  logger,
		Options: cfg.ProblemDetails,
	})

	return &App{
		Fiber:    newFiber(logger, problems),
		Postgres: pgPool,
		Redis:    redisClient,
		Config:   cfg,
		Logger:   logger,
		Problems: problems,
		Started:  time.Now(),
	}, nil
}

// newFiber builds the Fiber app with the problem details middleware installed
// ahead of every route.
func newFiber(logger *zap.Logger, problems *middleware.ErrorHandlingMiddleware) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: problems.ErrorHandler(),
		JSONEncoder:  problems.Codec().Marshal,
		JSONDecoder:  problems.Codec().Unmarshal,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
	})

	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,HEAD,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, " + middleware.HeaderRequestID,
		ExposeHeaders: middleware.HeaderRequestID,
		MaxAge:        300,
	}))
	fiberApp.Use(middleware.RequestID())
	fiberApp.Use(middleware.AccessLog(logger))
	fiberApp.Use(problems.Handler())

	return fiberApp
}

func (a *App) healthChecks() []health.Check {
	checks := []health.Check{
		health.ApplicationInfo(a.Config.AppName, a.Config.AppVersion, a.Started),
		health.Configuration(a.Config.Validate),
	}
	if a.Redis != nil {
		checks = append(checks, health.Redis(a.Redis))
	}
	if a.Postgres != nil {
		checks = append(checks, health.Postgres(a.Postgres))
	}
	return checks
}

func (a *App) setupRoutes() {
	dataHandler := handlers.NewDataHandler(a.Config, a.Logger, binding.New(), a.Problems)
	healthHandler := handlers.NewHealthHandler(health.NewChecker(5*time.Second, a.healthChecks()...))

	api := a.Fiber.Group("/api/v1")
	api.Get("/data", dataHandler.Data)
	api.Get("/data/settings", dataHandler.Settings)

	a.Fiber.Get("/health", healthHandler.Health)
	a.Fiber.Get("/ping", healthHandler.Ping)
}

func (a *App) Start() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	a.setupRoutes()

	go func() {
		if err := a.Fiber.Listen(":" + a.Config.ServerPort); err != nil {
			a.Logger.Fatal("failed to start server",
				zap.Error(err),
				zap.String("port", a.Config.ServerPort))
		}
	}()

	a.Logger.Info("server started",
		zap.String("port", a.Config.ServerPort),
		zap.String("environment", a.Config.Environment),
		zap.Bool("include_exception_details", a.Problems.Codec().Verbose()))

	<-sigChan
	a.Logger.Info("shutting down server...")

	if err := a.Fiber.Shutdown(); err != nil {
		a.Logger.Error("error during server shutdown",
			zap.Error(err))
	}
	if a.Postgres != nil {
		a.Postgres.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("error closing redis connection",
				zap.Error(err))
		}
	}
	if err := a.Logger.Sync(); err != nil {
		log.Printf("error syncing logger: %v", err)
	}

	return nil
}

func main() {
	app, err := NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Start(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
