package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taskpilot/file-api/internal/config"
	domain "github.com/taskpilot/file-api/internal/domain/attachment"
	"github.com/taskpilot/file-api/internal/infrastructure/auth"
	"github.com/taskpilot/file-api/internal/infrastructure/database"
	"github.com/taskpilot/file-api/internal/infrastructure/logger"
	"github.com/taskpilot/file-api/internal/infrastructure/observability"
	"github.com/taskpilot/file-api/internal/infrastructure/ownerdir"
	repo "github.com/taskpilot/file-api/internal/infrastructure/repository/attachment"
	"github.com/taskpilot/file-api/internal/infrastructure/storage"
	"github.com/taskpilot/file-api/internal/interfaces/httpserver"
	"github.com/taskpilot/file-api/utils/attachid"
)

// @title File API
// @version 1.0
// @description Secure file attachment service for tasks and subtasks
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	sweeper    *domain.Sweeper
	cfg        *config.Config
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, sweeper *domain.Sweeper, cfg *config.Config, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		sweeper:    sweeper,
		cfg:        cfg,
		log:        log,
	}
}

// Start runs the background sweeper and the HTTP listener until the
// context is cancelled.
func (a *Application) Start(ctx context.Context) error {
	if a.cfg.SweepEnabled {
		go a.sweeper.Run(ctx)
	}
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	registry, err := newRegistry(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize registry")
	}

	store, err := storage.NewLocalStorage(cfg.StoragePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	directory := newOwnerDirectory(cfg, log)
	guard := domain.NewGuard(directory, log)
	namer := domain.NewNamer(attachid.NewGenerator())
	validator := domain.NewValidator()

	service := domain.NewService(registry, store, guard, namer, validator, directory, log)
	sweeper := domain.NewSweeper(registry, store, cfg.SweepInterval, cfg.RetentionDays, log)

	bus := domain.NewOwnerEventBus()
	service.SubscribeCascade(bus)

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth")
	}

	httpServer := httpserver.New(cfg, log, service, sweeper, bus, authValidator)
	app := NewApplication(httpServer, sweeper, cfg, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func newRegistry(ctx context.Context, cfg *config.Config, log zerolog.Logger) (domain.Repository, error) {
	if !cfg.UsePostgres() {
		log.Warn().Msg("FILE_DB_DSN is not set; using in-memory registry")
		return repo.NewInMemoryRepository(), nil
	}

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return repo.NewRepository(db), nil
}

func newOwnerDirectory(cfg *config.Config, log zerolog.Logger) domain.OwnerDirectory {
	if cfg.OwnerDirectoryURL == "" {
		log.Warn().Msg("TASK_DIRECTORY_URL is not set; using static owner directory")
		return ownerdir.NewStaticDirectory()
	}
	return ownerdir.NewClient(cfg.OwnerDirectoryURL, cfg.OwnerDirectoryTimeout, log)
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
