//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/taskpilot/file-api/internal/config"
	domain "github.com/taskpilot/file-api/internal/domain/attachment"
	"github.com/taskpilot/file-api/internal/infrastructure/auth"
	"github.com/taskpilot/file-api/internal/infrastructure/logger"
	"github.com/taskpilot/file-api/internal/infrastructure/storage"
	"github.com/taskpilot/file-api/internal/interfaces/httpserver"
	"github.com/taskpilot/file-api/utils/attachid"
)

var attachmentSet = wire.NewSet(
	newRegistry,
	provideStorage,
	provideOwnerDirectory,
	provideNamer,
	domain.NewGuard,
	domain.NewValidator,
	domain.NewService,
	provideSweeper,
	provideEventBus,
)

// BuildApplication assembles the file API with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		auth.NewValidator,
		attachmentSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func provideStorage(cfg *config.Config, log zerolog.Logger) (domain.Storage, error) {
	return storage.NewLocalStorage(cfg.StoragePath, log)
}

func provideOwnerDirectory(cfg *config.Config, log zerolog.Logger) domain.OwnerDirectory {
	return newOwnerDirectory(cfg, log)
}

func provideNamer() *domain.Namer {
	return domain.NewNamer(attachid.NewGenerator())
}

func provideSweeper(registry domain.Repository, store domain.Storage, cfg *config.Config, log zerolog.Logger) *domain.Sweeper {
	return domain.NewSweeper(registry, store, cfg.SweepInterval, cfg.RetentionDays, log)
}

func provideEventBus(service *domain.Service) *domain.OwnerEventBus {
	bus := domain.NewOwnerEventBus()
	service.SubscribeCascade(bus)
	return bus
}
