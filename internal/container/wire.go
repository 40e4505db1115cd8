//go:build wireinject
// +build wireinject

package container

import (
	"context"

	"github.com/google/wire"

	"github.com/narwhalmedia/availability/internal/application/availability"
	"github.com/narwhalmedia/availability/internal/domain/notification"
	dispatch "github.com/narwhalmedia/availability/internal/infrastructure/notification"
	gormrepo "github.com/narwhalmedia/availability/internal/infrastructure/persistence/gorm"
	"github.com/narwhalmedia/availability/pkg/config"
)

var pipelineSet = wire.NewSet(
	// Logging
	ProvideZapLogger,
	ProvideLogger,

	// Database
	ProvideDatabase,
	gormrepo.NewRequestRepository,
	wire.Bind(new(availability.RequestFinder), new(*gormrepo.RequestRepository)),

	// Catalog
	ProvideMetadataProvider,

	// Delivery
	ProvideTransports,
	ProvideDispatcher,
	wire.Bind(new(notification.Dispatcher), new(*dispatch.AsyncDispatcher)),

	// Pipeline
	ProvideTriggerOptions,
	availability.NewTrigger,
	ProvideMediaRepository,
)

// InitializeNotifier wires the long-running service: intake, pipeline and
// health server.
func InitializeNotifier(ctx context.Context, cfg *config.Config) (*Notifier, func(), error) {
	wire.Build(
		pipelineSet,
		ProvideNATSClient,
		ProvideTransitionHandler,
		ProvideTransitionConsumer,
		ProvideHealthServer,
		wire.Struct(new(Notifier), "*"),
	)
	return nil, nil, nil
}

// InitializePipeline wires the pipeline without intake, for one-shot runs.
func InitializePipeline(ctx context.Context, cfg *config.Config) (*Pipeline, func(), error) {
	wire.Build(
		pipelineSet,
		ProvideOptionalNATSClient,
		wire.Struct(new(Pipeline), "*"),
	)
	return nil, nil, nil
}
