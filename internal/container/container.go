package container

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/narwhalmedia/availability/internal/application/availability"
	"github.com/narwhalmedia/availability/internal/infrastructure/events/nats"
	grpcserver "github.com/narwhalmedia/availability/internal/infrastructure/grpc"
	dispatch "github.com/narwhalmedia/availability/internal/infrastructure/notification"
	gormrepo "github.com/narwhalmedia/availability/internal/infrastructure/persistence/gorm"
	"github.com/narwhalmedia/availability/pkg/config"
	"github.com/narwhalmedia/availability/pkg/interfaces"
)

// Notifier holds the dependencies of the serve command.
type Notifier struct {
	Config     *config.Config
	Logger     interfaces.Logger
	Zap        *zap.Logger
	DB         *gorm.DB
	NATS       *nats.Client
	Media      *gormrepo.MediaRepository
	Requests   *gormrepo.RequestRepository
	Trigger    *availability.Trigger
	Dispatcher *dispatch.AsyncDispatcher
	Consumer   *nats.TransitionConsumer
	Health     *grpcserver.HealthServer
}

// Pipeline holds the dependencies of one-shot commands. NATS is nil unless
// the nats transport is enabled.
type Pipeline struct {
	Config     *config.Config
	Logger     interfaces.Logger
	Zap        *zap.Logger
	DB         *gorm.DB
	NATS       *nats.Client
	Media      *gormrepo.MediaRepository
	Requests   *gormrepo.RequestRepository
	Trigger    *availability.Trigger
	Dispatcher *dispatch.AsyncDispatcher
}
