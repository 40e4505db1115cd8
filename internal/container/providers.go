package container

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/narwhalmedia/availability/internal/application/availability"
	"github.com/narwhalmedia/availability/internal/domain/notification"
	"github.com/narwhalmedia/availability/internal/infrastructure/adapters/external/tmdb"
	"github.com/narwhalmedia/availability/internal/infrastructure/events/kafka"
	"github.com/narwhalmedia/availability/internal/infrastructure/events/nats"
	grpcserver "github.com/narwhalmedia/availability/internal/infrastructure/grpc"
	"github.com/narwhalmedia/availability/internal/infrastructure/messaging"
	dispatch "github.com/narwhalmedia/availability/internal/infrastructure/notification"
	gormrepo "github.com/narwhalmedia/availability/internal/infrastructure/persistence/gorm"
	"github.com/narwhalmedia/availability/pkg/config"
	"github.com/narwhalmedia/availability/pkg/interfaces"
	"github.com/narwhalmedia/availability/pkg/logger"
)

const dispatcherStopTimeout = 10 * time.Second

// ProvideZapLogger builds the process logger from the logger section.
func ProvideZapLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	logCfg := &logger.Config{
		Level:       cfg.Logger.Level,
		Development: cfg.Logger.Development,
		Encoding:    cfg.Logger.Format,
		OutputPath:  cfg.Logger.OutputPath,
		InitialFields: map[string]interface{}{
			"service":     cfg.Service.Name,
			"environment": cfg.Service.Environment,
		},
	}
	z, err := logCfg.BuildZap()
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return z, func() { _ = z.Sync() }, nil
}

// ProvideLogger wraps the zap logger in the application logger interface.
func ProvideLogger(z *zap.Logger) interfaces.Logger {
	return logger.Wrap(z)
}

// ProvideDatabase opens the configured database.
func ProvideDatabase(cfg *config.Config, z *zap.Logger) (*gorm.DB, func(), error) {
	return gormrepo.NewDB(cfg.Database, z)
}

// ProvideMetadataProvider builds the TMDB provider, wrapped in a redis cache
// when redis is enabled.
func ProvideMetadataProvider(ctx context.Context, cfg *config.Config, log interfaces.Logger) (availability.MetadataProvider, func(), error) {
	provider := tmdb.NewProvider(tmdb.NewClient(cfg.TMDB))
	if !cfg.Redis.Enabled {
		return provider, func() {}, nil
	}

	client, err := tmdb.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	ttl := cfg.Redis.TTL
	if ttl <= 0 {
		ttl = config.DefaultMetadataTTL
	}
	cleanup := func() { _ = client.Close() }
	return tmdb.NewCachedProvider(provider, client, ttl, log), cleanup, nil
}

// ProvideNATSClient connects to NATS; serve always needs it for intake.
func ProvideNATSClient(ctx context.Context, cfg *config.Config, z *zap.Logger) (*nats.Client, func(), error) {
	return nats.NewClient(ctx, cfg.NATS, z)
}

// ProvideOptionalNATSClient connects to NATS only when the nats transport is
// enabled.
func ProvideOptionalNATSClient(ctx context.Context, cfg *config.Config, z *zap.Logger) (*nats.Client, func(), error) {
	if !cfg.HasTransport(config.TransportNATS) {
		return nil, func() {}, nil
	}
	return nats.NewClient(ctx, cfg.NATS, z)
}

// ProvideTransports builds the enabled delivery transports in configured
// order. An empty list falls back to the log transport.
func ProvideTransports(cfg *config.Config, log interfaces.Logger, z *zap.Logger, natsClient *nats.Client) ([]notification.Transport, func(), error) {
	var (
		transports []notification.Transport
		closers    []func() error
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("transport close failed", interfaces.Error(err))
			}
		}
	}

	names := cfg.Dispatch.Transports
	if len(names) == 0 {
		names = []string{config.TransportLog}
	}

	for _, name := range names {
		switch name {
		case config.TransportLog:
			transports = append(transports, dispatch.NewLogTransport(log))
		case config.TransportNATS:
			if natsClient == nil {
				cleanup()
				return nil, nil, fmt.Errorf("nats transport enabled without a nats connection")
			}
			transports = append(transports, nats.NewPublisher(natsClient, z))
		case config.TransportKafka:
			publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			transports = append(transports, publisher)
			closers = append(closers, publisher.Close)
		case config.TransportAMQP:
			publisher, err := messaging.NewAMQPPublisher(cfg.AMQP)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			transports = append(transports, publisher)
			closers = append(closers, publisher.Close)
		default:
			cleanup()
			return nil, nil, fmt.Errorf("unknown transport %q", name)
		}
	}

	return transports, cleanup, nil
}

// ProvideDispatcher starts the async dispatcher. Its cleanup drains queued
// notifications.
func ProvideDispatcher(cfg *config.Config, log interfaces.Logger, transports []notification.Transport) (*dispatch.AsyncDispatcher, func()) {
	d := dispatch.NewAsyncDispatcher(log, dispatch.Options{
		Workers:   cfg.Dispatch.Workers,
		QueueSize: cfg.Dispatch.QueueSize,
	}, transports...)
	d.Start()

	return d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatcherStopTimeout)
		defer cancel()
		if err := d.Stop(ctx); err != nil {
			log.Warn("dispatcher stop incomplete", interfaces.Error(err))
		}
	}
}

// ProvideTriggerOptions maps the dispatch and catalog sections to trigger
// options.
func ProvideTriggerOptions(cfg *config.Config) (availability.Options, error) {
	policy, err := availability.ParseMatchPolicy(cfg.Dispatch.MatchPolicy)
	if err != nil {
		return availability.Options{}, err
	}
	return availability.Options{
		Policy:       policy,
		ImageBaseURL: cfg.TMDB.ImageBaseURL,
	}, nil
}

// ProvideMediaRepository installs the trigger as the media write-path hook.
func ProvideMediaRepository(db *gorm.DB, trigger *availability.Trigger) *gormrepo.MediaRepository {
	return gormrepo.NewMediaRepository(db, trigger.Hook())
}

// ProvideTransitionHandler selects how consumed transitions are evaluated:
// against the previous state carried by the event, or by storing next
// through the media write path.
func ProvideTransitionHandler(cfg *config.Config, trigger *availability.Trigger, repo *gormrepo.MediaRepository) nats.TransitionHandler {
	if cfg.NATS.PersistTransitions {
		return availability.NewPersistingHandler(repo)
	}
	return trigger
}

// ProvideTransitionConsumer builds the JetStream intake for transitions.
func ProvideTransitionConsumer(cfg *config.Config, client *nats.Client, handler nats.TransitionHandler, z *zap.Logger) *nats.TransitionConsumer {
	return nats.NewTransitionConsumer(client, handler, nats.ConsumerConfig{
		Name:       cfg.NATS.ConsumerName,
		AckWait:    cfg.NATS.AckWait,
		MaxDeliver: cfg.NATS.MaxDeliver,
	}, z)
}

// ProvideHealthServer registers the database and NATS checks.
func ProvideHealthServer(cfg *config.Config, log interfaces.Logger, db *gorm.DB, client *nats.Client) *grpcserver.HealthServer {
	checks := map[string]grpcserver.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"nats": client.Health,
	}
	return grpcserver.NewHealthServer(cfg.Service.Name, checks, log)
}
