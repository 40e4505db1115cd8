package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/narwhalmedia/availability/internal/application/availability"
	"github.com/narwhalmedia/availability/internal/domain/media"
	apperrors "github.com/narwhalmedia/availability/pkg/errors"
	"github.com/narwhalmedia/availability/pkg/logger"
)

// TransitionEvent is the wire form of a media state change.
type TransitionEvent struct {
	EventID    uuid.UUID       `json:"event_id"`
	MediaID    uuid.UUID       `json:"media_id"`
	Previous   media.MediaItem `json:"previous"`
	Next       media.MediaItem `json:"next"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// TransitionHandler runs the availability pipeline for one event.
type TransitionHandler interface {
	HandleTransition(ctx context.Context, previous, next media.MediaItem) (*availability.Result, error)
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Name       string
	AckWait    time.Duration
	MaxDeliver int
	RetryDelay time.Duration
}

// message is the part of jetstream.Msg the consumer needs.
type message interface {
	Data() []byte
	Headers() nats.Header
	Subject() string
	Ack() error
	NakWithDelay(delay time.Duration) error
	Term() error
}

// TransitionConsumer feeds media.transition events into the pipeline.
// Malformed events, unknown media and notification failures after a
// committed write are terminated; other collaborator failures are
// redelivered.
type TransitionConsumer struct {
	client  *Client
	handler TransitionHandler
	config  ConsumerConfig
	logger  *zap.Logger
}

// NewTransitionConsumer creates a new transition consumer
func NewTransitionConsumer(client *Client, handler TransitionHandler, config ConsumerConfig, logger *zap.Logger) *TransitionConsumer {
	if config.Name == "" {
		config.Name = "notifier"
	}
	if config.AckWait == 0 {
		config.AckWait = 30 * time.Second
	}
	if config.MaxDeliver == 0 {
		config.MaxDeliver = 5
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 5 * time.Second
	}

	return &TransitionConsumer{
		client:  client,
		handler: handler,
		config:  config,
		logger:  logger.Named("consumer"),
	}
}

// Run consumes until ctx is cancelled.
func (c *TransitionConsumer) Run(ctx context.Context) error {
	consumer, err := c.client.JetStream().CreateOrUpdateConsumer(ctx, TransitionStream, jetstream.ConsumerConfig{
		Durable:       c.config.Name,
		Description:   "Availability notification trigger",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.config.AckWait,
		MaxDeliver:    c.config.MaxDeliver,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
		FilterSubject: TransitionSubject,
		MaxAckPending: 100,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	c.logger.Info("transition consumer started", zap.String("consumer", c.config.Name))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("transition consumer stopping")
			return nil
		default:
		}

		batch, err := consumer.Fetch(10, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("failed to fetch messages", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for msg := range batch.Messages() {
			c.process(ctx, msg)
		}
		if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) && ctx.Err() == nil {
			c.logger.Warn("fetch ended with error", zap.Error(err))
		}
	}
}

func (c *TransitionConsumer) process(ctx context.Context, msg message) {
	if headers := msg.Headers(); headers != nil {
		if id := headers.Get(CorrelationHeader); id != "" {
			ctx = logger.WithCorrelationID(ctx, id)
		}
	}

	var event TransitionEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		c.logger.Error("failed to unmarshal transition",
			zap.Error(err),
			zap.String("subject", msg.Subject()),
		)
		c.settle(msg.Term)
		return
	}

	log := c.logger.With(
		zap.String("event_id", event.EventID.String()),
		zap.String("media_id", event.Next.ID.String()),
	)

	result, err := c.handler.HandleTransition(ctx, event.Previous, event.Next)
	switch {
	case err == nil:
		log.Debug("transition handled", zap.Int("notified", len(result.Notified)))
		c.settle(msg.Ack)
	case apperrors.IsBadRequest(err):
		log.Error("rejecting malformed transition", zap.Error(err))
		c.settle(msg.Term)
	case apperrors.IsNotFound(err):
		log.Error("rejecting transition for unknown media", zap.Error(err))
		c.settle(msg.Term)
	case apperrors.IsNotification(err):
		// next is already stored, a redelivery would detect no change
		log.Error("media stored but notification failed", zap.Error(err))
		c.settle(msg.Term)
	default:
		log.Warn("transition failed, will retry", zap.Error(err))
		c.settle(func() error { return msg.NakWithDelay(c.config.RetryDelay) })
	}
}

func (c *TransitionConsumer) settle(fn func() error) {
	if err := fn(); err != nil {
		c.logger.Error("failed to settle message", zap.Error(err))
	}
}
