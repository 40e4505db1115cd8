package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/narwhalmedia/availability/internal/domain/notification"
	"github.com/narwhalmedia/availability/pkg/logger"
)

// CorrelationHeader carries the correlation id between services.
const CorrelationHeader = "X-Correlation-ID"

// Publisher publishes notifications and transition events to JetStream. It
// implements notification.Transport.
type Publisher struct {
	js     jetstream.JetStream
	logger *zap.Logger
}

// NewPublisher creates a new NATS publisher
func NewPublisher(client *Client, logger *zap.Logger) *Publisher {
	return &Publisher{
		js:     client.JetStream(),
		logger: logger.Named("publisher"),
	}
}

// Name implements notification.Transport.
func (p *Publisher) Name() string { return "nats" }

// Deliver publishes n on notifications.<kind subject>, deduplicated by id.
func (p *Publisher) Deliver(ctx context.Context, n notification.Notification) error {
	return p.publish(ctx, NotificationSubject(n.Kind), n.ID.String(), n)
}

// PublishTransition publishes a media state change for the consumer.
func (p *Publisher) PublishTransition(ctx context.Context, event TransitionEvent) error {
	return p.publish(ctx, TransitionSubject, event.EventID.String(), event)
}

func (p *Publisher) publish(ctx context.Context, subject, msgID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	if id := logger.CorrelationID(ctx); id != "" {
		msg.Header.Set(CorrelationHeader, id)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ack, err := p.js.PublishMsg(pubCtx, msg, jetstream.WithMsgID(msgID))
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.logger.Debug("message published",
		zap.String("subject", subject),
		zap.String("msg_id", msgID),
		zap.Uint64("sequence", ack.Sequence),
		zap.String("stream", ack.Stream),
	)
	return nil
}

// NotificationSubject returns the subject notifications of kind go to.
func NotificationSubject(kind notification.Kind) string {
	return NotificationSubjectPrefix + "." + kind.Subject()
}
