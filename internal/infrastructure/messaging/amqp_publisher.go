package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/narwhalmedia/availability/internal/domain/notification"
	"github.com/narwhalmedia/availability/pkg/config"
	"github.com/narwhalmedia/availability/pkg/logger"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher implements notification.Transport on RabbitMQ. With no
// exchange configured messages go to the default exchange routed by queue
// name; otherwise the routing key is the notification kind subject.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  Channel
	exchange string
	queue    string
}

// NewAMQPPublisher dials the broker and declares the durable queue.
func NewAMQPPublisher(cfg config.AMQPConfig) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel open: %w", err)
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	if cfg.Exchange != "" {
		if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
		}
		if err := ch.QueueBind(cfg.Queue, "media.#", cfg.Exchange, false, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("rabbitmq queue bind: %w", err)
		}
	}

	p := NewAMQPPublisherWithChannel(ch, cfg.Exchange, cfg.Queue)
	p.conn = conn
	return p, nil
}

// NewAMQPPublisherWithChannel wraps an open channel.
func NewAMQPPublisherWithChannel(ch Channel, exchange, queue string) *AMQPPublisher {
	return &AMQPPublisher{channel: ch, exchange: exchange, queue: queue}
}

// Name implements notification.Transport.
func (p *AMQPPublisher) Name() string { return "amqp" }

// Deliver publishes n as a persistent JSON message.
func (p *AMQPPublisher) Deliver(ctx context.Context, n notification.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     n.ID.String(),
		Type:          string(n.Kind),
		CorrelationId: logger.CorrelationID(ctx),
		Timestamp:     time.Now().UTC(),
		Body:          body,
	}

	key := p.queue
	if p.exchange != "" {
		key = n.Kind.Subject()
	}

	// channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.PublishWithContext(ctx, p.exchange, key, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
