package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/narwhalmedia/availability/internal/domain/notification"
	"github.com/narwhalmedia/availability/pkg/logger"
)

// Publisher implements notification.Transport on a Kafka topic. Messages are
// keyed by recipient so one user's notifications stay ordered.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher creates a new Kafka notification publisher
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("creating producer: %w", err)
	}

	return NewPublisherWithProducer(producer, topic), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
	}
}

// Name implements notification.Transport.
func (p *Publisher) Name() string { return "kafka" }

// Deliver publishes n to the topic.
func (p *Publisher) Deliver(ctx context.Context, n notification.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	headers := []sarama.RecordHeader{
		{Key: []byte("kind"), Value: []byte(n.Kind)},
		{Key: []byte("notification_id"), Value: []byte(n.ID.String())},
	}
	if id := logger.CorrelationID(ctx); id != "" {
		headers = append(headers, sarama.RecordHeader{Key: []byte("correlation_id"), Value: []byte(id)})
	}

	msg := &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(n.Payload.NotifyUser.ID.String()),
		Value:   sarama.ByteEncoder(data),
		Headers: headers,
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// Close closes the publisher
func (p *Publisher) Close() error {
	return p.producer.Close()
}
