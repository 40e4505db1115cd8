package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narwhalmedia/availability/internal/domain/notification"
	"github.com/narwhalmedia/availability/pkg/logger"
	"github.com/narwhalmedia/availability/test/testutil"
)

func testNotification() notification.Notification {
	return notification.New(notification.KindMediaAvailable, notification.Payload{
		NotifyUser: testutil.NewRequester("alice"),
		Subject:    "Fight Club",
		MediaID:    uuid.New(),
		RequestID:  uuid.New(),
	})
}

func TestPublisher_Deliver(t *testing.T) {
	n := testNotification()
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, "notifications", msg.Topic)

		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, n.Payload.NotifyUser.ID.String(), string(key))

		value, err := msg.Value.Encode()
		require.NoError(t, err)
		var got notification.Notification
		require.NoError(t, json.Unmarshal(value, &got))
		assert.Equal(t, n.ID, got.ID)
		assert.Equal(t, notification.KindMediaAvailable, got.Kind)

		headers := map[string]string{}
		for _, h := range msg.Headers {
			headers[string(h.Key)] = string(h.Value)
		}
		assert.Equal(t, "MEDIA_AVAILABLE", headers["kind"])
		assert.Equal(t, "corr-1", headers["correlation_id"])
		return nil
	})

	publisher := NewPublisherWithProducer(producer, "notifications")
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	require.NoError(t, publisher.Deliver(ctx, n))
	assert.Equal(t, "kafka", publisher.Name())
	require.NoError(t, publisher.Close())
}

func TestPublisher_DeliverFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(errors.New("leader not available"))

	publisher := NewPublisherWithProducer(producer, "notifications")

	err := publisher.Deliver(context.Background(), testNotification())

	assert.ErrorContains(t, err, "leader not available")
	require.NoError(t, publisher.Close())
}
