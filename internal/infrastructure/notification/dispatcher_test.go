package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/narwhalmedia/availability/internal/domain/notification"
	"github.com/narwhalmedia/availability/pkg/logger"
	"github.com/narwhalmedia/availability/test/testutil"
)

type recordingTransport struct {
	name string
	err  error

	mu        sync.Mutex
	delivered []notification.Notification
	ctxErrs   []error
}

func (t *recordingTransport) Name() string { return t.name }

func (t *recordingTransport) Deliver(ctx context.Context, n notification.Notification) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delivered = append(t.delivered, n)
	t.ctxErrs = append(t.ctxErrs, ctx.Err())
	return t.err
}

func (t *recordingTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.delivered)
}

func payloadFor(username string) notification.Payload {
	return notification.Payload{
		NotifyUser: testutil.NewRequester(username),
		Subject:    "Fight Club",
		MediaID:    uuid.New(),
		RequestID:  uuid.New(),
	}
}

func observedLogger() (*observer.ObservedLogs, *logger.ZapLogger) {
	core, logs := observer.New(zap.DebugLevel)
	return logs, logger.Wrap(zap.New(core))
}

func TestAsyncDispatcher_DeliversToEveryTransport(t *testing.T) {
	logs, log := observedLogger()
	failing := &recordingTransport{name: "kafka", err: errors.New("broker down")}
	working := &recordingTransport{name: "log"}
	dispatcher := NewAsyncDispatcher(log, Options{Workers: 2, QueueSize: 8}, failing, working)
	dispatcher.Start()

	ctx := context.Background()
	dispatcher.Send(ctx, notification.KindMediaAvailable, payloadFor("alice"))
	dispatcher.Send(ctx, notification.KindMediaAvailable, payloadFor("bob"))

	require.NoError(t, dispatcher.Stop(ctx))

	assert.Equal(t, 2, failing.count())
	assert.Equal(t, 2, working.count())
	for _, n := range working.delivered {
		assert.Equal(t, notification.KindMediaAvailable, n.Kind)
		assert.NotEqual(t, uuid.Nil, n.ID)
	}

	failures := logs.FilterMessage("Notification delivery failed").All()
	require.Len(t, failures, 2)
	assert.Equal(t, "kafka", failures[0].ContextMap()["transport"])
}

func TestAsyncDispatcher_DeliveryOutlivesCallerContext(t *testing.T) {
	transport := &recordingTransport{name: "log"}
	dispatcher := NewAsyncDispatcher(logger.NewNoop(), Options{Workers: 1, QueueSize: 1}, transport)

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Send(ctx, notification.KindMediaAvailable, payloadFor("alice"))
	cancel()

	dispatcher.Start()
	require.NoError(t, dispatcher.Stop(context.Background()))

	require.Equal(t, 1, transport.count())
	assert.NoError(t, transport.ctxErrs[0])
}

func TestAsyncDispatcher_DropsWhenQueueFull(t *testing.T) {
	logs, log := observedLogger()
	transport := &recordingTransport{name: "log"}
	dispatcher := NewAsyncDispatcher(log, Options{Workers: 1, QueueSize: 0}, transport)

	dispatcher.Send(context.Background(), notification.KindMediaAvailable, payloadFor("alice"))

	dispatcher.Start()
	require.NoError(t, dispatcher.Stop(context.Background()))

	assert.Zero(t, transport.count())
	dropped := logs.FilterMessage("Notification dropped").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, ErrQueueFull.Error(), dropped[0].ContextMap()["error"])
}

// blockingTransport never finishes a delivery until release is closed.
type blockingTransport struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (t *blockingTransport) Name() string { return "stuck" }

func (t *blockingTransport) Deliver(ctx context.Context, n notification.Notification) error {
	t.once.Do(func() { close(t.started) })
	<-t.release
	return nil
}

func TestAsyncDispatcher_StuckTransportDoesNotBlockCallers(t *testing.T) {
	logs, log := observedLogger()
	transport := &blockingTransport{started: make(chan struct{}), release: make(chan struct{})}
	defer close(transport.release)

	dispatcher := NewAsyncDispatcher(log, Options{Workers: 1, QueueSize: 1}, transport)
	dispatcher.Start()

	ctx := context.Background()
	dispatcher.Send(ctx, notification.KindMediaAvailable, payloadFor("alice"))
	select {
	case <-transport.started:
	case <-time.After(time.Second):
		t.Fatal("worker never picked up the first notification")
	}

	sent := make(chan struct{})
	go func() {
		dispatcher.Send(ctx, notification.KindMediaAvailable, payloadFor("bob"))
		dispatcher.Send(ctx, notification.KindMediaAvailable, payloadFor("carol"))
		close(sent)
	}()
	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a full queue")
	}
	assert.Equal(t, 1, logs.FilterMessage("Notification dropped").Len())

	stopCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	stopped := make(chan error, 1)
	go func() { stopped <- dispatcher.Stop(stopCtx) }()
	select {
	case err := <-stopped:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("Stop ignored its context")
	}
}

func TestAsyncDispatcher_SendAfterStop(t *testing.T) {
	logs, log := observedLogger()
	transport := &recordingTransport{name: "log"}
	dispatcher := NewAsyncDispatcher(log, Options{Workers: 1, QueueSize: 4}, transport)
	dispatcher.Start()
	require.NoError(t, dispatcher.Stop(context.Background()))

	dispatcher.Send(context.Background(), notification.KindMediaAvailable, payloadFor("alice"))

	assert.Zero(t, transport.count())
	assert.Equal(t, 1, logs.FilterMessage("Notification dropped").Len())
	assert.NoError(t, dispatcher.Stop(context.Background()))
}

func TestLogTransport(t *testing.T) {
	logs, log := observedLogger()
	payload := payloadFor("bob")
	payload.Extra = []notification.ExtraField{{Name: "Seasons", Value: "1, 2"}}
	n := notification.New(notification.KindMediaAvailable, payload)

	err := NewLogTransport(log).Deliver(context.Background(), n)

	require.NoError(t, err)
	entries := logs.FilterMessage("Notification").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "bob", fields["user"])
	assert.Equal(t, "MEDIA_AVAILABLE", fields["kind"])
	assert.Equal(t, "1, 2", fields["extra.Seasons"])
}
