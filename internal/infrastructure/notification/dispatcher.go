package notification

import (
	"context"
	"errors"
	"sync"

	"github.com/narwhalmedia/availability/internal/domain/notification"
	"github.com/narwhalmedia/availability/pkg/interfaces"
)

var (
	// ErrDispatcherStopped is logged for notifications sent after Stop.
	ErrDispatcherStopped = errors.New("dispatcher stopped")

	// ErrQueueFull is logged for notifications dropped because every worker
	// is busy and the queue has no room.
	ErrQueueFull = errors.New("notification queue full")
)

// Options size the worker pool.
type Options struct {
	Workers   int
	QueueSize int
}

type job struct {
	ctx          context.Context
	notification notification.Notification
}

// AsyncDispatcher queues notifications and delivers them to every transport
// from a pool of workers. Send never waits for delivery.
type AsyncDispatcher struct {
	transports []notification.Transport
	logger     interfaces.Logger
	workers    int

	queue   chan job
	mu      sync.RWMutex
	stopped bool
	started bool
	wg      sync.WaitGroup
}

// NewAsyncDispatcher creates a dispatcher; call Start before sending.
func NewAsyncDispatcher(logger interfaces.Logger, opts Options, transports ...notification.Transport) *AsyncDispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	return &AsyncDispatcher{
		transports: transports,
		logger:     logger,
		workers:    opts.Workers,
		queue:      make(chan job, opts.QueueSize),
	}
}

// Start launches the workers.
func (d *AsyncDispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}

	names := make([]string, len(d.transports))
	for i, t := range d.transports {
		names[i] = t.Name()
	}
	d.logger.Info("Notification dispatcher started",
		interfaces.Int("workers", d.workers),
		interfaces.Any("transports", names))
}

// Send queues payload for delivery and returns immediately. When the queue
// is full the notification is dropped and logged; Send never waits for room,
// so a stuck transport cannot stall the caller.
func (d *AsyncDispatcher) Send(ctx context.Context, kind notification.Kind, payload notification.Payload) {
	n := notification.New(kind, payload)
	log := d.logger.WithContext(ctx).WithFields(
		interfaces.String("notification_id", n.ID.String()),
		interfaces.String("kind", string(kind)),
		interfaces.String("request_id", payload.RequestID.String()),
	)

	// the read lock only guards against sending on a closed queue; nothing
	// below blocks while it is held
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		log.Error("Notification dropped", interfaces.Error(ErrDispatcherStopped))
		return
	}

	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), notification: n}:
		log.Debug("Notification queued")
	default:
		log.Error("Notification dropped", interfaces.Error(ErrQueueFull))
	}
}

// Stop stops accepting notifications and waits for queued ones to be
// delivered or for ctx to end.
func (d *AsyncDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *AsyncDispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

func (d *AsyncDispatcher) deliver(j job) {
	for _, transport := range d.transports {
		if err := transport.Deliver(j.ctx, j.notification); err != nil {
			d.logger.WithContext(j.ctx).Error("Notification delivery failed",
				interfaces.String("transport", transport.Name()),
				interfaces.String("notification_id", j.notification.ID.String()),
				interfaces.String("kind", string(j.notification.Kind)),
				interfaces.String("user", j.notification.Payload.NotifyUser.Username),
				interfaces.Error(err))
			continue
		}
		d.logger.WithContext(j.ctx).Debug("Notification delivered",
			interfaces.String("transport", transport.Name()),
			interfaces.String("notification_id", j.notification.ID.String()))
	}
}
