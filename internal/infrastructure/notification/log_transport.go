package notification

import (
	"context"

	"github.com/narwhalmedia/availability/internal/domain/notification"
	"github.com/narwhalmedia/availability/pkg/interfaces"
)

// LogTransport writes notifications to the structured log.
type LogTransport struct {
	logger interfaces.Logger
}

// NewLogTransport creates a new log transport
func NewLogTransport(logger interfaces.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Name implements notification.Transport.
func (t *LogTransport) Name() string { return "log" }

// Deliver logs n at info level.
func (t *LogTransport) Deliver(ctx context.Context, n notification.Notification) error {
	fields := []interfaces.Field{
		interfaces.String("notification_id", n.ID.String()),
		interfaces.String("kind", string(n.Kind)),
		interfaces.String("user", n.Payload.NotifyUser.Username),
		interfaces.String("subject", n.Payload.Subject),
		interfaces.String("image", n.Payload.Image),
		interfaces.String("media_id", n.Payload.MediaID.String()),
		interfaces.String("request_id", n.Payload.RequestID.String()),
	}
	for _, extra := range n.Payload.Extra {
		fields = append(fields, interfaces.String("extra."+extra.Name, extra.Value))
	}
	t.logger.WithContext(ctx).Info("Notification", fields...)
	return nil
}
