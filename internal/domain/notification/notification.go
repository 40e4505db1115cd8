package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/narwhalmedia/availability/internal/domain/media"
)

// Kind identifies the event a notification reports.
type Kind string

const (
	KindMediaPending   Kind = "MEDIA_PENDING"
	KindMediaApproved  Kind = "MEDIA_APPROVED"
	KindMediaAvailable Kind = "MEDIA_AVAILABLE"
	KindMediaFailed    Kind = "MEDIA_FAILED"
	KindMediaDeclined  Kind = "MEDIA_DECLINED"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindMediaPending, KindMediaApproved, KindMediaAvailable, KindMediaFailed, KindMediaDeclined:
		return true
	}
	return false
}

// Subject returns the dotted routing key for k, e.g. "media.available".
func (k Kind) Subject() string {
	switch k {
	case KindMediaPending:
		return "media.pending"
	case KindMediaApproved:
		return "media.approved"
	case KindMediaAvailable:
		return "media.available"
	case KindMediaFailed:
		return "media.failed"
	case KindMediaDeclined:
		return "media.declined"
	}
	return "unknown"
}

// ExtraField is an additional name/value pair rendered by the channel.
type ExtraField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Payload is the content handed to the dispatcher.
type Payload struct {
	NotifyUser media.Requester `json:"notify_user"`
	Subject    string          `json:"subject"`
	Message    string          `json:"message"`
	Image      string          `json:"image,omitempty"`
	Extra      []ExtraField    `json:"extra,omitempty"`

	MediaID   uuid.UUID `json:"media_id"`
	RequestID uuid.UUID `json:"request_id"`
}

// Notification is a payload stamped for delivery.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	Payload   Payload   `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// New stamps payload with a fresh id.
func New(kind Kind, payload Payload) Notification {
	return Notification{
		ID:        uuid.New(),
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// Dispatcher accepts notifications for delivery. Send must not block on
// delivery and reports nothing back; delivery failures are the
// dispatcher's concern.
type Dispatcher interface {
	Send(ctx context.Context, kind Kind, payload Payload)
}

// Transport delivers a notification over a single channel.
type Transport interface {
	Name() string
	Deliver(ctx context.Context, n Notification) error
}
