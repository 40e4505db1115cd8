package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/narwhalmedia/availability/internal/application/availability"
	"github.com/narwhalmedia/availability/internal/domain/media"
	"github.com/narwhalmedia/availability/internal/domain/notification"
)

// MockRequestFinder is a mock implementation of availability.RequestFinder
type MockRequestFinder struct {
	mock.Mock
}

func (m *MockRequestFinder) FindPendingRequests(ctx context.Context, mediaID uuid.UUID) ([]media.Request, error) {
	args := m.Called(ctx, mediaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]media.Request), args.Error(1)
}

// MockMetadataProvider is a mock implementation of availability.MetadataProvider
type MockMetadataProvider struct {
	mock.Mock
}

func (m *MockMetadataProvider) GetMovieMetadata(ctx context.Context, tmdbID int) (*availability.Metadata, error) {
	args := m.Called(ctx, tmdbID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.Metadata), args.Error(1)
}

func (m *MockMetadataProvider) GetSeriesMetadata(ctx context.Context, tmdbID int) (*availability.Metadata, error) {
	args := m.Called(ctx, tmdbID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*availability.Metadata), args.Error(1)
}

// Sent is one captured dispatcher call.
type Sent struct {
	Kind    notification.Kind
	Payload notification.Payload
}

// CapturingDispatcher records every Send call.
type CapturingDispatcher struct {
	mu   sync.Mutex
	sent []Sent
}

func (d *CapturingDispatcher) Send(_ context.Context, kind notification.Kind, payload notification.Payload) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, Sent{Kind: kind, Payload: payload})
}

// Sent returns a copy of the captured calls.
func (d *CapturingDispatcher) Sent() []Sent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Sent, len(d.sent))
	copy(out, d.sent)
	return out
}

// Usernames returns the recipients in send order.
func (d *CapturingDispatcher) Usernames() []string {
	sent := d.Sent()
	names := make([]string, len(sent))
	for i, s := range sent {
		names[i] = s.Payload.NotifyUser.Username
	}
	return names
}
