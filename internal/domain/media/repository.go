package media

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists media snapshots.
type Repository interface {
	// Create stores a new media item with its seasons
	Create(ctx context.Context, item *MediaItem) error
	// FindByID loads a media item with its seasons
	FindByID(ctx context.Context, id uuid.UUID) (*MediaItem, error)
	// Update replaces the stored state with next and runs the transition hook
	// before the change is committed
	Update(ctx context.Context, next MediaItem) error
}

// RequestRepository persists user requests.
type RequestRepository interface {
	// Create stores a new request
	Create(ctx context.Context, request *Request) error
	// FindPendingRequests returns the pending requests for a media item in
	// creation order
	FindPendingRequests(ctx context.Context, mediaID uuid.UUID) ([]Request, error)
}

// TransitionHook is invoked by the write path with the stored state and the
// state about to be committed.
type TransitionHook func(ctx context.Context, previous, next MediaItem) error
