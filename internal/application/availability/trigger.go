package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/narwhalmedia/availability/internal/domain/media"
	"github.com/narwhalmedia/availability/internal/domain/notification"
	"github.com/narwhalmedia/availability/pkg/errors"
	"github.com/narwhalmedia/availability/pkg/interfaces"
)

// RequestFinder reads the pending requests for a media item.
type RequestFinder interface {
	FindPendingRequests(ctx context.Context, mediaID uuid.UUID) ([]media.Request, error)
}

// Options tune the trigger.
type Options struct {
	Policy       MatchPolicy
	ImageBaseURL string
}

// Result reports what a pipeline run detected and sent.
type Result struct {
	Changes  ChangeSet
	Notified []notification.Payload
}

// Trigger runs detection, matching, composition and dispatch for one media
// state change.
type Trigger struct {
	requests   RequestFinder
	metadata   MetadataProvider
	dispatcher notification.Dispatcher
	matcher    *Matcher
	composer   *Composer
	locks      *keyedMutex
	logger     interfaces.Logger
}

// NewTrigger creates a new availability trigger
func NewTrigger(
	requests RequestFinder,
	metadata MetadataProvider,
	dispatcher notification.Dispatcher,
	logger interfaces.Logger,
	opts Options,
) *Trigger {
	return &Trigger{
		requests:   requests,
		metadata:   metadata,
		dispatcher: dispatcher,
		matcher:    NewMatcher(opts.Policy),
		composer:   NewComposer(opts.ImageBaseURL),
		locks:      newKeyedMutex(),
		logger:     logger,
	}
}

// Hook adapts the trigger to the persistence write path.
func (t *Trigger) Hook() media.TransitionHook {
	return func(ctx context.Context, previous, next media.MediaItem) error {
		result, err := t.HandleTransition(ctx, previous, next)
		if err != nil {
			return err
		}
		recordResult(ctx, result)
		return nil
	}
}

// HandleTransition evaluates the change from previous to next and sends one
// MEDIA_AVAILABLE notification per satisfied request. previous may be the
// zero value for a media item seen for the first time. Nothing is sent when
// an error is returned.
func (t *Trigger) HandleTransition(ctx context.Context, previous, next media.MediaItem) (*Result, error) {
	if err := next.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeBadRequest, "invalid media snapshot", err)
	}
	if previous.ID != uuid.Nil && previous.ID != next.ID {
		return nil, errors.BadRequest(fmt.Sprintf("snapshots belong to different media items: %s != %s", previous.ID, next.ID))
	}
	if previous.MediaType != "" && previous.MediaType != next.MediaType {
		return nil, errors.Wrap(errors.ErrorTypeBadRequest, "invalid transition", media.ErrMediaTypeChanged)
	}

	log := t.logger.WithContext(ctx).WithFields(
		interfaces.String("media_id", next.ID.String()),
		interfaces.String("media_type", string(next.MediaType)),
		interfaces.Int("tmdb_id", next.TMDBID),
	)

	result := &Result{Changes: ChangeSet{MediaType: next.MediaType}}
	if !ShouldEvaluate(next) {
		log.Debug("media not available, skipping", interfaces.String("status", string(next.Status)))
		return result, nil
	}

	unlock := t.locks.Lock(next.ID)
	defer unlock()

	result.Changes = DetectNewlyAvailable(previous, next)
	if result.Changes.Empty() {
		log.Debug("no newly available content")
		return result, nil
	}
	if next.IsSeries() {
		log = log.WithFields(interfaces.Ints("changed_seasons", result.Changes.Seasons))
	}

	pending, err := t.requests.FindPendingRequests(ctx, next.ID)
	if err != nil {
		return nil, errors.Unavailable("fetch pending requests", err)
	}

	satisfied := t.matcher.MatchAndSelect(next, result.Changes, pending)
	if len(satisfied) == 0 {
		log.Info("newly available content satisfies no request", interfaces.Int("pending_requests", len(pending)))
		return result, nil
	}

	source := newMetadataSource(t.metadata)
	metadata, err := source.get(ctx, next)
	if err != nil {
		return nil, errors.Unavailable("fetch catalog metadata", err)
	}

	payloads := make([]notification.Payload, 0, len(satisfied))
	for _, s := range satisfied {
		payloads = append(payloads, t.composer.Compose(next, s, *metadata))
	}

	for _, payload := range payloads {
		t.dispatcher.Send(ctx, notification.KindMediaAvailable, payload)
		log.Info("media available notification sent",
			interfaces.String("request_id", payload.RequestID.String()),
			interfaces.String("user", payload.NotifyUser.Username),
		)
	}

	result.Notified = payloads
	return result, nil
}
