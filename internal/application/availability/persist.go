package availability

import (
	"context"

	"github.com/narwhalmedia/availability/internal/domain/media"
)

// MediaWriter stores a media snapshot and runs the transition hook against
// the previously stored state before committing.
type MediaWriter interface {
	Update(ctx context.Context, next media.MediaItem) error
}

type resultSinkKey struct{}

// withResultSink makes the trigger hook record its result in *sink.
func withResultSink(ctx context.Context, sink **Result) context.Context {
	return context.WithValue(ctx, resultSinkKey{}, sink)
}

func recordResult(ctx context.Context, result *Result) {
	if sink, ok := ctx.Value(resultSinkKey{}).(**Result); ok && sink != nil {
		*sink = result
	}
}

// PersistingHandler handles a transition by writing next through the media
// write path. The supplied previous state is ignored: the stored row, read
// under lock, is what next is compared against.
type PersistingHandler struct {
	writer MediaWriter
}

// NewPersistingHandler creates a handler writing through writer, whose hook
// must be Trigger.Hook.
func NewPersistingHandler(writer MediaWriter) *PersistingHandler {
	return &PersistingHandler{writer: writer}
}

// HandleTransition stores next and returns what the trigger detected and
// sent. Errors are those of the write path: a NOTIFICATION error means next
// was committed but the notification step failed.
func (h *PersistingHandler) HandleTransition(ctx context.Context, _, next media.MediaItem) (*Result, error) {
	var result *Result
	if err := h.writer.Update(withResultSink(ctx, &result), next); err != nil {
		return nil, err
	}
	if result == nil {
		result = &Result{Changes: ChangeSet{MediaType: next.MediaType}}
	}
	return result, nil
}
