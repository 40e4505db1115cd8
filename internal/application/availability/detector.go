package availability

import (
	"github.com/narwhalmedia/availability/internal/domain/media"
)

// ChangeSet describes what became available between two snapshots of the
// same media item. For movies only MovieAvailable is meaningful, for series
// only Seasons.
type ChangeSet struct {
	MediaType      media.MediaType
	MovieAvailable bool
	Seasons        []int
}

// Empty reports whether nothing became available.
func (c ChangeSet) Empty() bool {
	if c.MediaType == media.MediaTypeMovie {
		return !c.MovieAvailable
	}
	return len(c.Seasons) == 0
}

// ShouldEvaluate reports whether next is in a state that can satisfy
// requests at all. Movies must be available; series may also be partially
// available.
func ShouldEvaluate(next media.MediaItem) bool {
	switch next.MediaType {
	case media.MediaTypeMovie:
		return next.Status == media.StatusAvailable
	case media.MediaTypeSeries:
		return next.Status == media.StatusAvailable || next.Status == media.StatusPartiallyAvailable
	}
	return false
}

// DetectNewlyAvailable compares previous and next and returns the content
// that just became available. Seasons are returned in ascending order.
func DetectNewlyAvailable(previous, next media.MediaItem) ChangeSet {
	changes := ChangeSet{MediaType: next.MediaType}

	if next.IsMovie() {
		changes.MovieAvailable = previous.Status != media.StatusAvailable &&
			next.Status == media.StatusAvailable
		return changes
	}

	before := previous.AvailableSeasonSet()
	for _, season := range next.AvailableSeasons() {
		if _, ok := before[season]; !ok {
			changes.Seasons = append(changes.Seasons, season)
		}
	}
	return changes
}
