package media

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// MediaType distinguishes movies from series.
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	return t == MediaTypeMovie || t == MediaTypeSeries
}

// Status represents the availability of a media item or a season
type Status string

const (
	StatusUnknown            Status = "unknown"
	StatusPending            Status = "pending"
	StatusProcessing         Status = "processing"
	StatusPartiallyAvailable Status = "partially_available"
	StatusAvailable          Status = "available"
)

// Valid reports whether s is a known availability status.
func (s Status) Valid() bool {
	switch s {
	case StatusUnknown, StatusPending, StatusProcessing, StatusPartiallyAvailable, StatusAvailable:
		return true
	}
	return false
}

// ParseStatus parses a stored status, mapping unknown values to StatusUnknown.
func ParseStatus(value string) Status {
	if s := Status(value); s.Valid() {
		return s
	}
	return StatusUnknown
}

// Season is a numbered subdivision of a series with its own availability.
type Season struct {
	SeasonNumber int    `json:"season_number"`
	Status       Status `json:"status"`
}

// MediaItem is an immutable snapshot of a tracked movie or series.
type MediaItem struct {
	ID        uuid.UUID `json:"id"`
	TMDBID    int       `json:"tmdb_id"`
	MediaType MediaType `json:"media_type"`
	Status    Status    `json:"status"`
	Seasons   []Season  `json:"seasons,omitempty"`
}

// IsMovie reports whether the item is a movie.
func (m MediaItem) IsMovie() bool {
	return m.MediaType == MediaTypeMovie
}

// IsSeries reports whether the item is a series.
func (m MediaItem) IsSeries() bool {
	return m.MediaType == MediaTypeSeries
}

// AvailableSeasons returns the season numbers whose status is available,
// in ascending order.
func (m MediaItem) AvailableSeasons() []int {
	seasons := make([]int, 0, len(m.Seasons))
	for _, s := range m.Seasons {
		if s.Status == StatusAvailable {
			seasons = append(seasons, s.SeasonNumber)
		}
	}
	sort.Ints(seasons)
	return seasons
}

// AvailableSeasonSet is AvailableSeasons as a lookup set.
func (m MediaItem) AvailableSeasonSet() map[int]struct{} {
	set := make(map[int]struct{}, len(m.Seasons))
	for _, s := range m.Seasons {
		if s.Status == StatusAvailable {
			set[s.SeasonNumber] = struct{}{}
		}
	}
	return set
}

// Validate checks the snapshot invariants.
func (m MediaItem) Validate() error {
	if !m.MediaType.Valid() {
		return NewValidationError("media_type", fmt.Sprintf("unknown media type %q", m.MediaType))
	}
	if !m.Status.Valid() {
		return NewValidationError("status", fmt.Sprintf("unknown status %q", m.Status))
	}
	if m.IsMovie() && len(m.Seasons) > 0 {
		return NewValidationError("seasons", "movies have no seasons")
	}

	seen := make(map[int]struct{}, len(m.Seasons))
	for _, s := range m.Seasons {
		if s.SeasonNumber < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidSeasonNumber, s.SeasonNumber)
		}
		if _, dup := seen[s.SeasonNumber]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateSeason, s.SeasonNumber)
		}
		if !s.Status.Valid() {
			return NewValidationError("seasons.status", fmt.Sprintf("unknown status %q for season %d", s.Status, s.SeasonNumber))
		}
		seen[s.SeasonNumber] = struct{}{}
	}
	return nil
}
