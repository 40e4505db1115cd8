package testutil

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/narwhalmedia/availability/internal/domain/media"
)

// SeasonStates maps season numbers to their status for NewSeries.
type SeasonStates map[int]media.Status

// NewMovie creates a movie snapshot with the given catalog id and status.
func NewMovie(tmdbID int, status media.Status) media.MediaItem {
	return media.MediaItem{
		ID:        uuid.New(),
		TMDBID:    tmdbID,
		MediaType: media.MediaTypeMovie,
		Status:    status,
	}
}

// NewSeries creates a series snapshot. Seasons are ordered by number.
func NewSeries(tmdbID int, status media.Status, seasons SeasonStates) media.MediaItem {
	item := media.MediaItem{
		ID:        uuid.New(),
		TMDBID:    tmdbID,
		MediaType: media.MediaTypeSeries,
		Status:    status,
	}
	return WithSeasons(item, status, seasons)
}

// WithSeasons returns a copy of item with the given status and seasons,
// keeping its identity. Use it to build the next snapshot of a transition.
func WithSeasons(item media.MediaItem, status media.Status, seasons SeasonStates) media.MediaItem {
	next := item
	next.Status = status
	next.Seasons = nil
	numbers := make([]int, 0, len(seasons))
	for number := range seasons {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	for _, number := range numbers {
		next.Seasons = append(next.Seasons, media.Season{SeasonNumber: number, Status: seasons[number]})
	}
	return next
}

// NewRequester creates a requester with a derived email address.
func NewRequester(username string) media.Requester {
	return media.Requester{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
	}
}

// NewRequest creates a pending request for mediaID. createdOffset orders
// requests relative to a fixed base time.
func NewRequest(mediaID uuid.UUID, username string, createdOffset time.Duration, seasons ...int) media.Request {
	return media.Request{
		ID:          uuid.New(),
		MediaID:     mediaID,
		RequestedBy: NewRequester(username),
		Status:      media.RequestStatusPending,
		Seasons:     seasons,
		CreatedAt:   baseTime.Add(createdOffset),
	}
}

var baseTime = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
