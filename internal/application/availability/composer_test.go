package availability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/narwhalmedia/availability/internal/application/availability"
	"github.com/narwhalmedia/availability/internal/domain/media"
	"github.com/narwhalmedia/availability/test/testutil"
)

func TestComposer_Movie(t *testing.T) {
	movie := testutil.NewMovie(550, media.StatusAvailable)
	req := testutil.NewRequest(movie.ID, "alice", 0)
	metadata := availability.Metadata{
		Title:      "Fight Club",
		Overview:   "An insomniac office worker...",
		PosterPath: "/pB8BM7pdSp6B6Ih7QZ4DrQ3PmJK.jpg",
	}

	payload := availability.NewComposer("").Compose(movie, availability.SatisfiedRequest{Request: req}, metadata)

	assert.Equal(t, req.RequestedBy, payload.NotifyUser)
	assert.Equal(t, "Fight Club", payload.Subject)
	assert.Equal(t, "An insomniac office worker...", payload.Message)
	assert.Equal(t, availability.DefaultImageBaseURL+"/pB8BM7pdSp6B6Ih7QZ4DrQ3PmJK.jpg", payload.Image)
	assert.Empty(t, payload.Extra)
	assert.Equal(t, movie.ID, payload.MediaID)
	assert.Equal(t, req.ID, payload.RequestID)
}

func TestComposer_Series(t *testing.T) {
	series := testutil.NewSeries(1399, media.StatusAvailable, testutil.SeasonStates{
		1: media.StatusAvailable,
		2: media.StatusAvailable,
		3: media.StatusAvailable,
	})
	req := testutil.NewRequest(series.ID, "bob", 0, 3, 1, 2)
	satisfied := availability.SatisfiedRequest{Request: req, Seasons: req.SortedSeasons()}

	payload := availability.NewComposer("https://images.example.com/w500/").
		Compose(series, satisfied, availability.Metadata{Title: "Game of Thrones", PosterPath: "poster.jpg"})

	assert.Equal(t, "https://images.example.com/w500/poster.jpg", payload.Image)
	if assert.Len(t, payload.Extra, 1) {
		assert.Equal(t, availability.SeasonsExtraField, payload.Extra[0].Name)
		assert.Equal(t, "1, 2, 3", payload.Extra[0].Value)
	}
}

func TestComposer_NoPoster(t *testing.T) {
	movie := testutil.NewMovie(550, media.StatusAvailable)
	req := testutil.NewRequest(movie.ID, "alice", 0)

	payload := availability.NewComposer("").Compose(movie, availability.SatisfiedRequest{Request: req}, availability.Metadata{Title: "Fight Club"})

	assert.Empty(t, payload.Image)
}
