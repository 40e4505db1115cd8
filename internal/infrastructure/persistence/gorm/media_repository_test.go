package gorm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/narwhalmedia/availability/internal/application/availability"
	"github.com/narwhalmedia/availability/internal/domain/media"
	apperrors "github.com/narwhalmedia/availability/pkg/errors"
	"github.com/narwhalmedia/availability/pkg/logger"
	"github.com/narwhalmedia/availability/test/mocks"
	"github.com/narwhalmedia/availability/test/testutil"
)

type recordedTransition struct {
	previous media.MediaItem
	next     media.MediaItem
}

func TestMediaRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create and FindByID", func(t *testing.T) {
		repo := NewMediaRepository(NewTestDB(t), nil)
		item := testutil.NewSeries(1399, media.StatusPartiallyAvailable, testutil.SeasonStates{
			2: media.StatusPending,
			1: media.StatusAvailable,
		})

		require.NoError(t, repo.Create(ctx, &item))

		found, err := repo.FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, item, *found)
	})

	t.Run("Create assigns an id", func(t *testing.T) {
		repo := NewMediaRepository(NewTestDB(t), nil)
		item := media.MediaItem{TMDBID: 550, MediaType: media.MediaTypeMovie, Status: media.StatusPending}

		require.NoError(t, repo.Create(ctx, &item))

		assert.NotEqual(t, uuid.Nil, item.ID)
	})

	t.Run("Create rejects duplicate seasons", func(t *testing.T) {
		repo := NewMediaRepository(NewTestDB(t), nil)
		item := testutil.NewSeries(1399, media.StatusPending, nil)
		item.Seasons = []media.Season{{SeasonNumber: 1}, {SeasonNumber: 1}}

		err := repo.Create(ctx, &item)

		require.Error(t, err)
		assert.True(t, apperrors.IsBadRequest(err))
		assert.ErrorIs(t, err, media.ErrDuplicateSeason)
	})

	t.Run("FindByID not found", func(t *testing.T) {
		repo := NewMediaRepository(NewTestDB(t), nil)

		_, err := repo.FindByID(ctx, uuid.New())

		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
		assert.ErrorIs(t, err, media.ErrMediaNotFound)
	})
}

func TestMediaRepository_Update(t *testing.T) {
	ctx := context.Background()

	newSeries := func() media.MediaItem {
		return testutil.NewSeries(1399, media.StatusPartiallyAvailable, testutil.SeasonStates{
			1: media.StatusAvailable,
			2: media.StatusPending,
		})
	}
	completed := func(item media.MediaItem) media.MediaItem {
		return testutil.WithSeasons(item, media.StatusAvailable, testutil.SeasonStates{
			1: media.StatusAvailable,
			2: media.StatusAvailable,
			3: media.StatusProcessing,
		})
	}

	t.Run("hook sees stored and next state", func(t *testing.T) {
		var calls []recordedTransition
		repo := NewMediaRepository(NewTestDB(t), func(ctx context.Context, previous, next media.MediaItem) error {
			calls = append(calls, recordedTransition{previous: previous, next: next})
			return nil
		})
		item := newSeries()
		require.NoError(t, repo.Create(ctx, &item))
		next := completed(item)

		require.NoError(t, repo.Update(ctx, next))

		require.Len(t, calls, 1)
		assert.Equal(t, item, calls[0].previous)
		assert.Equal(t, next, calls[0].next)

		stored, err := repo.FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, next, *stored)
	})

	t.Run("hook failure keeps the update", func(t *testing.T) {
		repo := NewMediaRepository(NewTestDB(t), func(ctx context.Context, previous, next media.MediaItem) error {
			return apperrors.Unavailable("fetch catalog metadata", errors.New("timeout"))
		})
		item := newSeries()
		require.NoError(t, repo.Create(ctx, &item))
		next := completed(item)

		err := repo.Update(ctx, next)

		require.Error(t, err)
		assert.True(t, apperrors.IsNotification(err))
		stored, findErr := repo.FindByID(ctx, item.ID)
		require.NoError(t, findErr)
		assert.Equal(t, media.StatusAvailable, stored.Status)
	})

	t.Run("media type cannot change", func(t *testing.T) {
		called := false
		repo := NewMediaRepository(NewTestDB(t), func(ctx context.Context, previous, next media.MediaItem) error {
			called = true
			return nil
		})
		item := newSeries()
		require.NoError(t, repo.Create(ctx, &item))
		next := item
		next.MediaType = media.MediaTypeMovie
		next.Seasons = nil

		err := repo.Update(ctx, next)

		require.Error(t, err)
		assert.True(t, apperrors.IsBadRequest(err))
		assert.ErrorIs(t, err, media.ErrMediaTypeChanged)
		assert.False(t, called)
	})

	t.Run("unknown item", func(t *testing.T) {
		repo := NewMediaRepository(NewTestDB(t), nil)

		err := repo.Update(ctx, testutil.NewMovie(550, media.StatusAvailable))

		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("successive updates compare against committed state", func(t *testing.T) {
		var calls []recordedTransition
		repo := NewMediaRepository(NewTestDB(t), func(ctx context.Context, previous, next media.MediaItem) error {
			calls = append(calls, recordedTransition{previous: previous, next: next})
			return nil
		})
		item := newSeries()
		require.NoError(t, repo.Create(ctx, &item))
		next := completed(item)

		require.NoError(t, repo.Update(ctx, next))
		require.NoError(t, repo.Update(ctx, next))

		require.Len(t, calls, 2)
		assert.Equal(t, calls[1].previous, calls[1].next)
	})
}

func TestMediaRepository_UpdateRunsTrigger(t *testing.T) {
	ctx := context.Background()
	db := NewTestDB(t)
	requests := NewRequestRepository(db)
	provider := new(mocks.MockMetadataProvider)
	dispatcher := &mocks.CapturingDispatcher{}
	trigger := availability.NewTrigger(requests, provider, dispatcher, logger.NewNoop(), availability.Options{})
	repo := NewMediaRepository(db, trigger.Hook())

	item := testutil.NewSeries(1399, media.StatusPartiallyAvailable, testutil.SeasonStates{
		1: media.StatusAvailable,
		2: media.StatusPending,
	})
	require.NoError(t, repo.Create(ctx, &item))

	early := testutil.NewRequest(item.ID, "bob", 0, 1)
	wanted := testutil.NewRequest(item.ID, "carol", time.Minute, 1, 2)
	require.NoError(t, requests.Create(ctx, &early))
	require.NoError(t, requests.Create(ctx, &wanted))

	provider.On("GetSeriesMetadata", mock.Anything, 1399).Return(&availability.Metadata{
		Title:      "Game of Thrones",
		Overview:   "Seven noble families fight for control of Westeros.",
		PosterPath: "/u3bZgnGQ9T01sWNhyveQz0wH0Hl.jpg",
	}, nil).Once()

	next := testutil.WithSeasons(item, media.StatusAvailable, testutil.SeasonStates{
		1: media.StatusAvailable,
		2: media.StatusAvailable,
	})
	require.NoError(t, repo.Update(ctx, next))

	sent := dispatcher.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "carol", sent[0].Payload.NotifyUser.Username)
	assert.Equal(t, "Game of Thrones", sent[0].Payload.Subject)
	assert.Equal(t, "1, 2", sent[0].Payload.Extra[0].Value)
	assert.Equal(t, wanted.ID, sent[0].Payload.RequestID)
	provider.AssertExpectations(t)
}
