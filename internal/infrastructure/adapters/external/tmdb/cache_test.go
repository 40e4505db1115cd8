package tmdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/narwhalmedia/availability/internal/application/availability"
	"github.com/narwhalmedia/availability/pkg/logger"
	"github.com/narwhalmedia/availability/test/mocks"
)

type fakeStore struct {
	mu      sync.Mutex
	values  map[string]string
	ttls    map[string]time.Duration
	failGet error
	failSet error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *fakeStore) Get(ctx context.Context, key string) *redis.StringCmd {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := redis.NewStringCmd(ctx, "get", key)
	switch value, ok := s.values[key]; {
	case s.failGet != nil:
		cmd.SetErr(s.failGet)
	case !ok:
		cmd.SetErr(redis.Nil)
	default:
		cmd.SetVal(value)
	}
	return cmd
}

func (s *fakeStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := redis.NewStatusCmd(ctx, "set", key, value)
	if s.failSet != nil {
		cmd.SetErr(s.failSet)
		return cmd
	}
	s.values[key] = string(value.([]byte))
	s.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func TestCachedProvider(t *testing.T) {
	ctx := context.Background()
	fightClub := &availability.Metadata{Title: "Fight Club", Overview: "An insomniac office worker...", PosterPath: "/poster.jpg"}

	t.Run("miss then hit", func(t *testing.T) {
		next := new(mocks.MockMetadataProvider)
		next.On("GetMovieMetadata", mock.Anything, 550).Return(fightClub, nil).Once()
		store := newFakeStore()
		cached := NewCachedProvider(next, store, time.Hour, logger.NewNoop())

		first, err := cached.GetMovieMetadata(ctx, 550)
		require.NoError(t, err)
		second, err := cached.GetMovieMetadata(ctx, 550)
		require.NoError(t, err)

		assert.Equal(t, fightClub, first)
		assert.Equal(t, fightClub, second)
		assert.Equal(t, time.Hour, store.ttls["tmdb:movie:550"])
		next.AssertExpectations(t)
	})

	t.Run("movie and series keys differ", func(t *testing.T) {
		next := new(mocks.MockMetadataProvider)
		next.On("GetMovieMetadata", mock.Anything, 1399).Return(fightClub, nil).Once()
		next.On("GetSeriesMetadata", mock.Anything, 1399).Return(&availability.Metadata{Title: "Game of Thrones"}, nil).Once()
		cached := NewCachedProvider(next, newFakeStore(), time.Hour, logger.NewNoop())

		movie, err := cached.GetMovieMetadata(ctx, 1399)
		require.NoError(t, err)
		series, err := cached.GetSeriesMetadata(ctx, 1399)
		require.NoError(t, err)

		assert.Equal(t, "Fight Club", movie.Title)
		assert.Equal(t, "Game of Thrones", series.Title)
	})

	t.Run("store failures fall through", func(t *testing.T) {
		next := new(mocks.MockMetadataProvider)
		next.On("GetMovieMetadata", mock.Anything, 550).Return(fightClub, nil).Twice()
		store := newFakeStore()
		store.failGet = errors.New("connection refused")
		store.failSet = errors.New("connection refused")
		cached := NewCachedProvider(next, store, time.Hour, logger.NewNoop())

		for i := 0; i < 2; i++ {
			metadata, err := cached.GetMovieMetadata(ctx, 550)
			require.NoError(t, err)
			assert.Equal(t, fightClub, metadata)
		}
		next.AssertExpectations(t)
	})

	t.Run("malformed entry is refetched", func(t *testing.T) {
		next := new(mocks.MockMetadataProvider)
		next.On("GetMovieMetadata", mock.Anything, 550).Return(fightClub, nil).Once()
		store := newFakeStore()
		store.values["tmdb:movie:550"] = "{broken"
		cached := NewCachedProvider(next, store, time.Hour, logger.NewNoop())

		metadata, err := cached.GetMovieMetadata(ctx, 550)

		require.NoError(t, err)
		assert.Equal(t, fightClub, metadata)
		assert.JSONEq(t, `{"title":"Fight Club","overview":"An insomniac office worker...","poster_path":"/poster.jpg"}`, store.values["tmdb:movie:550"])
	})

	t.Run("provider errors are not cached", func(t *testing.T) {
		next := new(mocks.MockMetadataProvider)
		next.On("GetMovieMetadata", mock.Anything, 550).Return(nil, ErrNotFound).Once()
		store := newFakeStore()
		cached := NewCachedProvider(next, store, time.Hour, logger.NewNoop())

		_, err := cached.GetMovieMetadata(ctx, 550)

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, store.values)
	})

	t.Run("empty results are not cached", func(t *testing.T) {
		next := new(mocks.MockMetadataProvider)
		next.On("GetMovieMetadata", mock.Anything, 550).Return(nil, nil).Once()
		next.On("GetMovieMetadata", mock.Anything, 550).Return(fightClub, nil).Once()
		store := newFakeStore()
		cached := NewCachedProvider(next, store, time.Hour, logger.NewNoop())

		first, err := cached.GetMovieMetadata(ctx, 550)
		require.NoError(t, err)
		assert.Nil(t, first)
		assert.Empty(t, store.values)

		second, err := cached.GetMovieMetadata(ctx, 550)
		require.NoError(t, err)
		assert.Equal(t, fightClub, second)
		next.AssertExpectations(t)
	})

	t.Run("cached null is refetched", func(t *testing.T) {
		next := new(mocks.MockMetadataProvider)
		next.On("GetMovieMetadata", mock.Anything, 550).Return(fightClub, nil).Once()
		store := newFakeStore()
		store.values["tmdb:movie:550"] = "null"
		cached := NewCachedProvider(next, store, time.Hour, logger.NewNoop())

		metadata, err := cached.GetMovieMetadata(ctx, 550)

		require.NoError(t, err)
		assert.Equal(t, "Fight Club", metadata.Title)
		next.AssertExpectations(t)
	})
}
