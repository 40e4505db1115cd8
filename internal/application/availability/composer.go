package availability

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/narwhalmedia/availability/internal/domain/media"
	"github.com/narwhalmedia/availability/internal/domain/notification"
)

// DefaultImageBaseURL prefixes catalog poster paths.
const DefaultImageBaseURL = "https://image.tmdb.org/t/p/w600_and_h900_bestv2"

// SeasonsExtraField names the extra field listing satisfied seasons.
const SeasonsExtraField = "Seasons"

// Metadata is the descriptive data shown in a notification.
type Metadata struct {
	Title      string `json:"title"`
	Overview   string `json:"overview"`
	PosterPath string `json:"poster_path"`
}

// MetadataProvider looks up catalog metadata by catalog id.
type MetadataProvider interface {
	GetMovieMetadata(ctx context.Context, tmdbID int) (*Metadata, error)
	GetSeriesMetadata(ctx context.Context, tmdbID int) (*Metadata, error)
}

// Composer builds notification payloads.
type Composer struct {
	imageBaseURL string
}

// NewComposer creates a composer; an empty base selects DefaultImageBaseURL.
func NewComposer(imageBaseURL string) *Composer {
	if imageBaseURL == "" {
		imageBaseURL = DefaultImageBaseURL
	}
	return &Composer{imageBaseURL: strings.TrimRight(imageBaseURL, "/")}
}

// Compose builds the payload announcing that satisfied is available.
func (c *Composer) Compose(item media.MediaItem, satisfied SatisfiedRequest, metadata Metadata) notification.Payload {
	payload := notification.Payload{
		NotifyUser: satisfied.Request.RequestedBy,
		Subject:    metadata.Title,
		Message:    metadata.Overview,
		Image:      c.imageURL(metadata.PosterPath),
		MediaID:    item.ID,
		RequestID:  satisfied.Request.ID,
	}

	if item.IsSeries() {
		payload.Extra = []notification.ExtraField{{
			Name:  SeasonsExtraField,
			Value: satisfied.Request.SeasonList(),
		}}
	}

	return payload
}

func (c *Composer) imageURL(posterPath string) string {
	if posterPath == "" {
		return ""
	}
	if !strings.HasPrefix(posterPath, "/") {
		posterPath = "/" + posterPath
	}
	return c.imageBaseURL + posterPath
}

// metadataSource memoises lookups so each media item is fetched at most once
// per pipeline run.
type metadataSource struct {
	provider MetadataProvider
	fetched  map[uuid.UUID]*Metadata
}

func newMetadataSource(provider MetadataProvider) *metadataSource {
	return &metadataSource{
		provider: provider,
		fetched:  make(map[uuid.UUID]*Metadata),
	}
}

func (s *metadataSource) get(ctx context.Context, item media.MediaItem) (*Metadata, error) {
	if metadata, ok := s.fetched[item.ID]; ok {
		return metadata, nil
	}

	var (
		metadata *Metadata
		err      error
	)
	switch item.MediaType {
	case media.MediaTypeMovie:
		metadata, err = s.provider.GetMovieMetadata(ctx, item.TMDBID)
	case media.MediaTypeSeries:
		metadata, err = s.provider.GetSeriesMetadata(ctx, item.TMDBID)
	default:
		return nil, fmt.Errorf("unsupported media type %q", item.MediaType)
	}
	if err != nil {
		return nil, err
	}
	if metadata == nil {
		return nil, fmt.Errorf("no metadata for tmdb id %d", item.TMDBID)
	}

	s.fetched[item.ID] = metadata
	return metadata, nil
}
