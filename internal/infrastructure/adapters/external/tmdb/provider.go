package tmdb

import (
	"context"

	"github.com/narwhalmedia/availability/internal/application/availability"
)

// Provider exposes TMDB details as notification metadata.
type Provider struct {
	client *Client
}

// NewProvider creates a new metadata provider backed by client
func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

// GetMovieMetadata returns title, overview and poster path of a movie.
func (p *Provider) GetMovieMetadata(ctx context.Context, tmdbID int) (*availability.Metadata, error) {
	details, err := p.client.GetMovieDetails(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	return &availability.Metadata{
		Title:      details.Title,
		Overview:   details.Overview,
		PosterPath: details.PosterPath,
	}, nil
}

// GetSeriesMetadata returns name, overview and poster path of a series.
func (p *Provider) GetSeriesMetadata(ctx context.Context, tmdbID int) (*availability.Metadata, error) {
	details, err := p.client.GetTVShowDetails(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	return &availability.Metadata{
		Title:      details.Name,
		Overview:   details.Overview,
		PosterPath: details.PosterPath,
	}, nil
}
