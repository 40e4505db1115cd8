package gorm

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/narwhalmedia/availability/internal/domain/media"
)

// MediaModel is a tracked movie or series.
type MediaModel struct {
	ID        uuid.UUID     `gorm:"primaryKey"`
	TMDBID    int           `gorm:"column:tmdb_id;not null;index"`
	MediaType string        `gorm:"not null"`
	Status    string        `gorm:"not null;default:'unknown'"`
	Version   int           `gorm:"not null;default:1"`
	CreatedAt time.Time     `gorm:"not null"`
	UpdatedAt time.Time     `gorm:"not null"`
	Seasons   []SeasonModel `gorm:"foreignKey:MediaID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the pluralised default.
func (MediaModel) TableName() string { return "media" }

// SeasonModel is one season of a series.
type SeasonModel struct {
	ID           uint      `gorm:"primaryKey"`
	MediaID      uuid.UUID `gorm:"not null;uniqueIndex:idx_seasons_media_number"`
	SeasonNumber int       `gorm:"not null;uniqueIndex:idx_seasons_media_number"`
	Status       string    `gorm:"not null;default:'unknown'"`
}

// TableName overrides the default.
func (SeasonModel) TableName() string { return "seasons" }

// RequestModel is a user's request for a media item.
type RequestModel struct {
	ID                  uuid.UUID `gorm:"primaryKey"`
	MediaID             uuid.UUID `gorm:"not null;index"`
	RequestedByID       uuid.UUID `gorm:"not null"`
	RequestedByUsername string    `gorm:"not null"`
	RequestedByEmail    string
	Status              string               `gorm:"not null;default:'pending';index"`
	CreatedAt           time.Time            `gorm:"not null"`
	UpdatedAt           time.Time            `gorm:"not null"`
	Seasons             []RequestSeasonModel `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the default.
func (RequestModel) TableName() string { return "requests" }

// RequestSeasonModel is one season asked for by a request.
type RequestSeasonModel struct {
	ID           uint      `gorm:"primaryKey"`
	RequestID    uuid.UUID `gorm:"not null;uniqueIndex:idx_request_seasons_number"`
	SeasonNumber int       `gorm:"not null;uniqueIndex:idx_request_seasons_number"`
}

// TableName overrides the default.
func (RequestSeasonModel) TableName() string { return "request_seasons" }

// BeforeCreate assigns an id when none was set.
func (m *MediaModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// BeforeCreate assigns an id when none was set.
func (m *RequestModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ToDomain converts a MediaModel to a domain snapshot
func (m *MediaModel) ToDomain() media.MediaItem {
	item := media.MediaItem{
		ID:        m.ID,
		TMDBID:    m.TMDBID,
		MediaType: media.MediaType(m.MediaType),
		Status:    media.ParseStatus(m.Status),
	}
	if len(m.Seasons) > 0 {
		item.Seasons = make([]media.Season, len(m.Seasons))
		for i, s := range m.Seasons {
			item.Seasons[i] = media.Season{SeasonNumber: s.SeasonNumber, Status: media.ParseStatus(s.Status)}
		}
		sort.Slice(item.Seasons, func(i, j int) bool {
			return item.Seasons[i].SeasonNumber < item.Seasons[j].SeasonNumber
		})
	}
	return item
}

// FromDomain copies a domain snapshot into the model
func (m *MediaModel) FromDomain(item media.MediaItem) {
	m.ID = item.ID
	m.TMDBID = item.TMDBID
	m.MediaType = string(item.MediaType)
	m.Status = string(item.Status)
	m.Seasons = seasonModels(item)
}

func seasonModels(item media.MediaItem) []SeasonModel {
	if len(item.Seasons) == 0 {
		return nil
	}
	seasons := make([]SeasonModel, len(item.Seasons))
	for i, s := range item.Seasons {
		seasons[i] = SeasonModel{MediaID: item.ID, SeasonNumber: s.SeasonNumber, Status: string(s.Status)}
	}
	return seasons
}

// ToDomain converts a RequestModel to a domain Request
func (m *RequestModel) ToDomain() media.Request {
	req := media.Request{
		ID:      m.ID,
		MediaID: m.MediaID,
		RequestedBy: media.Requester{
			ID:       m.RequestedByID,
			Username: m.RequestedByUsername,
			Email:    m.RequestedByEmail,
		},
		Status:    media.RequestStatus(m.Status),
		CreatedAt: m.CreatedAt,
	}
	if len(m.Seasons) > 0 {
		req.Seasons = make([]int, len(m.Seasons))
		for i, s := range m.Seasons {
			req.Seasons[i] = s.SeasonNumber
		}
		sort.Ints(req.Seasons)
	}
	return req
}

// FromDomain copies a domain request into the model
func (m *RequestModel) FromDomain(req media.Request) {
	m.ID = req.ID
	m.MediaID = req.MediaID
	m.RequestedByID = req.RequestedBy.ID
	m.RequestedByUsername = req.RequestedBy.Username
	m.RequestedByEmail = req.RequestedBy.Email
	m.Status = string(req.Status)
	m.CreatedAt = req.CreatedAt
	m.Seasons = nil
	for _, s := range req.Seasons {
		m.Seasons = append(m.Seasons, RequestSeasonModel{RequestID: req.ID, SeasonNumber: s})
	}
}
