package gorm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/narwhalmedia/availability/internal/domain/media"
	apperrors "github.com/narwhalmedia/availability/pkg/errors"
)

// RequestRepository implements media.RequestRepository.
type RequestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a new GORM request repository
func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create stores a new request with its seasons.
func (r *RequestRepository) Create(ctx context.Context, req *media.Request) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.Status == "" {
		req.Status = media.RequestStatusPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	model := &RequestModel{}
	model.FromDomain(*req)
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.Wrap(apperrors.ErrorTypeConflict, "request already exists", err)
		}
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// FindPendingRequests returns the pending and approved requests for
// mediaID, oldest first.
func (r *RequestRepository) FindPendingRequests(ctx context.Context, mediaID uuid.UUID) ([]media.Request, error) {
	statuses := make([]string, len(media.PendingRequestStatuses))
	for i, s := range media.PendingRequestStatuses {
		statuses[i] = string(s)
	}

	var models []RequestModel
	err := conn(ctx, r.db).
		Preload("Seasons", func(db *gorm.DB) *gorm.DB {
			return db.Order("season_number")
		}).
		Where("media_id = ? AND status IN ?", mediaID, statuses).
		Order("created_at, id").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find pending requests: %w", err)
	}

	requests := make([]media.Request, len(models))
	for i := range models {
		requests[i] = models[i].ToDomain()
	}
	return requests, nil
}
