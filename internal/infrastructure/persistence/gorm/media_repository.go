package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/narwhalmedia/availability/internal/domain/media"
	apperrors "github.com/narwhalmedia/availability/pkg/errors"
)

// MediaRepository implements media.Repository. Update runs the transition
// hook inside the write transaction, after the new state is written and
// before it is committed.
type MediaRepository struct {
	db   *gorm.DB
	tx   *Transactor
	hook media.TransitionHook
}

// NewMediaRepository creates a new GORM media repository. hook may be nil.
func NewMediaRepository(db *gorm.DB, hook media.TransitionHook) *MediaRepository {
	return &MediaRepository{db: db, tx: NewTransactor(db), hook: hook}
}

// Create stores a new media item with its seasons.
func (r *MediaRepository) Create(ctx context.Context, item *media.MediaItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if err := item.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrorTypeBadRequest, "invalid media item", err)
	}

	model := &MediaModel{}
	model.FromDomain(*item)
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.Wrap(apperrors.ErrorTypeConflict, "media item already exists", err)
		}
		return fmt.Errorf("create media: %w", err)
	}
	return nil
}

// FindByID loads a media item with its seasons.
func (r *MediaRepository) FindByID(ctx context.Context, id uuid.UUID) (*media.MediaItem, error) {
	model, err := r.load(conn(ctx, r.db), id, false)
	if err != nil {
		return nil, err
	}
	item := model.ToDomain()
	return &item, nil
}

// Update replaces the stored state with next. The stored row is locked for
// the duration of the transaction so concurrent updates of the same item are
// evaluated one after another against the state the previous one committed.
//
// A hook failure does not roll the update back: the media change is
// committed and the failure is returned as a NOTIFICATION error.
func (r *MediaRepository) Update(ctx context.Context, next media.MediaItem) error {
	if err := next.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrorTypeBadRequest, "invalid media item", err)
	}

	var hookErr error
	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		db := conn(ctx, r.db)

		stored, err := r.load(db, next.ID, true)
		if err != nil {
			return err
		}
		previous := stored.ToDomain()
		if previous.MediaType != next.MediaType {
			return apperrors.Wrap(apperrors.ErrorTypeBadRequest, "invalid media update", media.ErrMediaTypeChanged)
		}

		if err := r.write(db, next); err != nil {
			return err
		}

		if r.hook != nil {
			hookErr = r.hook(ctx, previous, next)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if hookErr != nil {
		return apperrors.Wrap(apperrors.ErrorTypeNotification, "media updated but availability notification failed", hookErr)
	}
	return nil
}

func (r *MediaRepository) load(db *gorm.DB, id uuid.UUID, forUpdate bool) (*MediaModel, error) {
	query := db
	if forUpdate && db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model MediaModel
	if err := query.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrorTypeNotFound, id.String(), media.ErrMediaNotFound)
		}
		return nil, fmt.Errorf("load media: %w", err)
	}

	if err := db.Where("media_id = ?", id).Order("season_number").Find(&model.Seasons).Error; err != nil {
		return nil, fmt.Errorf("load seasons: %w", err)
	}
	return &model, nil
}

func (r *MediaRepository) write(db *gorm.DB, next media.MediaItem) error {
	err := db.Model(&MediaModel{}).Where("id = ?", next.ID).Updates(map[string]interface{}{
		"tmdb_id": next.TMDBID,
		"status":  string(next.Status),
		"version": gorm.Expr("version + 1"),
	}).Error
	if err != nil {
		return fmt.Errorf("update media: %w", err)
	}

	if err := db.Where("media_id = ?", next.ID).Delete(&SeasonModel{}).Error; err != nil {
		return fmt.Errorf("clear seasons: %w", err)
	}
	if seasons := seasonModels(next); len(seasons) > 0 {
		if err := db.Create(&seasons).Error; err != nil {
			return fmt.Errorf("write seasons: %w", err)
		}
	}
	return nil
}
