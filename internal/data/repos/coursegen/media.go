package coursegen

import (
	"context"

	"github.com/google/uuid"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type MediaRepo interface {
	Create(ctx context.Context, tx *gorm.DB, media *types.Media) (*types.Media, error)
	GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID, mediaTypes ...types.MediaType) ([]*types.Media, error)
	DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID, mediaTypes ...types.MediaType) error
}

type mediaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaRepo(db *gorm.DB, baseLog *logger.Logger) MediaRepo {
	repoLog := baseLog.With("repo", "MediaRepo")
	return &mediaRepo{db: db, log: repoLog}
}

func (r *mediaRepo) Create(ctx context.Context, tx *gorm.DB, media *types.Media) (*types.Media, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(media).Error; err != nil {
		return nil, err
	}
	return media, nil
}

// GetByWorkflowID filters by type when mediaTypes is non-empty.
func (r *mediaRepo) GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID, mediaTypes ...types.MediaType) ([]*types.Media, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Where("workflow_id = ?", workflowID)
	if len(mediaTypes) > 0 {
		q = q.Where("type IN ?", mediaTypes)
	}
	var results []*types.Media
	if err := q.Order("created_at ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteByWorkflowID deletes every media row of the workflow when mediaTypes is empty.
func (r *mediaRepo) DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID, mediaTypes ...types.MediaType) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Where("workflow_id = ?", workflowID)
	if len(mediaTypes) > 0 {
		q = q.Where("type IN ?", mediaTypes)
	}
	return q.Delete(&types.Media{}).Error
}
