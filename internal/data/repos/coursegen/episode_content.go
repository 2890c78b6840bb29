package coursegen

import (
	"context"

	"github.com/google/uuid"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type EpisodeContentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, content *types.EpisodeContent) (*types.EpisodeContent, error)
	GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.EpisodeContent, error)
	GetByEpisodePlanID(ctx context.Context, tx *gorm.DB, episodePlanID uuid.UUID) (*types.EpisodeContent, error)
	DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error
}

type episodeContentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEpisodeContentRepo(db *gorm.DB, baseLog *logger.Logger) EpisodeContentRepo {
	repoLog := baseLog.With("repo", "EpisodeContentRepo")
	return &episodeContentRepo{db: db, log: repoLog}
}

func (r *episodeContentRepo) Create(ctx context.Context, tx *gorm.DB, content *types.EpisodeContent) (*types.EpisodeContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(content).Error; err != nil {
		return nil, err
	}
	return content, nil
}

func (r *episodeContentRepo) GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.EpisodeContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.EpisodeContent
	if err := transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetByEpisodePlanID returns nil without error when no content exists yet.
func (r *episodeContentRepo) GetByEpisodePlanID(ctx context.Context, tx *gorm.DB, episodePlanID uuid.UUID) (*types.EpisodeContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.EpisodeContent
	if err := transaction.WithContext(ctx).
		Where("episode_plan_id = ?", episodePlanID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *episodeContentRepo) DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Delete(&types.EpisodeContent{}).Error
}
