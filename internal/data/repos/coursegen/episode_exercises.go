package coursegen

import (
	"context"

	"github.com/google/uuid"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type EpisodeExercisesRepo interface {
	Create(ctx context.Context, tx *gorm.DB, set *types.EpisodeExercises) (*types.EpisodeExercises, error)
	GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.EpisodeExercises, error)
	DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error
}

type episodeExercisesRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEpisodeExercisesRepo(db *gorm.DB, baseLog *logger.Logger) EpisodeExercisesRepo {
	repoLog := baseLog.With("repo", "EpisodeExercisesRepo")
	return &episodeExercisesRepo{db: db, log: repoLog}
}

func (r *episodeExercisesRepo) Create(ctx context.Context, tx *gorm.DB, set *types.EpisodeExercises) (*types.EpisodeExercises, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(set).Error; err != nil {
		return nil, err
	}
	return set, nil
}

func (r *episodeExercisesRepo) GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.EpisodeExercises, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.EpisodeExercises
	if err := transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *episodeExercisesRepo) DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Delete(&types.EpisodeExercises{}).Error
}
