package coursegen

import (
	"context"

	"github.com/google/uuid"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type VocabularyLinkRepo interface {
	Create(ctx context.Context, tx *gorm.DB, links []*types.EpisodeVocabularyLink) ([]*types.EpisodeVocabularyLink, error)
	GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.EpisodeVocabularyLink, error)
	DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error
}

type vocabularyLinkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVocabularyLinkRepo(db *gorm.DB, baseLog *logger.Logger) VocabularyLinkRepo {
	repoLog := baseLog.With("repo", "VocabularyLinkRepo")
	return &vocabularyLinkRepo{db: db, log: repoLog}
}

func (r *vocabularyLinkRepo) Create(ctx context.Context, tx *gorm.DB, links []*types.EpisodeVocabularyLink) ([]*types.EpisodeVocabularyLink, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(links) == 0 {
		return []*types.EpisodeVocabularyLink{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (r *vocabularyLinkRepo) GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.EpisodeVocabularyLink, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.EpisodeVocabularyLink
	if err := transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *vocabularyLinkRepo) DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Delete(&types.EpisodeVocabularyLink{}).Error
}
