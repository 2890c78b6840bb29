package coursegen

import (
	"context"

	"github.com/google/uuid"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type CharacterRepo interface {
	Create(ctx context.Context, tx *gorm.DB, characters []*types.Character) ([]*types.Character, error)
	GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.Character, error)
	Save(ctx context.Context, tx *gorm.DB, character *types.Character) error
	ClearProfilesByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error
	DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error
}

type characterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCharacterRepo(db *gorm.DB, baseLog *logger.Logger) CharacterRepo {
	repoLog := baseLog.With("repo", "CharacterRepo")
	return &characterRepo{db: db, log: repoLog}
}

func (r *characterRepo) Create(ctx context.Context, tx *gorm.DB, characters []*types.Character) ([]*types.Character, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(characters) == 0 {
		return []*types.Character{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&characters).Error; err != nil {
		return nil, err
	}
	return characters, nil
}

// GetByWorkflowID returns the roster in creation order.
func (r *characterRepo) GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.Character, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Character
	if err := transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("created_at ASC, name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *characterRepo) Save(ctx context.Context, tx *gorm.DB, character *types.Character) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(character).Error
}

func (r *characterRepo) ClearProfilesByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Character{}).
		Where("workflow_id = ?", workflowID).
		Updates(map[string]interface{}{
			"appearance_description": "",
			"reference_image_url":    "",
			"voice_id":               "",
			"profile_status":         types.StatusPending,
			"profile_error":          "",
		}).Error
}

func (r *characterRepo) DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Delete(&types.Character{}).Error
}
