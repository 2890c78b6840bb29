package coursegen

import (
	"context"
	"errors"

	"github.com/google/uuid"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type BlueprintRepo interface {
	Create(ctx context.Context, tx *gorm.DB, blueprint *types.Blueprint) (*types.Blueprint, error)
	GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) (*types.Blueprint, error)
	Save(ctx context.Context, tx *gorm.DB, blueprint *types.Blueprint) error
	DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error
}

type blueprintRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBlueprintRepo(db *gorm.DB, baseLog *logger.Logger) BlueprintRepo {
	repoLog := baseLog.With("repo", "BlueprintRepo")
	return &blueprintRepo{db: db, log: repoLog}
}

func (r *blueprintRepo) Create(ctx context.Context, tx *gorm.DB, blueprint *types.Blueprint) (*types.Blueprint, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(blueprint).Error; err != nil {
		return nil, err
	}
	return blueprint, nil
}

// GetByWorkflowID returns ErrConfiguration when the workflow has no blueprint.
func (r *blueprintRepo) GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) (*types.Blueprint, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var b types.Blueprint
	err := transaction.WithContext(ctx).Where("workflow_id = ?", workflowID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.ErrConfiguration, "blueprint.get", "no blueprint for workflow %s", workflowID)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *blueprintRepo) Save(ctx context.Context, tx *gorm.DB, blueprint *types.Blueprint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(blueprint).Error
}

func (r *blueprintRepo) DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Delete(&types.Blueprint{}).Error
}
