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

type WorkflowRepo interface {
	Create(ctx context.Context, tx *gorm.DB, workflow *types.Workflow) (*types.Workflow, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Workflow, error)
	List(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Workflow, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type workflowRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkflowRepo(db *gorm.DB, baseLog *logger.Logger) WorkflowRepo {
	repoLog := baseLog.With("repo", "WorkflowRepo")
	return &workflowRepo{db: db, log: repoLog}
}

func (r *workflowRepo) Create(ctx context.Context, tx *gorm.DB, workflow *types.Workflow) (*types.Workflow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(workflow).Error; err != nil {
		return nil, err
	}
	return workflow, nil
}

// GetByID returns ErrConfiguration when the workflow does not exist.
func (r *workflowRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Workflow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var w types.Workflow
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.ErrConfiguration, "workflow.get", "workflow %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *workflowRepo) List(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Workflow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var results []*types.Workflow
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *workflowRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Workflow{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *workflowRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Workflow{}).Error
}
