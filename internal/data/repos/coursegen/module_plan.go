package coursegen

import (
	"context"

	"github.com/google/uuid"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type ModulePlanRepo interface {
	Create(ctx context.Context, tx *gorm.DB, plan *types.ModulePlan) (*types.ModulePlan, error)
	GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.ModulePlan, error)
	Save(ctx context.Context, tx *gorm.DB, plan *types.ModulePlan) error
	SetStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.Status, errMsg string) error
	DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error
}

type modulePlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModulePlanRepo(db *gorm.DB, baseLog *logger.Logger) ModulePlanRepo {
	repoLog := baseLog.With("repo", "ModulePlanRepo")
	return &modulePlanRepo{db: db, log: repoLog}
}

func (r *modulePlanRepo) Create(ctx context.Context, tx *gorm.DB, plan *types.ModulePlan) (*types.ModulePlan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(plan).Error; err != nil {
		return nil, err
	}
	return plan, nil
}

// GetByWorkflowID returns plans ordered by module number.
func (r *modulePlanRepo) GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.ModulePlan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ModulePlan
	if err := transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("module_number ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *modulePlanRepo) Save(ctx context.Context, tx *gorm.DB, plan *types.ModulePlan) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(plan).Error
}

func (r *modulePlanRepo) SetStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.Status, errMsg string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ModulePlan{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "error_message": errMsg}).Error
}

func (r *modulePlanRepo) DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Delete(&types.ModulePlan{}).Error
}
