package coursegen

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

// UnitColumn names the per-stage status column pair carried by an episode plan.
type UnitColumn string

const (
	UnitContent   UnitColumn = "content"
	UnitExercises UnitColumn = "exercises"
	UnitMedia     UnitColumn = "media"
)

type EpisodePlanRepo interface {
	Create(ctx context.Context, tx *gorm.DB, plans []*types.EpisodePlan) ([]*types.EpisodePlan, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.EpisodePlan, error)
	// GetByWorkflowID returns plans in module order, then episode order.
	GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.EpisodePlan, error)
	Save(ctx context.Context, tx *gorm.DB, plan *types.EpisodePlan) error
	SetUnitStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, unit UnitColumn, status types.Status, errMsg string) error
	ResetUnitStatus(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID, unit UnitColumn) error
	DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error
}

type episodePlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEpisodePlanRepo(db *gorm.DB, baseLog *logger.Logger) EpisodePlanRepo {
	repoLog := baseLog.With("repo", "EpisodePlanRepo")
	return &episodePlanRepo{db: db, log: repoLog}
}

func (r *episodePlanRepo) Create(ctx context.Context, tx *gorm.DB, plans []*types.EpisodePlan) ([]*types.EpisodePlan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(plans) == 0 {
		return []*types.EpisodePlan{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *episodePlanRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.EpisodePlan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.EpisodePlan
	if err := transaction.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *episodePlanRepo) GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.EpisodePlan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.EpisodePlan
	if err := transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("module_number ASC, episode_number ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *episodePlanRepo) Save(ctx context.Context, tx *gorm.DB, plan *types.EpisodePlan) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(plan).Error
}

func (r *episodePlanRepo) SetUnitStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, unit UnitColumn, status types.Status, errMsg string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	cols, err := unitColumns(unit)
	if err != nil {
		return err
	}
	return transaction.WithContext(ctx).
		Model(&types.EpisodePlan{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{cols[0]: status, cols[1]: errMsg}).Error
}

func (r *episodePlanRepo) ResetUnitStatus(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID, unit UnitColumn) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	cols, err := unitColumns(unit)
	if err != nil {
		return err
	}
	return transaction.WithContext(ctx).
		Model(&types.EpisodePlan{}).
		Where("workflow_id = ?", workflowID).
		Updates(map[string]interface{}{cols[0]: types.StatusPending, cols[1]: ""}).Error
}

func (r *episodePlanRepo) DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Delete(&types.EpisodePlan{}).Error
}

func unitColumns(unit UnitColumn) ([2]string, error) {
	switch unit {
	case UnitContent, UnitExercises, UnitMedia:
		return [2]string{string(unit) + "_status", string(unit) + "_error"}, nil
	default:
		return [2]string{}, fmt.Errorf("unknown unit column %q", unit)
	}
}
