package catalog

import (
	"context"

	"github.com/google/uuid"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type CatalogRepo interface {
	CreateCourse(ctx context.Context, tx *gorm.DB, course *types.CatalogCourse) (*types.CatalogCourse, error)
	CreateModules(ctx context.Context, tx *gorm.DB, modules []*types.CatalogModule) ([]*types.CatalogModule, error)
	CreateEpisodes(ctx context.Context, tx *gorm.DB, episodes []*types.CatalogEpisode) ([]*types.CatalogEpisode, error)
	GetCourseByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) (*types.CatalogCourse, error)
	GetEpisodesByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.CatalogEpisode, error)
}

type catalogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogRepo(db *gorm.DB, baseLog *logger.Logger) CatalogRepo {
	repoLog := baseLog.With("repo", "CatalogRepo")
	return &catalogRepo{db: db, log: repoLog}
}

func (r *catalogRepo) CreateCourse(ctx context.Context, tx *gorm.DB, course *types.CatalogCourse) (*types.CatalogCourse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(course).Error; err != nil {
		return nil, err
	}
	return course, nil
}

func (r *catalogRepo) CreateModules(ctx context.Context, tx *gorm.DB, modules []*types.CatalogModule) ([]*types.CatalogModule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(modules) == 0 {
		return []*types.CatalogModule{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

func (r *catalogRepo) CreateEpisodes(ctx context.Context, tx *gorm.DB, episodes []*types.CatalogEpisode) ([]*types.CatalogEpisode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(episodes) == 0 {
		return []*types.CatalogEpisode{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&episodes).Error; err != nil {
		return nil, err
	}
	return episodes, nil
}

// GetCourseByWorkflowID returns nil without error when the workflow was never published.
func (r *catalogRepo) GetCourseByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) (*types.CatalogCourse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.CatalogCourse
	if err := transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *catalogRepo) GetEpisodesByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.CatalogEpisode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.CatalogEpisode
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
