package coursegen

import (
	"context"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GrammarRuleRepo interface {
	GetByScope(ctx context.Context, tx *gorm.DB, languageCode, level string) ([]*types.GrammarRule, error)
	// CreateMissing inserts rules whose slug is new for their language and level and
	// returns how many rows were written.
	CreateMissing(ctx context.Context, tx *gorm.DB, rules []*types.GrammarRule) (int64, error)
}

type grammarRuleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGrammarRuleRepo(db *gorm.DB, baseLog *logger.Logger) GrammarRuleRepo {
	repoLog := baseLog.With("repo", "GrammarRuleRepo")
	return &grammarRuleRepo{db: db, log: repoLog}
}

func (r *grammarRuleRepo) GetByScope(ctx context.Context, tx *gorm.DB, languageCode, level string) ([]*types.GrammarRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.GrammarRule
	if err := transaction.WithContext(ctx).
		Where("language_code = ? AND level = ?", languageCode, level).
		Order("slug ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *grammarRuleRepo) CreateMissing(ctx context.Context, tx *gorm.DB, rules []*types.GrammarRule) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rules) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "language_code"}, {Name: "level"}, {Name: "slug"}},
			DoNothing: true,
		}).
		Create(&rules)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
