package coursegen

import (
	"context"
	"strings"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

// WordRepo is the lexicon lookup used by vocabulary linking.
type WordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, words []*types.Word) ([]*types.Word, error)
	FindExact(ctx context.Context, languageCode, normalizedText string) ([]*types.Word, error)
	Search(ctx context.Context, languageCode, text string) ([]*types.Word, error)
}

type wordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

const wordSearchLimit = 10

func NewWordRepo(db *gorm.DB, baseLog *logger.Logger) WordRepo {
	repoLog := baseLog.With("repo", "WordRepo")
	return &wordRepo{db: db, log: repoLog}
}

func (r *wordRepo) Create(ctx context.Context, tx *gorm.DB, words []*types.Word) ([]*types.Word, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(words) == 0 {
		return []*types.Word{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&words).Error; err != nil {
		return nil, err
	}
	return words, nil
}

func (r *wordRepo) FindExact(ctx context.Context, languageCode, normalizedText string) ([]*types.Word, error) {
	var results []*types.Word
	if strings.TrimSpace(normalizedText) == "" {
		return results, nil
	}
	if err := r.db.WithContext(ctx).
		Where("language_code = ? AND normalized_text = ?", languageCode, normalizedText).
		Order("text ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Search matches a substring of the normalized text, shortest entries first.
func (r *wordRepo) Search(ctx context.Context, languageCode, text string) ([]*types.Word, error) {
	var results []*types.Word
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return results, nil
	}
	needle = strings.NewReplacer("%", `\%`, "_", `\_`).Replace(needle)
	if err := r.db.WithContext(ctx).
		Where("language_code = ? AND normalized_text LIKE ? ESCAPE '\\'", languageCode, "%"+needle+"%").
		Order("LENGTH(normalized_text) ASC, text ASC").
		Limit(wordSearchLimit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
