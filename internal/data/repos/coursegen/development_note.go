package coursegen

import (
	"context"

	"github.com/google/uuid"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

// DevelopmentNoteRepo is append only. Rows are removed only together with the whole
// episode-content stage or the workflow.
type DevelopmentNoteRepo interface {
	Append(ctx context.Context, tx *gorm.DB, notes []*types.CharacterDevelopmentNote) ([]*types.CharacterDevelopmentNote, error)
	GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.CharacterDevelopmentNote, error)
	DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error
}

type developmentNoteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDevelopmentNoteRepo(db *gorm.DB, baseLog *logger.Logger) DevelopmentNoteRepo {
	repoLog := baseLog.With("repo", "DevelopmentNoteRepo")
	return &developmentNoteRepo{db: db, log: repoLog}
}

// Append assigns each note the next sequence number of its character.
func (r *developmentNoteRepo) Append(ctx context.Context, tx *gorm.DB, notes []*types.CharacterDevelopmentNote) ([]*types.CharacterDevelopmentNote, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(notes) == 0 {
		return []*types.CharacterDevelopmentNote{}, nil
	}

	next := map[uuid.UUID]int{}
	for _, n := range notes {
		if _, ok := next[n.CharacterID]; ok {
			continue
		}
		var maxSeq struct{ Max int }
		if err := transaction.WithContext(ctx).
			Model(&types.CharacterDevelopmentNote{}).
			Select("COALESCE(MAX(sequence), 0) AS max").
			Where("character_id = ?", n.CharacterID).
			Scan(&maxSeq).Error; err != nil {
			return nil, err
		}
		next[n.CharacterID] = maxSeq.Max + 1
	}
	for _, n := range notes {
		n.Sequence = next[n.CharacterID]
		next[n.CharacterID]++
	}

	if err := transaction.WithContext(ctx).Create(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *developmentNoteRepo) GetByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) ([]*types.CharacterDevelopmentNote, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.CharacterDevelopmentNote
	if err := transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("character_id ASC, sequence ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *developmentNoteRepo) DeleteByWorkflowID(ctx context.Context, tx *gorm.DB, workflowID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Delete(&types.CharacterDevelopmentNote{}).Error
}
