package coursegen

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Word is a canonical lexicon entry.
type Word struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LanguageCode   string    `gorm:"column:language_code;not null;index:idx_word_lookup" json:"language_code"`
	Text           string    `gorm:"column:text;not null" json:"text"`
	NormalizedText string    `gorm:"column:normalized_text;not null;index:idx_word_lookup" json:"normalized_text"`
	PartOfSpeech   string    `gorm:"column:part_of_speech" json:"part_of_speech,omitempty"`
	Translation    string    `gorm:"column:translation" json:"translation,omitempty"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (Word) TableName() string { return "word" }

func (w *Word) BeforeCreate(tx *gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

const (
	MatchExact  = "exact"
	MatchSearch = "search"
	MatchNone   = "none"
)

type EpisodeVocabularyLink struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WorkflowID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"workflow_id"`
	EpisodePlanID uuid.UUID  `gorm:"type:uuid;not null;index" json:"episode_plan_id"`
	Phrase        string     `gorm:"column:phrase;not null" json:"phrase"`
	WordID        *uuid.UUID `gorm:"type:uuid" json:"word_id,omitempty"`
	MatchKind     string     `gorm:"column:match_kind;not null" json:"match_kind"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
}

func (EpisodeVocabularyLink) TableName() string { return "episode_vocabulary_link" }

func (l *EpisodeVocabularyLink) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
