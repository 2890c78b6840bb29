package coursegen

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DialogueTurn struct {
	Speaker     string `json:"speaker"`
	Text        string `json:"text"`
	Translation string `json:"translation,omitempty"`
}

type DevelopmentNote struct {
	Character string `json:"character"`
	Note      string `json:"note"`
}

// IssueRecord is a stored validation finding.
type IssueRecord struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

type EpisodeContent struct {
	ID                uuid.UUID                            `gorm:"type:uuid;primaryKey" json:"id"`
	WorkflowID        uuid.UUID                            `gorm:"type:uuid;not null;index" json:"workflow_id"`
	EpisodePlanID     uuid.UUID                            `gorm:"type:uuid;not null;uniqueIndex" json:"episode_plan_id"`
	Text              string                               `gorm:"column:text;type:text" json:"text"`
	Turns             datatypes.JSONSlice[DialogueTurn]    `gorm:"column:turns" json:"turns"`
	Summary           string                               `gorm:"column:summary;type:text" json:"summary"`
	DevelopmentNotes  datatypes.JSONSlice[DevelopmentNote] `gorm:"column:development_notes" json:"development_notes"`
	VocabularyUsed    datatypes.JSONSlice[string]          `gorm:"column:vocabulary_used" json:"vocabulary_used"`
	VocabularyMissing datatypes.JSONSlice[string]          `gorm:"column:vocabulary_missing" json:"vocabulary_missing"`
	ScenePrompts      datatypes.JSONSlice[string]          `gorm:"column:scene_prompts" json:"scene_prompts"`
	Validation        datatypes.JSONSlice[IssueRecord]     `gorm:"column:validation" json:"validation"`
	Status            Status                               `gorm:"column:status;not null" json:"status"`
	RawResponse       string                               `gorm:"column:raw_response;type:text" json:"raw_response,omitempty"`
	CreatedAt         time.Time                            `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time                            `gorm:"not null" json:"updated_at"`
}

func (EpisodeContent) TableName() string { return "episode_content" }

func (c *EpisodeContent) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Speakers returns the distinct speaker names of the dialogue in order of appearance.
func (c *EpisodeContent) Speakers() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range c.Turns {
		if seen[t.Speaker] {
			continue
		}
		seen[t.Speaker] = true
		out = append(out, t.Speaker)
	}
	return out
}

// EpisodeExercises is only persisted for a set that passed validation.
// Items holds the typed exercise objects as a JSON array.
type EpisodeExercises struct {
	ID                 uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	WorkflowID         uuid.UUID                   `gorm:"type:uuid;not null;index" json:"workflow_id"`
	EpisodePlanID      uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex" json:"episode_plan_id"`
	Items              datatypes.JSON              `gorm:"column:items;type:jsonb" json:"items"`
	Count              int                         `gorm:"column:count;not null" json:"count"`
	VocabularyCoverage datatypes.JSONSlice[string] `gorm:"column:vocabulary_coverage" json:"vocabulary_coverage"`
	GrammarCoverage    datatypes.JSONSlice[string] `gorm:"column:grammar_coverage" json:"grammar_coverage"`
	Status             Status                      `gorm:"column:status;not null" json:"status"`
	RawResponse        string                      `gorm:"column:raw_response;type:text" json:"raw_response,omitempty"`
	CreatedAt          time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time                   `gorm:"not null" json:"updated_at"`
}

func (EpisodeExercises) TableName() string { return "episode_exercises" }

func (e *EpisodeExercises) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
