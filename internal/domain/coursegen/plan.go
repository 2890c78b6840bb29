package coursegen

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EpisodeTypeDialogue = "DIALOGUE"
	EpisodeTypeStory    = "STORY"
)

type ModulePlan struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	WorkflowID   uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_module_plan_number" json:"workflow_id"`
	ModuleNumber int                         `gorm:"column:module_number;not null;uniqueIndex:idx_module_plan_number" json:"module_number"`
	Title        string                      `gorm:"column:title" json:"title"`
	Theme        string                      `gorm:"column:theme" json:"theme"`
	Description  string                      `gorm:"column:description;type:text" json:"description"`
	Objectives   datatypes.JSONSlice[string] `gorm:"column:objectives" json:"objectives"`
	PlotSummary  string                      `gorm:"column:plot_summary;type:text" json:"plot_summary"`
	Status       Status                      `gorm:"column:status;not null" json:"status"`
	ErrorMessage string                      `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	RawResponse  string                      `gorm:"column:raw_response;type:text" json:"raw_response,omitempty"`
	CreatedAt    time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time                   `gorm:"not null" json:"updated_at"`
}

func (ModulePlan) TableName() string { return "module_plan" }

func (m *ModulePlan) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// EpisodePlan is the outline of one episode plus the per-stage status of the
// units later stages generate for it.
type EpisodePlan struct {
	ID               uuid.UUID                      `gorm:"type:uuid;primaryKey" json:"id"`
	WorkflowID       uuid.UUID                      `gorm:"type:uuid;not null;index" json:"workflow_id"`
	ModulePlanID     uuid.UUID                      `gorm:"type:uuid;not null;index" json:"module_plan_id"`
	ModuleNumber     int                            `gorm:"column:module_number;not null" json:"module_number"`
	EpisodeNumber    int                            `gorm:"column:episode_number;not null" json:"episode_number"`
	Title            string                         `gorm:"column:title" json:"title"`
	SceneDescription string                         `gorm:"column:scene_description;type:text" json:"scene_description"`
	EpisodeType      string                         `gorm:"column:episode_type;not null" json:"episode_type"`
	TargetVocabulary datatypes.JSONSlice[string]    `gorm:"column:target_vocabulary" json:"target_vocabulary"`
	TargetGrammar    datatypes.JSONSlice[string]    `gorm:"column:target_grammar" json:"target_grammar"`
	CharacterIDs     datatypes.JSONSlice[uuid.UUID] `gorm:"column:character_ids" json:"character_ids"`
	PlotPoints       datatypes.JSONSlice[string]    `gorm:"column:plot_points" json:"plot_points"`
	Status           Status                         `gorm:"column:status;not null" json:"status"`

	ContentStatus   Status `gorm:"column:content_status;not null" json:"content_status"`
	ContentError    string `gorm:"column:content_error;type:text" json:"content_error,omitempty"`
	ExercisesStatus Status `gorm:"column:exercises_status;not null" json:"exercises_status"`
	ExercisesError  string `gorm:"column:exercises_error;type:text" json:"exercises_error,omitempty"`
	MediaStatus     Status `gorm:"column:media_status;not null" json:"media_status"`
	MediaError      string `gorm:"column:media_error;type:text" json:"media_error,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (EpisodePlan) TableName() string { return "episode_plan" }

func (e *EpisodePlan) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	for _, s := range []*Status{&e.Status, &e.ContentStatus, &e.ExercisesStatus, &e.MediaStatus} {
		if *s == "" {
			*s = StatusPending
		}
	}
	return nil
}

// Ref is the short human reference used in prompts and development notes, e.g. "M1E2".
func (e *EpisodePlan) Ref() string {
	return fmt.Sprintf("M%dE%d", e.ModuleNumber, e.EpisodeNumber)
}

func (e *EpisodePlan) IsDialogue() bool {
	return e.EpisodeType == EpisodeTypeDialogue
}
