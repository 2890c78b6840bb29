package coursegen

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Workflow struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LanguageCode      string     `gorm:"column:language_code;not null;index" json:"language_code"`
	Level             string     `gorm:"column:level;not null" json:"level"`
	ModuleCount       int        `gorm:"column:module_count;not null" json:"module_count"`
	EpisodesPerModule int        `gorm:"column:episodes_per_module;not null" json:"episodes_per_module"`
	ThemeHint         string     `gorm:"column:theme_hint;type:text" json:"theme_hint,omitempty"`
	AutoMode          bool       `gorm:"column:auto_mode;not null;default:false" json:"auto_mode"`
	CurrentStage      Stage      `gorm:"column:current_stage;not null;index" json:"current_stage"`
	FailedStage       Stage      `gorm:"column:failed_stage" json:"failed_stage,omitempty"`
	ErrorMessage      string     `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	PublishedCourseID *uuid.UUID `gorm:"column:published_course_id;type:uuid" json:"published_course_id,omitempty"`
	CreatedAt         time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null" json:"updated_at"`
}

func (Workflow) TableName() string { return "course_workflow" }

func (w *Workflow) BeforeCreate(tx *gorm.DB) error {
	ensureID(&w.ID)
	return nil
}
