package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Course is the permanent record produced when a completed workflow is published.
type Course struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkflowID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"workflow_id"`
	LanguageCode string    `gorm:"column:language_code;not null;index" json:"language_code"`
	Level        string    `gorm:"column:level;not null" json:"level"`
	Title        string    `gorm:"column:title;not null" json:"title"`
	Description  string    `gorm:"column:description;type:text" json:"description"`
	Setting      string    `gorm:"column:setting;type:text" json:"setting"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string { return "catalog_course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Module struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID                   `gorm:"type:uuid;not null;index" json:"course_id"`
	Position    int                         `gorm:"column:position;not null" json:"position"`
	Title       string                      `gorm:"column:title;not null" json:"title"`
	Theme       string                      `gorm:"column:theme" json:"theme"`
	Description string                      `gorm:"column:description;type:text" json:"description"`
	Objectives  datatypes.JSONSlice[string] `gorm:"column:objectives" json:"objectives"`
	CreatedAt   time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time                   `gorm:"not null" json:"updated_at"`
}

func (Module) TableName() string { return "catalog_module" }

func (m *Module) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Episode.Position orders episodes across the whole course, starting at 1.
type Episode struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID                   `gorm:"type:uuid;not null;index" json:"course_id"`
	ModuleID    uuid.UUID                   `gorm:"type:uuid;not null;index" json:"module_id"`
	Position    int                         `gorm:"column:position;not null" json:"position"`
	Title       string                      `gorm:"column:title;not null" json:"title"`
	Kind        string                      `gorm:"column:kind;not null" json:"kind"`
	Text        string                      `gorm:"column:text;type:text" json:"text"`
	Summary     string                      `gorm:"column:summary;type:text" json:"summary"`
	ContentJSON datatypes.JSON              `gorm:"column:content_json;type:jsonb" json:"content_json"`
	Exercises   datatypes.JSON              `gorm:"column:exercises;type:jsonb" json:"exercises"`
	Vocabulary  datatypes.JSONSlice[string] `gorm:"column:vocabulary" json:"vocabulary"`
	AudioURL    string                      `gorm:"column:audio_url" json:"audio_url,omitempty"`
	ImageURLs   datatypes.JSONSlice[string] `gorm:"column:image_urls" json:"image_urls"`
	CreatedAt   time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time                   `gorm:"not null" json:"updated_at"`
}

func (Episode) TableName() string { return "catalog_episode" }

func (e *Episode) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
