package coursegen

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MediaType string

const (
	MediaEpisodeAudio   MediaType = "EPISODE_AUDIO"
	MediaCharacterImage MediaType = "CHARACTER_IMAGE"
	MediaSceneImage     MediaType = "SCENE_IMAGE"
)

// Media is workflow scoped; episode and character are references by id, not owners.
type Media struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	WorkflowID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"workflow_id"`
	Type          MediaType         `gorm:"column:type;not null;index" json:"type"`
	EpisodePlanID *uuid.UUID        `gorm:"type:uuid;index" json:"episode_plan_id,omitempty"`
	CharacterID   *uuid.UUID        `gorm:"type:uuid;index" json:"character_id,omitempty"`
	URL           string            `gorm:"column:url" json:"url,omitempty"`
	StorageKey    string            `gorm:"column:storage_key" json:"storage_key,omitempty"`
	MimeType      string            `gorm:"column:mime_type" json:"mime_type,omitempty"`
	Metadata      datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	Status        Status            `gorm:"column:status;not null" json:"status"`
	ErrorMessage  string            `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	CreatedAt     time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null" json:"updated_at"`
}

func (Media) TableName() string { return "course_media" }

func (m *Media) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	if m.Metadata == nil {
		m.Metadata = datatypes.JSONMap{}
	}
	return nil
}
