package coursegen

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleProtagonist = "protagonist"
	RoleSupporting  = "supporting"
	RoleMinor       = "minor"
	RoleRecurring   = "recurring"
)

const (
	GenderFemale = "female"
	GenderMale   = "male"
)

// NarratorName is reserved for story narration and never names a roster character.
const NarratorName = "Narrator"

type Character struct {
	ID                    uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	WorkflowID            uuid.UUID                   `gorm:"type:uuid;not null;index" json:"workflow_id"`
	Name                  string                      `gorm:"column:name;not null" json:"name"`
	Role                  string                      `gorm:"column:role" json:"role"`
	Gender                string                      `gorm:"column:gender" json:"gender"`
	AgeRange              string                      `gorm:"column:age_range" json:"age_range"`
	PersonalityTraits     datatypes.JSONSlice[string] `gorm:"column:personality_traits" json:"personality_traits"`
	Background            string                      `gorm:"column:background;type:text" json:"background"`
	AppearanceDescription string                      `gorm:"column:appearance_description;type:text" json:"appearance_description,omitempty"`
	ReferenceImageURL     string                      `gorm:"column:reference_image_url" json:"reference_image_url,omitempty"`
	VoiceID               string                      `gorm:"column:voice_id" json:"voice_id,omitempty"`
	ProfileStatus         Status                      `gorm:"column:profile_status;not null" json:"profile_status"`
	ProfileError          string                      `gorm:"column:profile_error;type:text" json:"profile_error,omitempty"`
	CreatedAt             time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time                   `gorm:"not null" json:"updated_at"`
}

func (Character) TableName() string { return "course_character" }

func (c *Character) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	if c.ProfileStatus == "" {
		c.ProfileStatus = StatusPending
	}
	return nil
}

// ClearProfile drops every value the consolidation stage derived.
func (c *Character) ClearProfile() {
	c.AppearanceDescription = ""
	c.ReferenceImageURL = ""
	c.VoiceID = ""
	c.ProfileStatus = StatusPending
	c.ProfileError = ""
}

// CharacterDevelopmentNote is one entry of a character's append-only development log.
// Sequence is monotonically increasing per character.
type CharacterDevelopmentNote struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkflowID    uuid.UUID `gorm:"type:uuid;not null;index" json:"workflow_id"`
	CharacterID   uuid.UUID `gorm:"type:uuid;not null;index" json:"character_id"`
	EpisodePlanID uuid.UUID `gorm:"type:uuid;not null;index" json:"episode_plan_id"`
	EpisodeRef    string    `gorm:"column:episode_ref;not null" json:"episode_ref"`
	Note          string    `gorm:"column:note;type:text;not null" json:"note"`
	Sequence      int       `gorm:"column:sequence;not null" json:"sequence"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (CharacterDevelopmentNote) TableName() string { return "character_development_note" }

func (n *CharacterDevelopmentNote) BeforeCreate(tx *gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
