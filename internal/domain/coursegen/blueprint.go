package coursegen

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Blueprint is the narrative and curriculum skeleton of a course. One per workflow.
// PlotArc, ModuleTopics and GrammarByModule are indexed by module number - 1.
type Blueprint struct {
	ID              uuid.UUID                     `gorm:"type:uuid;primaryKey" json:"id"`
	WorkflowID      uuid.UUID                     `gorm:"type:uuid;not null;uniqueIndex" json:"workflow_id"`
	Title           string                        `gorm:"column:title" json:"title"`
	Description     string                        `gorm:"column:description;type:text" json:"description"`
	Setting         string                        `gorm:"column:setting;type:text" json:"setting"`
	Premise         string                        `gorm:"column:premise;type:text" json:"premise"`
	PlotArc         datatypes.JSONSlice[string]   `gorm:"column:plot_arc" json:"plot_arc"`
	ModuleTopics    datatypes.JSONSlice[string]   `gorm:"column:module_topics" json:"module_topics"`
	GrammarByModule datatypes.JSONSlice[[]string] `gorm:"column:grammar_by_module" json:"grammar_by_module"`
	Status          Status                        `gorm:"column:status;not null" json:"status"`
	ErrorMessage    string                        `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	RawResponse     string                        `gorm:"column:raw_response;type:text" json:"raw_response,omitempty"`
	CreatedAt       time.Time                     `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time                     `gorm:"not null" json:"updated_at"`
}

func (Blueprint) TableName() string { return "course_blueprint" }

func (b *Blueprint) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// Reset clears everything the blueprint generator wrote.
func (b *Blueprint) Reset() {
	b.Title = ""
	b.Description = ""
	b.Setting = ""
	b.Premise = ""
	b.PlotArc = datatypes.JSONSlice[string]{}
	b.ModuleTopics = datatypes.JSONSlice[string]{}
	b.GrammarByModule = datatypes.JSONSlice[[]string]{}
	b.Status = StatusPending
	b.ErrorMessage = ""
	b.RawResponse = ""
}

// GrammarRule is catalog data shared by every workflow of the same language and level.
type GrammarRule struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	LanguageCode string                      `gorm:"column:language_code;not null;uniqueIndex:idx_grammar_rule_scope" json:"language_code"`
	Level        string                      `gorm:"column:level;not null;uniqueIndex:idx_grammar_rule_scope" json:"level"`
	Slug         string                      `gorm:"column:slug;not null;uniqueIndex:idx_grammar_rule_scope" json:"slug"`
	Title        string                      `gorm:"column:title" json:"title"`
	Explanation  string                      `gorm:"column:explanation;type:text" json:"explanation"`
	Examples     datatypes.JSONSlice[string] `gorm:"column:examples" json:"examples"`
	CreatedAt    time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time                   `gorm:"not null" json:"updated_at"`
}

func (GrammarRule) TableName() string { return "grammar_rule" }

func (g *GrammarRule) BeforeCreate(tx *gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
