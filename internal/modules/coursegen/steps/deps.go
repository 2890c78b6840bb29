package steps

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/storyforge-backend/internal/data/repos"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/jobs/orchestrator"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/prompts"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/voices"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

// Generative is the text, image and speech backend. Implementations return
// errors tagged apperr.ErrExternalService.
type Generative interface {
	// GenerateText returns the raw model output; JSON prompts may come back fenced.
	GenerateText(ctx context.Context, p prompts.Prompt) (string, error)
	GenerateImage(ctx context.Context, prompt string, references []string) (ImageResult, error)
	// GenerateAudio synthesizes the transcript and stores it under req.Key.
	GenerateAudio(ctx context.Context, req AudioRequest) (AudioResult, error)
}

type ImageResult struct {
	Data     []byte
	MimeType string
}

type Speaker struct {
	Name  string
	Voice string
}

type AudioRequest struct {
	Key        string
	Transcript string
	// At most two speakers; a single speaker means narration.
	Speakers []Speaker
	Style    string
}

type AudioResult struct {
	URL        string
	StorageKey string
	MimeType   string
}

type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type Dictionary interface {
	FindExact(ctx context.Context, languageCode, normalizedText string) ([]*types.Word, error)
	Search(ctx context.Context, languageCode, text string) ([]*types.Word, error)
}

type Config struct {
	// SummaryTokenBudget caps the prior-episode summaries included in content prompts.
	SummaryTokenBudget int
	// ContentAttempts is the number of tries before invalid content fails an episode.
	ContentAttempts int
}

const (
	defaultSummaryTokenBudget = 1500
	defaultContentAttempts    = 2
)

type Deps struct {
	DB         *gorm.DB
	Log        *logger.Logger
	Repos      repos.Set
	AI         Generative
	Blobs      BlobStore
	Tokens     TokenCounter
	Voices     *voices.Table
	Dictionary Dictionary
	Config     Config
}

func (d Deps) validate(op string) error {
	if d.DB == nil || d.Log == nil || d.AI == nil || d.Blobs == nil || d.Voices == nil || d.Repos.Workflow == nil {
		return fmt.Errorf("%s: missing deps", op)
	}
	return nil
}

func (d Deps) withDefaults() Deps {
	if d.Config.SummaryTokenBudget <= 0 {
		d.Config.SummaryTokenBudget = defaultSummaryTokenBudget
	}
	if d.Config.ContentAttempts <= 0 {
		d.Config.ContentAttempts = defaultContentAttempts
	}
	if d.Tokens == nil {
		d.Tokens = EstimateCounter{}
	}
	if d.Dictionary == nil && d.Repos.Word != nil {
		d.Dictionary = d.Repos.Word
	}
	return d
}

// Generator produces every unit of one stage and knows how to discard what it wrote.
type Generator interface {
	Stage() types.Stage
	// Units loads the stage inputs and returns one unit per work item, in order.
	Units(ctx context.Context, wf *types.Workflow, feedback string) ([]orchestrator.Unit, error)
	// Clear deletes the stage's records ahead of a regeneration.
	Clear(ctx context.Context, tx *gorm.DB, wf *types.Workflow) error
}

// NewGenerators binds a generator to every stage that has one.
func NewGenerators(deps Deps) (map[types.Stage]Generator, error) {
	if err := deps.validate("steps"); err != nil {
		return nil, err
	}
	deps = deps.withDefaults()
	gens := []Generator{
		NewBlueprintGenerator(deps),
		NewModulePlanGenerator(deps),
		NewEpisodeContentGenerator(deps),
		NewCharacterProfileGenerator(deps),
		NewExerciseGenerator(deps),
		NewMediaGenerator(deps),
	}
	out := make(map[types.Stage]Generator, len(gens))
	for _, g := range gens {
		out[g.Stage()] = g
	}
	return out, nil
}
