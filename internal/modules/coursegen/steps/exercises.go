package steps

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/storyforge-backend/internal/data/repos"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/jobs/orchestrator"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/content"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/prompts"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/roster"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/validation"
	"github.com/yungbote/storyforge-backend/internal/normalization"
	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

type ExerciseGenerator struct {
	deps Deps
	log  *logger.Logger
}

func NewExerciseGenerator(deps Deps) *ExerciseGenerator {
	return &ExerciseGenerator{deps: deps, log: deps.Log.With("step", "Exercises")}
}

func (g *ExerciseGenerator) Stage() types.Stage { return types.StageExercises }

func (g *ExerciseGenerator) Units(ctx context.Context, wf *types.Workflow, feedback string) ([]orchestrator.Unit, error) {
	plans, contents, err := plansWithContent(ctx, g.deps, wf)
	if err != nil {
		return nil, err
	}
	rules, err := g.deps.Repos.GrammarRule.GetByScope(ctx, nil, wf.LanguageCode, wf.Level)
	if err != nil {
		return nil, err
	}
	catalog := roster.NewGrammarCatalog(rules)

	units := make([]orchestrator.Unit, 0, len(plans))
	for _, plan := range plans {
		ep := plan
		if ep.ExercisesStatus == types.StatusCompleted {
			continue
		}
		body := contents[ep.ID]
		units = append(units, orchestrator.Unit{
			Key: ep.Ref(),
			Run: func(ctx context.Context) error { return g.generate(ctx, wf, ep, body, catalog, feedback) },
			Fail: func(ctx context.Context, cause error) error {
				return g.deps.Repos.EpisodePlan.SetUnitStatus(ctx, nil, ep.ID, repos.UnitExercises, types.StatusFailed, errText(cause))
			},
		})
	}
	return units, nil
}

// plansWithContent returns the plans that have generated content, with the content by plan id.
func plansWithContent(ctx context.Context, deps Deps, wf *types.Workflow) ([]*types.EpisodePlan, map[uuid.UUID]*types.EpisodeContent, error) {
	plans, err := deps.Repos.EpisodePlan.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, nil, err
	}
	contents, err := deps.Repos.EpisodeContent.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, nil, err
	}
	byPlan := make(map[uuid.UUID]*types.EpisodeContent, len(contents))
	for _, c := range contents {
		byPlan[c.EpisodePlanID] = c
	}
	out := make([]*types.EpisodePlan, 0, len(plans))
	for _, p := range plans {
		if _, ok := byPlan[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out, byPlan, nil
}

func (g *ExerciseGenerator) generate(ctx context.Context, wf *types.Workflow, ep *types.EpisodePlan, body *types.EpisodeContent, catalog *roster.GrammarCatalog, feedback string) error {
	op := "exercises.generate[" + ep.Ref() + "]"
	if err := g.deps.Repos.EpisodePlan.SetUnitStatus(ctx, nil, ep.ID, repos.UnitExercises, types.StatusInProgress, ""); err != nil {
		return err
	}
	p, err := prompts.Build(prompts.PromptExercises, prompts.Input{
		LanguageCode:     wf.LanguageCode,
		LanguageName:     LanguageName(wf.LanguageCode),
		Level:            wf.Level,
		EpisodeRef:       ep.Ref(),
		EpisodeTitle:     ep.Title,
		EpisodeText:      body.Text,
		TargetVocabulary: strings.Join(ep.TargetVocabulary, ", "),
		TargetGrammar:    grammarTitles(ep.TargetGrammar, catalog),
		Feedback:         feedback,
	})
	if err != nil {
		return apperr.Wrap(apperr.ErrConfiguration, op, err)
	}
	raw, err := g.deps.AI.GenerateText(ctx, p)
	if err != nil {
		return err
	}
	resp, err := content.Decode[content.ExerciseSetResponse](op, raw)
	if err != nil {
		return err
	}
	if report := validation.ValidateExercises(resp.Exercises); !report.IsValid() {
		return apperr.Newf(apperr.ErrGenerationParse, op, "exercise set invalid:\n%s", report.Summary())
	}

	items, err := json.Marshal(resp.Exercises)
	if err != nil {
		return apperr.Wrap(apperr.ErrGenerationParse, op, err)
	}
	serialized := string(items)
	vocab, _ := content.Coverage(ep.TargetVocabulary, serialized)
	set := &types.EpisodeExercises{
		WorkflowID:         wf.ID,
		EpisodePlanID:      ep.ID,
		Items:              datatypes.JSON(items),
		Count:              len(resp.Exercises),
		VocabularyCoverage: datatypes.JSONSlice[string](vocab),
		GrammarCoverage:    datatypes.JSONSlice[string](grammarCoverage(ep.TargetGrammar, catalog, serialized)),
		Status:             types.StatusCompleted,
		RawResponse:        raw,
	}
	return g.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := g.deps.Repos.EpisodeExercises.Create(ctx, tx, set); err != nil {
			return err
		}
		return g.deps.Repos.EpisodePlan.SetUnitStatus(ctx, tx, ep.ID, repos.UnitExercises, types.StatusCompleted, "")
	})
}

func grammarTitles(slugs []string, catalog *roster.GrammarCatalog) string {
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if r, ok := catalog.Lookup(s); ok && r.Title != "" {
			out = append(out, r.Title+" ("+r.Slug+")")
			continue
		}
		out = append(out, s)
	}
	return strings.Join(out, ", ")
}

// grammarCoverage returns the slugs whose rule title, or slug read as words,
// appears in the serialized set.
func grammarCoverage(slugs []string, catalog *roster.GrammarCatalog, serialized string) []string {
	out := []string{}
	for _, s := range slugs {
		needles := []string{strings.ReplaceAll(roster.SlugKey(s), "-", " ")}
		if r, ok := catalog.Lookup(s); ok && r.Title != "" {
			needles = append(needles, r.Title)
		}
		for _, n := range needles {
			if normalization.ContainsFold(serialized, n) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

func (g *ExerciseGenerator) Clear(ctx context.Context, tx *gorm.DB, wf *types.Workflow) error {
	if err := g.deps.Repos.EpisodeExercises.DeleteByWorkflowID(ctx, tx, wf.ID); err != nil {
		return err
	}
	return g.deps.Repos.EpisodePlan.ResetUnitStatus(ctx, tx, wf.ID, repos.UnitExercises)
}
