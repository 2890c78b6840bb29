package steps

import (
	"context"
	"sort"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/jobs/orchestrator"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/content"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/prompts"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/roster"
	"github.com/yungbote/storyforge-backend/internal/normalization"
	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

const (
	minCharacters = 2
	maxCharacters = 4
)

type BlueprintGenerator struct {
	deps Deps
	log  *logger.Logger
}

func NewBlueprintGenerator(deps Deps) *BlueprintGenerator {
	return &BlueprintGenerator{deps: deps, log: deps.Log.With("step", "Blueprint")}
}

func (g *BlueprintGenerator) Stage() types.Stage { return types.StageBlueprint }

func (g *BlueprintGenerator) Units(ctx context.Context, wf *types.Workflow, feedback string) ([]orchestrator.Unit, error) {
	return []orchestrator.Unit{{
		Key: "blueprint",
		Run: func(ctx context.Context) error { return g.generate(ctx, wf, feedback) },
		Fail: func(ctx context.Context, cause error) error {
			bp, err := g.deps.Repos.Blueprint.GetByWorkflowID(ctx, nil, wf.ID)
			if err != nil {
				return err
			}
			bp.Status = types.StatusFailed
			bp.ErrorMessage = errText(cause)
			return g.deps.Repos.Blueprint.Save(ctx, nil, bp)
		},
	}}, nil
}

func (g *BlueprintGenerator) generate(ctx context.Context, wf *types.Workflow, feedback string) error {
	const op = "blueprint.generate"
	bp, err := g.deps.Repos.Blueprint.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return err
	}
	bp.Status = types.StatusInProgress
	bp.ErrorMessage = ""
	if err := g.deps.Repos.Blueprint.Save(ctx, nil, bp); err != nil {
		return err
	}

	rules, err := g.deps.Repos.GrammarRule.GetByScope(ctx, nil, wf.LanguageCode, wf.Level)
	if err != nil {
		return err
	}
	catalog := roster.NewGrammarCatalog(rules)

	p, err := prompts.Build(prompts.PromptBlueprint, prompts.Input{
		LanguageCode:      wf.LanguageCode,
		LanguageName:      LanguageName(wf.LanguageCode),
		Level:             wf.Level,
		ModuleCount:       wf.ModuleCount,
		EpisodesPerModule: wf.EpisodesPerModule,
		ThemeHint:         wf.ThemeHint,
		GrammarCatalog:    grammarLines(catalog),
		Feedback:          feedback,
	})
	if err != nil {
		return apperr.Wrap(apperr.ErrConfiguration, op, err)
	}

	raw, err := g.deps.AI.GenerateText(ctx, p)
	if err != nil {
		return err
	}
	bp.RawResponse = raw
	if err := g.deps.Repos.Blueprint.Save(ctx, nil, bp); err != nil {
		return err
	}

	resp, err := content.Decode[content.BlueprintResponse](op, raw)
	if err != nil {
		return err
	}
	modules := append([]content.BlueprintModule(nil), resp.Modules...)
	if len(modules) != wf.ModuleCount {
		return apperr.Newf(apperr.ErrGenerationParse, op, "want %d modules, got %d", wf.ModuleCount, len(modules))
	}
	sort.SliceStable(modules, func(i, j int) bool { return modules[i].Number < modules[j].Number })

	chars := blueprintCharacters(wf, resp.Characters)
	if len(chars) < minCharacters {
		return apperr.Newf(apperr.ErrGenerationParse, op, "want at least %d characters, got %d", minCharacters, len(chars))
	}
	if len(chars) > maxCharacters {
		g.log.Warn("Truncating blueprint roster", "workflow_id", wf.ID, "characters", len(chars))
		chars = chars[:maxCharacters]
	}

	var newRules []*types.GrammarRule
	for _, seed := range resp.GrammarRules {
		rule := &types.GrammarRule{
			LanguageCode: wf.LanguageCode,
			Level:        wf.Level,
			Slug:         roster.SlugKey(seed.Slug),
			Title:        strings.TrimSpace(seed.Title),
			Explanation:  strings.TrimSpace(seed.Explanation),
			Examples:     datatypes.JSONSlice[string](seed.Examples),
		}
		if catalog.Add(rule) {
			newRules = append(newRules, rule)
		}
	}

	bp.Title = strings.TrimSpace(resp.Title)
	bp.Description = strings.TrimSpace(resp.Description)
	bp.Setting = strings.TrimSpace(resp.Setting)
	bp.Premise = strings.TrimSpace(resp.Premise)
	bp.ModuleTopics = datatypes.JSONSlice[string]{}
	bp.PlotArc = datatypes.JSONSlice[string]{}
	bp.GrammarByModule = datatypes.JSONSlice[[]string]{}
	for _, m := range modules {
		bp.ModuleTopics = append(bp.ModuleTopics, strings.TrimSpace(m.Topic))
		bp.PlotArc = append(bp.PlotArc, strings.TrimSpace(m.PlotArcPoint))
		slugs := make([]string, 0, len(m.GrammarRules))
		for _, s := range m.GrammarRules {
			if key := roster.SlugKey(s); key != "" {
				slugs = append(slugs, key)
			}
		}
		bp.GrammarByModule = append(bp.GrammarByModule, slugs)
	}
	bp.Status = types.StatusCompleted

	return g.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := g.deps.Repos.GrammarRule.CreateMissing(ctx, tx, newRules)
		if err != nil {
			return err
		}
		if _, err := g.deps.Repos.Character.Create(ctx, tx, chars); err != nil {
			return err
		}
		if err := g.deps.Repos.Blueprint.Save(ctx, tx, bp); err != nil {
			return err
		}
		g.log.Info("Blueprint generated", "workflow_id", wf.ID, "characters", len(chars), "new_grammar_rules", created)
		return nil
	})
}

// blueprintCharacters drops blank, duplicate and narrator entries.
func blueprintCharacters(wf *types.Workflow, seeds []content.CharacterSeed) []*types.Character {
	seen := map[string]bool{}
	out := []*types.Character{}
	for _, s := range seeds {
		name := strings.TrimSpace(s.Name)
		key := normalization.ParseInputString(name)
		if key == "" || seen[key] || strings.EqualFold(name, types.NarratorName) {
			continue
		}
		seen[key] = true
		out = append(out, &types.Character{
			WorkflowID:        wf.ID,
			Name:              name,
			Role:              strings.ToLower(strings.TrimSpace(s.Role)),
			Gender:            strings.ToLower(strings.TrimSpace(s.Gender)),
			AgeRange:          strings.TrimSpace(s.AgeRange),
			PersonalityTraits: datatypes.JSONSlice[string](s.PersonalityTraits),
			Background:        strings.TrimSpace(s.Background),
		})
	}
	return out
}

// Clear resets the blueprint and drops the roster it created, with its development log.
func (g *BlueprintGenerator) Clear(ctx context.Context, tx *gorm.DB, wf *types.Workflow) error {
	bp, err := g.deps.Repos.Blueprint.GetByWorkflowID(ctx, tx, wf.ID)
	if err != nil {
		return err
	}
	bp.Reset()
	if err := g.deps.Repos.Blueprint.Save(ctx, tx, bp); err != nil {
		return err
	}
	if err := g.deps.Repos.DevelopmentNote.DeleteByWorkflowID(ctx, tx, wf.ID); err != nil {
		return err
	}
	return g.deps.Repos.Character.DeleteByWorkflowID(ctx, tx, wf.ID)
}
