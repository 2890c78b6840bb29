package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/jobs/orchestrator"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/content"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/prompts"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/roster"
	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

type ModulePlanGenerator struct {
	deps Deps
	log  *logger.Logger
}

func NewModulePlanGenerator(deps Deps) *ModulePlanGenerator {
	return &ModulePlanGenerator{deps: deps, log: deps.Log.With("step", "ModulePlan")}
}

func (g *ModulePlanGenerator) Stage() types.Stage { return types.StageModulePlanning }

func (g *ModulePlanGenerator) Units(ctx context.Context, wf *types.Workflow, feedback string) ([]orchestrator.Unit, error) {
	const op = "module_plan.units"
	bp, err := g.deps.Repos.Blueprint.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, err
	}
	if bp.Status != types.StatusCompleted {
		return nil, apperr.Newf(apperr.ErrConfiguration, op, "blueprint is %s", bp.Status)
	}
	if len(bp.ModuleTopics) < wf.ModuleCount {
		return nil, apperr.Newf(apperr.ErrConfiguration, op, "blueprint has %d module topics, want %d", len(bp.ModuleTopics), wf.ModuleCount)
	}
	chars, err := g.deps.Repos.Character.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return nil, err
	}
	cast := roster.New(chars)
	if cast.Len() == 0 {
		return nil, apperr.Newf(apperr.ErrConfiguration, op, "workflow %s has no characters", wf.ID)
	}

	units := make([]orchestrator.Unit, 0, wf.ModuleCount)
	for n := 1; n <= wf.ModuleCount; n++ {
		number := n
		var raw string
		units = append(units, orchestrator.Unit{
			Key: fmt.Sprintf("module-%d", number),
			Run: func(ctx context.Context) error {
				out, err := g.plan(ctx, wf, bp, cast, number, feedback)
				raw = out
				return err
			},
			Fail: func(ctx context.Context, cause error) error {
				return g.recordFailure(ctx, wf, number, raw, cause)
			},
		})
	}
	return units, nil
}

func (g *ModulePlanGenerator) plan(ctx context.Context, wf *types.Workflow, bp *types.Blueprint, cast *roster.Roster, number int, feedback string) (string, error) {
	op := fmt.Sprintf("module_plan.generate[%d]", number)
	existing, err := g.deps.Repos.ModulePlan.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return "", err
	}
	var recap []string
	for _, mp := range existing {
		if mp.ModuleNumber == number && mp.Status == types.StatusCompleted {
			return "", nil
		}
		if mp.ModuleNumber < number && mp.Status == types.StatusCompleted {
			recap = append(recap, fmt.Sprintf("Module %d %q (%s): %s", mp.ModuleNumber, mp.Title, mp.Theme, mp.PlotSummary))
		}
	}

	i := number - 1
	var grammar []string
	if i < len(bp.GrammarByModule) {
		grammar = bp.GrammarByModule[i]
	}
	plotPoint := ""
	if i < len(bp.PlotArc) {
		plotPoint = bp.PlotArc[i]
	}
	p, err := prompts.Build(prompts.PromptModulePlan, prompts.Input{
		LanguageCode:      wf.LanguageCode,
		LanguageName:      LanguageName(wf.LanguageCode),
		Level:             wf.Level,
		ModuleCount:       wf.ModuleCount,
		EpisodesPerModule: wf.EpisodesPerModule,
		CourseTitle:       bp.Title,
		Setting:           bp.Setting,
		Premise:           bp.Premise,
		RosterText:        rosterText(cast),
		ModuleNumber:      number,
		ModuleTopic:       bp.ModuleTopics[i],
		PlotArcPoint:      plotPoint,
		ModuleGrammar:     strings.Join(grammar, ", "),
		PriorModules:      strings.Join(recap, "\n"),
		Feedback:          feedback,
	})
	if err != nil {
		return "", apperr.Wrap(apperr.ErrConfiguration, op, err)
	}

	raw, err := g.deps.AI.GenerateText(ctx, p)
	if err != nil {
		return "", err
	}
	resp, err := content.Decode[content.ModulePlanResponse](op, raw)
	if err != nil {
		return raw, err
	}
	if len(resp.Episodes) < wf.EpisodesPerModule {
		return raw, apperr.Newf(apperr.ErrGenerationParse, op, "want %d episode outlines, got %d", wf.EpisodesPerModule, len(resp.Episodes))
	}
	outlines := resp.Episodes[:wf.EpisodesPerModule]

	mp := &types.ModulePlan{
		WorkflowID:   wf.ID,
		ModuleNumber: number,
		Title:        strings.TrimSpace(resp.Title),
		Theme:        strings.TrimSpace(resp.Theme),
		Description:  strings.TrimSpace(resp.Description),
		Objectives:   datatypes.JSONSlice[string](resp.Objectives),
		PlotSummary:  strings.TrimSpace(resp.PlotSummary),
		Status:       types.StatusCompleted,
		RawResponse:  raw,
	}
	err = g.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := g.deps.Repos.ModulePlan.Create(ctx, tx, mp); err != nil {
			return err
		}
		plans := make([]*types.EpisodePlan, 0, len(outlines))
		for j, o := range outlines {
			plans = append(plans, episodePlanFromOutline(mp, j+1, o, cast))
		}
		_, err := g.deps.Repos.EpisodePlan.Create(ctx, tx, plans)
		return err
	})
	if err != nil {
		return raw, err
	}
	g.log.Info("Module planned", "workflow_id", wf.ID, "module", number, "episodes", len(outlines))
	return raw, nil
}

func episodePlanFromOutline(mp *types.ModulePlan, number int, o content.EpisodeOutline, cast *roster.Roster) *types.EpisodePlan {
	kind := strings.ToUpper(strings.TrimSpace(o.Type))
	if kind == "" {
		kind = types.EpisodeTypeDialogue
	}
	grammar := make([]string, 0, len(o.Grammar))
	for _, s := range o.Grammar {
		if key := roster.SlugKey(s); key != "" {
			grammar = append(grammar, key)
		}
	}
	return &types.EpisodePlan{
		WorkflowID:       mp.WorkflowID,
		ModulePlanID:     mp.ID,
		ModuleNumber:     mp.ModuleNumber,
		EpisodeNumber:    number,
		Title:            strings.TrimSpace(o.Title),
		SceneDescription: strings.TrimSpace(o.SceneDescription),
		EpisodeType:      kind,
		TargetVocabulary: datatypes.JSONSlice[string](trimAll(o.Vocabulary)),
		TargetGrammar:    datatypes.JSONSlice[string](grammar),
		CharacterIDs:     datatypes.JSONSlice[uuid.UUID](cast.ResolveNames(o.Characters)),
		PlotPoints:       datatypes.JSONSlice[string](trimAll(o.PlotPoints)),
		Status:           types.StatusCompleted,
	}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (g *ModulePlanGenerator) recordFailure(ctx context.Context, wf *types.Workflow, number int, raw string, cause error) error {
	existing, err := g.deps.Repos.ModulePlan.GetByWorkflowID(ctx, nil, wf.ID)
	if err != nil {
		return err
	}
	for _, mp := range existing {
		if mp.ModuleNumber == number {
			mp.Status = types.StatusFailed
			mp.ErrorMessage = errText(cause)
			if raw != "" {
				mp.RawResponse = raw
			}
			return g.deps.Repos.ModulePlan.Save(ctx, nil, mp)
		}
	}
	_, err = g.deps.Repos.ModulePlan.Create(ctx, nil, &types.ModulePlan{
		WorkflowID:   wf.ID,
		ModuleNumber: number,
		Status:       types.StatusFailed,
		ErrorMessage: errText(cause),
		RawResponse:  raw,
	})
	return err
}

func (g *ModulePlanGenerator) Clear(ctx context.Context, tx *gorm.DB, wf *types.Workflow) error {
	if err := g.deps.Repos.EpisodePlan.DeleteByWorkflowID(ctx, tx, wf.ID); err != nil {
		return err
	}
	return g.deps.Repos.ModulePlan.DeleteByWorkflowID(ctx, tx, wf.ID)
}
