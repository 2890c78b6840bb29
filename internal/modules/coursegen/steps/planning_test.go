package steps

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/jobs/orchestrator"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/content"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/prompts"
	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
)

func blueprintResponse(modules int) content.BlueprintResponse {
	resp := content.BlueprintResponse{
		Title:       "Un été à Lyon",
		Description: "A summer course.",
		Setting:     "Lyon",
		Premise:     "Two neighbours open a bakery.",
		Characters: []content.CharacterSeed{
			{Name: "Claire", Role: "protagonist", Gender: "female", AgeRange: "20s", PersonalityTraits: []string{"cheerful"}},
			{Name: "Hugo", Role: "Supporting", Gender: "Male", AgeRange: "30s"},
			{Name: "Narrator", Role: "minor", Gender: "male"},
			{Name: " claire ", Role: "minor", Gender: "female"},
		},
		GrammarRules: []content.GrammarRuleSeed{
			{Slug: "etre-present", Title: "Être au présent"},
			{Slug: "articles-definis", Title: "Articles définis"},
			{Slug: "existing", Title: "Duplicate"},
		},
	}
	topics := []string{"Se présenter", "Au marché", "Au café"}
	grammar := []string{"etre-present", "Articles Definis", "existing"}
	for i := modules - 1; i >= 0; i-- {
		resp.Modules = append(resp.Modules, content.BlueprintModule{Number: i + 1, Topic: topics[i], PlotArcPoint: "arc", GrammarRules: []string{grammar[i]}})
	}
	return resp
}

func TestBlueprintGeneratorPersistsRosterAndRules(t *testing.T) {
	h := newHarness(t)
	wf := h.workflow(2, 1)
	if _, err := h.deps.Repos.GrammarRule.CreateMissing(h.ctx, nil, []*types.GrammarRule{{LanguageCode: "fr", Level: "A1", Slug: "existing", Title: "Existing"}}); err != nil {
		t.Fatalf("seed rule: %v", err)
	}
	h.ai.queue(prompts.PromptBlueprint, "```json\n"+mustJSON(t, blueprintResponse(2))+"\n```")

	if _, err := h.run(types.StageBlueprint, wf, "More humour"); err != nil {
		t.Fatalf("run: %v", err)
	}

	bp, err := h.deps.Repos.Blueprint.GetByWorkflowID(h.ctx, nil, wf.ID)
	if err != nil {
		t.Fatalf("blueprint: %v", err)
	}
	if bp.Status != types.StatusCompleted || bp.Title != "Un été à Lyon" {
		t.Fatalf("blueprint: unexpected %+v", bp)
	}
	if len(bp.ModuleTopics) != 2 || bp.ModuleTopics[0] != "Se présenter" || bp.GrammarByModule[1][0] != "articles-definis" {
		t.Fatalf("modules not ordered by number: topics=%v grammar=%v", bp.ModuleTopics, bp.GrammarByModule)
	}

	chars, _ := h.deps.Repos.Character.GetByWorkflowID(h.ctx, nil, wf.ID)
	if len(chars) != 2 {
		t.Fatalf("characters: want 2 got %d", len(chars))
	}
	for _, c := range chars {
		if strings.EqualFold(c.Name, types.NarratorName) {
			t.Fatalf("narrator persisted as character")
		}
	}

	rules, _ := h.deps.Repos.GrammarRule.GetByScope(h.ctx, nil, "fr", "A1")
	if len(rules) != 3 {
		t.Fatalf("grammar rules: want 3 got %d", len(rules))
	}

	p := h.ai.promptsFor(prompts.PromptBlueprint)[0]
	if !strings.Contains(p.User, "- existing: Existing") || !strings.Contains(p.User, "More humour") {
		t.Fatalf("prompt missing catalog or feedback:\n%s", p.User)
	}
}

func TestBlueprintGeneratorRejectsWrongModuleCount(t *testing.T) {
	h := newHarness(t)
	wf := h.workflow(2, 1)
	h.ai.queue(prompts.PromptBlueprint, mustJSON(t, blueprintResponse(1)))

	_, err := h.run(types.StageBlueprint, wf, "")
	if !errors.Is(err, apperr.ErrGenerationParse) {
		t.Fatalf("want parse error got %v", err)
	}
	bp, _ := h.deps.Repos.Blueprint.GetByWorkflowID(h.ctx, nil, wf.ID)
	if bp.Status != types.StatusFailed || bp.ErrorMessage == "" || bp.RawResponse == "" {
		t.Fatalf("failed blueprint not recorded: %+v", bp)
	}
	if chars, _ := h.deps.Repos.Character.GetByWorkflowID(h.ctx, nil, wf.ID); len(chars) != 0 {
		t.Fatalf("characters persisted on failure: %d", len(chars))
	}
}

func TestBlueprintGeneratorNeedsTwoCharacters(t *testing.T) {
	h := newHarness(t)
	wf := h.workflow(1, 1)
	resp := blueprintResponse(1)
	resp.Characters = resp.Characters[2:]
	h.ai.queue(prompts.PromptBlueprint, mustJSON(t, resp))

	if _, err := h.run(types.StageBlueprint, wf, ""); !errors.Is(err, apperr.ErrGenerationParse) {
		t.Fatalf("want parse error got %v", err)
	}
}

func modulePlanResponse(title string, outlines int) string {
	resp := content.ModulePlanResponse{Title: title, Theme: "daily life", PlotSummary: title + " happens."}
	for i := 0; i < outlines; i++ {
		o := content.EpisodeOutline{
			Title:      title + " episode",
			Type:       "",
			Vocabulary: []string{"bonjour", " pain "},
			Grammar:    []string{"Passe Compose"},
			Characters: []string{"claire", "HUGO", "Ghost"},
		}
		if i == 1 {
			o.Type = "story"
		}
		resp.Episodes = append(resp.Episodes, o)
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestModulePlanGeneratorWritesPlansInOrder(t *testing.T) {
	h := newHarness(t)
	wf := h.workflow(2, 2)
	h.completeBlueprint(wf, "Se présenter", "Au marché")
	claire := h.character(wf, "Claire", types.RoleProtagonist, "female")
	hugo := h.character(wf, "Hugo", types.RoleSupporting, "male")
	h.ai.queue(prompts.PromptModulePlan, modulePlanResponse("Arrivée", 3), modulePlanResponse("Le marché", 2))

	report, err := h.run(types.StageModulePlanning, wf, "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Succeeded() != 2 {
		t.Fatalf("want 2 units, report %+v", report)
	}

	plans, _ := h.deps.Repos.EpisodePlan.GetByWorkflowID(h.ctx, nil, wf.ID)
	if len(plans) != 4 {
		t.Fatalf("episode plans: want 4 got %d", len(plans))
	}
	first := plans[0]
	if first.EpisodeType != types.EpisodeTypeDialogue || plans[1].EpisodeType != types.EpisodeTypeStory {
		t.Fatalf("episode types: %s %s", first.EpisodeType, plans[1].EpisodeType)
	}
	if len(first.CharacterIDs) != 2 || first.CharacterIDs[0] != claire.ID || first.CharacterIDs[1] != hugo.ID {
		t.Fatalf("character ids: %v", first.CharacterIDs)
	}
	if first.TargetVocabulary[1] != "pain" || first.TargetGrammar[0] != "passe-compose" {
		t.Fatalf("targets not normalized: %v %v", first.TargetVocabulary, first.TargetGrammar)
	}

	second := h.ai.promptsFor(prompts.PromptModulePlan)[1]
	if !strings.Contains(second.User, "EARLIER MODULES") || !strings.Contains(second.User, `"Arrivée"`) {
		t.Fatalf("second module prompt lacks recap:\n%s", second.User)
	}
}

func TestModulePlanGeneratorFailsShortResponse(t *testing.T) {
	h := newHarness(t)
	wf := h.workflow(2, 2)
	h.completeBlueprint(wf, "Se présenter", "Au marché")
	h.character(wf, "Claire", types.RoleProtagonist, "female")
	h.character(wf, "Hugo", types.RoleSupporting, "male")
	h.ai.queue(prompts.PromptModulePlan, modulePlanResponse("Arrivée", 1))

	report, err := h.run(types.StageModulePlanning, wf, "")
	if !errors.Is(err, apperr.ErrGenerationParse) {
		t.Fatalf("want parse error got %v", err)
	}
	if report.Units[1].Status != orchestrator.UnitSkipped {
		t.Fatalf("module 2 should be skipped: %+v", report.Units)
	}
	mps, _ := h.deps.Repos.ModulePlan.GetByWorkflowID(h.ctx, nil, wf.ID)
	if len(mps) != 1 || mps[0].Status != types.StatusFailed || mps[0].RawResponse == "" {
		t.Fatalf("failed module plan not recorded: %+v", mps)
	}
	if plans, _ := h.deps.Repos.EpisodePlan.GetByWorkflowID(h.ctx, nil, wf.ID); len(plans) != 0 {
		t.Fatalf("episode plans written for failed module: %d", len(plans))
	}
}

func TestModulePlanClearRemovesPlans(t *testing.T) {
	h := newHarness(t)
	wf := h.workflow(1, 1)
	h.completeBlueprint(wf, "Se présenter")
	h.character(wf, "Claire", types.RoleProtagonist, "female")
	h.character(wf, "Hugo", types.RoleSupporting, "male")
	h.ai.queue(prompts.PromptModulePlan, modulePlanResponse("Arrivée", 1))
	if _, err := h.run(types.StageModulePlanning, wf, ""); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := h.gens[types.StageModulePlanning].Clear(h.ctx, nil, wf); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	mps, _ := h.deps.Repos.ModulePlan.GetByWorkflowID(h.ctx, nil, wf.ID)
	plans, _ := h.deps.Repos.EpisodePlan.GetByWorkflowID(h.ctx, nil, wf.ID)
	if len(mps) != 0 || len(plans) != 0 {
		t.Fatalf("Clear left %d module plans and %d episode plans", len(mps), len(plans))
	}
}
