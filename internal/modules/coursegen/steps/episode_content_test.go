package steps

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/storyforge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/content"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/prompts"
	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
)

func dialogueJSON(t *testing.T, speakers ...string) string {
	t.Helper()
	resp := content.DialogueResponse{
		Summary: "Hugo greets Claire at the bakery.",
		DevelopmentNotes: []content.CharacterNote{
			{Character: "claire", Note: "Claire is nervous about the opening."},
			{Character: "Ghost", Note: "ignored"},
		},
	}
	lines := []string{"Bonjour Claire !", "Bonjour Hugo, ça va ?", "Très bien, merci."}
	for i, s := range speakers {
		resp.Lines = append(resp.Lines, content.DialogueLine{Speaker: s, Text: lines[i%len(lines)], Translation: "hello"})
	}
	return mustJSON(t, resp)
}

func TestEpisodeContentGeneratorRetriesAndRepairs(t *testing.T) {
	h := newHarness(t)
	wf := h.workflow(1, 2)
	h.completeBlueprint(wf, "Se présenter")
	claire := h.character(wf, "Claire", types.RoleProtagonist, "female")
	hugo := h.character(wf, "Hugo", types.RoleSupporting, "male")
	mp := testutil.SeedModulePlan(t, h.ctx, h.deps.DB, wf.ID, 1)
	ep1 := testutil.SeedEpisodePlan(t, h.ctx, h.deps.DB, mp, 1, types.EpisodeTypeDialogue, hugo.ID)
	ep1.TargetVocabulary = []string{"bonjour", "croissant"}
	if err := h.deps.Repos.EpisodePlan.Save(h.ctx, nil, ep1); err != nil {
		t.Fatalf("save plan: %v", err)
	}
	ep2 := testutil.SeedEpisodePlan(t, h.ctx, h.deps.DB, mp, 2, types.EpisodeTypeStory)

	h.ai.queue(prompts.PromptEpisodeDialogue,
		dialogueJSON(t, "Hugo", "Claire", "Marie"),
		dialogueJSON(t, "Hugo", "Claire", "Hugo"),
	)
	h.ai.queue(prompts.PromptEpisodeStory, mustJSON(t, content.StoryResponse{
		Text:             strings.Repeat("Claire ouvre la boulangerie et sourit aux clients du quartier. ", 3),
		Summary:          "Claire opens the bakery.",
		DevelopmentNotes: []content.CharacterNote{{Character: "Claire", Note: "Claire gains confidence."}},
	}))
	h.ai.queue(prompts.PromptScenePrompts, mustJSON(t, content.ScenePromptsResponse{Prompts: []string{
		"Claire behind the counter",
		"Hugo and Claire at dawn",
		"A street in Lyon",
		"Fresh bread",
		"An extra scene",
	}}))

	if _, err := h.run(types.StageEpisodeContent, wf, ""); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := h.reload(ep1)
	if len(got.CharacterIDs) != 2 || got.CharacterIDs[0] != hugo.ID || got.CharacterIDs[1] != claire.ID {
		t.Fatalf("speakers not repaired: %v", got.CharacterIDs)
	}
	if got.ContentStatus != types.StatusCompleted {
		t.Fatalf("content status: %s", got.ContentStatus)
	}

	dialogue := h.ai.promptsFor(prompts.PromptEpisodeDialogue)
	if len(dialogue) != 2 {
		t.Fatalf("dialogue attempts: want 2 got %d", len(dialogue))
	}
	if strings.Contains(dialogue[0].User, "REJECTED") || !strings.Contains(dialogue[1].User, "too_many_speakers") {
		t.Fatalf("retry prompt should carry the rejected issues:\n%s", dialogue[1].User)
	}

	c, err := h.deps.Repos.EpisodeContent.GetByEpisodePlanID(h.ctx, nil, ep1.ID)
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	if len(c.VocabularyUsed) != 1 || c.VocabularyUsed[0] != "bonjour" || len(c.VocabularyMissing) != 1 || c.VocabularyMissing[0] != "croissant" {
		t.Fatalf("coverage: used=%v missing=%v", c.VocabularyUsed, c.VocabularyMissing)
	}
	if len(c.ScenePrompts) != maxScenePrompts {
		t.Fatalf("scene prompts: want %d got %d", maxScenePrompts, len(c.ScenePrompts))
	}
	for _, s := range c.ScenePrompts {
		if strings.Contains(s, "Claire") || strings.Contains(s, "Hugo") {
			t.Fatalf("scene prompt still names a character: %q", s)
		}
	}
	if len(c.DevelopmentNotes) != 1 || c.DevelopmentNotes[0].Character != "Claire" {
		t.Fatalf("development notes: %+v", c.DevelopmentNotes)
	}

	notes, _ := h.deps.Repos.DevelopmentNote.GetByWorkflowID(h.ctx, nil, wf.ID)
	seq := map[uuid.UUID][]int{}
	for _, n := range notes {
		seq[n.CharacterID] = append(seq[n.CharacterID], n.Sequence)
	}
	if s := seq[claire.ID]; len(s) != 2 || s[0] != 1 || s[1] != 2 {
		t.Fatalf("claire note sequence: %v", s)
	}

	story := h.ai.promptsFor(prompts.PromptEpisodeStory)
	if len(story) != 1 || !strings.Contains(story[0].User, "[M1E1]") {
		t.Fatalf("story prompt lacks history of %s", ep2.Ref())
	}
}

func TestEpisodeContentGeneratorGivesUpAfterAttempts(t *testing.T) {
	h := newHarness(t)
	wf := h.workflow(1, 1)
	h.completeBlueprint(wf, "Se présenter")
	claire := h.character(wf, "Claire", types.RoleProtagonist, "female")
	hugo := h.character(wf, "Hugo", types.RoleSupporting, "male")
	mp := testutil.SeedModulePlan(t, h.ctx, h.deps.DB, wf.ID, 1)
	ep := testutil.SeedEpisodePlan(t, h.ctx, h.deps.DB, mp, 1, types.EpisodeTypeDialogue, claire.ID, hugo.ID)
	h.ai.queue(prompts.PromptEpisodeDialogue, dialogueJSON(t, "Claire", "Hugo", "Narrator"))

	_, err := h.run(types.StageEpisodeContent, wf, "")
	if !errors.Is(err, apperr.ErrGenerationParse) {
		t.Fatalf("want parse error got %v", err)
	}
	if n := len(h.ai.promptsFor(prompts.PromptEpisodeDialogue)); n != h.deps.Config.ContentAttempts {
		t.Fatalf("attempts: want %d got %d", h.deps.Config.ContentAttempts, n)
	}
	if got := h.reload(ep); got.ContentStatus != types.StatusFailed || got.ContentError == "" {
		t.Fatalf("content status: %s %q", got.ContentStatus, got.ContentError)
	}
	modules, _ := h.deps.Repos.ModulePlan.GetByWorkflowID(h.ctx, nil, wf.ID)
	if len(modules) != 1 || modules[0].Status != types.StatusFailed || !strings.HasPrefix(modules[0].ErrorMessage, ep.Ref()+": ") {
		t.Fatalf("module plan not marked failed: %+v", modules)
	}
	if rows, _ := h.deps.Repos.EpisodeContent.GetByWorkflowID(h.ctx, nil, wf.ID); len(rows) != 0 {
		t.Fatalf("invalid content persisted")
	}
}

func TestEpisodeContentGeneratorNeedsPlans(t *testing.T) {
	h := newHarness(t)
	wf := h.workflow(1, 2)
	h.completeBlueprint(wf, "Se présenter")
	h.character(wf, "Claire", types.RoleProtagonist, "female")
	h.character(wf, "Hugo", types.RoleSupporting, "male")

	if _, err := h.gens[types.StageEpisodeContent].Units(h.ctx, wf, ""); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("want configuration error got %v", err)
	}
}

func TestFitBudgetKeepsMostRecent(t *testing.T) {
	lines := []string{"aaaa", "bbbbbbbb", "cc"}
	if got := fitBudget(lines, EstimateCounter{}, 4); got != "bbbbbbbb\ncc" {
		t.Fatalf("fitBudget: got %q", got)
	}
	if got := fitBudget(lines, EstimateCounter{}, 100); got != strings.Join(lines, "\n") {
		t.Fatalf("fitBudget under budget: got %q", got)
	}
	if got := fitBudget(lines, EstimateCounter{}, 0); got != "" {
		t.Fatalf("fitBudget zero budget: got %q", got)
	}
}
