package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/yungbote/storyforge-backend/internal/data/repos"
	"github.com/yungbote/storyforge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/jobs/orchestrator"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/content"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/prompts"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/voices"
	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
)

// fakeAI replays queued text responses per prompt name; the last one repeats.
type fakeAI struct {
	mu        sync.Mutex
	text      map[prompts.PromptName][]string
	calls     map[prompts.PromptName]int
	seen      []prompts.Prompt
	imageFail func(prompt string, refs []string) bool
	imageRefs [][]string
	images    []string
	audioErr  error
	audio     []AudioRequest
	png       []byte
}

func newFakeAI(t *testing.T) *fakeAI {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("png: %v", err)
	}
	return &fakeAI{
		text:  map[prompts.PromptName][]string{},
		calls: map[prompts.PromptName]int{},
		png:   buf.Bytes(),
	}
}

func (f *fakeAI) queue(name prompts.PromptName, responses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text[name] = append(f.text[name], responses...)
}

func (f *fakeAI) GenerateText(ctx context.Context, p prompts.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := prompts.PromptName(p.Name)
	f.seen = append(f.seen, p)
	q := f.text[name]
	i := f.calls[name]
	f.calls[name]++
	if len(q) == 0 {
		return "", apperr.Newf(apperr.ErrExternalService, "fake.text", "no response queued for %s", name)
	}
	if i >= len(q) {
		i = len(q) - 1
	}
	return q[i], nil
}

func (f *fakeAI) GenerateImage(ctx context.Context, prompt string, refs []string) (ImageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageRefs = append(f.imageRefs, refs)
	f.images = append(f.images, prompt)
	if f.imageFail != nil && f.imageFail(prompt, refs) {
		return ImageResult{}, apperr.Newf(apperr.ErrExternalService, "fake.image", "refused")
	}
	return ImageResult{Data: f.png, MimeType: "image/png"}, nil
}

func (f *fakeAI) GenerateAudio(ctx context.Context, req AudioRequest) (AudioResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, req)
	if f.audioErr != nil {
		return AudioResult{}, f.audioErr
	}
	return AudioResult{URL: "https://cdn.test/" + req.Key, StorageKey: req.Key, MimeType: "audio/wav"}, nil
}

func (f *fakeAI) promptsFor(name prompts.PromptName) []prompts.Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []prompts.Prompt
	for _, p := range f.seen {
		if p.Name == string(name) {
			out = append(out, p)
		}
	}
	return out
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func (b *fakeBlobs) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.objects == nil {
		b.objects = map[string][]byte{}
	}
	b.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (b *fakeBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[key]; !ok {
		return errors.New("no such object")
	}
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	deps   Deps
	ai     *fakeAI
	blobs  *fakeBlobs
	gens   map[types.Stage]Generator
	runner *orchestrator.Runner
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	table, err := voices.Default(log)
	if err != nil {
		t.Fatalf("voices: %v", err)
	}
	ai := newFakeAI(t)
	blobs := &fakeBlobs{}
	deps := Deps{
		DB:     db,
		Log:    log,
		Repos:  repos.NewSet(db, log),
		AI:     ai,
		Blobs:  blobs,
		Voices: table,
	}
	gens, err := NewGenerators(deps)
	if err != nil {
		t.Fatalf("NewGenerators: %v", err)
	}
	return &harness{
		t:      t,
		ctx:    context.Background(),
		deps:   deps.withDefaults(),
		ai:     ai,
		blobs:  blobs,
		gens:   gens,
		runner: orchestrator.NewRunner(nil, log),
	}
}

func (h *harness) run(stage types.Stage, wf *types.Workflow, feedback string) (*orchestrator.StageReport, error) {
	h.t.Helper()
	units, err := h.gens[stage].Units(h.ctx, wf, feedback)
	if err != nil {
		return nil, err
	}
	return h.runner.Run(h.ctx, stage, units)
}

// workflow seeds a workflow with an empty blueprint.
func (h *harness) workflow(modules, episodes int) *types.Workflow {
	h.t.Helper()
	wf := testutil.SeedWorkflow(h.t, h.ctx, h.deps.DB, "fr", "A1", modules, episodes)
	if _, err := h.deps.Repos.Blueprint.Create(h.ctx, nil, &types.Blueprint{WorkflowID: wf.ID, Status: types.StatusPending}); err != nil {
		h.t.Fatalf("seed blueprint: %v", err)
	}
	return wf
}

func (h *harness) completeBlueprint(wf *types.Workflow, topics ...string) *types.Blueprint {
	h.t.Helper()
	bp, err := h.deps.Repos.Blueprint.GetByWorkflowID(h.ctx, nil, wf.ID)
	if err != nil {
		h.t.Fatalf("blueprint: %v", err)
	}
	bp.Title = "Un été à Lyon"
	bp.Setting = "Lyon"
	bp.Premise = "Two neighbours open a bakery."
	for _, topic := range topics {
		bp.ModuleTopics = append(bp.ModuleTopics, topic)
		bp.PlotArc = append(bp.PlotArc, "arc "+topic)
		bp.GrammarByModule = append(bp.GrammarByModule, []string{"passe-compose"})
	}
	bp.Status = types.StatusCompleted
	if err := h.deps.Repos.Blueprint.Save(h.ctx, nil, bp); err != nil {
		h.t.Fatalf("save blueprint: %v", err)
	}
	return bp
}

func (h *harness) character(wf *types.Workflow, name, role, gender string) *types.Character {
	h.t.Helper()
	c := testutil.SeedCharacter(h.t, h.ctx, h.deps.DB, wf.ID, name, gender)
	c.Role = role
	c.AgeRange = "30s"
	if err := h.deps.Repos.Character.Save(h.ctx, nil, c); err != nil {
		h.t.Fatalf("save character: %v", err)
	}
	return c
}

func (h *harness) content(ep *types.EpisodePlan, turns []types.DialogueTurn, scenes ...string) *types.EpisodeContent {
	h.t.Helper()
	row := &types.EpisodeContent{
		WorkflowID:    ep.WorkflowID,
		EpisodePlanID: ep.ID,
		Turns:         turns,
		Text:          content.FlattenDialogue(turns),
		Summary:       "They talk.",
		ScenePrompts:  scenes,
		Status:        types.StatusCompleted,
	}
	if len(turns) == 0 {
		row.Text = "Il était une fois une boulangerie à Lyon où Claire travaillait chaque matin."
	}
	if _, err := h.deps.Repos.EpisodeContent.Create(h.ctx, nil, row); err != nil {
		h.t.Fatalf("seed content: %v", err)
	}
	if err := h.deps.Repos.EpisodePlan.SetUnitStatus(h.ctx, nil, ep.ID, repos.UnitContent, types.StatusCompleted, ""); err != nil {
		h.t.Fatalf("content status: %v", err)
	}
	return row
}

func (h *harness) reload(ep *types.EpisodePlan) *types.EpisodePlan {
	h.t.Helper()
	got, err := h.deps.Repos.EpisodePlan.GetByID(h.ctx, nil, ep.ID)
	if err != nil {
		h.t.Fatalf("reload plan: %v", err)
	}
	return got
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func exerciseOf(typ string) content.Exercise {
	switch typ {
	case content.ExerciseMultipleChoice:
		return content.Exercise{Type: typ, Instruction: "Choose", Question: "Comment dit-on hello?", Options: []content.Option{{Text: "bonjour", IsCorrect: true}, {Text: "merci"}}}
	case content.ExerciseFillInBlank:
		return content.Exercise{Type: typ, Instruction: "Use the passé composé", Sentence: "J'___ mangé.", CorrectAnswer: "ai"}
	case content.ExerciseSentenceScramble:
		return content.Exercise{Type: typ, Instruction: "Order", TargetSentence: "Je suis Claire", ScrambledWords: []string{"Claire", "Je", "suis"}}
	case content.ExerciseClozeReading:
		return content.Exercise{Type: typ, Instruction: "Read", Passage: "Je {{1}} Claire.", Blanks: []content.ClozeBlank{{ID: "1", CorrectAnswer: "suis"}}}
	default:
		return content.Exercise{Type: typ, Instruction: "Match", Pairs: []content.MatchPair{{Left: "pain", Right: "bread"}, {Left: "croissant", Right: "croissant"}}}
	}
}

func exerciseSet() []content.Exercise {
	var out []content.Exercise
	for _, c := range content.ExerciseComposition {
		for i := 0; i < c.Count; i++ {
			out = append(out, exerciseOf(c.Type))
		}
	}
	return out
}
