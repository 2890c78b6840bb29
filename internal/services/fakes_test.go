package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/storyforge-backend/internal/data/repos"
	"github.com/yungbote/storyforge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/content"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/prompts"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/steps"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/voices"
	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
	"github.com/yungbote/storyforge-backend/internal/realtime/bus"
)

// scriptedAI answers text prompts by name; the last queued response repeats.
type scriptedAI struct {
	mu        sync.Mutex
	text      map[prompts.PromptName][]string
	calls     map[prompts.PromptName]int
	seen      []prompts.Prompt
	png       []byte
	imageFail bool
	onText    func(name prompts.PromptName)
	audio     []steps.AudioRequest
	blobs     *memBlobs
}

func newScriptedAI(t *testing.T, blobs *memBlobs) *scriptedAI {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return &scriptedAI{
		text:  map[prompts.PromptName][]string{},
		calls: map[prompts.PromptName]int{},
		png:   buf.Bytes(),
		blobs: blobs,
	}
}

func (f *scriptedAI) queue(name prompts.PromptName, responses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text[name] = append(f.text[name], responses...)
}

// replace drops earlier responses for name.
func (f *scriptedAI) replace(name prompts.PromptName, responses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text[name] = responses
	f.calls[name] = 0
}

func (f *scriptedAI) GenerateText(ctx context.Context, p prompts.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := prompts.PromptName(p.Name)
	f.seen = append(f.seen, p)
	if f.onText != nil {
		f.onText(name)
	}
	q := f.text[name]
	i := f.calls[name]
	f.calls[name]++
	if len(q) == 0 {
		return "", apperr.Newf(apperr.ErrExternalService, "scripted.text", "no response for %s", name)
	}
	if i >= len(q) {
		i = len(q) - 1
	}
	return q[i], nil
}

func (f *scriptedAI) GenerateImage(ctx context.Context, prompt string, refs []string) (steps.ImageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.imageFail {
		return steps.ImageResult{}, apperr.Newf(apperr.ErrExternalService, "scripted.image", "refused")
	}
	return steps.ImageResult{Data: f.png, MimeType: "image/png"}, nil
}

func (f *scriptedAI) GenerateAudio(ctx context.Context, req steps.AudioRequest) (steps.AudioResult, error) {
	f.mu.Lock()
	f.audio = append(f.audio, req)
	f.mu.Unlock()
	url, err := f.blobs.Upload(ctx, req.Key, []byte("RIFF"), "audio/wav")
	if err != nil {
		return steps.AudioResult{}, err
	}
	return steps.AudioResult{URL: url, StorageKey: req.Key, MimeType: "audio/wav"}, nil
}

func (f *scriptedAI) promptsFor(name prompts.PromptName) []prompts.Prompt {
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

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func (b *memBlobs) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.objects == nil {
		b.objects = map[string][]byte{}
	}
	b.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (b *memBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[key]; !ok {
		return errors.New("no such object")
	}
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	svc    CourseGenerationService
	repos  repos.Set
	ai     *scriptedAI
	blobs  *memBlobs
	bus    *bus.MemoryBus
	locker WorkflowLocker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	table, err := voices.Default(log)
	require.NoError(t, err)

	blobs := &memBlobs{}
	ai := newScriptedAI(t, blobs)
	set := repos.NewSet(db, log)
	deps := steps.Deps{
		DB:     db,
		Log:    log,
		Repos:  set,
		AI:     ai,
		Blobs:  blobs,
		Voices: table,
	}
	gens, err := steps.NewGenerators(deps)
	require.NoError(t, err)
	linker, err := steps.NewVocabularyLinker(deps)
	require.NoError(t, err)

	events := &bus.MemoryBus{}
	locker := NewLocalWorkflowLocker()
	svc := NewCourseGenerationService(
		db, log, set, gens, linker,
		NewCatalogPublisher(log, set),
		locker,
		NewWorkflowNotifier(events, log),
		blobs,
		CourseGenerationConfig{},
	)
	return &fixture{
		t:      t,
		ctx:    context.Background(),
		svc:    svc,
		repos:  set,
		ai:     ai,
		blobs:  blobs,
		bus:    events,
		locker: locker,
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func blueprintJSON(t *testing.T, modules int) string {
	t.Helper()
	resp := content.BlueprintResponse{
		Title:       "Un été à Lyon",
		Description: "A summer course.",
		Setting:     "Lyon",
		Premise:     "Two neighbours open a bakery.",
		Characters: []content.CharacterSeed{
			{Name: "Claire", Role: "protagonist", Gender: "female", AgeRange: "20s", PersonalityTraits: []string{"cheerful"}, Background: "Baker."},
			{Name: "Hugo", Role: "supporting", Gender: "male", AgeRange: "30s", PersonalityTraits: []string{"dry"}, Background: "Neighbour."},
		},
		GrammarRules: []content.GrammarRuleSeed{
			{Slug: "etre-present", Title: "Être au présent", Explanation: "Je suis, tu es."},
			{Slug: "passe-compose", Title: "Passé composé", Explanation: "J'ai mangé."},
		},
	}
	for i := 1; i <= modules; i++ {
		resp.Modules = append(resp.Modules, content.BlueprintModule{
			Number:       i,
			Topic:        "Topic " + string(rune('A'+i-1)),
			PlotArcPoint: "arc",
			GrammarRules: []string{"etre-present"},
		})
	}
	return mustJSON(t, resp)
}

func modulePlanJSON(t *testing.T, title string, outlines int) string {
	t.Helper()
	resp := content.ModulePlanResponse{
		Title:       title,
		Theme:       "daily life",
		Description: "Meeting the neighbours.",
		Objectives:  []string{"greet"},
		PlotSummary: title + " happens.",
	}
	for i := 0; i < outlines; i++ {
		resp.Episodes = append(resp.Episodes, content.EpisodeOutline{
			Title:            title + " episode",
			SceneDescription: "At the bakery.",
			Type:             "DIALOGUE",
			Vocabulary:       []string{"bonjour", "croissant"},
			Grammar:          []string{"etre-present"},
			Characters:       []string{"Claire", "Hugo"},
			PlotPoints:       []string{"they meet"},
		})
	}
	return mustJSON(t, resp)
}

func dialogueJSON(t *testing.T) string {
	t.Helper()
	return mustJSON(t, content.DialogueResponse{
		Lines: []content.DialogueLine{
			{Speaker: "Claire", Text: "Bonjour Hugo ! Un croissant ?", Translation: "Hello Hugo! A croissant?"},
			{Speaker: "Hugo", Text: "Bonjour Claire, je suis content.", Translation: "Hello Claire, I am happy."},
		},
		Summary:          "Claire offers Hugo a croissant.",
		DevelopmentNotes: []content.CharacterNote{{Character: "Claire", Note: "Claire is generous."}},
	})
}

func exerciseOf(typ string) content.Exercise {
	switch typ {
	case content.ExerciseMultipleChoice:
		return content.Exercise{Type: typ, Instruction: "Choose", Question: "Comment dit-on hello?", Options: []content.Option{{Text: "bonjour", IsCorrect: true}, {Text: "merci"}}}
	case content.ExerciseFillInBlank:
		return content.Exercise{Type: typ, Instruction: "Complete", Sentence: "Je ___ Claire.", CorrectAnswer: "suis"}
	case content.ExerciseSentenceScramble:
		return content.Exercise{Type: typ, Instruction: "Order", TargetSentence: "Je suis Claire", ScrambledWords: []string{"Claire", "Je", "suis"}}
	case content.ExerciseClozeReading:
		return content.Exercise{Type: typ, Instruction: "Read", Passage: "Je {{1}} Claire.", Blanks: []content.ClozeBlank{{ID: "1", CorrectAnswer: "suis"}}}
	default:
		return content.Exercise{Type: typ, Instruction: "Match", Pairs: []content.MatchPair{{Left: "pain", Right: "bread"}, {Left: "croissant", Right: "croissant"}}}
	}
}

func exercisesJSON(t *testing.T) string {
	t.Helper()
	var set []content.Exercise
	for _, c := range content.ExerciseComposition {
		for i := 0; i < c.Count; i++ {
			set = append(set, exerciseOf(c.Type))
		}
	}
	return mustJSON(t, content.ExerciseSetResponse{Exercises: set})
}

// scriptFullRun queues a valid response for every prompt of a run with the given module count.
func (f *fixture) scriptFullRun(modules int) {
	f.t.Helper()
	f.ai.queue(prompts.PromptBlueprint, blueprintJSON(f.t, modules))
	for i := 1; i <= modules; i++ {
		f.ai.queue(prompts.PromptModulePlan, modulePlanJSON(f.t, "Module "+string(rune('0'+i)), 1))
	}
	f.ai.queue(prompts.PromptEpisodeDialogue, dialogueJSON(f.t))
	f.ai.queue(prompts.PromptScenePrompts, mustJSON(f.t, content.ScenePromptsResponse{
		Prompts: []string{"A bakery at dawn", "Croissants on a tray", "A street in Lyon"},
	}))
	f.ai.queue(prompts.PromptCharacterAppearance, "Short dark hair, round glasses, flour on the apron.")
	f.ai.queue(prompts.PromptExercises, exercisesJSON(f.t))
}

func (f *fixture) start(cfg WorkflowConfig) *types.Workflow {
	f.t.Helper()
	wf, err := f.svc.Start(f.ctx, cfg)
	require.NoError(f.t, err)
	return wf
}

func (f *fixture) advance(wf *types.Workflow) *types.Workflow {
	f.t.Helper()
	got, err := f.svc.Advance(f.ctx, wf.ID)
	require.NoError(f.t, err)
	return got
}

func (f *fixture) events(name string) int {
	n := 0
	for _, m := range f.bus.Messages() {
		if m.Event == name {
			n++
		}
	}
	return n
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
