package validation

import (
	"fmt"
	"testing"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/content"
)

func hasCode(r Report, code string) bool {
	for _, i := range r.Issues {
		if i.Code == code {
			return true
		}
	}
	return false
}

func TestValidateDialogue(t *testing.T) {
	ok := ValidateDialogue([]types.DialogueTurn{{Speaker: "Claire", Text: "Bonjour"}, {Speaker: "Hugo", Text: "Salut"}})
	if !ok.IsValid() || len(ok.Issues) != 0 {
		t.Fatalf("two speakers: want valid got %v", ok.Issues)
	}

	if r := ValidateDialogue(nil); r.IsValid() || !hasCode(r, "empty_dialogue") {
		t.Fatalf("empty: want invalid got %v", r.Issues)
	}

	three := ValidateDialogue([]types.DialogueTurn{{Speaker: "A", Text: "x"}, {Speaker: "B", Text: "y"}, {Speaker: "C", Text: "z"}})
	if three.IsValid() || !hasCode(three, "too_many_speakers") {
		t.Fatalf("three speakers: want invalid got %v", three.Issues)
	}

	narr := ValidateDialogue([]types.DialogueTurn{{Speaker: "narrator", Text: "Once"}})
	if narr.IsValid() || !hasCode(narr, "narrator_speaker") {
		t.Fatalf("narrator: want invalid got %v", narr.Issues)
	}

	blank := ValidateDialogue([]types.DialogueTurn{{Speaker: " ", Text: "x"}, {Speaker: "A", Text: ""}})
	if blank.IsValid() || !hasCode(blank, "blank_speaker") || !hasCode(blank, "blank_text") {
		t.Fatalf("blank fields: want invalid got %v", blank.Issues)
	}

	drift := ValidateDialogue([]types.DialogueTurn{{Speaker: "Marie", Text: "x"}, {Speaker: "Marie-Claire", Text: "y"}})
	if !drift.IsValid() || !hasCode(drift, "speaker_name_drift") {
		t.Fatalf("drift: want valid with warning got %v", drift.Issues)
	}
}

func TestValidateStory(t *testing.T) {
	if r := ValidateStory("   "); r.IsValid() {
		t.Fatalf("blank story: want invalid")
	}
	short := ValidateStory("Il pleut.")
	if !short.IsValid() || !hasCode(short, "short_story") {
		t.Fatalf("short story: want valid with warning got %v", short.Issues)
	}
}

func exercise(typ string) content.Exercise {
	switch typ {
	case content.ExerciseMultipleChoice:
		return content.Exercise{Type: typ, Instruction: "Choose", Question: "Q?", Options: []content.Option{{Text: "a", IsCorrect: true}, {Text: "b"}}}
	case content.ExerciseFillInBlank:
		return content.Exercise{Type: typ, Instruction: "Fill", Sentence: "Je ___ Claire.", CorrectAnswer: "suis"}
	case content.ExerciseSentenceScramble:
		return content.Exercise{Type: typ, Instruction: "Order", TargetSentence: "Je suis Claire", ScrambledWords: []string{"Claire", "Je", "suis"}}
	case content.ExerciseClozeReading:
		return content.Exercise{Type: typ, Instruction: "Read", Passage: "Je {{1}} Claire.", Blanks: []content.ClozeBlank{{ID: "1", CorrectAnswer: "suis"}}}
	default:
		return content.Exercise{Type: typ, Instruction: "Match", Pairs: []content.MatchPair{{Left: "chat", Right: "cat"}, {Left: "chien", Right: "dog"}}}
	}
}

// ValidSet returns a 4/4/2/1/2 exercise set that passes validation.
func validSet() []content.Exercise {
	var out []content.Exercise
	for _, c := range content.ExerciseComposition {
		for i := 0; i < c.Count; i++ {
			out = append(out, exercise(c.Type))
		}
	}
	return out
}

func TestValidateExercisesComposition(t *testing.T) {
	if r := ValidateExercises(validSet()); !r.IsValid() {
		t.Fatalf("valid set: %s", r.Summary())
	}

	set := validSet()
	set[0] = exercise(content.ExerciseMatching)
	r := ValidateExercises(set)
	if r.IsValid() || !hasCode(r, "exercise_composition") {
		t.Fatalf("wrong mix: want composition error got %v", r.Issues)
	}

	if r := ValidateExercises(validSet()[:12]); r.IsValid() || !hasCode(r, "exercise_count") {
		t.Fatalf("12 items: want count error got %v", r.Issues)
	}

	unknown := append(validSet()[:12], content.Exercise{Type: "essay", Instruction: "Write"})
	if r := ValidateExercises(unknown); r.IsValid() || !hasCode(r, "exercise_type") {
		t.Fatalf("unknown type: want type error got %v", r.Issues)
	}
}

func TestValidateExerciseFields(t *testing.T) {
	cases := map[string]func(*content.Exercise){
		"mc_correct":     func(e *content.Exercise) { e.Options[1].IsCorrect = true },
		"fib_sentence":   func(e *content.Exercise) { e.Sentence = "no blank" },
		"scramble_words": func(e *content.Exercise) { e.ScrambledWords = nil },
		"cloze_blank_id": func(e *content.Exercise) { e.Blanks = append(e.Blanks, e.Blanks[0]) },
		"matching_pairs": func(e *content.Exercise) { e.Pairs = e.Pairs[:1] },
	}
	idx := map[string]int{"mc_correct": 0, "fib_sentence": 4, "scramble_words": 8, "cloze_blank_id": 10, "matching_pairs": 11}
	for code, mutate := range cases {
		set := validSet()
		mutate(&set[idx[code]])
		r := ValidateExercises(set)
		if r.IsValid() || !hasCode(r, code) {
			t.Fatalf("%s: want issue got %s", code, fmt.Sprint(r.Issues))
		}
	}
}
