package validation

import (
	"fmt"
	"strings"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/content"
	"github.com/yungbote/storyforge-backend/internal/normalization"
)

type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Issue is a content-quality finding. Issues are collected, never returned as errors.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) add(sev Severity, code, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: sev, Code: code, Message: fmt.Sprintf(format, args...)})
}

// IsValid is true when no issue is ERROR or CRITICAL.
func (r Report) IsValid() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError || i.Severity == SeverityCritical {
			return false
		}
	}
	return true
}

// Blocking returns the ERROR and CRITICAL issues.
func (r Report) Blocking() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity != SeverityWarning {
			out = append(out, i)
		}
	}
	return out
}

// Summary renders issues one per line for prompt feedback and error messages.
func (r Report) Summary() string {
	lines := make([]string, 0, len(r.Issues))
	for _, i := range r.Issues {
		lines = append(lines, fmt.Sprintf("- [%s] %s: %s", i.Severity, i.Code, i.Message))
	}
	return strings.Join(lines, "\n")
}

func (r Report) Records() []types.IssueRecord {
	out := make([]types.IssueRecord, 0, len(r.Issues))
	for _, i := range r.Issues {
		out = append(out, types.IssueRecord{Severity: string(i.Severity), Code: i.Code, Message: i.Message})
	}
	return out
}

func (r *Report) Merge(other Report) {
	r.Issues = append(r.Issues, other.Issues...)
}

const (
	maxDialogueSpeakers = 2
	minStoryLength      = 100
)

func ValidateDialogue(turns []types.DialogueTurn) Report {
	var r Report
	if len(turns) == 0 {
		r.add(SeverityCritical, "empty_dialogue", "dialogue has no lines")
		return r
	}

	var speakers []string
	seen := map[string]bool{}
	for i, t := range turns {
		speaker := strings.TrimSpace(t.Speaker)
		if speaker == "" {
			r.add(SeverityError, "blank_speaker", "line %d has no speaker", i+1)
		}
		if strings.TrimSpace(t.Text) == "" {
			r.add(SeverityError, "blank_text", "line %d has no text", i+1)
		}
		key := normalization.ParseInputString(speaker)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		speakers = append(speakers, speaker)
		if strings.EqualFold(speaker, types.NarratorName) {
			r.add(SeverityError, "narrator_speaker", "dialogue must not use a %q speaker", types.NarratorName)
		}
	}

	if len(speakers) > maxDialogueSpeakers {
		r.add(SeverityError, "too_many_speakers", "dialogue has %d speakers (%s), at most %d allowed",
			len(speakers), strings.Join(speakers, ", "), maxDialogueSpeakers)
	}

	for i := 0; i < len(speakers); i++ {
		for j := i + 1; j < len(speakers); j++ {
			a := normalization.ParseInputString(speakers[i])
			b := normalization.ParseInputString(speakers[j])
			if strings.Contains(a, b) || strings.Contains(b, a) {
				r.add(SeverityWarning, "speaker_name_drift", "speakers %q and %q look like the same character", speakers[i], speakers[j])
			}
		}
	}
	return r
}

// ValidateSpeakers warns about dialogue speakers that are not among the assigned names.
func ValidateSpeakers(turns []types.DialogueTurn, assigned []string) Report {
	var r Report
	allowed := map[string]bool{}
	for _, n := range assigned {
		allowed[normalization.ParseInputString(n)] = true
	}
	reported := map[string]bool{}
	for _, t := range turns {
		key := normalization.ParseInputString(t.Speaker)
		if key == "" || allowed[key] || reported[key] {
			continue
		}
		reported[key] = true
		r.add(SeverityWarning, "unassigned_speaker", "speaker %q is not one of %s", t.Speaker, strings.Join(assigned, ", "))
	}
	return r
}

func ValidateStory(text string) Report {
	var r Report
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		r.add(SeverityCritical, "empty_story", "story text is blank")
		return r
	}
	if n := len([]rune(trimmed)); n < minStoryLength {
		r.add(SeverityWarning, "short_story", "story is only %d characters", n)
	}
	return r
}

func ValidateSummary(summary string) Report {
	var r Report
	if strings.TrimSpace(summary) == "" {
		r.add(SeverityError, "missing_summary", "episode summary is blank")
	}
	return r
}

// ValidateExercises checks the fixed composition and each exercise's fields.
func ValidateExercises(set []content.Exercise) Report {
	var r Report
	if len(set) != content.ExerciseCount {
		r.add(SeverityError, "exercise_count", "want %d exercises, got %d", content.ExerciseCount, len(set))
	}
	counts := map[string]int{}
	for i, ex := range set {
		counts[ex.Type]++
		validateExercise(&r, i+1, ex)
	}
	for _, c := range content.ExerciseComposition {
		if counts[c.Type] != c.Count {
			r.add(SeverityError, "exercise_composition", "want %d %s, got %d", c.Count, c.Type, counts[c.Type])
		}
		delete(counts, c.Type)
	}
	for typ, n := range counts {
		r.add(SeverityError, "exercise_type", "%d exercises have unknown type %q", n, typ)
	}
	return r
}

func validateExercise(r *Report, n int, ex content.Exercise) {
	if strings.TrimSpace(ex.Instruction) == "" {
		r.add(SeverityWarning, "exercise_instruction", "exercise %d has no instruction", n)
	}
	switch ex.Type {
	case content.ExerciseMultipleChoice:
		if strings.TrimSpace(ex.Question) == "" {
			r.add(SeverityError, "mc_question", "exercise %d: blank question", n)
		}
		if len(ex.Options) < 2 {
			r.add(SeverityError, "mc_options", "exercise %d: want at least 2 options, got %d", n, len(ex.Options))
		}
		correct := 0
		for _, o := range ex.Options {
			if strings.TrimSpace(o.Text) == "" {
				r.add(SeverityError, "mc_option_text", "exercise %d: blank option", n)
			}
			if o.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			r.add(SeverityError, "mc_correct", "exercise %d: want exactly 1 correct option, got %d", n, correct)
		}
	case content.ExerciseFillInBlank:
		if !strings.Contains(ex.Sentence, "___") {
			r.add(SeverityError, "fib_sentence", "exercise %d: sentence has no ___ blank", n)
		}
		if strings.TrimSpace(ex.CorrectAnswer) == "" {
			r.add(SeverityError, "fib_answer", "exercise %d: blank correctAnswer", n)
		}
	case content.ExerciseSentenceScramble:
		if strings.TrimSpace(ex.TargetSentence) == "" {
			r.add(SeverityError, "scramble_target", "exercise %d: blank targetSentence", n)
		}
		if len(ex.ScrambledWords) < 2 {
			r.add(SeverityError, "scramble_words", "exercise %d: want at least 2 scrambled words", n)
		}
	case content.ExerciseClozeReading:
		if strings.TrimSpace(ex.Passage) == "" {
			r.add(SeverityError, "cloze_passage", "exercise %d: blank passage", n)
		}
		if len(ex.Blanks) == 0 {
			r.add(SeverityError, "cloze_blanks", "exercise %d: no blanks", n)
		}
		ids := map[string]bool{}
		for _, b := range ex.Blanks {
			id := strings.TrimSpace(b.ID)
			if id == "" || ids[id] {
				r.add(SeverityError, "cloze_blank_id", "exercise %d: blank ids must be non-empty and unique", n)
			}
			ids[id] = true
			if strings.TrimSpace(b.CorrectAnswer) == "" {
				r.add(SeverityError, "cloze_answer", "exercise %d: blank %q has no correctAnswer", n, b.ID)
			}
		}
	case content.ExerciseMatching:
		if len(ex.Pairs) < 2 {
			r.add(SeverityError, "matching_pairs", "exercise %d: want at least 2 pairs, got %d", n, len(ex.Pairs))
		}
		for _, p := range ex.Pairs {
			if strings.TrimSpace(p.Left) == "" || strings.TrimSpace(p.Right) == "" {
				r.add(SeverityError, "matching_pair", "exercise %d: pair sides must be non-blank", n)
			}
		}
	}
}
