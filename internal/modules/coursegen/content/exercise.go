package content

const (
	ExerciseMultipleChoice   = "multiple_choice"
	ExerciseFillInBlank      = "fill_in_blank"
	ExerciseSentenceScramble = "sentence_scramble"
	ExerciseClozeReading     = "cloze_reading"
	ExerciseMatching         = "matching"
)

// ExerciseComposition is the fixed type mix of every exercise set.
var ExerciseComposition = []struct {
	Type  string
	Count int
}{
	{ExerciseMultipleChoice, 4},
	{ExerciseFillInBlank, 4},
	{ExerciseSentenceScramble, 2},
	{ExerciseClozeReading, 1},
	{ExerciseMatching, 2},
}

const ExerciseCount = 13

type Option struct {
	Text      string `json:"text" jsonschema:"required"`
	IsCorrect bool   `json:"isCorrect" jsonschema:"required"`
}

type ClozeBlank struct {
	ID            string   `json:"id" jsonschema:"required"`
	CorrectAnswer string   `json:"correctAnswer" jsonschema:"required"`
	Options       []string `json:"options,omitempty"`
}

type MatchPair struct {
	Left  string `json:"left" jsonschema:"required"`
	Right string `json:"right" jsonschema:"required"`
}

// Exercise is a tagged union over the five exercise types; only the fields of
// Type are populated.
type Exercise struct {
	Type        string `json:"type" jsonschema:"required,enum=multiple_choice,enum=fill_in_blank,enum=sentence_scramble,enum=cloze_reading,enum=matching"`
	Instruction string `json:"instruction" jsonschema:"required"`

	// multiple_choice
	Question string   `json:"question,omitempty"`
	Options  []Option `json:"options,omitempty"`

	// fill_in_blank
	Sentence          string   `json:"sentence,omitempty" jsonschema:"description=Sentence with ___ marking the blank"`
	CorrectAnswer     string   `json:"correctAnswer,omitempty"`
	AcceptableAnswers []string `json:"acceptableAnswers,omitempty"`

	// sentence_scramble
	TargetSentence string   `json:"targetSentence,omitempty"`
	ScrambledWords []string `json:"scrambledWords,omitempty"`

	// cloze_reading
	Passage string       `json:"passage,omitempty" jsonschema:"description=Passage with {{id}} placeholders"`
	Blanks  []ClozeBlank `json:"blanks,omitempty"`

	// matching
	Pairs []MatchPair `json:"pairs,omitempty"`
}

type ExerciseSetResponse struct {
	Exercises []Exercise `json:"exercises" jsonschema:"required,minItems=13,maxItems=13"`
}
