package voices

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/storyforge-backend/internal/normalization"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

const voicesEnv = "COURSEGEN_VOICES_YAML"

//go:embed voices.yaml
var voicesFS embed.FS

type Voice struct {
	Name   string `yaml:"name"`
	Gender string `yaml:"gender"`
}

// Selection is the voice set for one language. Voices is ordered.
type Selection struct {
	Voices   []Voice  `yaml:"voices"`
	Pair     []string `yaml:"pair"`
	Narrator string   `yaml:"narrator"`
}

type Table struct {
	Defaults  Selection            `yaml:"defaults"`
	Languages map[string]Selection `yaml:"languages"`
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the embedded table, or the file named by COURSEGEN_VOICES_YAML.
func Default(log *logger.Logger) (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = load(log)
	})
	return defaultTable, defaultErr
}

func load(log *logger.Logger) (*Table, error) {
	if path := strings.TrimSpace(os.Getenv(voicesEnv)); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			t, perr := Parse(data)
			if perr == nil {
				return t, nil
			}
			err = perr
		}
		if log != nil {
			log.Warn("voice table override unusable; using embedded table", "path", path, "error", err)
		}
	}
	data, err := voicesFS.ReadFile("voices.yaml")
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse voice table: %w", err)
	}
	check := func(scope string, s Selection) error {
		if len(s.Voices) == 0 {
			return fmt.Errorf("voice table %s: no voices", scope)
		}
		known := map[string]bool{}
		for _, v := range s.Voices {
			if InferGender(v.Gender) == "" {
				return fmt.Errorf("voice table %s: voice %q has gender %q", scope, v.Name, v.Gender)
			}
			known[v.Name] = true
		}
		if len(s.Pair) != 2 {
			return fmt.Errorf("voice table %s: pair needs 2 voices, got %d", scope, len(s.Pair))
		}
		for _, name := range append(append([]string{}, s.Pair...), s.Narrator) {
			if !known[name] {
				return fmt.Errorf("voice table %s: unknown voice %q", scope, name)
			}
		}
		return nil
	}
	if err := check("defaults", t.Defaults); err != nil {
		return nil, err
	}
	for lang, s := range t.Languages {
		if err := check(lang, s); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (t *Table) selection(lang string) Selection {
	if s, ok := t.Languages[strings.ToLower(strings.TrimSpace(lang))]; ok {
		return s
	}
	return t.Defaults
}

// DefaultPair is the fallback voice for dialogue speakers by position.
func (t *Table) DefaultPair(lang string) [2]string {
	s := t.selection(lang)
	return [2]string{s.Pair[0], s.Pair[1]}
}

func (t *Table) NarratorVoice(lang string) string {
	return t.selection(lang).Narrator
}

// InferGender maps free-form gender text to "female", "male" or "".
func InferGender(raw string) string {
	switch normalization.ParseInputString(raw) {
	case "f", "female", "woman", "girl", "feminine", "femme", "femenino", "weiblich":
		return "female"
	case "m", "male", "man", "boy", "masculine", "homme", "masculino", "männlich":
		return "male"
	default:
		return ""
	}
}

var (
	femaleWords = map[string]bool{
		"she": true, "her": true, "hers": true, "herself": true, "woman": true, "women": true,
		"girl": true, "lady": true, "mother": true, "grandmother": true, "daughter": true,
		"sister": true, "wife": true, "aunt": true, "female": true,
	}
	maleWords = map[string]bool{
		"he": true, "him": true, "his": true, "himself": true, "man": true, "men": true,
		"boy": true, "gentleman": true, "father": true, "grandfather": true, "son": true,
		"brother": true, "husband": true, "uncle": true, "male": true,
	}
)

// InferGenderFromText guesses a gender from pronouns and nouns in free text.
// It returns "" when the text is silent or the counts tie.
func InferGenderFromText(text string) string {
	female, male := 0, 0
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		switch {
		case femaleWords[w]:
			female++
		case maleWords[w]:
			male++
		}
	}
	switch {
	case female > male:
		return "female"
	case male > female:
		return "male"
	default:
		return ""
	}
}

// Assign picks a character voice from the language's ordered list: the first
// voice of the character's gender, or the first voice when gender is unknown
// or unmatched. The description is read only when gender is unset.
func Assign(t *Table, lang, gender, description string) string {
	list := t.selection(lang).Voices
	if len(list) == 0 {
		return ""
	}
	g := InferGender(gender)
	if strings.TrimSpace(gender) == "" {
		g = InferGenderFromText(description)
	}
	if g != "" {
		for _, v := range list {
			if InferGender(v.Gender) == g {
				return v.Name
			}
		}
	}
	return list[0].Name
}
