package prompts

import (
	"strings"
	"testing"
)

func TestBuildBlueprint(t *testing.T) {
	p, err := Build(PromptBlueprint, Input{
		LanguageCode:      "fr",
		LanguageName:      "French",
		Level:             "A1",
		ModuleCount:       2,
		EpisodesPerModule: 1,
		Feedback:          "Make it set in Lyon.",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !p.JSON() || p.SchemaName != "course_blueprint" {
		t.Fatalf("want json prompt course_blueprint, got %q %q", p.Format, p.SchemaName)
	}
	for _, want := range []string{"exactly 2 entries", "Define 10-15 rules", "Make it set in Lyon.", `"characters"`} {
		if !strings.Contains(p.User, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, p.User)
		}
	}
	if strings.Contains(p.User, "REJECTED") {
		t.Fatalf("retry block rendered without issues")
	}
}

func TestBuildValidates(t *testing.T) {
	if _, err := Build(PromptBlueprint, Input{LanguageCode: "fr", Level: "A1"}); err == nil {
		t.Fatalf("want error for zero ModuleCount")
	}
	if _, err := Build(PromptName("nope"), Input{}); err == nil {
		t.Fatalf("want error for unknown prompt")
	}
}

func TestPlainPromptHasNoSchema(t *testing.T) {
	p, err := Build(PromptCharacterAppearance, Input{CharacterName: "Claire", CharacterGender: "female"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.JSON() || p.Schema != nil || strings.Contains(p.User, "schema") {
		t.Fatalf("plain prompt carries a schema: %+v", p)
	}
	if !strings.Contains(p.System, "2 to 3 sentences") || !strings.Contains(p.User, "2 to 3 sentences") {
		t.Fatalf("appearance prompt must ask for 2 to 3 sentences")
	}
}

func TestSchemasAreInlined(t *testing.T) {
	_, s, ok := Schema(PromptExercises)
	if !ok {
		t.Fatalf("missing exercise schema")
	}
	if _, ok := s["$defs"]; ok {
		t.Fatalf("schema should not use references")
	}
	props, _ := s["properties"].(map[string]any)
	if _, ok := props["exercises"]; !ok {
		t.Fatalf("exercise schema missing exercises property: %v", s)
	}
}

func TestExercisePromptRendersPlaceholderLiteral(t *testing.T) {
	p, err := Build(PromptExercises, Input{EpisodeText: "Claire: Bonjour"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(p.User, "{{id}} placeholders") {
		t.Fatalf("cloze placeholder not rendered literally:\n%s", p.User)
	}
}

func TestFingerprintChangesWithContent(t *testing.T) {
	a := Prompt{Name: "x", Version: 1, User: "a"}
	b := Prompt{Name: "x", Version: 1, User: "b"}
	if a.Fingerprint() == b.Fingerprint() || a.Fingerprint() != a.Fingerprint() {
		t.Fatalf("fingerprint not content addressed")
	}
}
