package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Template struct {
	Name       PromptName
	Version    int
	Format     Format
	SchemaName string
	Schema     func() map[string]any
	System     func(Input) string
	User       func(Input) string
	Validate   Validator
}

var registry = map[PromptName]Template{}

func Register(t Template) {
	registry[t.Name] = t
}

// Build renders a registered prompt. JSON prompts get their response schema appended to the user turn.
func Build(name PromptName, in Input) (Prompt, error) {
	RegisterAll()
	t, ok := registry[name]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", string(name))
	}
	if t.Format == FormatJSON && t.Schema == nil {
		return Prompt{}, fmt.Errorf("prompt %s missing schema", string(name))
	}
	if t.System == nil || t.User == nil {
		return Prompt{}, fmt.Errorf("prompt %s missing system/user renderers", string(name))
	}
	if t.Validate != nil {
		if err := t.Validate(in); err != nil {
			return Prompt{}, fmt.Errorf("%s: %w", string(name), err)
		}
	}

	p := Prompt{
		Name:       string(t.Name),
		Version:    t.Version,
		Format:     t.Format,
		SchemaName: strings.TrimSpace(t.SchemaName),
		System:     strings.TrimSpace(t.System(in)),
		User:       strings.TrimSpace(t.User(in)),
	}
	if t.Schema != nil {
		p.Schema = t.Schema()
		raw, err := json.MarshalIndent(p.Schema, "", "  ")
		if err != nil {
			return Prompt{}, fmt.Errorf("%s schema: %w", string(name), err)
		}
		p.User += "\n\nRespond with a single JSON object matching this schema:\n" + string(raw)
	}
	return p, nil
}

func Schema(name PromptName) (schemaName string, schema map[string]any, ok bool) {
	RegisterAll()
	t, ok := registry[name]
	if !ok || t.Schema == nil {
		return "", nil, false
	}
	return t.SchemaName, t.Schema(), true
}
