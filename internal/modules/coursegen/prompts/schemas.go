package prompts

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/content"
)

// reflectSchema inlines every definition so the schema reads well inside a prompt.
func reflectSchema[T any]() func() map[string]any {
	return func() map[string]any {
		r := jsonschema.Reflector{
			AllowAdditionalProperties:  false,
			DoNotReference:             true,
			RequiredFromJSONSchemaTags: true,
		}
		var v T
		raw, err := json.Marshal(r.Reflect(v))
		if err != nil {
			return map[string]any{"type": "object"}
		}
		out := map[string]any{}
		if err := json.Unmarshal(raw, &out); err != nil {
			return map[string]any{"type": "object"}
		}
		delete(out, "$schema")
		delete(out, "$id")
		return out
	}
}

var (
	BlueprintSchema    = reflectSchema[content.BlueprintResponse]()
	ModulePlanSchema   = reflectSchema[content.ModulePlanResponse]()
	DialogueSchema     = reflectSchema[content.DialogueResponse]()
	StorySchema        = reflectSchema[content.StoryResponse]()
	ScenePromptsSchema = reflectSchema[content.ScenePromptsResponse]()
	ExerciseSetSchema  = reflectSchema[content.ExerciseSetResponse]()
)
