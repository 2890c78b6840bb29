package prompts

type PromptName string

const (
	// Planning
	PromptBlueprint  PromptName = "course_blueprint"
	PromptModulePlan PromptName = "module_plan"

	// Episode content
	PromptEpisodeDialogue PromptName = "episode_dialogue"
	PromptEpisodeStory    PromptName = "episode_story"
	PromptScenePrompts    PromptName = "scene_prompts"

	// Consolidation
	PromptCharacterAppearance PromptName = "character_appearance"

	// Practice
	PromptExercises PromptName = "episode_exercises"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatPlain Format = "plain"
)
