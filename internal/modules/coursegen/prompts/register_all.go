package prompts

import "sync"

var registerOnce sync.Once

// RegisterAll registers every course generation prompt. Safe to call repeatedly.
func RegisterAll() {
	registerOnce.Do(registerAll)
}

const feedbackBlock = `
{{if .Feedback}}
OPERATOR FEEDBACK (apply it; it overrides earlier instructions where they conflict):
{{.Feedback}}
{{end}}{{if .RetryIssues}}
THE PREVIOUS ATTEMPT WAS REJECTED FOR THESE ISSUES (fix every one):
{{.RetryIssues}}
{{end}}`

func registerAll() {
	// ---------- Planning ----------

	RegisterSpec(Spec{
		Name:       PromptBlueprint,
		Version:    1,
		SchemaName: "course_blueprint",
		Schema:     BlueprintSchema,
		System: `
You design story-driven language courses for {{.LanguageName}} learners at CEFR level {{.Level}}.
A course follows one continuous narrative with a small recurring cast.
Grammar progresses from simpler to harder rules across modules.
Return JSON only.`,
		User: `
COURSE
- language: {{.LanguageName}} ({{.LanguageCode}})
- level: {{.Level}}
- modules: {{.ModuleCount}}
- episodes per module: {{.EpisodesPerModule}}
{{if .ThemeHint}}- theme hint: {{.ThemeHint}}
{{end}}
{{if .GrammarCatalog}}EXISTING GRAMMAR RULES (reuse these slugs; add new rules only for real gaps):
{{.GrammarCatalog}}
{{else}}No grammar rules exist yet for this language and level. Define 10-15 rules in grammarRules.
{{end}}
Output rules:
- modules: exactly {{.ModuleCount}} entries numbered 1..{{.ModuleCount}}, each with a topic, its point in the plot arc and the grammar rule slugs it teaches.
- characters: 2-4 characters. Never include a narrator. Names must be distinct.
- gender is female or male; make it consistent with the name.
- grammarRules slugs are lowercase-kebab-case.` + feedbackBlock,
		Validators: []Validator{
			RequireNonEmpty("LanguageCode", func(in Input) string { return in.LanguageCode }),
			RequireNonEmpty("Level", func(in Input) string { return in.Level }),
			RequirePositive("ModuleCount", func(in Input) int { return in.ModuleCount }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptModulePlan,
		Version:    1,
		SchemaName: "module_plan",
		Schema:     ModulePlanSchema,
		System: `
You plan one module of a story-driven {{.LanguageName}} course for level {{.Level}} learners.
Each episode advances the plot and practices the module's grammar and vocabulary.
Use only characters from the roster, spelled exactly as given.
Return JSON only.`,
		User: `
COURSE: {{.CourseTitle}}
SETTING: {{.Setting}}
PREMISE: {{.Premise}}

ROSTER:
{{.RosterText}}

MODULE {{.ModuleNumber}} of {{.ModuleCount}}
- topic: {{.ModuleTopic}}
- plot arc point: {{.PlotArcPoint}}
- grammar: {{.ModuleGrammar}}
{{if .PriorModules}}
EARLIER MODULES (continue from here, do not repeat them):
{{.PriorModules}}
{{end}}
Output rules:
- episodes: exactly {{.EpisodesPerModule}} outlines in story order.
- type is DIALOGUE or STORY. A DIALOGUE lists exactly 2 characters; a STORY lists the characters it features.
- vocabulary: 6-12 {{.LanguageName}} words or short phrases new to the learner.
- grammar: slugs from the module grammar.` + feedbackBlock,
		Validators: []Validator{
			RequireNonEmpty("RosterText", func(in Input) string { return in.RosterText }),
			RequirePositive("ModuleNumber", func(in Input) int { return in.ModuleNumber }),
			RequirePositive("EpisodesPerModule", func(in Input) int { return in.EpisodesPerModule }),
		},
	})

	// ---------- Episode content ----------

	RegisterSpec(Spec{
		Name:       PromptEpisodeDialogue,
		Version:    1,
		SchemaName: "episode_dialogue",
		Schema:     DialogueSchema,
		System: `
You write dialogues in {{.LanguageName}} for level {{.Level}} learners.
Exactly two characters speak: {{.Speakers}}. No narrator lines and no other speakers.
Keep vocabulary and sentence length appropriate for the level.
Return JSON only.`,
		User: `
COURSE: {{.CourseTitle}}
SETTING: {{.Setting}}
{{if .StoryHistory}}
STORY SO FAR (episode summaries, oldest first):
{{.StoryHistory}}
{{end}}
CHARACTERS:
{{.CharacterProfiles}}

EPISODE {{.EpisodeRef}}: {{.EpisodeTitle}}
SCENE: {{.SceneDescription}}
PLOT POINTS:
{{.PlotPoints}}
TARGET VOCABULARY (use every item): {{.TargetVocabulary}}
TARGET GRAMMAR: {{.TargetGrammar}}

Output rules:
- lines: 12-24 turns, speaker is exactly one of: {{.Speakers}}.
- translation: natural English for each line.
- summary: 2-3 English sentences of what happened.
- developmentNotes: one note per character whose situation, relationships or traits changed.` + feedbackBlock,
		Validators: []Validator{
			RequireNonEmpty("Speakers", func(in Input) string { return in.Speakers }),
			RequireNonEmpty("EpisodeTitle", func(in Input) string { return in.EpisodeTitle }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptEpisodeStory,
		Version:    1,
		SchemaName: "episode_story",
		Schema:     StorySchema,
		System: `
You write short narrated stories in {{.LanguageName}} for level {{.Level}} learners.
Keep vocabulary and sentence length appropriate for the level.
Return JSON only.`,
		User: `
COURSE: {{.CourseTitle}}
SETTING: {{.Setting}}
{{if .StoryHistory}}
STORY SO FAR (episode summaries, oldest first):
{{.StoryHistory}}
{{end}}
CHARACTERS:
{{.CharacterProfiles}}

EPISODE {{.EpisodeRef}}: {{.EpisodeTitle}}
SCENE: {{.SceneDescription}}
PLOT POINTS:
{{.PlotPoints}}
TARGET VOCABULARY (use every item): {{.TargetVocabulary}}
TARGET GRAMMAR: {{.TargetGrammar}}

Output rules:
- text: 150-350 words of narration in {{.LanguageName}}.
- summary: 2-3 English sentences of what happened.
- developmentNotes: one note per character whose situation, relationships or traits changed.` + feedbackBlock,
		Validators: []Validator{
			RequireNonEmpty("EpisodeTitle", func(in Input) string { return in.EpisodeTitle }),
		},
	})

	RegisterSpec(Spec{
		Name:       PromptScenePrompts,
		Version:    1,
		SchemaName: "scene_prompts",
		Schema:     ScenePromptsSchema,
		System: `
You write illustration prompts for an episode of an illustrated language course.
Describe people by appearance and role, never by name.
Return JSON only.`,
		User: `
SETTING: {{.Setting}}
SCENE: {{.SceneDescription}}

EPISODE TEXT:
{{.EpisodeText}}

Output rules:
- prompts: 3-4 distinct moments from the episode in story order, one or two sentences each.
- no text, captions or speech bubbles in the images.`,
		Validators: []Validator{
			RequireNonEmpty("EpisodeText", func(in Input) string { return in.EpisodeText }),
		},
	})

	// ---------- Consolidation ----------

	RegisterSpec(Spec{
		Name:    PromptCharacterAppearance,
		Version: 1,
		Format:  FormatPlain,
		System: `
You are a character designer preparing photorealistic portraits for a language course.
Write one paragraph of 2 to 3 sentences in plain English. No lists, no markdown, no name.`,
		User: `
CHARACTER: {{.CharacterName}}
GENDER: {{.CharacterGender}}
AGE: {{.CharacterAge}}
SETTING: {{.Setting}}

PROFILE:
{{.CharacterProfiles}}
{{if .CharacterLines}}
THINGS THEY SAID IN THE COURSE:
{{.CharacterLines}}
{{end}}
Describe their physical appearance in 2 to 3 sentences: face, hair, build, clothing and a characteristic expression.
Let the appearance reflect the personality and background above.
The description must be consistent with the stated gender and age.` + feedbackBlock,
		Validators: []Validator{
			RequireNonEmpty("CharacterName", func(in Input) string { return in.CharacterName }),
		},
	})

	// ---------- Practice ----------

	RegisterSpec(Spec{
		Name:       PromptExercises,
		Version:    1,
		SchemaName: "episode_exercises",
		Schema:     ExerciseSetSchema,
		System: `
You write practice exercises in {{.LanguageName}} for level {{.Level}} learners, based on one episode.
Instructions are in English; exercise content is in {{.LanguageName}}.
Return JSON only.`,
		User: `
EPISODE {{.EpisodeRef}}: {{.EpisodeTitle}}

EPISODE TEXT:
{{.EpisodeText}}

TARGET VOCABULARY: {{.TargetVocabulary}}
TARGET GRAMMAR: {{.TargetGrammar}}

Output rules, exactly 13 exercises in this order:
- 4 multiple_choice: question, 3-4 options, exactly one isCorrect.
- 4 fill_in_blank: sentence with ___ for the blank, correctAnswer, optional acceptableAnswers.
- 2 sentence_scramble: targetSentence and its words shuffled in scrambledWords.
- 1 cloze_reading: passage with {{"{{"}}id{{"}}"}} placeholders and one blanks entry per placeholder.
- 2 matching: 4-6 pairs of {{.LanguageName}} words and English meanings.
Cover every target vocabulary item and grammar rule at least once.` + feedbackBlock,
		Validators: []Validator{
			RequireNonEmpty("EpisodeText", func(in Input) string { return in.EpisodeText }),
		},
	})
}
