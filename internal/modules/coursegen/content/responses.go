package content

// Response shapes requested from the text model. Field names are the JSON keys
// the prompts describe; the schemas embedded in prompts are reflected from these types.

type CharacterSeed struct {
	Name              string   `json:"name" jsonschema:"required"`
	Role              string   `json:"role" jsonschema:"required,enum=protagonist,enum=supporting,enum=minor,enum=recurring"`
	Gender            string   `json:"gender" jsonschema:"required,enum=female,enum=male"`
	AgeRange          string   `json:"ageRange" jsonschema:"required"`
	PersonalityTraits []string `json:"personalityTraits" jsonschema:"required"`
	Background        string   `json:"background" jsonschema:"required"`
}

type BlueprintModule struct {
	Number       int      `json:"number" jsonschema:"required,minimum=1"`
	Topic        string   `json:"topic" jsonschema:"required"`
	PlotArcPoint string   `json:"plotArcPoint" jsonschema:"required"`
	GrammarRules []string `json:"grammarRules" jsonschema:"required,description=Slugs of grammar rules taught in the module"`
}

type GrammarRuleSeed struct {
	Slug        string   `json:"slug" jsonschema:"required,pattern=^[a-z0-9-]+$"`
	Title       string   `json:"title" jsonschema:"required"`
	Explanation string   `json:"explanation" jsonschema:"required"`
	Examples    []string `json:"examples"`
}

type BlueprintResponse struct {
	Title        string            `json:"title" jsonschema:"required"`
	Description  string            `json:"description" jsonschema:"required"`
	Setting      string            `json:"setting" jsonschema:"required"`
	Premise      string            `json:"premise" jsonschema:"required"`
	Characters   []CharacterSeed   `json:"characters" jsonschema:"required,minItems=2,maxItems=4"`
	Modules      []BlueprintModule `json:"modules" jsonschema:"required"`
	GrammarRules []GrammarRuleSeed `json:"grammarRules" jsonschema:"description=New grammar rules; omit rules that already exist"`
}

type EpisodeOutline struct {
	Title            string   `json:"title" jsonschema:"required"`
	SceneDescription string   `json:"sceneDescription" jsonschema:"required"`
	Type             string   `json:"type" jsonschema:"required,enum=DIALOGUE,enum=STORY"`
	Vocabulary       []string `json:"vocabulary" jsonschema:"required"`
	Grammar          []string `json:"grammar" jsonschema:"required"`
	Characters       []string `json:"characters" jsonschema:"required,description=Character names exactly as in the roster"`
	PlotPoints       []string `json:"plotPoints" jsonschema:"required"`
}

type ModulePlanResponse struct {
	Title       string           `json:"title" jsonschema:"required"`
	Theme       string           `json:"theme" jsonschema:"required"`
	Description string           `json:"description" jsonschema:"required"`
	Objectives  []string         `json:"objectives" jsonschema:"required"`
	PlotSummary string           `json:"plotSummary" jsonschema:"required"`
	Episodes    []EpisodeOutline `json:"episodes" jsonschema:"required"`
}

type DialogueLine struct {
	Speaker     string `json:"speaker" jsonschema:"required"`
	Text        string `json:"text" jsonschema:"required"`
	Translation string `json:"translation" jsonschema:"description=English translation of the line"`
}

type CharacterNote struct {
	Character string `json:"character" jsonschema:"required"`
	Note      string `json:"note" jsonschema:"required"`
}

type DialogueResponse struct {
	Lines            []DialogueLine  `json:"lines" jsonschema:"required,minItems=1"`
	Summary          string          `json:"summary" jsonschema:"required,description=Two or three English sentences"`
	DevelopmentNotes []CharacterNote `json:"developmentNotes"`
}

type StoryResponse struct {
	Text             string          `json:"text" jsonschema:"required"`
	Summary          string          `json:"summary" jsonschema:"required,description=Two or three English sentences"`
	DevelopmentNotes []CharacterNote `json:"developmentNotes"`
}

type ScenePromptsResponse struct {
	Prompts []string `json:"prompts" jsonschema:"required,minItems=3,maxItems=4"`
}
