package prompts

// Input is a superset of the fields any prompt needs.
// Missing fields render empty (templates use missingkey=zero).
type Input struct {
	// Course configuration
	LanguageCode      string
	LanguageName      string
	Level             string
	ModuleCount       int
	EpisodesPerModule int
	ThemeHint         string

	// Grammar catalog lines ("slug: title"); empty asks for new rules
	GrammarCatalog string

	// Blueprint context
	CourseTitle   string
	Setting       string
	Premise       string
	RosterText    string
	CharacterList string

	// Module planning
	ModuleNumber  int
	ModuleTopic   string
	PlotArcPoint  string
	ModuleGrammar string
	PriorModules  string

	// Episode
	EpisodeRef        string
	EpisodeTitle      string
	SceneDescription  string
	EpisodeType       string
	TargetVocabulary  string
	TargetGrammar     string
	PlotPoints        string
	Speakers          string
	CharacterProfiles string
	StoryHistory      string
	EpisodeText       string

	// Character consolidation
	CharacterName   string
	CharacterGender string
	CharacterAge    string
	CharacterLines  string

	// Operator feedback and validation issues from a previous attempt
	Feedback    string
	RetryIssues string
}
