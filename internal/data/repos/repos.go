package repos

import (
	"github.com/yungbote/storyforge-backend/internal/data/repos/catalog"
	"github.com/yungbote/storyforge-backend/internal/data/repos/coursegen"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type WorkflowRepo = coursegen.WorkflowRepo
type BlueprintRepo = coursegen.BlueprintRepo
type GrammarRuleRepo = coursegen.GrammarRuleRepo
type CharacterRepo = coursegen.CharacterRepo
type DevelopmentNoteRepo = coursegen.DevelopmentNoteRepo
type ModulePlanRepo = coursegen.ModulePlanRepo
type EpisodePlanRepo = coursegen.EpisodePlanRepo
type EpisodeContentRepo = coursegen.EpisodeContentRepo
type EpisodeExercisesRepo = coursegen.EpisodeExercisesRepo
type MediaRepo = coursegen.MediaRepo
type WordRepo = coursegen.WordRepo
type VocabularyLinkRepo = coursegen.VocabularyLinkRepo

type CatalogRepo = catalog.CatalogRepo

type UnitColumn = coursegen.UnitColumn

const (
	UnitContent   = coursegen.UnitContent
	UnitExercises = coursegen.UnitExercises
	UnitMedia     = coursegen.UnitMedia
)

func NewWorkflowRepo(db *gorm.DB, baseLog *logger.Logger) WorkflowRepo {
	return coursegen.NewWorkflowRepo(db, baseLog)
}
func NewBlueprintRepo(db *gorm.DB, baseLog *logger.Logger) BlueprintRepo {
	return coursegen.NewBlueprintRepo(db, baseLog)
}
func NewGrammarRuleRepo(db *gorm.DB, baseLog *logger.Logger) GrammarRuleRepo {
	return coursegen.NewGrammarRuleRepo(db, baseLog)
}
func NewCharacterRepo(db *gorm.DB, baseLog *logger.Logger) CharacterRepo {
	return coursegen.NewCharacterRepo(db, baseLog)
}
func NewDevelopmentNoteRepo(db *gorm.DB, baseLog *logger.Logger) DevelopmentNoteRepo {
	return coursegen.NewDevelopmentNoteRepo(db, baseLog)
}
func NewModulePlanRepo(db *gorm.DB, baseLog *logger.Logger) ModulePlanRepo {
	return coursegen.NewModulePlanRepo(db, baseLog)
}
func NewEpisodePlanRepo(db *gorm.DB, baseLog *logger.Logger) EpisodePlanRepo {
	return coursegen.NewEpisodePlanRepo(db, baseLog)
}
func NewEpisodeContentRepo(db *gorm.DB, baseLog *logger.Logger) EpisodeContentRepo {
	return coursegen.NewEpisodeContentRepo(db, baseLog)
}
func NewEpisodeExercisesRepo(db *gorm.DB, baseLog *logger.Logger) EpisodeExercisesRepo {
	return coursegen.NewEpisodeExercisesRepo(db, baseLog)
}
func NewMediaRepo(db *gorm.DB, baseLog *logger.Logger) MediaRepo {
	return coursegen.NewMediaRepo(db, baseLog)
}
func NewWordRepo(db *gorm.DB, baseLog *logger.Logger) WordRepo {
	return coursegen.NewWordRepo(db, baseLog)
}
func NewVocabularyLinkRepo(db *gorm.DB, baseLog *logger.Logger) VocabularyLinkRepo {
	return coursegen.NewVocabularyLinkRepo(db, baseLog)
}
func NewCatalogRepo(db *gorm.DB, baseLog *logger.Logger) CatalogRepo {
	return catalog.NewCatalogRepo(db, baseLog)
}

// Set bundles every repository a course generation service needs.
type Set struct {
	Workflow         WorkflowRepo
	Blueprint        BlueprintRepo
	GrammarRule      GrammarRuleRepo
	Character        CharacterRepo
	DevelopmentNote  DevelopmentNoteRepo
	ModulePlan       ModulePlanRepo
	EpisodePlan      EpisodePlanRepo
	EpisodeContent   EpisodeContentRepo
	EpisodeExercises EpisodeExercisesRepo
	Media            MediaRepo
	Word             WordRepo
	VocabularyLink   VocabularyLinkRepo
	Catalog          CatalogRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Workflow:         NewWorkflowRepo(db, baseLog),
		Blueprint:        NewBlueprintRepo(db, baseLog),
		GrammarRule:      NewGrammarRuleRepo(db, baseLog),
		Character:        NewCharacterRepo(db, baseLog),
		DevelopmentNote:  NewDevelopmentNoteRepo(db, baseLog),
		ModulePlan:       NewModulePlanRepo(db, baseLog),
		EpisodePlan:      NewEpisodePlanRepo(db, baseLog),
		EpisodeContent:   NewEpisodeContentRepo(db, baseLog),
		EpisodeExercises: NewEpisodeExercisesRepo(db, baseLog),
		Media:            NewMediaRepo(db, baseLog),
		Word:             NewWordRepo(db, baseLog),
		VocabularyLink:   NewVocabularyLinkRepo(db, baseLog),
		Catalog:          NewCatalogRepo(db, baseLog),
	}
}
