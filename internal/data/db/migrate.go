package db

import (
	"fmt"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"gorm.io/gorm"
)

// Models lists every table owned by this service, in migration order.
func Models() []interface{} {
	return []interface{}{
		// Workflow state
		&types.Workflow{},
		&types.Blueprint{},
		&types.GrammarRule{},
		&types.Character{},
		&types.CharacterDevelopmentNote{},
		&types.ModulePlan{},
		&types.EpisodePlan{},
		&types.EpisodeContent{},
		&types.EpisodeExercises{},
		&types.Media{},

		// Lexicon
		&types.Word{},
		&types.EpisodeVocabularyLink{},

		// Published catalog
		&types.CatalogCourse{},
		&types.CatalogModule{},
		&types.CatalogEpisode{},
	}
}

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
