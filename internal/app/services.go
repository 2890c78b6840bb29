package app

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/storyforge-backend/internal/data/repos"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/steps"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/voices"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"github.com/yungbote/storyforge-backend/internal/services"
)

type Services struct {
	Generative       steps.Generative
	CourseGeneration services.CourseGenerationService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, set repos.Set, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	generative, err := services.NewGenerativeService(log, clients.TextModel(), clients.Gemini, clients.Bucket, nil)
	if err != nil {
		return Services{}, fmt.Errorf("init generative service: %w", err)
	}

	table, err := voices.Default(log)
	if err != nil {
		return Services{}, fmt.Errorf("load voice table: %w", err)
	}

	deps := steps.Deps{
		DB:         db,
		Log:        log,
		Repos:      set,
		AI:         generative,
		Blobs:      clients.Bucket,
		Tokens:     steps.NewTokenCounter(textModelName(clients)),
		Voices:     table,
		Dictionary: set.Word,
		Config:     cfg.Steps,
	}
	generators, err := steps.NewGenerators(deps)
	if err != nil {
		return Services{}, fmt.Errorf("init stage generators: %w", err)
	}
	linker, err := steps.NewVocabularyLinker(deps)
	if err != nil {
		return Services{}, fmt.Errorf("init vocabulary linker: %w", err)
	}

	courseGen := services.NewCourseGenerationService(
		db,
		log,
		set,
		generators,
		linker,
		services.NewCatalogPublisher(log, set),
		workflowLocker(log, clients, cfg.LockTTL),
		services.NewWorkflowNotifier(clients.Bus, log),
		clients.Bucket,
		cfg.CourseGen,
	)

	return Services{
		Generative:       generative,
		CourseGeneration: courseGen,
	}, nil
}

// workflowLocker is Redis-backed when Redis is configured so several replicas share locks.
func workflowLocker(log *logger.Logger, clients Clients, ttl time.Duration) services.WorkflowLocker {
	if clients.Redis == nil {
		log.Warn("REDIS_ADDR not set; workflow locks are process-local")
		return services.NewLocalWorkflowLocker()
	}
	return services.NewRedisWorkflowLocker(clients.Redis, ttl, log)
}

func textModelName(c Clients) string {
	if c.OpenAI != nil {
		return c.OpenAI.Model()
	}
	if c.Gemini != nil {
		return c.Gemini.TextModel()
	}
	return ""
}
