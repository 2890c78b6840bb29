package app

import (
	"strings"
	"time"

	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/steps"
	"github.com/yungbote/storyforge-backend/internal/platform/envutil"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"github.com/yungbote/storyforge-backend/internal/services"
)

const (
	TextProviderGemini = "gemini"
	TextProviderOpenAI = "openai"
)

type Config struct {
	Port        string
	LogMode     string
	Environment string
	Version     string
	ServiceName string
	CORSOrigins string
	MetricsAddr string

	// TextProvider selects the model for text prompts. Images and speech always use Gemini.
	TextProvider string
	LockTTL      time.Duration
	Steps        steps.Config
	CourseGen    services.CourseGenerationConfig
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:         envutil.String("PORT", "8080"),
		LogMode:      envutil.String("LOG_MODE", "development"),
		Environment:  envutil.String("APP_ENV", "local"),
		Version:      envutil.String("APP_VERSION", "dev"),
		ServiceName:  envutil.String("OTEL_SERVICE_NAME", "storyforge"),
		CORSOrigins:  envutil.String("CORS_ALLOWED_ORIGINS", ""),
		MetricsAddr:  envutil.String("METRICS_ADDR", ":9090"),
		TextProvider: strings.ToLower(envutil.String("TEXT_PROVIDER", TextProviderGemini)),
		LockTTL:      envutil.Seconds("WORKFLOW_LOCK_TTL_SECONDS", services.DefaultLockTTL),
		Steps: steps.Config{
			SummaryTokenBudget: envutil.Int("COURSEGEN_SUMMARY_TOKEN_BUDGET", 0),
			ContentAttempts:    envutil.Int("COURSEGEN_CONTENT_ATTEMPTS", 0),
		},
		CourseGen: services.CourseGenerationConfig{
			StrictCompleteness: envutil.Bool("COURSEGEN_STRICT_COMPLETENESS", false),
		},
	}
	if cfg.TextProvider != TextProviderGemini && cfg.TextProvider != TextProviderOpenAI {
		log.Warn("Unknown TEXT_PROVIDER, using gemini", "text_provider", cfg.TextProvider)
		cfg.TextProvider = TextProviderGemini
	}
	return cfg
}
