package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/storyforge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/storyforge-backend/internal/http/middleware"
	"github.com/yungbote/storyforge-backend/internal/observability"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins string
	Metrics     *observability.Metrics

	HealthHandler   *httpH.HealthHandler
	WorkflowHandler *httpH.WorkflowHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	{
		// Workflows
		if cfg.WorkflowHandler != nil {
			api.POST("/workflows", cfg.WorkflowHandler.Start)
			api.GET("/workflows/:id/progress", cfg.WorkflowHandler.GetProgress)
			api.POST("/workflows/:id/advance", cfg.WorkflowHandler.Advance)
			api.POST("/workflows/:id/regenerate", cfg.WorkflowHandler.Regenerate)
			api.DELETE("/workflows/:id", cfg.WorkflowHandler.Cancel)
			api.GET("/workflows/:id/debug", cfg.WorkflowHandler.Debug)
			api.POST("/workflows/:id/vocabulary-links", cfg.WorkflowHandler.LinkVocabulary)
			api.POST("/workflows/:id/publish", cfg.WorkflowHandler.Publish)
		}
	}

	return r
}
