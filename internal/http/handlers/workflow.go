package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/storyforge-backend/internal/http/response"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"github.com/yungbote/storyforge-backend/internal/services"
)

type WorkflowHandler struct {
	log      *logger.Logger
	workflow services.CourseGenerationService
}

func NewWorkflowHandler(log *logger.Logger, workflow services.CourseGenerationService) *WorkflowHandler {
	return &WorkflowHandler{
		log:      log.With("handler", "WorkflowHandler"),
		workflow: workflow,
	}
}

type regenerateRequest struct {
	Feedback string `json:"feedback"`
}

// POST /api/workflows
func (h *WorkflowHandler) Start(c *gin.Context) {
	var cfg services.WorkflowConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	wf, err := h.workflow.Start(c.Request.Context(), cfg)
	if err != nil {
		if wf != nil {
			// Created, then the first stage failed. The row stays in FAILED for inspection.
			h.log.Warn("Start finished with a failed stage", "workflow_id", wf.ID, "error", err)
		}
		response.RespondFromError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"workflow": wf})
}

// GET /api/workflows/:id/progress
func (h *WorkflowHandler) GetProgress(c *gin.Context) {
	id, ok := workflowID(c)
	if !ok {
		return
	}
	progress, err := h.workflow.GetProgress(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": progress})
}

// POST /api/workflows/:id/advance
func (h *WorkflowHandler) Advance(c *gin.Context) {
	id, ok := workflowID(c)
	if !ok {
		return
	}
	wf, err := h.workflow.Advance(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"workflow": wf})
}

// POST /api/workflows/:id/regenerate
func (h *WorkflowHandler) Regenerate(c *gin.Context) {
	id, ok := workflowID(c)
	if !ok {
		return
	}
	var req regenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	wf, err := h.workflow.RegenerateCurrent(c.Request.Context(), id, req.Feedback)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"workflow": wf})
}

// DELETE /api/workflows/:id
func (h *WorkflowHandler) Cancel(c *gin.Context) {
	id, ok := workflowID(c)
	if !ok {
		return
	}
	if err := h.workflow.Cancel(c.Request.Context(), id); err != nil {
		response.RespondFromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/workflows/:id/debug
func (h *WorkflowHandler) Debug(c *gin.Context) {
	id, ok := workflowID(c)
	if !ok {
		return
	}
	snap, err := h.workflow.GetDebugSnapshot(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"snapshot": snap})
}

// POST /api/workflows/:id/vocabulary-links
func (h *WorkflowHandler) LinkVocabulary(c *gin.Context) {
	id, ok := workflowID(c)
	if !ok {
		return
	}
	links, err := h.workflow.LinkVocabulary(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"links": links, "count": len(links)})
}

// POST /api/workflows/:id/publish
func (h *WorkflowHandler) Publish(c *gin.Context) {
	id, ok := workflowID(c)
	if !ok {
		return
	}
	course, err := h.workflow.Publish(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"course": course})
}

func workflowID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_workflow_id", err)
		return uuid.Nil, false
	}
	return id, true
}
