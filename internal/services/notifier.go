package services

import (
	"context"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/jobs/orchestrator"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"github.com/yungbote/storyforge-backend/internal/realtime/bus"
)

const (
	EventStageChanged   = "workflow.stage_changed"
	EventStageReported  = "workflow.stage_reported"
	EventWorkflowFailed = "workflow.failed"
)

// WorkflowNotifier announces stage transitions. Delivery is best-effort.
type WorkflowNotifier interface {
	StageChanged(ctx context.Context, wf *types.Workflow, from, to types.Stage)
	StageReported(ctx context.Context, wf *types.Workflow, report *orchestrator.StageReport)
	WorkflowFailed(ctx context.Context, wf *types.Workflow, stage types.Stage, message string)
}

type workflowNotifier struct {
	bus bus.Bus
	log *logger.Logger
}

func NewWorkflowNotifier(b bus.Bus, baseLog *logger.Logger) WorkflowNotifier {
	if b == nil {
		b = bus.Nop()
	}
	return &workflowNotifier{bus: b, log: baseLog.With("service", "WorkflowNotifier")}
}

func (n *workflowNotifier) StageChanged(ctx context.Context, wf *types.Workflow, from, to types.Stage) {
	n.publish(ctx, bus.Message{
		Channel: wf.ID.String(),
		Event:   EventStageChanged,
		Data: map[string]any{
			"workflow_id": wf.ID,
			"from":        from,
			"to":          to,
		},
	})
}

func (n *workflowNotifier) StageReported(ctx context.Context, wf *types.Workflow, report *orchestrator.StageReport) {
	if report == nil {
		return
	}
	n.publish(ctx, bus.Message{
		Channel: wf.ID.String(),
		Event:   EventStageReported,
		Data: map[string]any{
			"workflow_id": wf.ID,
			"stage":       report.Stage,
			"succeeded":   report.Succeeded(),
			"failed":      report.Failed(),
			"skipped":     report.Skipped(),
		},
	})
}

func (n *workflowNotifier) WorkflowFailed(ctx context.Context, wf *types.Workflow, stage types.Stage, message string) {
	n.publish(ctx, bus.Message{
		Channel: wf.ID.String(),
		Event:   EventWorkflowFailed,
		Data: map[string]any{
			"workflow_id": wf.ID,
			"stage":       stage,
			"error":       message,
		},
	})
}

func (n *workflowNotifier) publish(ctx context.Context, msg bus.Message) {
	if err := n.bus.Publish(ctx, msg); err != nil {
		n.log.Warn("Workflow event dropped", "event", msg.Event, "workflow_id", msg.Channel, "error", err)
	}
}
