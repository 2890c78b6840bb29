package bus

import (
	"context"
	"testing"

	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

func TestMemoryBusKeepsOrder(t *testing.T) {
	b := &MemoryBus{}
	ctx := context.Background()
	_ = b.Publish(ctx, Message{Channel: "wf", Event: "workflow.stage_changed"})
	_ = b.Publish(ctx, Message{Channel: "wf", Event: "workflow.stage_reported"})

	got := b.Messages()
	if len(got) != 2 || got[0].Event != "workflow.stage_changed" || got[1].Event != "workflow.stage_reported" {
		t.Fatalf("Messages: got=%+v", got)
	}
	got[0].Event = "mutated"
	if b.Messages()[0].Event != "workflow.stage_changed" {
		t.Fatalf("Messages must return a copy")
	}
}

func TestRedisClientIsOptional(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	rdb, err := NewRedisClient(logger.Nop())
	if err != nil || rdb != nil {
		t.Fatalf("unset REDIS_ADDR: want nil client and nil error, got=%v err=%v", rdb, err)
	}
	if err := Nop().Publish(context.Background(), Message{}); err != nil {
		t.Fatalf("Nop publish: %v", err)
	}
}
