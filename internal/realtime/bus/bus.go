package bus

import (
	"context"
	"sync"
)

// Message is one workflow event. Channel is the workflow id.
type Message struct {
	Channel string         `json:"channel"`
	Event   string         `json:"event"`
	Data    map[string]any `json:"data,omitempty"`
}

type Bus interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

type nopBus struct{}

// Nop drops every message. It is used when REDIS_ADDR is not configured.
func Nop() Bus { return nopBus{} }

func (nopBus) Publish(ctx context.Context, msg Message) error { return nil }
func (nopBus) Close() error                                   { return nil }

// MemoryBus keeps published messages in order. Tests read them back with Messages.
type MemoryBus struct {
	mu   sync.Mutex
	msgs []Message
}

func (b *MemoryBus) Publish(ctx context.Context, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
	return nil
}

func (b *MemoryBus) Close() error { return nil }

func (b *MemoryBus) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.msgs))
	copy(out, b.msgs)
	return out
}
