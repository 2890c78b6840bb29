package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/storyforge-backend/internal/platform/gcp"
	"github.com/yungbote/storyforge-backend/internal/platform/gemini"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
	"github.com/yungbote/storyforge-backend/internal/platform/openai"
	"github.com/yungbote/storyforge-backend/internal/realtime/bus"
	"github.com/yungbote/storyforge-backend/internal/services"
)

type Clients struct {
	Gemini gemini.Client
	OpenAI openai.Client
	Bucket gcp.MediaBucket
	// Redis is nil when REDIS_ADDR is unset.
	Redis *goredis.Client
	Bus   bus.Bus
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	gem, err := gemini.NewClient(ctx, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init gemini client: %w", err)
	}
	out.Gemini = gem

	if cfg.TextProvider == TextProviderOpenAI {
		oa, err := openai.NewClient(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		out.OpenAI = oa
	}

	bucket, err := gcp.NewMediaBucket(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init media bucket: %w", err)
	}
	out.Bucket = bucket

	rdb, err := bus.NewRedisClient(log)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	out.Redis = rdb
	out.Bus = bus.Nop()
	if rdb != nil {
		b, err := bus.NewRedisBus(log, rdb)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis bus: %w", err)
		}
		out.Bus = b
	}
	return out, nil
}

// TextModel returns the model text prompts are sent to.
func (c Clients) TextModel() services.TextModel {
	if c.OpenAI != nil {
		return c.OpenAI
	}
	return c.Gemini
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Bucket != nil {
		_ = c.Bucket.Close()
	}
}
