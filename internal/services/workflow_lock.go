package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/segmentio/ksuid"

	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

// WorkflowLocker serializes mutating calls on one workflow. Acquire never waits:
// a lock held elsewhere yields ErrWorkflowBusy.
type WorkflowLocker interface {
	Acquire(ctx context.Context, workflowID uuid.UUID) (release func(), err error)
}

const DefaultLockTTL = 30 * time.Minute

type localLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

func NewLocalWorkflowLocker() WorkflowLocker {
	return &localLocker{held: map[uuid.UUID]struct{}{}}
}

func (l *localLocker) Acquire(ctx context.Context, workflowID uuid.UUID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[workflowID]; ok {
		return nil, apperr.Newf(apperr.ErrWorkflowBusy, "workflow.lock", "workflow %s is busy", workflowID)
	}
	l.held[workflowID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, workflowID)
			l.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the key only while it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript pushes the expiry out only while the key still carries our token.
var renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type redisLocker struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

// NewRedisWorkflowLocker holds locks as SET NX PX keys renewed every ttl/3 while
// held, so a crashed holder frees the workflow after ttl.
func NewRedisWorkflowLocker(rdb *goredis.Client, ttl time.Duration, baseLog *logger.Logger) WorkflowLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &redisLocker{rdb: rdb, ttl: ttl, log: baseLog.With("service", "RedisWorkflowLocker")}
}

func lockKey(id uuid.UUID) string { return "storyforge:workflow-lock:" + id.String() }

func (l *redisLocker) Acquire(ctx context.Context, workflowID uuid.UUID) (func(), error) {
	key := lockKey(workflowID)
	token := ksuid.New().String()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrExternalService, "workflow.lock", fmt.Errorf("redis setnx: %w", err))
	}
	if !ok {
		return nil, apperr.Newf(apperr.ErrWorkflowBusy, "workflow.lock", "workflow %s is busy", workflowID)
	}

	renew := func(rctx context.Context) (bool, error) {
		n, err := renewScript.Run(rctx, l.rdb, []string{key}, token, l.ttl.Milliseconds()).Int64()
		return n == 1, err
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(stop, l.ttl/3, renew, l.log.With("workflow_id", workflowID))
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{key}, token).Err(); err != nil {
				l.log.Warn("Workflow lock release failed", "workflow_id", workflowID, "error", err)
			}
		})
	}, nil
}

// keepAlive calls renew every interval until stop closes or the lock is gone.
// A failed call is retried on the next tick.
func keepAlive(stop <-chan struct{}, every time.Duration, renew func(context.Context) (bool, error), log *logger.Logger) {
	if every <= 0 {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		held, err := renew(rctx)
		cancel()
		if err != nil {
			log.Warn("Workflow lock renewal failed", "error", err)
			continue
		}
		if !held {
			log.Error("Workflow lock lost before release")
			return
		}
	}
}
