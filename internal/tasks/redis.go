package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	. "github.com/harpou-com/llm-gateway/internal/logging"
)

const (
	queueKey     = "llm-gateway:tasks:queue"
	recordKeyFmt = "llm-gateway:tasks:record:%s"
	specKeyFmt   = "llm-gateway:tasks:spec:%s"
)

// RedisStore is the multi-process Store implementation (SPEC_FULL.md
// section B): a Redis list as the pending queue (BRPOP/LPUSH) and
// per-task keys for records, so the `server` and `worker` runtime roles
// (spec section 6: "two runtime roles are launched externally") can share
// task state across processes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redisURL (e.g. "redis://localhost:6379/0").
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("tasks: invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("tasks: redis ping failed: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Enqueue(ctx context.Context, spec Spec) (string, error) {
	id := newTaskID()
	rec := Record{ID: id, State: StatePending, CreatedAt: time.Now()}

	specBytes, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("tasks: marshal spec: %w", err)
	}
	recBytes, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("tasks: marshal record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(specKeyFmt, id), specBytes, retention)
	pipe.Set(ctx, fmt.Sprintf(recordKeyFmt, id), recBytes, retention)
	pipe.LPush(ctx, queueKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("tasks: enqueue failed: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Dequeue(ctx context.Context) (string, Spec, bool, error) {
	res, err := s.client.BRPop(ctx, 5*time.Second, queueKey).Result()
	if err == redis.Nil {
		return "", Spec{}, false, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", Spec{}, false, nil
		}
		return "", Spec{}, false, fmt.Errorf("tasks: dequeue failed: %w", err)
	}
	id := res[1]

	specBytes, err := s.client.Get(ctx, fmt.Sprintf(specKeyFmt, id)).Bytes()
	if err != nil {
		return "", Spec{}, false, fmt.Errorf("tasks: missing spec for %s: %w", id, err)
	}
	var spec Spec
	if err := json.Unmarshal(specBytes, &spec); err != nil {
		return "", Spec{}, false, fmt.Errorf("tasks: corrupt spec for %s: %w", id, err)
	}

	if err := s.setState(ctx, id, StateStarted, "", ""); err != nil {
		L_warn("tasks: failed to mark task started", "id", id, "error", err)
	}
	return id, spec, true, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(recordKeyFmt, id)).Bytes()
	if err == redis.Nil {
		return Record{ID: id, State: StatePending}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("tasks: get record %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("tasks: corrupt record %s: %w", id, err)
	}
	return rec, nil
}

func (s *RedisStore) Complete(ctx context.Context, id string, result string) error {
	return s.setState(ctx, id, StateSuccess, result, "")
}

func (s *RedisStore) Fail(ctx context.Context, id string, errMsg string) error {
	return s.setState(ctx, id, StateFailure, "", errMsg)
}

func (s *RedisStore) setState(ctx context.Context, id string, state State, result, errMsg string) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rec.ID = id
	rec.State = state
	rec.Result = result
	rec.Error = errMsg
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("tasks: marshal record: %w", err)
	}
	return s.client.Set(ctx, fmt.Sprintf(recordKeyFmt, id), data, retention).Err()
}

// Close releases the underlying Redis connection pool.
func (s *RedisStore) Close() error { return s.client.Close() }
