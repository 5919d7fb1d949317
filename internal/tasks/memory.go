package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is the in-process Store implementation, used when no
// REDIS_URL is configured — a single `server` process running its own
// worker loop, the common single-box deployment.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	specs   map[string]Spec
	queue   chan string
}

// NewMemoryStore builds a MemoryStore with the given pending-queue depth.
func NewMemoryStore(queueDepth int) *MemoryStore {
	if queueDepth <= 0 {
		queueDepth = 256
	}
	return &MemoryStore{
		records: make(map[string]Record),
		specs:   make(map[string]Spec),
		queue:   make(chan string, queueDepth),
	}
}

func (s *MemoryStore) Enqueue(ctx context.Context, spec Spec) (string, error) {
	id := newTaskID()
	s.mu.Lock()
	s.records[id] = Record{ID: id, State: StatePending, CreatedAt: time.Now()}
	s.specs[id] = spec
	s.mu.Unlock()

	select {
	case s.queue <- id:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *MemoryStore) Dequeue(ctx context.Context) (string, Spec, bool, error) {
	select {
	case id := <-s.queue:
		s.mu.Lock()
		spec := s.specs[id]
		rec := s.records[id]
		rec.State = StateStarted
		s.records[id] = rec
		s.mu.Unlock()
		return id, spec, true, nil
	case <-ctx.Done():
		return "", Spec{}, false, nil
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{ID: id, State: StatePending}, nil
	}
	if isExpired(rec) {
		return Record{ID: id, State: StatePending}, nil
	}
	return rec, nil
}

func (s *MemoryStore) Complete(ctx context.Context, id string, result string) error {
	return s.finish(id, StateSuccess, result, "")
}

func (s *MemoryStore) Fail(ctx context.Context, id string, errMsg string) error {
	return s.finish(id, StateFailure, "", errMsg)
}

func (s *MemoryStore) finish(id string, state State, result, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("tasks: unknown task %q", id)
	}
	rec.State = state
	rec.Result = result
	rec.Error = errMsg
	s.records[id] = rec
	return nil
}

func isExpired(rec Record) bool {
	if rec.State != StateSuccess && rec.State != StateFailure {
		return false
	}
	return time.Since(rec.CreatedAt) > retention
}
