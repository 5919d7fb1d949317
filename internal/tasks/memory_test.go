package tasks

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreEnqueueDequeueRoundTrip(t *testing.T) {
	s := NewMemoryStore(4)
	ctx := context.Background()

	id, err := s.Enqueue(ctx, Spec{Kind: "orchestrate", Payload: map[string]any{"k": "v"}})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	rec, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.State != StatePending {
		t.Errorf("State after enqueue = %v, want PENDING", rec.State)
	}

	gotID, spec, ok, err := s.Dequeue(ctx)
	if err != nil || !ok {
		t.Fatalf("Dequeue() = %v, %v, %v", gotID, ok, err)
	}
	if gotID != id {
		t.Errorf("Dequeue() id = %q, want %q", gotID, id)
	}
	if spec.Kind != "orchestrate" {
		t.Errorf("Dequeue() spec = %+v", spec)
	}

	rec, _ = s.Get(ctx, id)
	if rec.State != StateStarted {
		t.Errorf("State after dequeue = %v, want STARTED", rec.State)
	}
}

func TestMemoryStoreCompleteAndFail(t *testing.T) {
	s := NewMemoryStore(4)
	ctx := context.Background()

	id1, _ := s.Enqueue(ctx, Spec{Kind: "orchestrate"})
	if err := s.Complete(ctx, id1, "the answer"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	rec, _ := s.Get(ctx, id1)
	if rec.State != StateSuccess || rec.Result != "the answer" {
		t.Errorf("record after Complete = %+v", rec)
	}

	id2, _ := s.Enqueue(ctx, Spec{Kind: "orchestrate"})
	if err := s.Fail(ctx, id2, "boom"); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	rec, _ = s.Get(ctx, id2)
	if rec.State != StateFailure || rec.Error != "boom" {
		t.Errorf("record after Fail = %+v", rec)
	}
}

func TestMemoryStoreUnknownIDReadsAsPending(t *testing.T) {
	s := NewMemoryStore(4)
	rec, err := s.Get(context.Background(), "never-enqueued")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.State != StatePending {
		t.Errorf("State for unknown id = %v, want PENDING", rec.State)
	}
}

func TestMemoryStoreCompleteUnknownIDErrors(t *testing.T) {
	s := NewMemoryStore(4)
	if err := s.Complete(context.Background(), "never-enqueued", "x"); err == nil {
		t.Error("expected Complete() on unknown id to error")
	}
}

func TestMemoryStoreDequeueRespectsContextCancellation(t *testing.T) {
	s := NewMemoryStore(4)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, ok, err := s.Dequeue(ctx)
	if ok || err != nil {
		t.Errorf("Dequeue() on empty queue with cancelled ctx = ok=%v err=%v, want ok=false err=nil", ok, err)
	}
}

func TestIsExpired(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want bool
	}{
		{"pending never expires", Record{State: StatePending, CreatedAt: time.Now().Add(-time.Hour)}, false},
		{"recent success not expired", Record{State: StateSuccess, CreatedAt: time.Now()}, false},
		{"old success expired", Record{State: StateSuccess, CreatedAt: time.Now().Add(-retention - time.Minute)}, true},
		{"old failure expired", Record{State: StateFailure, CreatedAt: time.Now().Add(-retention - time.Minute)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isExpired(tt.rec); got != tt.want {
				t.Errorf("isExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}
