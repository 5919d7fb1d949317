package tasks

import (
	"context"
	"time"

	. "github.com/harpou-com/llm-gateway/internal/logging"
	"github.com/harpou-com/llm-gateway/internal/metrics"
)

// Handler runs one task kind to completion, returning the task result
// string for Record.Result.
type Handler func(ctx context.Context, payload map[string]any) (string, error)

// Worker drains a Store with at-least-once semantics (spec 4.4: "Workers
// execute tasks with at-least-once semantics; tasks must be idempotent at
// the semantic level"). Every spec Kind the gateway enqueues (orchestrator
// runs, catalog refreshes) must have a registered Handler.
type Worker struct {
	store    Store
	handlers map[string]Handler
}

// NewWorker builds a Worker over store with the given kind->Handler map.
func NewWorker(store Store, handlers map[string]Handler) *Worker {
	return &Worker{store: store, handlers: handlers}
}

// Run drains tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		id, spec, ok, err := w.store.Dequeue(ctx)
		if err != nil {
			L_error("tasks: dequeue error", "error", err)
			continue
		}
		if !ok {
			continue
		}
		w.runOne(ctx, id, spec)
	}
}

func (w *Worker) runOne(ctx context.Context, id string, spec Spec) {
	handler, ok := w.handlers[spec.Kind]
	if !ok {
		L_error("tasks: no handler registered", "kind", spec.Kind, "id", id)
		if err := w.store.Fail(ctx, id, "no handler for task kind "+spec.Kind); err != nil {
			L_warn("tasks: failed to record missing-handler failure", "id", id, "error", err)
		}
		return
	}

	start := time.Now()
	result, err := handler(ctx, spec.Payload)
	if err != nil {
		L_error("tasks: task failed", "id", id, "kind", spec.Kind, "error", err)
		if fErr := w.store.Fail(ctx, id, err.Error()); fErr != nil {
			L_warn("tasks: failed to record failure", "id", id, "error", fErr)
		}
		metrics.RecordTaskDuration(spec.Kind, "failure", time.Since(start))
		return
	}

	if err := w.store.Complete(ctx, id, result); err != nil {
		L_warn("tasks: failed to record success", "id", id, "error", err)
	}
	metrics.RecordTaskDuration(spec.Kind, "success", time.Since(start))
}
