// Package tasks implements spec component C6 (Task Substrate): a store
// keyed by task id with PENDING/STARTED/SUCCESS/FAILURE states and an
// enqueue operation a worker pool drains. It has no periodic scheduling;
// the catalog refresh runs on its own cron schedule (internal/catalog). An
// in-memory Store backs single-process deployments; RedisStore (grounded
// on backend-go-agent-planner's go-redis/v8 usage) backs multi-process
// ones so C9 (HTTP surface) and the worker role can run in separate
// binaries sharing task state.
package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// State is a task's position in spec 4.4's state machine:
// PENDING -> STARTED -> {SUCCESS, FAILURE}. There is no REVOKED state:
// nothing in the substrate revokes a task.
type State string

const (
	StatePending State = "PENDING"
	StateStarted State = "STARTED"
	StateSuccess State = "SUCCESS"
	StateFailure State = "FAILURE"
)

// Record is a Task Record from spec section 3. The worker writes one
// terminal state (SUCCESS/FAILURE) per task; the stores do not reject a
// later Complete or Fail on a record that is already terminal.
type Record struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Spec is the work a task carries: the orchestrator input needed to run
// C7, or an on-demand catalog-refresh marker (C8's periodic refresh runs
// on its own cron schedule, not through this substrate).
type Spec struct {
	Kind    string         `json:"kind"` // "orchestrate" | "refresh_catalog"
	Payload map[string]any `json:"payload,omitempty"`
}

// retention is how long a Record stays readable. MemoryStore counts it
// from CreatedAt (enqueue time); RedisStore resets the key TTL on every
// write, so it counts from the last state change
// (spec 3: "implementation-defined retention, >= 10 minutes";
// SPEC_FULL.md's Open Question decision: 15 minutes).
const retention = 15 * time.Minute

// Store is the C6 substrate interface: enqueue, hand out, read back, and
// finish tasks. It has no scheduling operation.
// Callers that only need read/write of records (the worker, the HTTP
// surface) depend on this interface rather than a concrete backend.
type Store interface {
	// Enqueue records a new PENDING task and returns its id.
	Enqueue(ctx context.Context, spec Spec) (string, error)
	// Dequeue blocks (up to the context deadline) for the next pending
	// task, transitioning it to STARTED as it hands it to the caller.
	Dequeue(ctx context.Context) (string, Spec, bool, error)
	// Get returns a task's current record. Unknown ids are reported as
	// PENDING (spec 4.4: "PENDING also covers 'unknown id'").
	Get(ctx context.Context, id string) (Record, error)
	// Complete marks a task SUCCESS with the given result.
	Complete(ctx context.Context, id string, result string) error
	// Fail marks a task FAILURE with the given error message.
	Fail(ctx context.Context, id string, errMsg string) error
}

func newTaskID() string { return uuid.NewString() }
