package toolregistry

import (
	"context"
	"sync/atomic"

	"github.com/harpou-com/llm-gateway/internal/types"
)

// Store holds a *Registry behind an atomic pointer so the worker binary's
// configwatch hot-reload (spec 5's live-reload of the tool registry) can
// swap in a freshly-built Registry without touching every orchestrator call
// site, mirroring catalog.Cache's atomic-swap-of-the-whole-value pattern.
type Store struct {
	current atomic.Pointer[Registry]
}

// NewStore wraps an already-built Registry in a Store.
func NewStore(r *Registry) *Store {
	s := &Store{}
	s.current.Store(r)
	return s
}

// Swap atomically replaces the registry readers observe.
func (s *Store) Swap(r *Registry) {
	s.current.Store(r)
}

func (s *Store) Get(name string) (Tool, bool) { return s.current.Load().Get(name) }

func (s *Store) Has(name string) bool { return s.current.Load().Has(name) }

func (s *Store) Execute(ctx context.Context, name string, params map[string]any) string {
	return s.current.Load().Execute(ctx, name, params)
}

func (s *Store) Definitions() []types.ToolDefinition { return s.current.Load().Definitions() }

func (s *Store) ExampleCalls() string { return s.current.Load().ExampleCalls() }

func (s *Store) Count() int { return s.current.Load().Count() }

func (s *Store) BuildToolSummary() string { return s.current.Load().BuildToolSummary() }
