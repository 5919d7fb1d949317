package catalog

import (
	"context"
	"testing"

	"github.com/harpou-com/llm-gateway/internal/backend"
	"github.com/harpou-com/llm-gateway/internal/llmerr"
)

type fakeLister struct {
	backends map[string]backend.Descriptor
	order    []string
	models   map[string][]string
	errs     map[string]*llmerr.Error
}

func (f *fakeLister) BackendNames() []string { return f.order }

func (f *fakeLister) BackendByName(name string) (backend.Descriptor, bool) {
	d, ok := f.backends[name]
	return d, ok
}

func (f *fakeLister) ListModels(ctx context.Context, d backend.Descriptor) ([]string, *llmerr.Error) {
	if err, ok := f.errs[d.Name]; ok {
		return nil, err
	}
	return f.models[d.Name], nil
}

func TestRunOnceAggregatesAcrossBackends(t *testing.T) {
	lister := &fakeLister{
		order: []string{"a", "b"},
		backends: map[string]backend.Descriptor{
			"a": {Name: "a", AutoLoad: true},
			"b": {Name: "b", AutoLoad: true},
		},
		models: map[string][]string{
			"a": {"model1", "model2"},
			"b": {"model3"},
		},
	}
	cache := New()
	r := NewRefresher(cache, lister)
	r.Refresh()

	if cache.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", cache.Len())
	}
}

func TestRunOnceToleratesOneBackendFailing(t *testing.T) {
	lister := &fakeLister{
		order: []string{"good", "bad"},
		backends: map[string]backend.Descriptor{
			"good": {Name: "good", AutoLoad: true},
			"bad":  {Name: "bad", AutoLoad: true},
		},
		models: map[string][]string{"good": {"model1"}},
		errs:   map[string]*llmerr.Error{"bad": llmerr.New(llmerr.KindConnectionFailed, "unreachable", nil)},
	}
	cache := New()
	r := NewRefresher(cache, lister)
	r.Refresh()

	if cache.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (bad backend's failure must not block good)", cache.Len())
	}
}

func TestRunOnceUsesDefaultModelWhenAutoLoadDisabled(t *testing.T) {
	lister := &fakeLister{
		order: []string{"static"},
		backends: map[string]backend.Descriptor{
			"static": {Name: "static", AutoLoad: false, DefaultModel: "fixed-model"},
		},
	}
	cache := New()
	r := NewRefresher(cache, lister)
	r.Refresh()

	snap := cache.Snapshot()
	if len(snap) != 1 || snap[0].ID != "static/fixed-model" {
		t.Errorf("Snapshot() = %+v, want single static/fixed-model descriptor", snap)
	}
}

func TestRunOnceSkipsBackendWithNoAutoLoadAndNoDefaultModel(t *testing.T) {
	lister := &fakeLister{
		order: []string{"useless"},
		backends: map[string]backend.Descriptor{
			"useless": {Name: "useless", AutoLoad: false},
		},
	}
	cache := New()
	r := NewRefresher(cache, lister)
	r.Refresh()

	if cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cache.Len())
	}
}

func TestEnsureFreshOnlyRunsWhenCacheEmpty(t *testing.T) {
	calls := 0
	lister := &countingLister{fakeLister: fakeLister{
		order:    []string{"a"},
		backends: map[string]backend.Descriptor{"a": {Name: "a", AutoLoad: true}},
		models:   map[string][]string{"a": {"m1"}},
	}, calls: &calls}

	cache := New()
	r := NewRefresher(cache, lister)

	r.EnsureFresh()
	if calls != 1 {
		t.Fatalf("EnsureFresh() on empty cache should run once, ran %d times", calls)
	}

	r.EnsureFresh()
	if calls != 1 {
		t.Errorf("EnsureFresh() on a populated cache should not re-run, ran %d times total", calls)
	}
}

type countingLister struct {
	fakeLister
	calls *int
}

func (c *countingLister) ListModels(ctx context.Context, d backend.Descriptor) ([]string, *llmerr.Error) {
	*c.calls++
	return c.fakeLister.ListModels(ctx, d)
}
