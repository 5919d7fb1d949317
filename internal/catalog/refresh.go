package catalog

import (
	"context"
	"sync/atomic"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/harpou-com/llm-gateway/internal/backend"
	"github.com/harpou-com/llm-gateway/internal/llmerr"
	. "github.com/harpou-com/llm-gateway/internal/logging"
	"github.com/harpou-com/llm-gateway/internal/metrics"
)

// ModelLister is the subset of llmconnector.Connector the refresh job
// needs, expressed as an interface so this package doesn't depend on the
// connector's concrete type (design note 9: depend on interfaces, not
// concrete implementations, to avoid the orchestrator/connector/task
// layering cycle the source has).
type ModelLister interface {
	ListModels(ctx context.Context, d backend.Descriptor) ([]string, *llmerr.Error)
	BackendByName(name string) (backend.Descriptor, bool)
	BackendNames() []string
}

type RefreshFunc func()

// Refresher owns the periodic C8 job over a C1 Cache.
type Refresher struct {
	cache  *Cache
	lister ModelLister
	sched  *cronlib.Cron

	// forcedRetryDone guards the post-boot forced retry below. EnsureFresh
	// (HTTP goroutine) and the cron tick can both enter runOnce
	// concurrently, so this needs atomic access rather than a plain bool.
	forcedRetryDone atomic.Bool
}

// NewRefresher builds a Refresher. Call Start to begin the schedule.
func NewRefresher(cache *Cache, lister ModelLister) *Refresher {
	return &Refresher{cache: cache, lister: lister}
}

// Start begins the periodic refresh (spec 4.5), running once immediately.
func (r *Refresher) Start(interval time.Duration) error {
	sched, err := startPeriodicRefresh(r.runOnce, interval)
	if err != nil {
		return err
	}
	r.sched = sched
	return nil
}

// Stop halts the schedule.
func (r *Refresher) Stop() {
	if r.sched != nil {
		r.sched.Stop()
	}
}

// runOnce aggregates models from every backend and atomically replaces the
// cache (spec 4.5). One backend's failure never blocks the others.
func (r *Refresher) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	models := make(map[string]Descriptor)
	now := time.Now().Unix()

	for _, name := range r.lister.BackendNames() {
		d, ok := r.lister.BackendByName(name)
		if !ok {
			continue
		}

		if !d.AutoLoad {
			if d.DefaultModel != "" {
				id := d.Name + "/" + d.DefaultModel
				models[id] = Descriptor{ID: id, Object: "model", Created: now, OwnedBy: d.Name, BackendName: d.Name}
			} else {
				L_warn("catalog: backend has auto_load=false and no default_model, skipping", "backend", d.Name)
			}
			continue
		}

		rawIDs, lErr := r.lister.ListModels(ctx, d)
		if lErr != nil {
			// SPEC_FULL.md section C.3: granular, per-cause log level —
			// a reachable-but-erroring backend is a warning, not an error,
			// and never prevents other backends from populating.
			if llmerr.IsFailoverError(lErr) {
				L_error("catalog: backend unreachable during refresh", "backend", d.Name, "error", lErr)
			} else {
				L_warn("catalog: backend list-models failed", "backend", d.Name, "error", lErr)
			}
			continue
		}

		for _, raw := range rawIDs {
			id := d.Name + "/" + raw
			models[id] = Descriptor{ID: id, Object: "model", Created: now, OwnedBy: d.Name, BackendName: d.Name}
		}
	}

	r.cache.Replace(models)
	metrics.CatalogModelsGauge.Set(float64(len(models)))
	L_info("catalog: refresh complete", "models", len(models))

	// SPEC_FULL.md section C.4: force one extra refresh shortly after boot
	// if the first scheduled pass produced zero models, rather than
	// silently waiting a full interval for the next scheduled tick.
	if len(models) > 0 {
		r.forcedRetryDone.Store(true)
	} else if r.forcedRetryDone.CompareAndSwap(false, true) {
		L_warn("catalog: first refresh produced zero models, forcing an extra attempt")
		go func() {
			time.Sleep(5 * time.Second)
			r.runOnce()
		}()
	}
}

// Refresh forces a synchronous refresh regardless of cache state. Exposed
// so the task substrate can offer "refresh_catalog" as an on-demand task
// kind alongside the periodic schedule Start begins.
func (r *Refresher) Refresh() {
	r.runOnce()
}

// EnsureFresh forces a synchronous refresh if the cache is currently empty
// (spec 4.6: "/v1/models... if cache empty, force a synchronous refresh
// once").
func (r *Refresher) EnsureFresh() {
	if r.cache.Len() == 0 {
		r.runOnce()
	}
}
