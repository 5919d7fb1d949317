// Package catalog implements spec components C1 (Model Catalog Cache) and
// C8 (Catalog Refresh Task): an atomically-swapped map of model-id ->
// descriptor, repopulated on a schedule by aggregating every configured
// backend's model list.
package catalog

import (
	"sync/atomic"
)

// Descriptor is the Model Descriptor from spec section 3.
type Descriptor struct {
	ID          string `json:"id"` // "<backend>/<raw-model-id>"
	Object      string `json:"object"`
	Created     int64  `json:"created"`
	OwnedBy     string `json:"owned_by"`
	BackendName string `json:"backend_name"`
}

// Cache is the process-wide model catalog (C1). Readers always observe a
// complete snapshot because the whole map is replaced by a single atomic
// pointer swap (spec 5: "Catalog Cache: single-writer (C8), multi-reader;
// atomic pointer swap of the whole map").
type Cache struct {
	snapshot atomic.Pointer[map[string]Descriptor]
}

// New returns an empty, ready-to-use Cache.
func New() *Cache {
	c := &Cache{}
	empty := make(map[string]Descriptor)
	c.snapshot.Store(&empty)
	return c
}

// Snapshot returns the current catalog as a slice, in no particular order.
func (c *Cache) Snapshot() []Descriptor {
	m := *c.snapshot.Load()
	out := make([]Descriptor, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	return out
}

// Len reports how many models are currently cached.
func (c *Cache) Len() int {
	return len(*c.snapshot.Load())
}

// Replace atomically swaps in a freshly built catalog (C8's write path).
func (c *Cache) Replace(models map[string]Descriptor) {
	c.snapshot.Store(&models)
}
