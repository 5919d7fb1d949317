package llmconnector

import (
	"context"
	"time"

	"github.com/harpou-com/llm-gateway/internal/backend"
	"github.com/harpou-com/llm-gateway/internal/llmerr"
)

const listModelsTimeout = 5 * time.Second

// ListModels calls a backend's list-models endpoint (spec 4.5: "5s
// timeout"). Distinguishes connection failures from malformed/erroring
// responses the way the original's list_models_from_backend does
// (SPEC_FULL.md section C.3), so the catalog refresh loop (C8) can log at
// an appropriate level without special-casing error strings itself.
func (c *Connector) ListModels(ctx context.Context, d backend.Descriptor) ([]string, *llmerr.Error) {
	ctx, cancel := context.WithTimeout(ctx, listModelsTimeout)
	defer cancel()

	client := c.clientFor(d)
	resp, err := client.ListModels(ctx)
	if err != nil {
		return nil, llmerr.Classify(err)
	}

	ids := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// BackendByName exposes registry lookups to the catalog refresh job
// without it needing its own reference to the backend.Registry.
func (c *Connector) BackendByName(name string) (backend.Descriptor, bool) {
	return c.registry.Get(name)
}

// BackendNames returns every configured backend name in registry order.
func (c *Connector) BackendNames() []string {
	return c.registry.OrderedNames()
}
