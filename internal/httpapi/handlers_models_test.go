package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harpou-com/llm-gateway/internal/backend"
	"github.com/harpou-com/llm-gateway/internal/catalog"
	"github.com/harpou-com/llm-gateway/internal/config"
	"github.com/harpou-com/llm-gateway/internal/llmerr"
	"github.com/harpou-com/llm-gateway/internal/principal"
	"github.com/harpou-com/llm-gateway/internal/tasks"
)

type stubLister struct {
	names  []string
	descs  map[string]backend.Descriptor
	models map[string][]string
}

func (s *stubLister) BackendNames() []string { return s.names }

func (s *stubLister) BackendByName(name string) (backend.Descriptor, bool) {
	d, ok := s.descs[name]
	return d, ok
}

func (s *stubLister) ListModels(ctx context.Context, d backend.Descriptor) ([]string, *llmerr.Error) {
	return s.models[d.Name], nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	lister := &stubLister{
		names:  []string{"openai"},
		descs:  map[string]backend.Descriptor{"openai": {Name: "openai", AutoLoad: true}},
		models: map[string][]string{"openai": {"gpt-4o"}},
	}
	cache := catalog.New()
	refresher := catalog.NewRefresher(cache, lister)
	store := tasks.NewMemoryStore(0)
	principals := principal.New([]config.UserConfig{{Key: "testkey", Username: "tester", RateLimit: "unlimited"}}, "unlimited")
	cfg := config.Defaults()
	return New(cfg, cache, refresher, store, principals, nil)
}

func TestHandleModelsTriggersRefreshWhenEmpty(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	w := httptest.NewRecorder()

	s.handleModels(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Object string       `json:"object"`
		Data   []modelEntry `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Object != "list" {
		t.Errorf("Object = %q, want %q", resp.Object, "list")
	}
	if len(resp.Data) != 1 || resp.Data[0].ID != "openai/gpt-4o" {
		t.Errorf("Data = %+v, want single openai/gpt-4o entry", resp.Data)
	}
}

func TestHandleModelsRejectsNonGET(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/models", nil)
	w := httptest.NewRecorder()

	s.handleModels(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}
