package webfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSearchReturnsResultsTruncatedToCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"title":"A","url":"https://a.example","content":"a"},
			{"title":"B","url":"https://b.example","content":"b"},
			{"title":"C","url":"https://c.example","content":"c"}
		]}`))
	}))
	defer srv.Close()

	s := NewSearcher(Config{SearXNGBaseURL: srv.URL, SearchTimeout: 5 * time.Second})
	results, err := s.Search(context.Background(), "query", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].Title != "A" || results[1].Title != "B" {
		t.Errorf("Search() = %+v, want first two in SearXNG order", results)
	}
}

func TestSearchWithoutBaseURLErrors(t *testing.T) {
	s := NewSearcher(Config{})
	if _, err := s.Search(context.Background(), "query", 1); err == nil {
		t.Error("Search() without SEARXNG_BASE_URL should error")
	}
}

func TestSearchNonOKStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewSearcher(Config{SearXNGBaseURL: srv.URL, SearchTimeout: 5 * time.Second})
	if _, err := s.Search(context.Background(), "query", 1); err == nil {
		t.Error("Search() with a non-200 upstream response should error")
	}
}
