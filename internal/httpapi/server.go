// Package httpapi implements spec component C9: the OpenAI-compatible
// chat completions surface, plus model listing and task status, over
// the connector (C3), task substrate (C6), catalog cache (C1), and
// principal registry (C10).
//
// Grounded on the teacher's internal/http/server.go (mux + middleware
// chain shape, graceful Start/Stop, SSE response headers) adapted from
// HTML/session routing to a JSON API.
package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/harpou-com/llm-gateway/internal/catalog"
	"github.com/harpou-com/llm-gateway/internal/config"
	"github.com/harpou-com/llm-gateway/internal/llmconnector"
	. "github.com/harpou-com/llm-gateway/internal/logging"
	"github.com/harpou-com/llm-gateway/internal/metrics"
	"github.com/harpou-com/llm-gateway/internal/principal"
	"github.com/harpou-com/llm-gateway/internal/tasks"
)

// Server is the HTTP surface over the gateway's core components. It uses
// internal/orchestrator only to encode the task payload (EncodePayload)
// and never runs the pipeline: the agentic path only ever enqueues a
// Spec{Kind: "orchestrate"} onto the task Store, which a
// separate worker (wired in cmd/gateway-worker) drains and runs through
// the orchestrator. This keeps the HTTP process able to run standalone
// against a remote task store (spec 6: "two runtime roles").
type Server struct {
	httpServer    *http.Server
	metricsServer *http.Server

	cache      *catalog.Cache
	refresher  *catalog.Refresher
	store      tasks.Store
	principals *principal.Registry
	connector  *llmconnector.Connector
	cfg        *config.Config

	wg sync.WaitGroup
}

// New builds a Server wired to the gateway's core components.
func New(cfg *config.Config, cache *catalog.Cache, refresher *catalog.Refresher, store tasks.Store, principals *principal.Registry, connector *llmconnector.Connector) *Server {
	s := &Server{
		cache:      cache,
		refresher:  refresher,
		store:      store,
		principals: principals,
		connector:  connector,
		cfg:        cfg,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // unbounded: SSE responses stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	if cfg.MetricsAddr != "" {
		s.metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return s.logRequest(s.stripHeaders(s.authenticate(s.rateLimit(h))))
	}

	mux.HandleFunc("/v1/models", protected(s.handleModels))
	mux.HandleFunc("/v1/chat/completions", protected(s.handleChatCompletions))
	mux.HandleFunc("/v1/tasks/status/", protected(s.handleTaskStatus))

	return mux
}

// Start begins serving in the background.
func (s *Server) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		L_info("httpapi: server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			L_error("httpapi: server error", "error", err)
		}
	}()

	if s.metricsServer != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			L_info("httpapi: metrics server starting", "addr", s.metricsServer.Addr)
			if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				L_error("httpapi: metrics server error", "error", err)
			}
		}()
	}
}

// Stop gracefully shuts both servers down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)
	if s.metricsServer != nil {
		if mErr := s.metricsServer.Shutdown(ctx); mErr != nil && err == nil {
			err = mErr
		}
	}
	s.wg.Wait()
	return err
}

// logRequest mirrors the teacher's logging middleware.
func (s *Server) logRequest(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(lw, r)
		metrics.RecordRequest(r.URL.Path, lw.statusCode)
		L_trace("httpapi: request", "method", r.Method, "path", r.URL.Path, "status", lw.statusCode, "duration", time.Since(start))
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lw *loggingResponseWriter) WriteHeader(code int) {
	lw.statusCode = code
	lw.ResponseWriter.WriteHeader(code)
}

func (lw *loggingResponseWriter) Flush() {
	if f, ok := lw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// stripHeaders removes fingerprinting headers, same as the teacher.
func (s *Server) stripHeaders(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Del("Server")
		w.Header().Del("X-Powered-By")
		handler(w, r)
	}
}
