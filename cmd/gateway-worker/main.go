// Command gateway-worker drains the task substrate (C6): it runs the
// orchestrator (C7) for "orchestrate" tasks and performs on-demand catalog
// refreshes for "refresh_catalog" tasks. It shares config and the task
// store with gateway-server but never listens on HTTP itself (spec 6:
// "two runtime roles are launched externally").
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/harpou-com/llm-gateway/internal/backend"
	"github.com/harpou-com/llm-gateway/internal/catalog"
	"github.com/harpou-com/llm-gateway/internal/config"
	"github.com/harpou-com/llm-gateway/internal/configwatch"
	"github.com/harpou-com/llm-gateway/internal/llmconnector"
	. "github.com/harpou-com/llm-gateway/internal/logging"
	"github.com/harpou-com/llm-gateway/internal/orchestrator"
	"github.com/harpou-com/llm-gateway/internal/tasks"
	"github.com/harpou-com/llm-gateway/internal/toolregistry"
	"github.com/harpou-com/llm-gateway/internal/webfetch"
)

// CLI is the gateway-worker flag surface.
type CLI struct {
	Debug  bool   `help:"Enable debug logging" short:"d"`
	Trace  bool   `help:"Enable trace logging" short:"t"`
	Config string `help:"Config file path" short:"c" type:"path" default:"config.json"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("gateway-worker"),
		kong.Description("LLM gateway task worker (orchestrator + catalog refresh)"),
		kong.UsageOnError(),
	)

	logCfg := DefaultConfig()
	switch {
	case cli.Trace:
		logCfg.Level = LevelTrace
	case cli.Debug:
		logCfg.Level = LevelDebug
	}
	Init(logCfg)
	SetLevel(logCfg.Level)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		L_fatal("config: load failed", "error", err)
	}

	registry, err := backend.New(cfg.LLMBackends)
	if err != nil {
		L_fatal("backend: registry init failed", "error", err)
	}
	connector := llmconnector.New(registry, cfg)

	store, err := openTaskStore(cfg)
	if err != nil {
		L_fatal("tasks: store init failed", "error", err)
	}

	webCfg := webfetch.DefaultConfig()
	webCfg.SearXNGBaseURL = cfg.SearXNGBaseURL
	searcher := webfetch.NewSearcher(webCfg)
	reader := webfetch.NewReader(webCfg)

	// Global substitutions available to url_from_template tools.
	globals := map[string]string{"SEARXNG_BASE_URL": cfg.SearXNGBaseURL}
	tools, err := toolregistry.Load(cfg.AvailableTools, searcher, reader, globals)
	if err != nil {
		L_fatal("toolregistry: load failed", "error", err)
	}
	L_info("toolregistry: loaded", "count", tools.Count())
	toolStore := toolregistry.NewStore(tools)

	watcher, err := configwatch.New(cli.Config, func(reloaded *config.Config) {
		rebuilt, err := toolregistry.Load(reloaded.AvailableTools, searcher, reader, globals)
		if err != nil {
			L_warn("toolregistry: reload failed, keeping previous registry", "error", err)
			return
		}
		toolStore.Swap(rebuilt)
		L_info("toolregistry: reloaded", "count", rebuilt.Count())
	})
	if err != nil {
		L_warn("configwatch: disabled, tool registry will not hot-reload", "error", err)
	} else {
		watcher.Start()
		defer watcher.Stop()
	}

	orch := orchestrator.New(connector, toolStore, cfg)

	cache := catalog.New()
	refresher := catalog.NewRefresher(cache, connector)

	handlers := map[string]tasks.Handler{
		"orchestrate": func(ctx context.Context, payload map[string]any) (string, error) {
			in, err := orchestrator.DecodePayload(payload)
			if err != nil {
				return "", err
			}
			return orch.Run(ctx, in.Conversation, in.SID, in.ModelID, in.Principal), nil
		},
		"refresh_catalog": func(ctx context.Context, payload map[string]any) (string, error) {
			refresher.Refresh()
			return "catalog refreshed", nil
		},
	}

	worker := tasks.NewWorker(store, handlers)

	runCtx, cancel := context.WithCancel(context.Background())
	go func() {
		worker.Run(runCtx)
	}()
	L_info("gateway-worker: ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	L_info("gateway-worker: received signal", "signal", sig)
	signal.Stop(sigCh)
	cancel()

	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			L_warn("tasks: store close error", "error", err)
		}
	}
	L_info("gateway-worker: stopped")
}

func openTaskStore(cfg *config.Config) (tasks.Store, error) {
	if cfg.RedisURL != "" {
		return tasks.NewRedisStore(cfg.RedisURL)
	}
	return tasks.NewMemoryStore(0), nil
}
