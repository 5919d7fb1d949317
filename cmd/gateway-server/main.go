// Command gateway-server runs the HTTP surface (C9): model listing, the
// OpenAI-compatible chat completions endpoint, and task status polling. It
// shares its config and task store with gateway-worker (spec 6: "two
// runtime roles are launched externally") but carries no orchestrator code
// of its own — the agentic path only enqueues tasks for the worker to run.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/harpou-com/llm-gateway/internal/backend"
	"github.com/harpou-com/llm-gateway/internal/catalog"
	"github.com/harpou-com/llm-gateway/internal/config"
	"github.com/harpou-com/llm-gateway/internal/configwatch"
	"github.com/harpou-com/llm-gateway/internal/httpapi"
	"github.com/harpou-com/llm-gateway/internal/llmconnector"
	. "github.com/harpou-com/llm-gateway/internal/logging"
	"github.com/harpou-com/llm-gateway/internal/principal"
	"github.com/harpou-com/llm-gateway/internal/tasks"
)

// CLI is the gateway-server flag surface.
type CLI struct {
	Debug  bool   `help:"Enable debug logging" short:"d"`
	Trace  bool   `help:"Enable trace logging" short:"t"`
	Config string `help:"Config file path" short:"c" type:"path" default:"config.json"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("gateway-server"),
		kong.Description("LLM gateway HTTP surface"),
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

	principals := principal.New(cfg.Users, cfg.RateLimitDefault)

	watcher, err := configwatch.New(cli.Config, func(reloaded *config.Config) {
		principals.Reload(reloaded.Users, reloaded.RateLimitDefault)
	})
	if err != nil {
		L_warn("configwatch: disabled, user list will not hot-reload", "error", err)
	} else {
		watcher.Start()
		defer watcher.Stop()
	}

	cache := catalog.New()
	refresher := catalog.NewRefresher(cache, connector)
	interval := time.Duration(cfg.CacheUpdateIntervalMin) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if err := refresher.Start(interval); err != nil {
		L_fatal("catalog: refresher start failed", "error", err)
	}
	refresher.EnsureFresh()

	server := httpapi.New(cfg, cache, refresher, store, principals, connector)
	server.Start()
	L_info("gateway-server: ready", "addr", cfg.HTTPAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	L_info("gateway-server: received signal", "signal", sig)
	signal.Stop(sigCh)

	refresher.Stop()
	if err := server.Stop(); err != nil {
		L_error("gateway-server: shutdown error", "error", err)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			L_warn("tasks: store close error", "error", err)
		}
	}
	L_info("gateway-server: stopped")
}

func openTaskStore(cfg *config.Config) (tasks.Store, error) {
	if cfg.RedisURL != "" {
		return tasks.NewRedisStore(cfg.RedisURL)
	}
	return tasks.NewMemoryStore(0), nil
}
