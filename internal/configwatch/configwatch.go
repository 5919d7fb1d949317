// Package configwatch hot-reloads the gateway's JSON config file so the
// principal registry and tool registry pick up edited user lists and tool
// definitions without a restart, mirroring the teacher's live-reload of
// goclaw.json (internal/cron/service.go, internal/skills/watcher.go).
package configwatch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/harpou-com/llm-gateway/internal/config"
	. "github.com/harpou-com/llm-gateway/internal/logging"
)

// debounce is how long to wait after a write before reloading, matching the
// teacher's FileChangeDebounce — enough for another process's write to
// settle without picking up a half-written file.
const debounce = 150 * time.Millisecond

// Watcher reloads config.Load(path) whenever the file changes on disk and
// hands the result to onChange. It watches the file's containing directory
// rather than the file itself, the same way the teacher's cron service
// does ("fsnotify watches dirs better than files").
type Watcher struct {
	path     string
	onChange func(*config.Config)

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu           sync.Mutex
	pendingTimer *time.Timer
}

// New builds a Watcher for path. Returns an error only if the OS-level
// watch could not be created; callers should treat that as non-fatal and
// simply not hot-reload, matching the teacher's "failed to watch, external
// changes won't be detected" degrade-gracefully behavior.
func New(path string, onChange func(*config.Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		path:     path,
		onChange: onChange,
		watcher:  fsw,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	file := filepath.Base(w.path)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != file {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			L_warn("configwatch: watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pendingTimer != nil {
		w.pendingTimer.Reset(debounce)
		return
	}
	w.pendingTimer = time.AfterFunc(debounce, func() {
		w.mu.Lock()
		w.pendingTimer = nil
		w.mu.Unlock()
		w.reload()
	})
}

// reload re-reads the config file and, on success, calls onChange. A
// malformed or temporarily-truncated file logs a warning and keeps the
// previously loaded config in place rather than tearing down the process —
// a bad edit to a live config file should not take the gateway down.
func (w *Watcher) reload() {
	cfg, err := config.Load(w.path)
	if err != nil {
		L_warn("configwatch: reload failed, keeping previous config", "path", w.path, "error", err)
		return
	}
	L_info("configwatch: config file changed, reloaded", "path", w.path)
	w.onChange(cfg)
}

// Stop halts the watcher and releases the underlying OS resources.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	if w.pendingTimer != nil {
		w.pendingTimer.Stop()
	}
	w.mu.Unlock()

	return w.watcher.Close()
}
