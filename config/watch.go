package config

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// Watcher hands out the current immutable config snapshot and swaps it
// when the file on disk changes. Readers go through Current on every
// use rather than caching the pointer.
type Watcher struct {
	path  string
	cur   atomic.Pointer[Config]
	mtime time.Time
}

func NewWatcher(initial *Config) *Watcher {
	w := &Watcher{path: Path()}
	w.cur.Store(initial)
	if info, err := os.Stat(w.path); err == nil {
		w.mtime = info.ModTime()
	}
	return w
}

// Current returns the active snapshot. Never nil.
func (w *Watcher) Current() *Config {
	return w.cur.Load()
}

// Run polls the config file's mtime and reloads on change, until ctx is
// done. A reload that fails to parse keeps the previous snapshot.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.reload()
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) reload() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}
	if !info.ModTime().After(w.mtime) {
		return
	}

	cfg, err := Load()
	if err != nil {
		slog.Error("config reload failed, keeping previous", "path", w.path, "err", err)
		return
	}
	w.mtime = info.ModTime()
	w.cur.Store(cfg)
	// The listen address cannot change without a restart; everything
	// else takes effect immediately.
	slog.Info("config reloaded", "path", w.path)
}
