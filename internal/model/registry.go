package model

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// Registry serves loaded model handles by name. Only the configured
// names are servable; artifacts load lazily on first use and can be
// refreshed as a whole with ReloadAll.
type Registry struct {
	dir    string
	names  map[string]struct{}
	logger *slog.Logger

	mu      sync.Mutex
	handles map[string]Handle
}

// NewRegistry creates a registry serving the given model names from
// artifact files named <dir>/<name>.json.
func NewRegistry(dir string, names []string, logger *slog.Logger) *Registry {
	registered := make(map[string]struct{}, len(names))
	for _, name := range names {
		registered[name] = struct{}{}
	}
	return &Registry{
		dir:     dir,
		names:   registered,
		logger:  logger.With("component", "model_registry"),
		handles: make(map[string]Handle),
	}
}

// Get returns the handle for a registered model, loading the artifact
// on first use. Unknown names fail with ErrModelNotRegistered.
func (r *Registry) Get(name string) (Handle, error) {
	if _, ok := r.names[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrModelNotRegistered, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if handle, ok := r.handles[name]; ok {
		return handle, nil
	}

	handle, err := r.load(name)
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", name, err)
	}
	r.handles[name] = handle

	r.logger.Info("model loaded", "model", name, "kind", handle.Kind())
	return handle, nil
}

// ReloadAll re-reads every registered artifact and swaps the cache in
// one step. A model that fails to reload keeps its previous handle;
// failures are logged but never returned.
func (r *Registry) ReloadAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := make(map[string]Handle, len(r.names))
	for name := range r.names {
		handle, err := r.load(name)
		if err != nil {
			r.logger.Error("model reload failed, keeping previous handle",
				"error", err,
				"model", name)
			if old, ok := r.handles[name]; ok {
				fresh[name] = old
			}
			continue
		}
		fresh[name] = handle
	}

	r.handles = fresh
	r.logger.Info("model registry reloaded", "loaded", len(fresh))
}

func (r *Registry) load(name string) (Handle, error) {
	path := filepath.Join(r.dir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}

	return newHandle(&a)
}
