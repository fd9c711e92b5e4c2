// Package tool implements the evidence-source analyzers and their registry.
// Each analyzer consults one external or local source and emits at most one
// threat signal; the triage engine composes them.
package tool

import (
	"log/slog"
	"sort"
	"sync"

	"sentrybot/internal/domain"
)

// Registry holds the available analyzers by name. Registration happens at
// startup; lookups are concurrent.
type Registry struct {
	mu        sync.RWMutex
	analyzers map[string]domain.Analyzer
	logger    *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		analyzers: make(map[string]domain.Analyzer),
		logger:    logger,
	}
}

func (r *Registry) Register(a domain.Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzers[a.Name()] = a
	r.logger.Debug("registered analyzer", "name", a.Name())
}

func (r *Registry) Get(name string) domain.Analyzer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.analyzers[name]
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.analyzers[name]
	return ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.analyzers))
	for n := range r.analyzers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
