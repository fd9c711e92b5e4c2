package provider

import (
	"fmt"
	"log/slog"
	"sync"

	"sentrybot/internal/config"
	"sentrybot/internal/domain"
)

// Factory creates and caches providers from config. Unknown provider names
// with an API base and key are treated as OpenAI-compatible, which covers
// most hosted inference services.
type Factory struct {
	cfg    *config.Config
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]domain.Provider
}

func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		cfg:    cfg,
		logger: logger,
		cache:  make(map[string]domain.Provider),
	}
}

// Get returns the named provider, or the configured default when name is
// empty. Instances are cached and shared.
func (f *Factory) Get(name string) (domain.Provider, error) {
	if name == "" {
		name = f.cfg.General.DefaultProvider
	}
	if name == "" {
		return nil, fmt.Errorf("no provider requested and no default configured")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, ok := f.cache[name]; ok {
		return cached, nil
	}

	pc, ok := f.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	if !pc.Enabled {
		return nil, fmt.Errorf("provider %s is disabled", name)
	}
	if pc.APIKey == "" {
		return nil, fmt.Errorf("provider %s: api key not configured", name)
	}

	p := NewOpenAI(OpenAIConfig{
		APIKey:  pc.APIKey,
		APIBase: pc.APIBase,
		Model:   pc.Model,
		Logger:  f.logger.With("provider", name),
	})
	f.cache[name] = p
	return p, nil
}

// Default returns the configured default provider.
func (f *Factory) Default() (domain.Provider, error) {
	return f.Get("")
}

// Chain builds a failover chain over every enabled provider, default first.
// Returns nil when no provider is usable; the engine then runs without LLM
// support.
func (f *Factory) Chain() domain.Provider {
	var providers []domain.Provider

	if p, err := f.Get(""); err == nil {
		providers = append(providers, p)
	}
	for name := range f.cfg.Providers {
		if name == f.cfg.General.DefaultProvider {
			continue
		}
		p, err := f.Get(name)
		if err != nil {
			f.logger.Debug("skipping provider in chain", "provider", name, "reason", err)
			continue
		}
		providers = append(providers, p)
	}

	switch len(providers) {
	case 0:
		return nil
	case 1:
		return providers[0]
	default:
		return NewFailover(providers, f.logger)
	}
}
