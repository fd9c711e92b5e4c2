package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sentrybot/internal/domain"
)

// Failover tries providers in order and returns the first successful
// completion. It lets the triage engine keep producing LLM-backed summaries
// and judgments when the primary provider is down.
type Failover struct {
	providers []domain.Provider
	logger    *slog.Logger
}

func NewFailover(providers []domain.Provider, logger *slog.Logger) *Failover {
	if logger == nil {
		logger = slog.Default()
	}
	return &Failover{providers: providers, logger: logger}
}

func (f *Failover) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return "failover(" + strings.Join(names, ",") + ")"
}

func (f *Failover) Healthy(ctx context.Context) error {
	for _, p := range f.providers {
		if err := p.Healthy(ctx); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no healthy provider in failover chain")
}

func (f *Failover) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	var lastErr error
	for i, p := range f.providers {
		resp, err := p.Complete(ctx, req)
		if err == nil {
			if i > 0 {
				f.logger.Info("failover: used fallback provider",
					"provider", p.Name(),
					"attempt", i+1,
				)
			}
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			// Caller gave up; stop walking the chain.
			return nil, ctx.Err()
		}
		f.logger.Warn("failover: provider failed, trying next",
			"provider", p.Name(),
			"attempt", i+1,
			"error", err,
		)
	}
	return nil, fmt.Errorf("all providers in failover chain failed: %w", lastErr)
}
