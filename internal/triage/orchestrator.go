package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sentrybot/internal/classify"
	"sentrybot/internal/domain"
	"sentrybot/internal/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultToolTimeout = 15 * time.Second
	defaultRawEcho     = 200
)

// ErrInvalidInput is returned when the raw input is empty or unusable before
// tool selection. It is the only error the analysis path surfaces to callers
// besides context cancellation.
var ErrInvalidInput = errors.New("invalid input: nothing to analyze")

// Registry is the analyzer lookup the engine consumes.
type Registry interface {
	Has(name string) bool
	Get(name string) domain.Analyzer
}

// Engine composes classification, tool selection, concurrent evidence
// collection, fusion, and reporting into one request/response cycle. It holds
// no per-request state; all accumulation is request-scoped.
type Engine struct {
	tools       Registry
	fusion      *Fusion
	provider    domain.Provider
	logger      *slog.Logger
	toolTimeout time.Duration
	rawEcho     int
}

// EngineConfig holds the engine's dependencies and tuning parameters.
// Provider is optional; without it summaries use the deterministic fallback.
type EngineConfig struct {
	Tools        Registry
	Fusion       *Fusion
	Provider     domain.Provider
	Logger       *slog.Logger
	ToolTimeout  time.Duration
	RawEchoLimit int
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Fusion == nil {
		cfg.Fusion = NewFusion(FusionConfig{})
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = defaultToolTimeout
	}
	if cfg.RawEchoLimit <= 0 {
		cfg.RawEchoLimit = defaultRawEcho
	}
	return &Engine{
		tools:       cfg.Tools,
		fusion:      cfg.Fusion,
		provider:    cfg.Provider,
		logger:      cfg.Logger,
		toolTimeout: cfg.ToolTimeout,
		rawEcho:     cfg.RawEchoLimit,
	}
}

// Analyze runs one full triage cycle. hint, when non-empty, bypasses
// classification for media flows handled by dedicated analyzers. A failed or
// absent evidence source never aborts the cycle; the request fails only on
// invalid input or caller cancellation.
func (e *Engine) Analyze(ctx context.Context, rawInput string, hint domain.ContentType, language string) (*domain.AnalysisResult, error) {
	if strings.TrimSpace(rawInput) == "" {
		return nil, ErrInvalidInput
	}
	language = normalizeLanguage(language)

	contentType := hint
	if contentType == "" {
		contentType = classify.Classify(rawInput)
	}

	selected := SelectTools(contentType, e.tools)
	e.logger.Info("triage started",
		"content_type", contentType,
		"tools", len(selected),
		"language", language,
	)

	signals := e.collectSignals(ctx, selected, rawInput)
	if err := ctx.Err(); err != nil {
		// Cancelled by the caller: discard partial results.
		return nil, err
	}

	assessment := e.fusion.Fuse(signals)
	uncertainty := ExplainUncertainty(signals, assessment)
	recommendations := Recommend(assessment.RiskTier, contentType, language)
	summary := e.summarize(ctx, contentType, assessment, signals, language)

	metrics.AnalysesTotal.Inc()
	e.logger.Info("triage completed",
		"content_type", contentType,
		"risk_tier", assessment.RiskTier,
		"risk_score", assessment.RiskScore,
		"signals", len(signals),
	)

	return &domain.AnalysisResult{
		ID:               uuid.NewString(),
		ContentType:      contentType,
		RiskScore:        assessment.RiskScore,
		RiskTier:         assessment.RiskTier,
		Confidence:       assessment.Confidence,
		Summary:          summary,
		Reasoning:        assessment.Reasoning,
		Signals:          signals,
		Recommendations:  recommendations,
		UncertaintyNotes: uncertainty,
		RawInput:         truncate(rawInput, e.rawEcho),
		Language:         language,
		CreatedAt:        time.Now(),
	}, nil
}

// collectSignals fans out to the selected analyzers concurrently and waits
// for every outcome. Each invocation is isolated: an error, timeout, panic,
// or nil signal degrades to absence. Goroutines always return nil so a
// failing tool never cancels its siblings.
func (e *Engine) collectSignals(ctx context.Context, selected []string, rawInput string) []domain.Signal {
	results := make([]*domain.Signal, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range selected {
		g.Go(func() error {
			results[i] = e.invoke(gctx, name, rawInput)
			return nil
		})
	}
	g.Wait()

	signals := make([]domain.Signal, 0, len(results))
	for _, sig := range results {
		if sig != nil {
			signals = append(signals, *sig)
		}
	}
	return signals
}

// invoke runs one analyzer with a per-tool timeout, converting every failure
// mode to signal absence. Nothing an analyzer does may abort the overall
// request.
func (e *Engine) invoke(ctx context.Context, name, rawInput string) (sig *domain.Signal) {
	analyzer := e.tools.Get(name)
	if analyzer == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("analyzer panicked", "tool", name, "panic", fmt.Sprint(r))
			sig = nil
		}
	}()

	tctx, cancel := context.WithTimeout(ctx, e.toolTimeout)
	defer cancel()

	start := time.Now()
	result, err := analyzer.Analyze(tctx, rawInput)
	metrics.ToolLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ToolFailures.Inc()
		e.logger.Warn("analyzer failed, continuing without its signal",
			"tool", name, "error", err,
		)
		return nil
	}
	if result == nil {
		e.logger.Debug("analyzer produced no signal", "tool", name)
		return nil
	}

	// Defensive clamp: producers should bound these, but the contract
	// demands the engine never trust that.
	result.Score = domain.ClampScore(result.Score)
	result.Confidence = domain.ClampScore(result.Confidence)
	return result
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
