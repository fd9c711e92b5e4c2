package tool

import (
	"context"
	"fmt"
	"log/slog"

	"sentrybot/internal/domain"
	"sentrybot/internal/patterns"
)

// Transcript detects social-engineering patterns in call transcripts. The
// input is expected to already be text; transcription happens upstream.
type Transcript struct {
	set    *patterns.Set
	logger *slog.Logger
}

func NewTranscript(set *patterns.Set, logger *slog.Logger) *Transcript {
	if set == nil {
		set = patterns.Builtin()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcript{set: set, logger: logger}
}

func (t *Transcript) Name() string { return "transcript_patterns" }

// riskScores maps the detector's risk level to a signal score.
var riskScores = map[string]float64{
	"high":    85,
	"medium":  60,
	"low":     30,
	"minimal": 10,
}

func (t *Transcript) Analyze(ctx context.Context, input string) (*domain.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	det := t.set.Detect(input)

	score, ok := riskScores[det.RiskLevel]
	if !ok {
		score = 50
	}

	counts := make(map[string]any, len(det.Matches))
	for family, matches := range det.Matches {
		counts[family] = len(matches)
	}

	return &domain.Signal{
		Source:     "transcript_patterns",
		Score:      score,
		Confidence: det.Confidence,
		Evidence:   fmt.Sprintf("%d social-engineering indicators detected (%s risk)", det.Total, det.RiskLevel),
		Raw:        counts,
	}, nil
}
