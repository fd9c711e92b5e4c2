// Package triage contains the signal-fusion and orchestration engine: it
// classifies input, fans out to evidence analyzers, fuses their signals into
// one risk verdict, and derives recommendations and uncertainty notes.
package triage

import (
	"fmt"
	"sort"
	"strings"

	"sentrybot/internal/domain"
)

const defaultSourceWeight = 0.05

// FusionConfig is the immutable weighting configuration for the fusion
// engine. Weights is keyed by signal source name; sources not present use
// DefaultWeight (low trust).
type FusionConfig struct {
	Weights       map[string]float64
	DefaultWeight float64
	Thresholds    Thresholds
}

// Thresholds are the inclusive lower bounds of each risk tier on the
// normalized 0-100 score.
type Thresholds struct {
	High   float64
	Medium float64
	Low    float64
}

// DefaultThresholds returns the standard tier boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 75, Medium: 50, Low: 25}
}

// Fusion combines heterogeneous, differently-trusted signals into a single
// risk assessment. No single source dictates the verdict.
type Fusion struct {
	weights       map[string]float64
	defaultWeight float64
	thresholds    Thresholds
}

func NewFusion(cfg FusionConfig) *Fusion {
	if cfg.DefaultWeight <= 0 {
		cfg.DefaultWeight = defaultSourceWeight
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	weights := make(map[string]float64, len(cfg.Weights))
	for name, w := range cfg.Weights {
		weights[strings.ToLower(name)] = w
	}
	return &Fusion{
		weights:       weights,
		defaultWeight: cfg.DefaultWeight,
		thresholds:    cfg.Thresholds,
	}
}

// Fuse computes the confidence-weighted risk assessment over a signal set.
// Each signal contributes score*weight*(confidence/100) to the numerator;
// the denominator is the sum of weights only, so low confidence mutes a
// signal's contribution without shrinking its voting weight. The aggregate
// confidence is the unweighted mean of signal confidences. The result is
// invariant under permutation of the input.
func (f *Fusion) Fuse(signals []domain.Signal) domain.RiskAssessment {
	if len(signals) == 0 {
		return domain.RiskAssessment{
			RiskScore:  0,
			RiskTier:   domain.TierMinimal,
			Confidence: 20,
			Reasoning:  []string{"No threat signals detected"},
		}
	}

	var totalWeight, weightedSum, confidenceSum float64
	clamped := make([]domain.Signal, len(signals))
	for i, sig := range signals {
		sig.Score = domain.ClampScore(sig.Score)
		sig.Confidence = domain.ClampScore(sig.Confidence)
		clamped[i] = sig

		weight := f.sourceWeight(sig.Source)
		weightedSum += sig.Score * weight * (sig.Confidence / 100)
		totalWeight += weight
		confidenceSum += sig.Confidence
	}

	riskScore := 0.0
	if totalWeight > 0 {
		riskScore = weightedSum / totalWeight
	}
	avgConfidence := confidenceSum / float64(len(clamped))

	return domain.RiskAssessment{
		RiskScore:  round1(riskScore),
		RiskTier:   f.tierFor(riskScore),
		Confidence: round1(avgConfidence),
		Reasoning:  f.reasoning(clamped),
	}
}

func (f *Fusion) sourceWeight(source string) float64 {
	if w, ok := f.weights[strings.ToLower(source)]; ok {
		return w
	}
	return f.defaultWeight
}

func (f *Fusion) tierFor(score float64) domain.RiskTier {
	switch {
	case score >= f.thresholds.High:
		return domain.TierHigh
	case score >= f.thresholds.Medium:
		return domain.TierMedium
	case score >= f.thresholds.Low:
		return domain.TierLow
	default:
		return domain.TierMinimal
	}
}

// reasoning buckets signals into strong (>=70), moderate (40-69), and weak
// (<40) score bands, one sentence per non-empty band, then adds an agreement
// sentence when two or more signals contributed. Sources within a band are
// sorted so the output is stable under input reordering.
func (f *Fusion) reasoning(signals []domain.Signal) []string {
	var strong, moderate, weak []string
	for _, sig := range signals {
		switch {
		case sig.Score >= 70:
			strong = append(strong, sig.Source)
		case sig.Score >= 40:
			moderate = append(moderate, sig.Source)
		default:
			weak = append(weak, sig.Source)
		}
	}
	sort.Strings(strong)
	sort.Strings(moderate)
	sort.Strings(weak)

	var reasoning []string
	if len(strong) > 0 {
		reasoning = append(reasoning, fmt.Sprintf("Strong threat indicators from %s", strings.Join(strong, ", ")))
	}
	if len(moderate) > 0 {
		reasoning = append(reasoning, fmt.Sprintf("Moderate concerns flagged by %s", strings.Join(moderate, ", ")))
	}
	if len(weak) > 0 {
		reasoning = append(reasoning, fmt.Sprintf("Minimal indicators from %s", strings.Join(weak, ", ")))
	}

	if len(signals) >= 2 {
		if scoreSpread(signals) < 20 {
			reasoning = append(reasoning, "Multiple sources show consistent assessment")
		} else {
			reasoning = append(reasoning, "Sources show mixed signals - verdict requires caution")
		}
	}

	if len(reasoning) == 0 {
		reasoning = []string{"Insufficient data for detailed reasoning"}
	}
	return reasoning
}

// scoreSpread returns max-min over signal scores.
func scoreSpread(signals []domain.Signal) float64 {
	min, max := signals[0].Score, signals[0].Score
	for _, sig := range signals[1:] {
		if sig.Score < min {
			min = sig.Score
		}
		if sig.Score > max {
			max = sig.Score
		}
	}
	return max - min
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
