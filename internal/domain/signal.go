package domain

import "time"

// ContentType classifies what kind of content a request is about.
type ContentType string

const (
	ContentURL     ContentType = "url"
	ContentEmail   ContentType = "email"
	ContentPhone   ContentType = "phone"
	ContentMessage ContentType = "message"
	ContentImage   ContentType = "image"
	ContentVoice   ContentType = "voice"
	ContentVideo   ContentType = "video"
	ContentUnknown ContentType = "unknown"
)

// RiskTier is the discretized risk bucket derived from the fused score.
type RiskTier string

const (
	TierMinimal RiskTier = "minimal"
	TierLow     RiskTier = "low"
	TierMedium  RiskTier = "medium"
	TierHigh    RiskTier = "high"
)

// Signal is one evidence source's scored opinion about the input.
// Score and Confidence are clamped to [0,100] by the producer; the fusion
// engine clamps again before weighting. A Signal is immutable once produced.
type Signal struct {
	Source     string         `json:"source"`
	Score      float64        `json:"score"`      // 0-100, 100 = maximal threat
	Confidence float64        `json:"confidence"` // 0-100
	Evidence   string         `json:"evidence"`
	Raw        map[string]any `json:"raw,omitempty"`
}

// RiskAssessment is the fused verdict over a signal set. It is derived per
// request and never persisted by the core.
type RiskAssessment struct {
	RiskScore  float64  `json:"riskScore"`
	RiskTier   RiskTier `json:"riskTier"`
	Confidence float64  `json:"confidence"`
	Reasoning  []string `json:"reasoning"`
}

// AnalysisResult is the terminal artifact of one triage cycle.
// RawInput carries only a truncated echo of the analyzed content.
type AnalysisResult struct {
	ID               string      `json:"id"`
	ContentType      ContentType `json:"contentType"`
	RiskScore        float64     `json:"riskScore"`
	RiskTier         RiskTier    `json:"riskTier"`
	Confidence       float64     `json:"confidence"`
	Summary          string      `json:"summary"`
	Reasoning        []string    `json:"reasoning"`
	Signals          []Signal    `json:"signals"`
	Recommendations  []string    `json:"recommendations"`
	UncertaintyNotes []string    `json:"uncertaintyNotes"`
	RawInput         string      `json:"rawInput"`
	Language         string      `json:"language"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// ClampScore bounds a score or confidence value to [0,100].
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
