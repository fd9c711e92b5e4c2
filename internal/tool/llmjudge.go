package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sentrybot/internal/domain"
)

// LLMJudge asks the text-generation provider for a free-form risk analysis
// and grades it by the verdict vocabulary it uses. The banded keyword scoring
// keeps the signal deterministic even though the analysis text is not.
type LLMJudge struct {
	provider domain.Provider
	logger   *slog.Logger
}

func NewLLMJudge(provider domain.Provider, logger *slog.Logger) *LLMJudge {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMJudge{provider: provider, logger: logger}
}

func (j *LLMJudge) Name() string { return "llm_judgment" }

const judgePrompt = `Analyze the following content for signs of phishing, scams, or other malicious intent.

Content: %s

Describe the risk in 2-4 sentences. Use precise vocabulary: call it phishing, scam, malicious, or fraud when the evidence supports that; suspicious or concerning when it is ambiguous; legitimate, safe, or benign when nothing stands out.`

// Keyword bands, checked high to low; the first band with a hit decides the
// score. The default covers analyses that commit to no vocabulary at all.
var judgeBands = []struct {
	score    float64
	keywords []string
}{
	{75, []string{"phishing", "scam", "malicious", "dangerous", "fraud"}},
	{50, []string{"suspicious", "concerning", "caution", "warning"}},
	{15, []string{"legitimate", "safe", "normal", "benign"}},
}

const judgeDefaultScore = 30

func (j *LLMJudge) Analyze(ctx context.Context, input string) (*domain.Signal, error) {
	if j.provider == nil {
		return nil, fmt.Errorf("llm_judgment: no provider configured")
	}

	resp, err := j.provider.Complete(ctx, domain.CompletionRequest{
		Prompt:      fmt.Sprintf(judgePrompt, input),
		MaxTokens:   250,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("llm_judgment: %w", err)
	}

	analysis := strings.TrimSpace(resp.Content)
	if analysis == "" {
		return nil, fmt.Errorf("llm_judgment: empty analysis")
	}

	score := scoreAnalysis(analysis)
	return &domain.Signal{
		Source:     "llm_judgment",
		Score:      score,
		Confidence: 70,
		Evidence:   truncateEvidence(analysis, 200),
	}, nil
}

func scoreAnalysis(analysis string) float64 {
	lower := strings.ToLower(analysis)
	for _, band := range judgeBands {
		for _, kw := range band.keywords {
			if strings.Contains(lower, kw) {
				return band.score
			}
		}
	}
	return judgeDefaultScore
}

func truncateEvidence(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
