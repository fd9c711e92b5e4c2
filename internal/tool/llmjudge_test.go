package tool

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"sentrybot/internal/domain"
)

type stubProvider struct {
	content string
	err     error
}

var _ domain.Provider = (*stubProvider)(nil)

func (s *stubProvider) Name() string { return "stub" }
func (s *stubProvider) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.CompletionResponse{Content: s.content}, nil
}
func (s *stubProvider) Healthy(ctx context.Context) error { return nil }

func TestScoreAnalysisBands(t *testing.T) {
	tests := []struct {
		name     string
		analysis string
		want     float64
	}{
		{"high band", "This is a classic phishing attempt targeting bank credentials.", 75},
		{"high beats low when both present", "Looks legitimate at first but is actually a scam.", 75},
		{"medium band", "Several suspicious elements warrant caution.", 50},
		{"low band", "The content appears legitimate and benign.", 15},
		{"no vocabulary", "The message mentions a meeting next week.", 30},
		{"case insensitive", "VERDICT: MALICIOUS", 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoreAnalysis(tt.analysis); got != tt.want {
				t.Errorf("scoreAnalysis(%q) = %v, want %v", tt.analysis, got, tt.want)
			}
		})
	}
}

func TestLLMJudgeAnalyze(t *testing.T) {
	judge := NewLLMJudge(&stubProvider{content: "This is a scam."}, slog.Default())

	sig, err := judge.Analyze(context.Background(), "free iphone click here")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if sig.Source != "llm_judgment" {
		t.Errorf("source = %q", sig.Source)
	}
	if sig.Score != 75 {
		t.Errorf("score = %v, want 75", sig.Score)
	}
	if sig.Confidence != 70 {
		t.Errorf("confidence = %v, want 70", sig.Confidence)
	}
}

func TestLLMJudgeProviderError(t *testing.T) {
	judge := NewLLMJudge(&stubProvider{err: errors.New("rate limited")}, slog.Default())
	if _, err := judge.Analyze(context.Background(), "anything"); err == nil {
		t.Fatal("expected error from failing provider")
	}
}

func TestLLMJudgeEmptyAnalysis(t *testing.T) {
	judge := NewLLMJudge(&stubProvider{content: "   "}, slog.Default())
	if _, err := judge.Analyze(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for empty analysis")
	}
}
