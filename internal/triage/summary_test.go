package triage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sentrybot/internal/domain"
)

func TestSummarizeUsesProvider(t *testing.T) {
	e := newTestEngine(testRegistry{}, &fixedProvider{content: "  Generated verdict.  "})

	got := e.summarize(context.Background(), domain.ContentURL,
		domain.RiskAssessment{RiskTier: domain.TierHigh, RiskScore: 80, Confidence: 90}, nil, "en")
	if got != "Generated verdict." {
		t.Errorf("summary = %q", got)
	}
}

func TestSummarizeFallbackOnProviderError(t *testing.T) {
	e := newTestEngine(testRegistry{}, &fixedProvider{err: errors.New("timeout")})

	assessment := domain.RiskAssessment{
		RiskTier:   domain.TierHigh,
		RiskScore:  80,
		Confidence: 92.5,
		Reasoning:  []string{"Strong threat indicators from reputation"},
	}
	got := e.summarize(context.Background(), domain.ContentURL, assessment, nil, "en")

	want := "Risk level: high (92.5% confidence). Strong threat indicators from reputation"
	if got != want {
		t.Errorf("fallback summary:\n got %q\nwant %q", got, want)
	}
}

func TestSummarizeFallbackWithoutProvider(t *testing.T) {
	e := newTestEngine(testRegistry{}, nil)

	got := e.summarize(context.Background(), domain.ContentMessage,
		domain.RiskAssessment{RiskTier: domain.TierMinimal, Confidence: 20}, nil, "en")
	want := "Risk level: minimal (20.0% confidence). Analysis complete."
	if got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestSummarizeFallbackHindi(t *testing.T) {
	e := newTestEngine(testRegistry{}, &fixedProvider{err: errors.New("down")})

	got := e.summarize(context.Background(), domain.ContentMessage,
		domain.RiskAssessment{RiskTier: domain.TierMedium, Confidence: 60}, nil, "hi")
	if !strings.Contains(got, "जोखिम स्तर: medium") {
		t.Errorf("hindi fallback = %q", got)
	}
	if !strings.Contains(got, "विश्लेषण पूर्ण।") {
		t.Errorf("hindi fallback missing default reasoning: %q", got)
	}
}

func TestSummarizeFallbackOnEmptyCompletion(t *testing.T) {
	e := newTestEngine(testRegistry{}, &fixedProvider{content: "   "})

	got := e.summarize(context.Background(), domain.ContentURL,
		domain.RiskAssessment{RiskTier: domain.TierLow, Confidence: 55, Reasoning: []string{"Minimal indicators from url_scan"}}, nil, "en")
	if !strings.HasPrefix(got, "Risk level: low") {
		t.Errorf("expected fallback for blank completion, got %q", got)
	}
}

func TestSummaryPromptIncludesSignals(t *testing.T) {
	signals := []domain.Signal{
		{Source: "reputation", Score: 85.0, Confidence: 90.0, Evidence: "40/50 engines flagged"},
	}
	prompt := summaryPrompt(domain.ContentURL,
		domain.RiskAssessment{RiskTier: domain.TierHigh, RiskScore: 80.2, Confidence: 90}, signals, "en")

	if !strings.Contains(prompt, "- reputation: 40/50 engines flagged (score: 85.0, confidence: 90.0%)") {
		t.Errorf("prompt missing signal line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Risk score: 80.2/100") {
		t.Errorf("prompt missing risk score:\n%s", prompt)
	}
}

func TestSummaryPromptHindi(t *testing.T) {
	prompt := summaryPrompt(domain.ContentPhone,
		domain.RiskAssessment{RiskTier: domain.TierMedium, RiskScore: 55, Confidence: 60}, nil, "hi")
	if !strings.Contains(prompt, "जोखिम स्कोर: 55.0/100") {
		t.Errorf("hindi prompt missing score:\n%s", prompt)
	}
}
