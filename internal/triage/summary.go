package triage

import (
	"context"
	"fmt"
	"strings"

	"sentrybot/internal/domain"
)

const (
	summaryMaxTokens   = 300
	summaryTemperature = 0.3
)

const summarySystemHindi = `आप एक पेशेवर साइबर सुरक्षा विश्लेषक हैं।
आपको हिंदी में स्पष्ट, तकनीकी और तटस्थ भाषा में जवाब देना है।
अनौपचारिक भाषा या स्लैंग का उपयोग न करें।
साइबर सुरक्षा तर्क को स्पष्ट रूप से समझाएं।`

// summarize asks the text-generation provider for a short natural-language
// paragraph over the fused facts. The provider is best-effort: any failure
// falls back to a deterministic template built from the same facts.
func (e *Engine) summarize(ctx context.Context, contentType domain.ContentType, assessment domain.RiskAssessment, signals []domain.Signal, language string) string {
	if e.provider == nil {
		return fallbackSummary(assessment, language)
	}

	req := domain.CompletionRequest{
		Prompt:      summaryPrompt(contentType, assessment, signals, language),
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemperature,
	}
	if language == "hi" {
		req.System = summarySystemHindi
	}

	resp, err := e.provider.Complete(ctx, req)
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		e.logger.Warn("summary generation failed, using deterministic fallback", "error", err)
		return fallbackSummary(assessment, language)
	}
	return strings.TrimSpace(resp.Content)
}

func summaryPrompt(contentType domain.ContentType, assessment domain.RiskAssessment, signals []domain.Signal, language string) string {
	var lines []string
	for _, sig := range signals {
		lines = append(lines, fmt.Sprintf("- %s: %s (score: %.1f, confidence: %.1f%%)",
			sig.Source, sig.Evidence, sig.Score, sig.Confidence))
	}
	signalSummary := strings.Join(lines, "\n")

	if language == "hi" {
		return fmt.Sprintf(`इस सुरक्षा मूल्यांकन का विश्लेषण करें और एक संक्षिप्त, पेशेवर सारांश प्रदान करें।

इनपुट प्रकार: %s
जोखिम स्तर: %s
जोखिम स्कोर: %.1f/100
विश्वसनीयता: %.1f%%

पहचाने गए संकेत:
%s

2-3 वाक्यों में एक सारांश प्रदान करें जो:
1. निर्णय को स्पष्ट रूप से बताता है
2. मुख्य तर्क की व्याख्या करता है
3. पेशेवर, विश्लेषणात्मक स्वर बनाए रखता है (कोई अलार्मवाद नहीं)

सारांश:`, contentType, assessment.RiskTier, assessment.RiskScore, assessment.Confidence, signalSummary)
	}

	return fmt.Sprintf(`Analyze this security assessment and provide a brief, professional summary.

Input type: %s
Risk level: %s
Risk score: %.1f/100
Confidence: %.1f%%

Signals detected:
%s

Provide a 2-3 sentence summary that:
1. States the verdict clearly
2. Explains the key reasoning
3. Maintains professional, analytical tone (no alarmism)

Summary:`, contentType, assessment.RiskTier, assessment.RiskScore, assessment.Confidence, signalSummary)
}

// fallbackSummary renders the deterministic template used when the text
// generator is unavailable or fails.
func fallbackSummary(assessment domain.RiskAssessment, language string) string {
	first := ""
	if len(assessment.Reasoning) > 0 {
		first = assessment.Reasoning[0]
	}
	if language == "hi" {
		if first == "" {
			first = "विश्लेषण पूर्ण।"
		}
		return fmt.Sprintf("जोखिम स्तर: %s (%.1f%% विश्वसनीयता)। %s", assessment.RiskTier, assessment.Confidence, first)
	}
	if first == "" {
		first = "Analysis complete."
	}
	return fmt.Sprintf("Risk level: %s (%.1f%% confidence). %s", assessment.RiskTier, assessment.Confidence, first)
}
