package tool

import (
	"context"
	"log/slog"
	"testing"
)

func TestTranscriptHighRisk(t *testing.T) {
	tr := NewTranscript(nil, slog.Default())

	sig, err := tr.Analyze(context.Background(),
		"This is the IRS. Act now and pay immediately with a gift card or you will be arrested.")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if sig.Source != "transcript_patterns" {
		t.Errorf("source = %q", sig.Source)
	}
	if sig.Score != 85 {
		t.Errorf("score = %v, want 85 for high risk", sig.Score)
	}
	if sig.Confidence < 85 {
		t.Errorf("confidence = %v, want >= 85", sig.Confidence)
	}
}

func TestTranscriptCleanText(t *testing.T) {
	tr := NewTranscript(nil, slog.Default())

	sig, err := tr.Analyze(context.Background(), "hi, just confirming our lunch plan for tomorrow")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if sig.Score != 10 {
		t.Errorf("score = %v, want 10 for minimal risk", sig.Score)
	}
	if sig.Confidence != 15 {
		t.Errorf("confidence = %v, want 15", sig.Confidence)
	}
}

func TestTranscriptHonorsCancellation(t *testing.T) {
	tr := NewTranscript(nil, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tr.Analyze(ctx, "anything"); err == nil {
		t.Fatal("expected context error")
	}
}
