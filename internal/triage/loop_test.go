package triage

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"sentrybot/internal/bus"
	"sentrybot/internal/domain"
	"sentrybot/internal/session"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"english", "check this link please", "en"},
		{"hindi", "यह लिंक जांचें कृपया", "hi"},
		{"empty", "", "en"},
		{"mostly english with a hindi word", "please check जांच this long english sentence now", "en"},
		{"url stays english", "https://example.com/login", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestFormatReply(t *testing.T) {
	result := &domain.AnalysisResult{
		RiskTier:        domain.TierHigh,
		Confidence:      92.5,
		Summary:         "Confirmed phishing page.",
		Recommendations: []string{"Do not interact with this content"},
		Language:        "en",
	}

	got := FormatReply(result)
	if !strings.HasPrefix(got, "Risk: HIGH (92%)\n\nConfirmed phishing page.") {
		t.Errorf("reply = %q", got)
	}
	if !strings.Contains(got, "\n- Do not interact with this content") {
		t.Errorf("reply missing recommendations: %q", got)
	}
}

func TestFormatReplyHindi(t *testing.T) {
	result := &domain.AnalysisResult{
		RiskTier:   domain.TierMedium,
		Confidence: 60,
		Summary:    "सारांश",
		Language:   "hi",
	}
	got := FormatReply(result)
	if !strings.HasPrefix(got, "जोखिम: MEDIUM (60%)") {
		t.Errorf("reply = %q", got)
	}
}

func TestFormatReplyTruncatesSummary(t *testing.T) {
	result := &domain.AnalysisResult{
		RiskTier:   domain.TierLow,
		Confidence: 50,
		Summary:    strings.Repeat("x", 400),
		Language:   "en",
	}
	got := FormatReply(result)
	if !strings.Contains(got, strings.Repeat("x", 200)+"...") {
		t.Error("summary should be truncated with ellipsis")
	}
	if strings.Contains(got, strings.Repeat("x", 201)) {
		t.Error("summary exceeds the reply limit")
	}
}

func TestLoopRoundTrip(t *testing.T) {
	reg := testRegistry{
		"llm_judgment": &testAnalyzer{name: "llm_judgment",
			signal: &domain.Signal{Source: "llm_judgment", Score: 75, Confidence: 70, Evidence: "scam"}},
	}
	engine := newTestEngine(reg, nil)

	b := bus.New(10, slog.Default())
	defer b.Close()

	replies := make(chan domain.OutboundMessage, 1)
	b.OnOutbound("cli", func(msg domain.OutboundMessage) { replies <- msg })

	sessions := session.NewStore(session.StoreConfig{})
	loop := NewLoop(LoopConfig{
		Engine:   engine,
		Bus:      b,
		Sessions: sessions,
		Logger:   slog.Default(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	b.Publish(domain.InboundMessage{
		Channel:  "cli",
		ChatID:   "local",
		SenderID: "user-1",
		Content:  "you won the lottery, claim now",
	})

	select {
	case reply := <-replies:
		if !strings.HasPrefix(reply.Content, "Risk: ") {
			t.Errorf("reply = %q", reply.Content)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reply received")
	}

	// Session recorded the exchange with verdict context.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if sess, ok := sessions.Get("user-1"); ok {
			if sess.Context["last_content_type"] == "" {
				t.Error("session context missing content type")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLoopInvalidInputReply(t *testing.T) {
	engine := newTestEngine(testRegistry{}, nil)
	b := bus.New(10, slog.Default())
	defer b.Close()

	replies := make(chan domain.OutboundMessage, 1)
	b.OnOutbound("cli", func(msg domain.OutboundMessage) { replies <- msg })

	loop := NewLoop(LoopConfig{Engine: engine, Bus: b, Logger: slog.Default()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	b.Publish(domain.InboundMessage{Channel: "cli", ChatID: "local", Content: "   "})

	select {
	case reply := <-replies:
		if reply.Content != "Please send a URL, message, or phone number to analyze." {
			t.Errorf("reply = %q", reply.Content)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reply received")
	}
}
