package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"sentrybot/internal/audit"
	"sentrybot/internal/domain"
	"sentrybot/internal/metrics"
	"sentrybot/internal/session"
)

const (
	defaultLoopConcurrency = 3
	replySummaryLimit      = 200
)

// Loop consumes inbound channel messages, runs each through the engine, and
// routes the formatted verdict back to the source channel. Messages are
// processed with bounded concurrency.
type Loop struct {
	engine      *Engine
	bus         domain.MessageBus
	sessions    *session.Store
	audit       *audit.Store
	logger      *slog.Logger
	concurrency int
	defaultLang string
}

// LoopConfig holds the loop's dependencies. Sessions and Audit are optional;
// without them the loop is stateless and unaudited.
type LoopConfig struct {
	Engine          *Engine
	Bus             domain.MessageBus
	Sessions        *session.Store
	Audit           *audit.Store
	Logger          *slog.Logger
	Concurrency     int
	DefaultLanguage string
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultLoopConcurrency
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = DefaultLanguage
	}
	return &Loop{
		engine:      cfg.Engine,
		bus:         cfg.Bus,
		sessions:    cfg.Sessions,
		audit:       cfg.Audit,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
		defaultLang: cfg.DefaultLanguage,
	}
}

// Run consumes inbound messages until the context is cancelled or the bus
// closes.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("triage loop started", "concurrency", l.concurrency)

	sem := make(chan struct{}, l.concurrency)
	inbound := l.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("triage loop stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				l.logger.Info("inbound channel closed, triage loop stopping")
				return
			}
			sem <- struct{}{}
			go func(m domain.InboundMessage) {
				defer func() { <-sem }()
				l.handle(ctx, m)
			}(msg)
		}
	}
}

func (l *Loop) handle(ctx context.Context, msg domain.InboundMessage) {
	metrics.MessagesTotal.Inc()
	language := DetectLanguage(msg.Content)
	if language == "en" && l.defaultLang != "en" {
		language = l.defaultLang
	}

	result, err := l.engine.Analyze(ctx, msg.Content, msg.Hint, language)
	if err != nil {
		l.logger.Warn("analysis failed", "channel", msg.Channel, "error", err)
		l.reply(msg, errorReply(err, language))
		return
	}

	reply := FormatReply(result)
	l.reply(msg, reply)

	if l.sessions != nil && msg.SenderID != "" {
		l.sessions.Update(msg.SenderID, msg.Content, reply, map[string]string{
			"last_risk_tier":    string(result.RiskTier),
			"last_content_type": string(result.ContentType),
		})
	}
	if l.audit != nil {
		if err := l.audit.Record(ctx, msg.Channel, result); err != nil {
			l.logger.Warn("audit record failed", "error", err)
		}
	}
}

func (l *Loop) reply(msg domain.InboundMessage, content string) {
	l.bus.SendOutbound(domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: content,
	})
}

// ContextFor returns the sender's conversation context for prompt building.
// Empty without a session store or live session.
func (l *Loop) ContextFor(senderID string) string {
	if l.sessions == nil {
		return ""
	}
	return l.sessions.ContextSummary(senderID)
}

// FormatReply renders an analysis result for messaging delivery: a compact
// verdict line, the summary bounded for SMS-class transports, then the
// recommendations.
func FormatReply(result *domain.AnalysisResult) string {
	summary := result.Summary
	if len(summary) > replySummaryLimit {
		summary = summary[:replySummaryLimit] + "..."
	}

	var sb strings.Builder
	tier := strings.ToUpper(string(result.RiskTier))
	if result.Language == "hi" {
		fmt.Fprintf(&sb, "जोखिम: %s (%d%%)\n\n%s", tier, int(result.Confidence), summary)
	} else {
		fmt.Fprintf(&sb, "Risk: %s (%d%%)\n\n%s", tier, int(result.Confidence), summary)
	}

	if len(result.Recommendations) > 0 {
		sb.WriteString("\n")
		for _, rec := range result.Recommendations {
			sb.WriteString("\n- ")
			sb.WriteString(rec)
		}
	}
	return sb.String()
}

func errorReply(err error, language string) string {
	if errors.Is(err, ErrInvalidInput) {
		if language == "hi" {
			return "कृपया विश्लेषण के लिए URL, संदेश या फ़ोन नंबर भेजें।"
		}
		return "Please send a URL, message, or phone number to analyze."
	}
	if language == "hi" {
		return "विश्लेषण विफल रहा। कृपया पुनः प्रयास करें।"
	}
	return "Analysis failed. Please try again."
}

// DetectLanguage classifies text as Hindi when more than a fifth of its runes
// are Devanagari, and English otherwise.
func DetectLanguage(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return "en"
	}
	devanagari := 0
	for _, r := range runes {
		if r >= 0x0900 && r <= 0x097F {
			devanagari++
		}
	}
	if float64(devanagari)/float64(len(runes)) > 0.2 {
		return "hi"
	}
	return "en"
}
