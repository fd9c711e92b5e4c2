package tool

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"sentrybot/internal/domain"

	"github.com/chromedp/chromedp"
)

// URLScan loads a URL in headless Chrome and scores phishing heuristics from
// the rendered page: credential forms, cross-host redirects, and insecure
// credential submission. It is a behavioral check, complementary to the
// list-based analyzers which only know reported URLs.
type URLScan struct {
	headless  bool
	userAgent string
	logger    *slog.Logger
}

type URLScanConfig struct {
	Headless  bool
	UserAgent string
	Logger    *slog.Logger
}

func NewURLScan(cfg URLScanConfig) *URLScan {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &URLScan{
		headless:  cfg.Headless,
		userAgent: cfg.UserAgent,
		logger:    cfg.Logger,
	}
}

func (u *URLScan) Name() string { return "url_scan" }

// pageFacts is what the in-page probe reports back.
type pageFacts struct {
	PasswordFields int    `json:"passwordFields"`
	Forms          int    `json:"forms"`
	InsecureForm   bool   `json:"insecureForm"`
	Title          string `json:"title"`
}

const probeScript = `(function() {
	var pw = document.querySelectorAll('input[type="password"]').length;
	var forms = document.forms.length;
	var insecure = false;
	for (var i = 0; i < document.forms.length; i++) {
		var action = document.forms[i].action || '';
		if (action.indexOf('http://') === 0) { insecure = true; break; }
	}
	return {passwordFields: pw, forms: forms, insecureForm: insecure, title: document.title};
})()`

func (u *URLScan) Analyze(ctx context.Context, input string) (*domain.Signal, error) {
	target := strings.TrimSpace(input)
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}
	requested, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("url_scan: parse %q: %w", input, err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(u.userAgent),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if u.headless {
		opts = append(opts, chromedp.Headless)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var finalLocation string
	var facts pageFacts
	err = chromedp.Run(taskCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body"),
		chromedp.Location(&finalLocation),
		chromedp.Evaluate(probeScript, &facts),
	)
	if err != nil {
		return nil, fmt.Errorf("url_scan: load %s: %w", target, err)
	}

	score, findings := u.grade(requested, finalLocation, facts)
	evidence := "Page loaded without phishing heuristics firing"
	if len(findings) > 0 {
		evidence = strings.Join(findings, "; ")
	}

	return &domain.Signal{
		Source:     "url_scan",
		Score:      domain.ClampScore(score),
		Confidence: 65,
		Evidence:   evidence,
		Raw: map[string]any{
			"final_url":       finalLocation,
			"title":           facts.Title,
			"password_fields": facts.PasswordFields,
			"forms":           facts.Forms,
		},
	}, nil
}

// grade converts the observed page facts into a score and a finding list.
// Heuristics stack; each one alone is weak evidence.
func (u *URLScan) grade(requested *url.URL, finalLocation string, facts pageFacts) (float64, []string) {
	var score float64
	var findings []string

	final, err := url.Parse(finalLocation)
	if err == nil && final.Host != "" && !strings.EqualFold(final.Host, requested.Host) {
		score += 30
		findings = append(findings, fmt.Sprintf("redirected from %s to %s", requested.Host, final.Host))
	}

	if facts.PasswordFields > 0 {
		score += 20
		findings = append(findings, fmt.Sprintf("%d credential input(s) on page", facts.PasswordFields))
		if final != nil && final.Scheme == "http" {
			score += 35
			findings = append(findings, "credential input served over plain http")
		}
	}

	if facts.InsecureForm {
		score += 25
		findings = append(findings, "form submits to a plain http endpoint")
	}

	return score, findings
}
