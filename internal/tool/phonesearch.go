package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"sentrybot/internal/domain"
)

// PhoneSearch looks a phone number up on the open web through the Serper
// search API and has the text-generation provider grade the aggregated
// results. Numbers are searched under several formatting variants because
// complaint sites rarely agree on one.
type PhoneSearch struct {
	apiKey   string
	apiBase  string
	provider domain.Provider
	client   *http.Client
	logger   *slog.Logger
}

type PhoneSearchConfig struct {
	APIKey   string
	APIBase  string
	Provider domain.Provider
	Client   *http.Client
	Logger   *slog.Logger
}

func NewPhoneSearch(cfg PhoneSearchConfig) *PhoneSearch {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://google.serper.dev"
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &PhoneSearch{
		apiKey:   cfg.APIKey,
		apiBase:  cfg.APIBase,
		provider: cfg.Provider,
		client:   cfg.Client,
		logger:   cfg.Logger,
	}
}

func (p *PhoneSearch) Name() string { return "phone_search" }

var nonDigit = regexp.MustCompile(`\D`)

// NumberVariants expands a phone number into the formats complaint sites
// index it under: as given, digits only, without a leading country marker,
// and national-length suffixes of long numbers.
func NumberVariants(phone string) []string {
	phone = strings.TrimSpace(phone)
	digits := nonDigit.ReplaceAllString(phone, "")

	var variants []string
	seen := make(map[string]bool)
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			variants = append(variants, v)
		}
	}

	add(phone)
	add(digits)
	if strings.HasPrefix(phone, "+") {
		add(strings.TrimPrefix(phone, "+"))
	}
	if len(digits) > 10 {
		add(digits[len(digits)-10:])
		add(digits[len(digits)-9:])
	}
	return variants
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Link    string `json:"link"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (p *PhoneSearch) Analyze(ctx context.Context, input string) (*domain.Signal, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("phone_search: api key not configured")
	}

	var findings []string
	seen := make(map[string]bool)
	for _, variant := range NumberVariants(input) {
		results, err := p.search(ctx, variant)
		if err != nil {
			p.logger.Warn("phone search variant failed", "variant", variant, "error", err)
			continue
		}
		for _, r := range results.Organic {
			if r.Link == "" || seen[r.Link] {
				continue
			}
			seen[r.Link] = true
			findings = append(findings, fmt.Sprintf("%s: %s", r.Title, r.Snippet))
		}
	}

	if len(findings) == 0 {
		return &domain.Signal{
			Source:     "phone_search",
			Score:      20,
			Confidence: 60,
			Evidence:   "No web reports found for this number",
		}, nil
	}

	report := strings.Join(findings, "\n")
	score := p.gradeReport(ctx, report)

	return &domain.Signal{
		Source:     "phone_search",
		Score:      domain.ClampScore(score),
		Confidence: 60,
		Evidence:   truncateEvidence(report, 200),
		Raw:        map[string]any{"results": len(findings)},
	}, nil
}

func (p *PhoneSearch) search(ctx context.Context, query string) (*serperResponse, error) {
	body, err := json.Marshal(serperRequest{Q: query, Num: 4})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", p.apiBase+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper returned %d", resp.StatusCode)
	}

	var out serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode serper response: %w", err)
	}
	return &out, nil
}

const phoneScorePrompt = `Based on this phone number analysis, provide a risk score (0-100):

Analysis: %s

Consider:
- Mentions of scam/fraud: high score
- Negative reviews: medium-high score
- No information: low score
- Positive reviews: very low score

Respond with just a number 0-100:`

var firstNumber = regexp.MustCompile(`\d+`)

// gradeReport asks the provider to turn search findings into a numeric score.
// An unusable answer degrades to the midpoint rather than dropping the
// signal; the search evidence is still worth reporting.
func (p *PhoneSearch) gradeReport(ctx context.Context, report string) float64 {
	const fallback = 50
	if p.provider == nil {
		return fallback
	}

	resp, err := p.provider.Complete(ctx, domain.CompletionRequest{
		Prompt:    fmt.Sprintf(phoneScorePrompt, report),
		MaxTokens: 10,
	})
	if err != nil {
		p.logger.Warn("phone score generation failed", "error", err)
		return fallback
	}

	match := firstNumber.FindString(resp.Content)
	if match == "" {
		return fallback
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return fallback
	}
	return score
}
