package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"sentrybot/internal/domain"
)

// Reputation queries the VirusTotal URL endpoint and converts engine verdict
// counts into a threat signal. Submission is a two-step flow: POST the URL,
// then GET the analysis the response links to.
type Reputation struct {
	apiKey  string
	apiBase string
	client  *http.Client
	logger  *slog.Logger
}

type ReputationConfig struct {
	APIKey  string
	APIBase string
	Client  *http.Client
	Logger  *slog.Logger
}

func NewReputation(cfg ReputationConfig) *Reputation {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://www.virustotal.com/api/v3"
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Reputation{
		apiKey:  cfg.APIKey,
		apiBase: cfg.APIBase,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
}

func (r *Reputation) Name() string { return "reputation" }

type vtSubmitResponse struct {
	Data struct {
		Links struct {
			Self string `json:"self"`
		} `json:"links"`
	} `json:"data"`
}

type vtAnalysisResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats vtStats `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

type vtStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Harmless   int `json:"harmless"`
	Undetected int `json:"undetected"`
}

func (r *Reputation) Analyze(ctx context.Context, input string) (*domain.Signal, error) {
	if r.apiKey == "" {
		return nil, fmt.Errorf("reputation: api key not configured")
	}

	analysisURL, err := r.submit(ctx, input)
	if err != nil {
		return nil, err
	}

	stats, err := r.fetchStats(ctx, analysisURL)
	if err != nil {
		return nil, err
	}

	malicious := stats.Malicious
	suspicious := stats.Suspicious
	total := malicious + suspicious + stats.Harmless

	// Malicious verdicts count double; the denominator ignores undetected
	// engines, which abstain rather than vote.
	score := 0.0
	if total > 0 {
		score = float64(malicious*2+suspicious) / float64(total) * 100
	}
	confidence := 70 + float64(total)/10
	if confidence > 95 {
		confidence = 95
	}

	return &domain.Signal{
		Source:     "reputation",
		Score:      domain.ClampScore(score),
		Confidence: confidence,
		Evidence:   fmt.Sprintf("%d/%d engines flagged as malicious", malicious, total),
		Raw: map[string]any{
			"malicious":  malicious,
			"suspicious": suspicious,
			"harmless":   stats.Harmless,
			"undetected": stats.Undetected,
		},
	}, nil
}

func (r *Reputation) submit(ctx context.Context, target string) (string, error) {
	form := url.Values{"url": {target}}
	req, err := http.NewRequestWithContext(ctx, "POST", r.apiBase+"/urls", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("reputation submit: %w", err)
	}
	req.Header.Set("x-apikey", r.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reputation submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("reputation submit %d: %s", resp.StatusCode, truncateBody(body))
	}

	var submit vtSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submit); err != nil {
		return "", fmt.Errorf("reputation decode submit: %w", err)
	}
	if submit.Data.Links.Self == "" {
		return "", fmt.Errorf("reputation: submit response missing analysis link")
	}
	return submit.Data.Links.Self, nil
}

func (r *Reputation) fetchStats(ctx context.Context, analysisURL string) (*vtStats, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", analysisURL, nil)
	if err != nil {
		return nil, fmt.Errorf("reputation fetch: %w", err)
	}
	req.Header.Set("x-apikey", r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reputation fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("reputation fetch %d: %s", resp.StatusCode, truncateBody(body))
	}

	var analysis vtAnalysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("reputation decode analysis: %w", err)
	}
	return &analysis.Data.Attributes.LastAnalysisStats, nil
}

func truncateBody(b []byte) string {
	const limit = 200
	s := string(b)
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
