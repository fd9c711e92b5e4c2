package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"sentrybot/internal/domain"
)

// MediaAuthenticity asks an external detection service whether an image or
// video has been manipulated. The input is a path or URL the service can
// reach. Authenticity maps inversely onto threat: manipulated media is a
// strong indicator, authentic media a weak one, and an inconclusive answer
// lands in the middle.
type MediaAuthenticity struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

type MediaAuthenticityConfig struct {
	Endpoint string
	Client   *http.Client
	Logger   *slog.Logger
}

func NewMediaAuthenticity(cfg MediaAuthenticityConfig) *MediaAuthenticity {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &MediaAuthenticity{
		endpoint: cfg.Endpoint,
		client:   cfg.Client,
		logger:   cfg.Logger,
	}
}

func (m *MediaAuthenticity) Name() string { return "media_authenticity" }

type mediaRequest struct {
	Media string `json:"media"`
}

type mediaVerdict struct {
	// Authentic is a tri-state: true, false, or null for inconclusive.
	Authentic  *bool   `json:"authentic"`
	Confidence float64 `json:"confidence"`
	Verdict    string  `json:"verdict"`
	Error      string  `json:"error"`
}

func (m *MediaAuthenticity) Analyze(ctx context.Context, input string) (*domain.Signal, error) {
	if m.endpoint == "" {
		return nil, fmt.Errorf("media_authenticity: endpoint not configured")
	}

	body, err := json.Marshal(mediaRequest{Media: input})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("media_authenticity: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media_authenticity request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media_authenticity returned %d", resp.StatusCode)
	}

	var verdict mediaVerdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("media_authenticity decode: %w", err)
	}
	if verdict.Error != "" {
		return nil, fmt.Errorf("media_authenticity: %s", verdict.Error)
	}

	var score float64
	switch {
	case verdict.Authentic != nil && *verdict.Authentic:
		score = 10
	case verdict.Authentic != nil:
		score = 85
	default:
		score = 50
	}

	return &domain.Signal{
		Source:     "media_authenticity",
		Score:      score,
		Confidence: domain.ClampScore(verdict.Confidence),
		Evidence:   verdict.Verdict,
	}, nil
}
