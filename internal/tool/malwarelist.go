package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"sentrybot/internal/domain"
)

// MalwareList looks up a URL in the URLhaus database. Presence in the list is
// near-definitive evidence; absence is a weaker positive indicator, which is
// why the two outcomes carry asymmetric confidence.
type MalwareList struct {
	authKey string
	apiBase string
	client  *http.Client
	logger  *slog.Logger
}

type MalwareListConfig struct {
	AuthKey string
	APIBase string
	Client  *http.Client
	Logger  *slog.Logger
}

func NewMalwareList(cfg MalwareListConfig) *MalwareList {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://urlhaus-api.abuse.ch/v1"
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &MalwareList{
		authKey: cfg.AuthKey,
		apiBase: cfg.APIBase,
		client:  cfg.Client,
		logger:  cfg.Logger,
	}
}

func (m *MalwareList) Name() string { return "malware_list" }

type urlhausResponse struct {
	QueryStatus string   `json:"query_status"`
	URLStatus   string   `json:"url_status"`
	Threat      string   `json:"threat"`
	Blacklists  struct {
		SpamhausDBL string `json:"spamhaus_dbl"`
		SURBL       string `json:"surbl"`
	} `json:"blacklists"`
	Tags []string `json:"tags"`
}

func (m *MalwareList) Analyze(ctx context.Context, input string) (*domain.Signal, error) {
	target := input
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}

	result, err := m.query(ctx, target)
	if err != nil {
		return nil, err
	}

	// The database keys entries by exact URL, so a miss on the https form is
	// retried with the http scheme before concluding "not listed".
	if result.QueryStatus == "no_results" && strings.HasPrefix(target, "https://") {
		result, err = m.query(ctx, "http://"+strings.TrimPrefix(target, "https://"))
		if err != nil {
			return nil, err
		}
	}

	switch result.QueryStatus {
	case "ok":
		raw := map[string]any{"url_status": result.URLStatus}
		if result.Threat != "" {
			raw["threat"] = result.Threat
		}
		if len(result.Tags) > 0 {
			raw["tags"] = result.Tags
		}
		return &domain.Signal{
			Source:     "malware_list",
			Score:      90,
			Confidence: 95,
			Evidence:   "Listed in URLhaus malware database",
			Raw:        raw,
		}, nil
	case "no_results":
		return &domain.Signal{
			Source:     "malware_list",
			Score:      0,
			Confidence: 80,
			Evidence:   "Not listed in URLhaus database (positive indicator)",
		}, nil
	default:
		return nil, fmt.Errorf("malware_list: unexpected query status %q", result.QueryStatus)
	}
}

func (m *MalwareList) query(ctx context.Context, target string) (*urlhausResponse, error) {
	form := url.Values{"url": {target}}
	req, err := http.NewRequestWithContext(ctx, "POST", m.apiBase+"/url/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("malware_list: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if m.authKey != "" {
		req.Header.Set("Auth-Key", m.authKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("malware_list query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("malware_list returned %d", resp.StatusCode)
	}

	var out urlhausResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("malware_list decode: %w", err)
	}
	return &out, nil
}
