package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"sentrybot/internal/domain"
)

// NewsIntel correlates the analyzed content with recent cybersecurity news.
// A hit means the content may be part of an ongoing campaign; a miss is a
// weak neutral signal. Fetched articles are cached so a burst of analyses
// does not hammer the news API.
type NewsIntel struct {
	apiKey   string
	apiBase  string
	client   *http.Client
	logger   *slog.Logger
	cacheTTL time.Duration

	mu        sync.Mutex
	cached    []newsArticle
	fetchedAt time.Time
}

type NewsIntelConfig struct {
	APIKey   string
	APIBase  string
	Client   *http.Client
	Logger   *slog.Logger
	CacheTTL time.Duration
}

func NewNewsIntel(cfg NewsIntelConfig) *NewsIntel {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://newsapi.org/v2"
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &NewsIntel{
		apiKey:   cfg.APIKey,
		apiBase:  cfg.APIBase,
		client:   cfg.Client,
		logger:   cfg.Logger,
		cacheTTL: cfg.CacheTTL,
	}
}

func (n *NewsIntel) Name() string { return "news_correlation" }

type newsArticle struct {
	Title       string
	Description string
	Source      string
	URL         string
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (n *NewsIntel) Analyze(ctx context.Context, input string) (*domain.Signal, error) {
	articles, err := n.recentThreats(ctx)
	if err != nil {
		return nil, err
	}

	if match := correlate(input, articles); match != nil {
		return &domain.Signal{
			Source:     "news_correlation",
			Score:      65,
			Confidence: 70,
			Evidence:   fmt.Sprintf("This may relate to a recent threat: %s", match.Title),
			Raw:        map[string]any{"article_url": match.URL, "source": match.Source},
		}, nil
	}

	return &domain.Signal{
		Source:     "news_correlation",
		Score:      30,
		Confidence: 50,
		Evidence:   "No correlation with recent threat reports",
	}, nil
}

// recentThreats returns the cached article set, refetching when stale.
func (n *NewsIntel) recentThreats(ctx context.Context) ([]newsArticle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cached != nil && time.Since(n.fetchedAt) < n.cacheTTL {
		return n.cached, nil
	}

	articles, err := n.fetch(ctx)
	if err != nil {
		if n.cached != nil {
			n.logger.Warn("news refresh failed, serving stale cache", "error", err)
			return n.cached, nil
		}
		return nil, err
	}

	n.cached = articles
	n.fetchedAt = time.Now()
	return articles, nil
}

func (n *NewsIntel) fetch(ctx context.Context) ([]newsArticle, error) {
	if n.apiKey == "" {
		return nil, fmt.Errorf("news_correlation: api key not configured")
	}

	params := url.Values{
		"q":        {`cybersecurity OR "data breach" OR phishing OR malware OR ransomware`},
		"from":     {time.Now().AddDate(0, 0, -7).Format("2006-01-02")},
		"sortBy":   {"publishedAt"},
		"language": {"en"},
		"pageSize": {"20"},
		"apiKey":   {n.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", n.apiBase+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("news_correlation: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news_correlation fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news_correlation returned %d", resp.StatusCode)
	}

	var out newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("news_correlation decode: %w", err)
	}

	articles := make([]newsArticle, 0, len(out.Articles))
	for _, a := range out.Articles {
		articles = append(articles, newsArticle{
			Title:       a.Title,
			Description: a.Description,
			Source:      a.Source.Name,
			URL:         a.URL,
		})
	}
	return articles, nil
}

// correlate returns the first article sharing a distinctive word with the
// input. Words of five characters or fewer are too common to correlate on.
func correlate(input string, articles []newsArticle) *newsArticle {
	inputLower := strings.ToLower(input)
	for i := range articles {
		for _, word := range strings.Fields(strings.ToLower(articles[i].Title)) {
			if len(word) > 5 && strings.Contains(inputLower, word) {
				return &articles[i]
			}
		}
	}
	return nil
}
