package tool

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newsServer(t *testing.T, hits *atomic.Int64, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("apiKey") == "" {
			t.Error("apiKey missing from query")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

const newsBody = `{"status":"ok","articles":[
	{"title":"Massive phishing campaign abuses paypal-secure.example domains","description":"","url":"https://news.example/1","source":{"name":"Wire"}},
	{"title":"New ransomware strain spreads","description":"","url":"https://news.example/2","source":{"name":"Wire"}}
]}`

func TestNewsIntelCorrelation(t *testing.T) {
	var hits atomic.Int64
	srv := newsServer(t, &hits, newsBody)
	defer srv.Close()

	n := NewNewsIntel(NewsIntelConfig{
		APIKey:  "key",
		APIBase: srv.URL,
		Logger:  slog.Default(),
	})

	sig, err := n.Analyze(context.Background(), "got a text from paypal-secure.example asking to verify")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if sig.Score != 65 || sig.Confidence != 70 {
		t.Errorf("hit signal = %v/%v, want 65/70", sig.Score, sig.Confidence)
	}

	sig, err = n.Analyze(context.Background(), "hello, how are you today")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if sig.Score != 30 || sig.Confidence != 50 {
		t.Errorf("miss signal = %v/%v, want 30/50", sig.Score, sig.Confidence)
	}

	// Both analyses within the TTL share one fetch.
	if hits.Load() != 1 {
		t.Errorf("api fetches = %d, want 1", hits.Load())
	}
}

func TestNewsIntelServesStaleCacheOnFailure(t *testing.T) {
	var hits atomic.Int64
	fail := atomic.Bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(newsBody))
	}))
	defer srv.Close()

	n := NewNewsIntel(NewsIntelConfig{
		APIKey:   "key",
		APIBase:  srv.URL,
		CacheTTL: time.Nanosecond, // force refetch on every call
		Logger:   slog.Default(),
	})

	if _, err := n.Analyze(context.Background(), "anything"); err != nil {
		t.Fatalf("first Analyze: %v", err)
	}

	fail.Store(true)
	sig, err := n.Analyze(context.Background(), "ransomware question")
	if err != nil {
		t.Fatalf("Analyze with stale cache: %v", err)
	}
	if sig == nil {
		t.Fatal("expected signal from stale cache")
	}
}

func TestCorrelateIgnoresShortWords(t *testing.T) {
	articles := []newsArticle{{Title: "a big scam hits the city"}}
	if correlate("big scam city", articles) != nil {
		t.Error("five-letter-or-shorter words must not correlate")
	}
}
