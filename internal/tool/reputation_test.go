package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReputationScoring(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"links": map[string]any{"self": srv.URL + "/analyses/abc"},
				},
			})
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"attributes": map[string]any{
						"last_analysis_stats": map[string]int{
							"malicious":  10,
							"suspicious": 5,
							"harmless":   35,
							"undetected": 20,
						},
					},
				},
			})
		}
	}))
	defer srv.Close()

	rep := NewReputation(ReputationConfig{
		APIKey:  "key",
		APIBase: srv.URL,
		Client:  srv.Client(),
		Logger:  slog.Default(),
	})

	sig, err := rep.Analyze(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// (10*2 + 5) / 50 * 100 = 50
	if sig.Score != 50 {
		t.Errorf("score = %v, want 50", sig.Score)
	}
	// 70 + 50/10 = 75
	if sig.Confidence != 75 {
		t.Errorf("confidence = %v, want 75", sig.Confidence)
	}
	if sig.Evidence != "10/50 engines flagged as malicious" {
		t.Errorf("evidence = %q", sig.Evidence)
	}
}

func TestReputationConfidenceCap(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"links": map[string]any{"self": srv.URL + "/analyses/abc"}},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"attributes": map[string]any{
					"last_analysis_stats": map[string]int{"harmless": 400},
				},
			},
		})
	}))
	defer srv.Close()

	rep := NewReputation(ReputationConfig{APIKey: "key", APIBase: srv.URL, Client: srv.Client()})
	sig, err := rep.Analyze(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if sig.Confidence != 95 {
		t.Errorf("confidence = %v, want capped 95", sig.Confidence)
	}
	if sig.Score != 0 {
		t.Errorf("score = %v, want 0 for all-harmless verdicts", sig.Score)
	}
}

func TestReputationMissingKey(t *testing.T) {
	rep := NewReputation(ReputationConfig{})
	if _, err := rep.Analyze(context.Background(), "https://example.com"); err == nil {
		t.Fatal("expected error without api key")
	}
}
