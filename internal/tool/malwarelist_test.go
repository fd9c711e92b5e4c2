package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newMalwareListServer(t *testing.T, handler http.HandlerFunc) (*MalwareList, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	ml := NewMalwareList(MalwareListConfig{
		AuthKey: "test-key",
		APIBase: srv.URL,
		Client:  srv.Client(),
		Logger:  slog.Default(),
	})
	return ml, srv
}

func TestMalwareListListed(t *testing.T) {
	ml, _ := newMalwareListServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Auth-Key") != "test-key" {
			t.Errorf("missing auth key header")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"query_status": "ok",
			"url_status":   "online",
			"threat":       "malware_download",
		})
	})

	sig, err := ml.Analyze(context.Background(), "http://evil.example/payload.exe")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if sig.Score != 90 || sig.Confidence != 95 {
		t.Errorf("listed URL: score=%v confidence=%v, want 90/95", sig.Score, sig.Confidence)
	}
	if sig.Raw["threat"] != "malware_download" {
		t.Errorf("raw threat missing: %v", sig.Raw)
	}
}

func TestMalwareListNotListed(t *testing.T) {
	ml, _ := newMalwareListServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"query_status": "no_results"})
	})

	sig, err := ml.Analyze(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if sig.Score != 0 || sig.Confidence != 80 {
		t.Errorf("unlisted URL: score=%v confidence=%v, want 0/80", sig.Score, sig.Confidence)
	}
}

func TestMalwareListRetriesHTTPScheme(t *testing.T) {
	var queried []string
	ml, _ := newMalwareListServer(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		url := r.Form.Get("url")
		queried = append(queried, url)
		status := "no_results"
		if url == "http://known-bad.example" {
			status = "ok"
		}
		json.NewEncoder(w).Encode(map[string]any{"query_status": status})
	})

	sig, err := ml.Analyze(context.Background(), "known-bad.example")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(queried) != 2 {
		t.Fatalf("expected https then http lookups, got %v", queried)
	}
	if queried[0] != "https://known-bad.example" || queried[1] != "http://known-bad.example" {
		t.Errorf("lookup order = %v", queried)
	}
	if sig.Score != 90 {
		t.Errorf("score = %v, want 90 for http-scheme hit", sig.Score)
	}
}

func TestMalwareListUpstreamError(t *testing.T) {
	ml, _ := newMalwareListServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := ml.Analyze(context.Background(), "example.com"); err == nil {
		t.Fatal("expected error on upstream failure")
	}
}
