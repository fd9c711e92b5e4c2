package tool

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func mediaServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestMediaAuthenticityVerdicts(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantScore float64
	}{
		{"authentic", `{"authentic":true,"confidence":90,"verdict":"no manipulation detected"}`, 10},
		{"manipulated", `{"authentic":false,"confidence":88,"verdict":"face swap artifacts"}`, 85},
		{"inconclusive", `{"authentic":null,"confidence":40,"verdict":"insufficient quality"}`, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := mediaServer(tt.body)
			defer srv.Close()

			m := NewMediaAuthenticity(MediaAuthenticityConfig{Endpoint: srv.URL, Logger: slog.Default()})
			sig, err := m.Analyze(context.Background(), "https://files.example/clip.mp4")
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if sig.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", sig.Score, tt.wantScore)
			}
		})
	}
}

func TestMediaAuthenticityServiceError(t *testing.T) {
	srv := mediaServer(`{"error":"unsupported codec"}`)
	defer srv.Close()

	m := NewMediaAuthenticity(MediaAuthenticityConfig{Endpoint: srv.URL, Logger: slog.Default()})
	if _, err := m.Analyze(context.Background(), "clip.mp4"); err == nil {
		t.Fatal("expected error from service error field")
	}
}

func TestMediaAuthenticityRequiresEndpoint(t *testing.T) {
	m := NewMediaAuthenticity(MediaAuthenticityConfig{Logger: slog.Default()})
	if _, err := m.Analyze(context.Background(), "clip.mp4"); err == nil {
		t.Fatal("expected error without endpoint")
	}
}
