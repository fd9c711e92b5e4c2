package tool

import (
	"log/slog"
	"net/url"
	"strings"
	"testing"
)

func TestURLScanGrade(t *testing.T) {
	u := NewURLScan(URLScanConfig{Logger: slog.Default()})
	requested, _ := url.Parse("https://example.com/login")

	tests := []struct {
		name      string
		final     string
		facts     pageFacts
		wantScore float64
		wantHint  string
	}{
		{
			name:      "clean page",
			final:     "https://example.com/login",
			facts:     pageFacts{},
			wantScore: 0,
		},
		{
			name:      "cross host redirect",
			final:     "https://evil.example.net/",
			facts:     pageFacts{},
			wantScore: 30,
			wantHint:  "redirected from example.com to evil.example.net",
		},
		{
			name:      "credential form over https",
			final:     "https://example.com/login",
			facts:     pageFacts{PasswordFields: 1, Forms: 1},
			wantScore: 20,
			wantHint:  "credential input",
		},
		{
			name:      "credential form over plain http",
			final:     "http://example.com/login",
			facts:     pageFacts{PasswordFields: 2, Forms: 1},
			wantScore: 55,
			wantHint:  "plain http",
		},
		{
			name:      "everything fires",
			final:     "http://evil.example.net/",
			facts:     pageFacts{PasswordFields: 1, Forms: 2, InsecureForm: true},
			wantScore: 110, // clamped later by the caller
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, findings := u.grade(requested, tt.final, tt.facts)
			if score != tt.wantScore {
				t.Errorf("score = %v, want %v (findings: %v)", score, tt.wantScore, findings)
			}
			if tt.wantHint != "" && !strings.Contains(strings.Join(findings, "; "), tt.wantHint) {
				t.Errorf("findings %v missing %q", findings, tt.wantHint)
			}
		})
	}
}
