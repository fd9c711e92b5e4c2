package patterns

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestDetectHighOnPaymentPlusUrgency(t *testing.T) {
	det := Builtin().Detect("Act now and pay immediately with a gift card or your account will be suspended")

	if det.RiskLevel != "high" {
		t.Fatalf("risk level = %q, want high (matches: %v)", det.RiskLevel, det.Matches)
	}
	if len(det.Matches[FamilyPayment]) == 0 || len(det.Matches[FamilyUrgency]) == 0 {
		t.Errorf("expected payment and urgency matches, got %v", det.Matches)
	}
	if det.Confidence < 85 || det.Confidence > 98 {
		t.Errorf("confidence = %v, want within [85,98]", det.Confidence)
	}
}

func TestDetectGrading(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantLevel  string
		wantTotal  int
		confidence float64
	}{
		{
			name:       "clean text",
			text:       "hey, are we still on for lunch tomorrow?",
			wantLevel:  "minimal",
			wantTotal:  0,
			confidence: 15,
		},
		{
			name:       "single indicator",
			text:       "your subscription will expire soon",
			wantLevel:  "low",
			wantTotal:  1,
			confidence: 40,
		},
		{
			name:       "three indicators no payment",
			text:       "this is the police, legal action and arrest await",
			wantLevel:  "medium",
			wantTotal:  3,
			confidence: 75,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := Builtin().Detect(tt.text)
			if det.RiskLevel != tt.wantLevel {
				t.Errorf("risk level = %q, want %q (matches: %v)", det.RiskLevel, tt.wantLevel, det.Matches)
			}
			if det.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d (matches: %v)", det.Total, tt.wantTotal, det.Matches)
			}
			if det.Confidence != tt.confidence {
				t.Errorf("confidence = %v, want %v", det.Confidence, tt.confidence)
			}
		})
	}
}

func TestDetectCaseInsensitive(t *testing.T) {
	det := Builtin().Detect("URGENT: WIRE TRANSFER REQUIRED")
	if det.Total < 2 {
		t.Fatalf("expected matches regardless of case, got %v", det.Matches)
	}
}

func TestConfidenceCappedAt98(t *testing.T) {
	text := "urgent urgent urgent gift card gift card wire transfer pay now arrest warrant lottery prize"
	det := Builtin().Detect(text)
	if det.Confidence > 98 {
		t.Errorf("confidence = %v, want <= 98", det.Confidence)
	}
}

func TestLoadDirectoryMergesPacks(t *testing.T) {
	dir := t.TempDir()
	pack := `families:
  - name: urgency
    patterns:
      - '(?i)\bjaldi karo\b'
  - name: romance
    patterns:
      - '(?i)\bsend me money my love\b'
`
	if err := os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte(pack), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := LoadDirectory(dir, slog.Default())
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}

	det := set.Detect("jaldi karo, send me money my love")
	if len(det.Matches[FamilyUrgency]) != 1 {
		t.Errorf("pack pattern did not merge into urgency family: %v", det.Matches)
	}
	if len(det.Matches["romance"]) != 1 {
		t.Errorf("new family not loaded: %v", det.Matches)
	}
}

func TestLoadDirectorySkipsBadPatterns(t *testing.T) {
	dir := t.TempDir()
	pack := `families:
  - name: broken
    patterns:
      - '[unclosed'
`
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(pack), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := LoadDirectory(dir, slog.Default())
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}
	// Built-ins survive; broken family contributes nothing.
	det := set.Detect("urgent")
	if det.Total != 1 {
		t.Errorf("built-ins should still match, got %v", det.Matches)
	}
}

func TestLoadDirectoryMissingDir(t *testing.T) {
	set, err := LoadDirectory(filepath.Join(t.TempDir(), "nope"), slog.Default())
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if set == nil || len(set.FamilyNames()) != 4 {
		t.Errorf("expected built-in families only, got %v", set.FamilyNames())
	}
}

func TestBuiltinsNotMutatedByPackMerge(t *testing.T) {
	dir := t.TempDir()
	pack := `families:
  - name: urgency
    patterns:
      - '(?i)\bextra urgency phrase\b'
`
	if err := os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte(pack), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDirectory(dir, slog.Default()); err != nil {
		t.Fatal(err)
	}

	det := Builtin().Detect("extra urgency phrase")
	if det.Total != 0 {
		t.Error("pack merge leaked into the built-in set")
	}
}
