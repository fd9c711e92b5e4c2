package config

import (
	"os"
	"path/filepath"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_BadLanguage(t *testing.T) {
	cfg := Defaults()
	cfg.General.DefaultLanguage = "fr"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unsupported defaultLanguage")
	}
}

func TestValidate_BadThresholds(t *testing.T) {
	cfg := Defaults()
	cfg.Triage.Thresholds = TierThresholds{High: 40, Medium: 50, Low: 25}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for non-monotonic thresholds")
	}
}

func TestValidate_ZeroWeight(t *testing.T) {
	cfg := Defaults()
	cfg.Triage.Weights["reputation"] = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for zero weight")
	}
}

func TestValidate_UnknownDefaultProvider(t *testing.T) {
	cfg := Defaults()
	cfg.General.DefaultProvider = "nonexistent"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown default provider")
	}
}

func TestValidate_SessionTimeout(t *testing.T) {
	cfg := Defaults()
	cfg.Session.TimeoutMinutes = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for session timeout < 1")
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars_Set(t *testing.T) {
	t.Setenv("SENTRYBOT_TEST_KEY", "secret123")
	got := ExpandEnvVars(`{"apiKey": "${SENTRYBOT_TEST_KEY}"}`)
	want := `{"apiKey": "secret123"}`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExpandEnvVars_Default(t *testing.T) {
	os.Unsetenv("SENTRYBOT_UNSET_VAR")
	got := ExpandEnvVars(`${SENTRYBOT_UNSET_VAR:-fallback}`)
	if got != "fallback" {
		t.Fatalf("got %q, want fallback", got)
	}
}

func TestExpandEnvVars_UnsetNoDefault(t *testing.T) {
	os.Unsetenv("SENTRYBOT_UNSET_VAR")
	got := ExpandEnvVars(`${SENTRYBOT_UNSET_VAR}`)
	if got != "${SENTRYBOT_UNSET_VAR}" {
		t.Fatalf("expected original text kept, got %q", got)
	}
}

// --- Load / Save round trip ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Defaults()
	cfg.General.DefaultLanguage = "hi"
	cfg.Session.TimeoutMinutes = 45
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.General.DefaultLanguage != "hi" {
		t.Fatalf("expected hi, got %q", loaded.General.DefaultLanguage)
	}
	if loaded.Session.TimeoutMinutes != 45 {
		t.Fatalf("expected 45, got %d", loaded.Session.TimeoutMinutes)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

// --- Sanitize ---

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Telegram.Token = "1234567890:AAF-long-telegram-token-value"
	cfg.Tools.Reputation.APIKey = "vt-key-abcdefghijklmnop"

	out := Sanitize(cfg)
	if out.Channels.Telegram.Token == cfg.Channels.Telegram.Token {
		t.Fatal("telegram token not masked")
	}
	if out.Tools.Reputation.APIKey == cfg.Tools.Reputation.APIKey {
		t.Fatal("reputation API key not masked")
	}
	// Original is untouched.
	if cfg.Tools.Reputation.APIKey != "vt-key-abcdefghijklmnop" {
		t.Fatal("Sanitize must not mutate the input config")
	}
}
