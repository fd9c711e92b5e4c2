package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for SentryBot. All values are read-only
// after Load; components receive the sub-structs they need at construction.
type Config struct {
	General   GeneralConfig             `json:"general"`
	Providers map[string]ProviderConfig `json:"providers"`
	Channels  ChannelsConfig            `json:"channels"`
	Triage    TriageConfig              `json:"triage"`
	Session   SessionConfig             `json:"session"`
	Tools     ToolsConfig               `json:"tools"`
	Patterns  PatternsConfig            `json:"patterns"`
	Audit     AuditConfig               `json:"audit"`
	Metrics   MetricsConfig             `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel              string `json:"logLevel"`
	LogFile               string `json:"logFile,omitempty"`
	DefaultProvider       string `json:"defaultProvider"`
	DefaultLanguage       string `json:"defaultLanguage"` // "en" | "hi"
	MaxConcurrentMessages int    `json:"maxConcurrentMessages"`
}

type ProviderConfig struct {
	Enabled bool   `json:"enabled"`
	APIBase string `json:"apiBase,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
	Model   string `json:"model,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	CLI      CLIConfig      `json:"cli"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
}

type CLIConfig struct {
	Enabled bool `json:"enabled"`
}

// TriageConfig tunes the fusion engine and orchestrator. Weights is keyed by
// signal source name; sources absent from the table use DefaultWeight.
type TriageConfig struct {
	ToolTimeoutSeconds int                `json:"toolTimeoutSeconds"`
	Weights            map[string]float64 `json:"weights"`
	DefaultWeight      float64            `json:"defaultWeight"`
	Thresholds         TierThresholds     `json:"thresholds"`
	RawEchoLimit       int                `json:"rawEchoLimit"`
}

// TierThresholds are the inclusive lower bounds of each risk tier.
type TierThresholds struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
	Low    float64 `json:"low"`
}

type SessionConfig struct {
	TimeoutMinutes       int `json:"timeoutMinutes"`
	MaxSessions          int `json:"maxSessions"`
	SweepIntervalMinutes int `json:"sweepIntervalMinutes"`
}

type ToolsConfig struct {
	Reputation        ReputationConfig  `json:"reputation"`
	MalwareList       MalwareListConfig `json:"malwareList"`
	URLScan           URLScanConfig     `json:"urlScan"`
	PhoneSearch       PhoneSearchConfig `json:"phoneSearch"`
	News              NewsConfig        `json:"news"`
	MediaAuthenticity MediaAuthConfig   `json:"mediaAuthenticity"`
}

type ReputationConfig struct {
	Enabled bool   `json:"enabled"`
	APIBase string `json:"apiBase,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
}

type MalwareListConfig struct {
	Enabled bool   `json:"enabled"`
	APIBase string `json:"apiBase,omitempty"`
	AuthKey string `json:"authKey,omitempty"`
}

type URLScanConfig struct {
	Enabled   bool   `json:"enabled"`
	Headless  bool   `json:"headless"`
	UserAgent string `json:"userAgent,omitempty"`
}

type PhoneSearchConfig struct {
	Enabled bool   `json:"enabled"`
	APIBase string `json:"apiBase,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
}

type NewsConfig struct {
	Enabled    bool   `json:"enabled"`
	APIBase    string `json:"apiBase,omitempty"`
	APIKey     string `json:"apiKey,omitempty"`
	DaysBack   int    `json:"daysBack"`
	MaxResults int    `json:"maxResults"`
}

type MediaAuthConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint,omitempty"`
}

// PatternsConfig points at optional YAML packs that extend the built-in
// scam-indicator pattern families.
type PatternsConfig struct {
	Dir string `json:"dir,omitempty"`
}

type AuditConfig struct {
	Enabled       bool   `json:"enabled"`
	DBPath        string `json:"dbPath"`
	RetentionDays int    `json:"retentionDays"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

// DefaultConfigDir returns the default config directory (~/.sentrybot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sentrybot"
	}
	return filepath.Join(home, ".sentrybot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Audit.DBPath = ExpandPath(cfg.Audit.DBPath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Patterns.Dir = ExpandPath(cfg.Patterns.Dir)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.DefaultLanguage {
	case "en", "hi":
		// supported
	default:
		errs = append(errs, "general.defaultLanguage must be one of: en, hi")
	}
	if cfg.General.MaxConcurrentMessages < 1 || cfg.General.MaxConcurrentMessages > 100 {
		errs = append(errs, "general.maxConcurrentMessages must be between 1 and 100")
	}

	if cfg.Triage.ToolTimeoutSeconds < 1 {
		errs = append(errs, "triage.toolTimeoutSeconds must be >= 1")
	}
	if cfg.Triage.DefaultWeight <= 0 {
		errs = append(errs, "triage.defaultWeight must be > 0")
	}
	for name, w := range cfg.Triage.Weights {
		if w <= 0 {
			errs = append(errs, fmt.Sprintf("triage.weights.%s must be > 0", name))
		}
	}
	th := cfg.Triage.Thresholds
	if !(th.Low > 0 && th.Medium > th.Low && th.High > th.Medium && th.High <= 100) {
		errs = append(errs, "triage.thresholds must satisfy 0 < low < medium < high <= 100")
	}
	if cfg.Triage.RawEchoLimit < 1 {
		errs = append(errs, "triage.rawEchoLimit must be >= 1")
	}

	if cfg.Session.TimeoutMinutes < 1 {
		errs = append(errs, "session.timeoutMinutes must be >= 1")
	}
	if cfg.Session.MaxSessions < 1 {
		errs = append(errs, "session.maxSessions must be >= 1")
	}

	if cfg.Metrics.Port < 0 || cfg.Metrics.Port > 65535 {
		errs = append(errs, "metrics.port must be between 0 and 65535")
	}
	if cfg.Audit.Enabled && cfg.Audit.RetentionDays < 1 {
		errs = append(errs, "audit.retentionDays must be >= 1 when audit is enabled")
	}

	if cfg.General.DefaultProvider != "" {
		if _, ok := cfg.Providers[cfg.General.DefaultProvider]; !ok {
			errs = append(errs, fmt.Sprintf("general.defaultProvider references unknown provider: %s", cfg.General.DefaultProvider))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Sanitize returns a copy of the config with sensitive values masked,
// for display by the `config` CLI command.
func Sanitize(cfg *Config) *Config {
	data, err := json.Marshal(cfg)
	if err != nil {
		return cfg
	}
	var out Config
	if err := json.Unmarshal(data, &out); err != nil {
		return cfg
	}

	for name, prov := range out.Providers {
		if prov.APIKey != "" {
			prov.APIKey = maskString(prov.APIKey)
		}
		out.Providers[name] = prov
	}
	if out.Channels.Telegram.Token != "" {
		out.Channels.Telegram.Token = maskString(out.Channels.Telegram.Token)
	}
	if out.Tools.Reputation.APIKey != "" {
		out.Tools.Reputation.APIKey = maskString(out.Tools.Reputation.APIKey)
	}
	if out.Tools.MalwareList.AuthKey != "" {
		out.Tools.MalwareList.AuthKey = maskString(out.Tools.MalwareList.AuthKey)
	}
	if out.Tools.PhoneSearch.APIKey != "" {
		out.Tools.PhoneSearch.APIKey = maskString(out.Tools.PhoneSearch.APIKey)
	}
	if out.Tools.News.APIKey != "" {
		out.Tools.News.APIKey = maskString(out.Tools.News.APIKey)
	}
	return &out
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
