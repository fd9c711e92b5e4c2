package config

// Defaults returns the baseline configuration. The fusion weight table keys
// match the analyzer names registered in internal/tool.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:              "info",
			DefaultProvider:       "openai",
			DefaultLanguage:       "en",
			MaxConcurrentMessages: 5,
		},
		Providers: map[string]ProviderConfig{
			"openai": {
				Enabled: true,
				APIBase: "https://api.openai.com/v1",
				APIKey:  "${OPENAI_API_KEY}",
				Model:   "gpt-4o-mini",
			},
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled: false,
			},
			CLI: CLIConfig{
				Enabled: true,
			},
		},
		Triage: TriageConfig{
			ToolTimeoutSeconds: 15,
			Weights: map[string]float64{
				"reputation":          0.35,
				"malware_list":        0.25,
				"url_scan":            0.15,
				"phone_search":        0.20,
				"transcript_patterns": 0.40,
				"media_authenticity":  0.40,
				"news_correlation":    0.10,
				"llm_judgment":        0.05,
			},
			DefaultWeight: 0.05,
			Thresholds: TierThresholds{
				High:   75,
				Medium: 50,
				Low:    25,
			},
			RawEchoLimit: 200,
		},
		Session: SessionConfig{
			TimeoutMinutes:       30,
			MaxSessions:          10000,
			SweepIntervalMinutes: 10,
		},
		Tools: ToolsConfig{
			Reputation: ReputationConfig{
				Enabled: false,
				APIBase: "https://www.virustotal.com/api/v3",
				APIKey:  "${VT_API_KEY}",
			},
			MalwareList: MalwareListConfig{
				Enabled: false,
				APIBase: "https://urlhaus-api.abuse.ch/v1",
				AuthKey: "${URLHAUS_AUTH_KEY}",
			},
			URLScan: URLScanConfig{
				Enabled:  false,
				Headless: true,
			},
			PhoneSearch: PhoneSearchConfig{
				Enabled: false,
				APIBase: "https://google.serper.dev",
				APIKey:  "${SERPER_API_KEY}",
			},
			News: NewsConfig{
				Enabled:    false,
				APIBase:    "https://newsapi.org/v2",
				APIKey:     "${NEWS_API_KEY}",
				DaysBack:   7,
				MaxResults: 20,
			},
			MediaAuthenticity: MediaAuthConfig{
				Enabled: false,
			},
		},
		Patterns: PatternsConfig{},
		Audit: AuditConfig{
			Enabled:       true,
			DBPath:        "~/.sentrybot/audit.db",
			RetentionDays: 90,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    9091,
		},
	}
}
