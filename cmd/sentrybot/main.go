package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentrybot/internal/audit"
	"sentrybot/internal/bus"
	"sentrybot/internal/channel"
	"sentrybot/internal/config"
	"sentrybot/internal/domain"
	"sentrybot/internal/patterns"
	"sentrybot/internal/provider"
	"sentrybot/internal/session"
	"sentrybot/internal/tool"
	"sentrybot/internal/triage"

	"github.com/spf13/cobra"
)

var (
	version    = "0.3.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "sentrybot",
		Short: "SentryBot: scam and threat triage over messaging channels",
		Long:  "SentryBot fuses reputation lookups, page scans, and LLM judgment into a single risk verdict for suspicious links, messages, phone numbers, and media.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.sentrybot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(analyzeCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(daemonCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config file, falling back to defaults when it does not
// exist, and reconfigures the global logger from it.
func loadConfig() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}

	level := slog.LevelInfo
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	out := os.Stderr
	if cfg.General.LogFile != "" {
		if f, err := os.OpenFile(cfg.General.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			out = f
		} else {
			logger.Warn("cannot open log file, logging to stderr", "path", cfg.General.LogFile, "err", err)
		}
	}
	logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := resolveConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			fmt.Println("Config written to", cfgPath)
			fmt.Println("Set API keys via environment variables (OPENAI_API_KEY, VT_API_KEY, ...) or edit the file, then enable the tools you want.")
			return nil
		},
	}
}

// buildEngine assembles the triage engine from config: provider chain,
// analyzer registry, and fusion weighting.
func buildEngine(cfg *config.Config) (*triage.Engine, domain.Provider, error) {
	factory := provider.NewFactory(cfg, logger)
	prov := factory.Chain()
	if prov == nil {
		logger.Warn("no usable LLM provider; judgment and summaries degrade to deterministic fallbacks")
	}

	reg, err := buildRegistry(cfg, prov)
	if err != nil {
		return nil, nil, err
	}

	fusion := triage.NewFusion(triage.FusionConfig{
		Weights:       cfg.Triage.Weights,
		DefaultWeight: cfg.Triage.DefaultWeight,
		Thresholds: triage.Thresholds{
			High:   cfg.Triage.Thresholds.High,
			Medium: cfg.Triage.Thresholds.Medium,
			Low:    cfg.Triage.Thresholds.Low,
		},
	})

	engine := triage.NewEngine(triage.EngineConfig{
		Tools:        reg,
		Fusion:       fusion,
		Provider:     prov,
		Logger:       logger,
		ToolTimeout:  time.Duration(cfg.Triage.ToolTimeoutSeconds) * time.Second,
		RawEchoLimit: cfg.Triage.RawEchoLimit,
	})
	return engine, prov, nil
}

// buildRegistry registers every enabled analyzer. The transcript analyzer is
// always available since it needs no credentials; llm_judgment requires a
// provider.
func buildRegistry(cfg *config.Config, prov domain.Provider) (*tool.Registry, error) {
	reg := tool.NewRegistry(logger)
	httpClient := provider.SharedHTTPClient(time.Duration(cfg.Triage.ToolTimeoutSeconds) * time.Second)

	set := patterns.Builtin()
	if cfg.Patterns.Dir != "" {
		loaded, err := patterns.LoadDirectory(cfg.Patterns.Dir, logger)
		if err != nil {
			return nil, fmt.Errorf("load pattern packs: %w", err)
		}
		set = loaded
	}
	reg.Register(tool.NewTranscript(set, logger))

	if prov != nil {
		reg.Register(tool.NewLLMJudge(prov, logger))
	}

	if t := cfg.Tools.Reputation; t.Enabled && t.APIKey != "" {
		reg.Register(tool.NewReputation(tool.ReputationConfig{
			APIKey:  t.APIKey,
			APIBase: t.APIBase,
			Client:  httpClient,
			Logger:  logger,
		}))
	}
	if t := cfg.Tools.MalwareList; t.Enabled {
		reg.Register(tool.NewMalwareList(tool.MalwareListConfig{
			AuthKey: t.AuthKey,
			APIBase: t.APIBase,
			Client:  httpClient,
			Logger:  logger,
		}))
	}
	if t := cfg.Tools.URLScan; t.Enabled {
		reg.Register(tool.NewURLScan(tool.URLScanConfig{
			Headless:  t.Headless,
			UserAgent: t.UserAgent,
			Logger:    logger,
		}))
	}
	if t := cfg.Tools.PhoneSearch; t.Enabled && t.APIKey != "" {
		reg.Register(tool.NewPhoneSearch(tool.PhoneSearchConfig{
			APIKey:   t.APIKey,
			APIBase:  t.APIBase,
			Provider: prov,
			Client:   httpClient,
			Logger:   logger,
		}))
	}
	if t := cfg.Tools.News; t.Enabled && t.APIKey != "" {
		reg.Register(tool.NewNewsIntel(tool.NewsIntelConfig{
			APIKey:  t.APIKey,
			APIBase: t.APIBase,
			Client:  httpClient,
			Logger:  logger,
		}))
	}
	if t := cfg.Tools.MediaAuthenticity; t.Enabled && t.Endpoint != "" {
		reg.Register(tool.NewMediaAuthenticity(tool.MediaAuthenticityConfig{
			Endpoint: t.Endpoint,
			Client:   httpClient,
			Logger:   logger,
		}))
	}

	logger.Info("analyzers registered", "tools", reg.Names())
	return reg, nil
}

func analyzeCmd() *cobra.Command {
	var (
		hint     string
		language string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "analyze [input]",
		Short: "Run one analysis and print the verdict",
		Long:  "Analyzes a URL, phone number, message text, or media reference. With --hint voice and a file path argument, the audio is transcribed first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			input := args[0]

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine, _, err := buildEngine(cfg)
			if err != nil {
				return err
			}

			contentHint := domain.ContentType(hint)
			if contentHint == domain.ContentVoice {
				if _, err := os.Stat(input); err == nil {
					text, err := transcribeFile(ctx, cfg, input)
					if err != nil {
						return fmt.Errorf("transcribe %s: %w", input, err)
					}
					logger.Info("audio transcribed", "file", input, "text_len", len(text))
					input = text
				}
			}

			if language == "" {
				language = triage.DetectLanguage(input)
			}

			result, err := engine.Analyze(ctx, input, contentHint, language)
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Println(triage.FormatReply(result))
			if len(result.UncertaintyNotes) > 0 {
				fmt.Println()
				for _, note := range result.UncertaintyNotes {
					fmt.Println("! " + note)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&hint, "hint", "", "content type hint: url, email, phone, message, image, video, voice")
	cmd.Flags().StringVar(&language, "language", "", "reply language: en or hi (default: detected)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

// transcribeFile converts a local audio file to text through the default
// provider's speech endpoint.
func transcribeFile(ctx context.Context, cfg *config.Config, path string) (string, error) {
	pc, ok := cfg.Providers[cfg.General.DefaultProvider]
	if !ok || pc.APIKey == "" {
		return "", fmt.Errorf("no provider credentials for transcription")
	}
	whisper := provider.NewWhisper(provider.WhisperConfig{
		APIBase: pc.APIBase,
		APIKey:  pc.APIKey,
		Logger:  logger,
	})

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	tr, err := whisper.Transcribe(ctx, f, path)
	if err != nil {
		return "", err
	}
	return tr.Text, nil
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive triage in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine, _, err := buildEngine(cfg)
			if err != nil {
				return err
			}

			messageBus := bus.New(100, logger)
			defer messageBus.Close()

			sessions := session.NewStore(session.StoreConfig{
				Timeout:     time.Duration(cfg.Session.TimeoutMinutes) * time.Minute,
				MaxSessions: cfg.Session.MaxSessions,
				Logger:      logger,
			})

			loop := triage.NewLoop(triage.LoopConfig{
				Engine:          engine,
				Bus:             messageBus,
				Sessions:        sessions,
				Logger:          logger,
				Concurrency:     cfg.General.MaxConcurrentMessages,
				DefaultLanguage: cfg.General.DefaultLanguage,
			})
			go loop.Run(ctx)

			cli := channel.NewCLI(channel.CLIConfig{Logger: logger})
			return cli.Start(ctx, messageBus)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show recent analyses and tier counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if !cfg.Audit.Enabled {
				fmt.Println("Audit log disabled; no history available.")
				return nil
			}

			store, err := audit.NewStore(cfg.Audit.DBPath, logger)
			if err != nil {
				return fmt.Errorf("open audit log: %w", err)
			}
			defer store.Close()

			ctx := context.Background()
			counts, err := store.CountByTier(ctx, time.Now().Add(-24*time.Hour))
			if err != nil {
				return err
			}
			fmt.Printf("Last 24h: high=%d medium=%d low=%d minimal=%d\n\n",
				counts["high"], counts["medium"], counts["low"], counts["minimal"])

			entries, err := store.Recent(ctx, 10)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No analyses recorded yet.")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  %-8s %-7s %5.1f  [%s] %s\n",
					e.CreatedAt.Format("2006-01-02 15:04"),
					e.ContentType, e.RiskTier, e.RiskScore, e.Channel, e.Summary)
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective config with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
