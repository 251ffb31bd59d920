package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"veil-hq/relay/pkg/audit"
	"veil-hq/relay/pkg/audit/storage"
	"veil-hq/relay/pkg/config"
	"veil-hq/relay/pkg/conversation"
	"veil-hq/relay/pkg/masking"
	"veil-hq/relay/pkg/prompt"
	"veil-hq/relay/pkg/providerfactory"
	"veil-hq/relay/pkg/providers"
	"veil-hq/relay/pkg/server"
	"veil-hq/relay/pkg/session"
	"veil-hq/relay/pkg/telemetry/logging"
	"veil-hq/relay/pkg/telemetry/metrics"
	"veil-hq/relay/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay server",
	Long: `Start the relay server with the specified configuration.

The server listens on the configured address, masks PII out of every
user message, and forwards the masked conversation to the configured
model backend.

Examples:
  # Start with default config
  relay run

  # Start with custom config
  relay run --config /etc/veil/config.yaml

  # Override listen address
  relay run --listen 0.0.0.0:8080

  # Validate config without starting server
  relay run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if _, err := logging.Setup(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	}); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	pipeline, err := buildPipeline(&cfg.Masking)
	if err != nil {
		return err
	}
	if pipeline.Enabled() {
		fmt.Println("✓ PII masking enabled")
	} else {
		fmt.Println("! PII masking disabled: raw text will reach the model backend")
	}

	slog.Info("initializing provider", "kind", cfg.Provider.Kind, "model", cfg.Provider.Model)
	provider, err := providerfactory.New(providers.Config{
		Kind:                providers.Kind(cfg.Provider.Kind),
		Name:                cfg.Provider.Name,
		Endpoint:            cfg.Provider.Endpoint,
		Model:               cfg.Provider.Model,
		Credential:          cfg.Provider.Credential,
		APIVersion:          cfg.Provider.APIVersion,
		Timeout:             cfg.Provider.Timeout,
		MaxRetries:          cfg.Provider.MaxRetries,
		HealthCheckInterval: cfg.Provider.HealthCheckInterval,
		MaxIdleConns:        cfg.Provider.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Provider.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.Provider.IdleConnTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	defer provider.Close()
	fmt.Printf("✓ Provider initialized (%s, model %s)\n", provider.Name(), provider.Model())

	prompts, err := buildPromptSource(&cfg.Prompt)
	if err != nil {
		return fmt.Errorf("failed to load system prompt: %w", err)
	}
	defer prompts.Close()

	var recorder *audit.Recorder
	var retention *audit.Retention
	if cfg.Audit.Enabled {
		slog.Info("initializing audit recording", "backend", cfg.Audit.Backend)

		var auditStorage audit.Storage
		switch cfg.Audit.Backend {
		case "sqlite":
			auditStorage, err = storage.NewSQLiteStorage(storage.SQLiteConfig{
				Path: cfg.Audit.SQLite.Path,
			})
			if err != nil {
				return fmt.Errorf("failed to open audit database: %w", err)
			}
		case "memory":
			auditStorage = storage.NewMemoryStorage()
		default:
			return fmt.Errorf("unsupported audit backend: %s", cfg.Audit.Backend)
		}
		defer auditStorage.Close()

		recorder = audit.NewRecorder(auditStorage, audit.RecorderConfig{})
		defer recorder.Close()

		if *cfg.Audit.Retention.Days > 0 {
			retention = audit.NewRetention(auditStorage, audit.RetentionConfig{
				Days:     *cfg.Audit.Retention.Days,
				Schedule: cfg.Audit.Retention.Schedule,
			})
			if err := retention.Start(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start audit retention: %w", err)
			}
			defer retention.Stop()
		}

		fmt.Println("✓ Audit store initialized")
	}

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(prometheus.NewRegistry())
	}

	tracer, err := tracing.New(tracing.Config{
		Enabled:     cfg.Telemetry.Tracing.Enabled,
		Endpoint:    cfg.Telemetry.Tracing.Endpoint,
		SampleRatio: cfg.Telemetry.Tracing.SampleRatio,
		ServiceName: "veil-relay",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer tracer.Shutdown(context.Background())

	service := conversation.New(
		pipeline,
		session.NewStore(cfg.Session.MaxTurns),
		provider,
		prompts,
		recorder,
		collector,
		tracer,
		conversation.Config{
			Temperature: *cfg.Provider.Temperature,
			MaxTokens:   cfg.Provider.MaxTokens,
		},
	)

	srv := server.New(cfg.Server, service, collector, cfg.Telemetry.Metrics.Path)

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Chat endpoint: http://%s/v1/chat\n", cfg.Server.ListenAddress)
	if collector != nil {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until a shutdown signal or context cancellation.
	return srv.Start(cmd.Context())
}

// buildPipeline constructs the masking pipeline, honoring the configured
// on_unavailable behavior when construction fails.
func buildPipeline(cfg *config.MaskingConfig) (*masking.Pipeline, error) {
	pipeline, err := masking.NewPipeline(cfg.Rules, cfg.ScoreThreshold, cfg.MaskingEnabled())
	if err == nil {
		return pipeline, nil
	}

	if cfg.OnUnavailable == "bypass" {
		slog.Warn("masking pipeline unavailable, continuing unmasked", "error", err)
		return masking.NewPipeline(nil, cfg.ScoreThreshold, false)
	}
	return nil, fmt.Errorf("masking pipeline unavailable and on_unavailable is %q: %w", cfg.OnUnavailable, err)
}

func buildPromptSource(cfg *config.PromptConfig) (*prompt.Source, error) {
	if cfg.Path == "" {
		return prompt.NewStatic(""), nil
	}
	return prompt.NewFromFile(cfg.Path, cfg.Watch)
}

func printBanner(cfg *config.Config) {
	fmt.Printf("Veil Relay v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	slog.Debug("provider configured", "kind", cfg.Provider.Kind, "endpoint", cfg.Provider.Endpoint)
	if cfg.Audit.Enabled {
		slog.Debug("audit enabled", "backend", cfg.Audit.Backend)
	}
}
