package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/longregen/gepa/internal/adapters/tracing"
	"github.com/longregen/gepa/internal/config"
	"github.com/longregen/gepa/internal/llm"
)

// Version information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Shared global variables
var (
	cfg            *config.Config
	llmClient      *llm.Client
	tracerShutdown func(context.Context) error
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gepa",
		Short: "GEPA - reflective prompt-evolution CLI",
		Long: `gepa runs GEPA optimization: an evolutionary search over
named-text-component programs, driven by LLM-guided reflective mutation
and genealogy-based merge, tracked on a multi-objective Pareto front.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			llmClient = llm.NewClient(
				cfg.LLM.URL,
				cfg.LLM.APIKey,
				cfg.LLM.Model,
				cfg.LLM.MaxTokens,
				cfg.LLM.Temperature,
			)

			if cfg.Metrics.Enabled {
				startMetricsServer(cfg.Metrics.Addr)
			}
			if cfg.Tracing.Enabled {
				shutdown, err := tracing.InitTracer(cfg.Tracing.ServiceName)
				if err != nil {
					return fmt.Errorf("failed to init tracer: %w", err)
				}
				tracerShutdown = shutdown
			}

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if tracerShutdown != nil {
				return tracerShutdown(context.Background())
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		runCmd(),
		resumeCmd(),
		showCmd(),
		candidatesCmd(),
		bestCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// startMetricsServer exposes the collectors registered in
// internal/adapters/metrics on addr, in the background, for the lifetime
// of the process. A bind failure is logged, not fatal: a run should still
// complete even if its metrics can't be scraped.
func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()
}

// configCmd shows current configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("LLM:")
			fmt.Printf("  URL:         %s\n", cfg.LLM.URL)
			fmt.Printf("  Model:       %s\n", cfg.LLM.Model)
			fmt.Printf("  Max Tokens:  %d\n", cfg.LLM.MaxTokens)
			fmt.Printf("  Temperature: %.2f\n", cfg.LLM.Temperature)
			fmt.Printf("  API Key:     %s\n", maskSecret(cfg.LLM.APIKey))
			fmt.Println()

			fmt.Println("Run defaults:")
			fmt.Printf("  Run Dir:                  %s\n", cfg.Run.RunDir)
			fmt.Printf("  Max Metric Calls:         %d\n", cfg.Run.MaxMetricCalls)
			fmt.Printf("  Reflection Minibatch:     %d\n", cfg.Run.ReflectionMinibatchSize)
			fmt.Printf("  Perfect Score:            %.2f\n", cfg.Run.PerfectScore)
			fmt.Printf("  Use Merge:                %t\n", cfg.Run.UseMerge)
			fmt.Printf("  Persist Every N:          %d\n", cfg.Run.PersistEveryN)
			fmt.Println()

			fmt.Println("Database:")
			fmt.Printf("  PostgreSQL: %s (%s)\n", maskSecret(cfg.Database.PostgresURL), boolStatus(cfg.IsPostgresConfigured()))
			fmt.Println()

			fmt.Println("Environment variables:")
			fmt.Println("  GEPA_LLM_URL, GEPA_LLM_API_KEY, GEPA_LLM_MODEL")
			fmt.Println("  GEPA_POSTGRES_URL")
			fmt.Println("  GEPA_RUN_DIR, GEPA_MAX_METRIC_CALLS, GEPA_REFLECTION_MINIBATCH_SIZE")
			fmt.Println("  GEPA_USE_MERGE, GEPA_PERSIST_EVERY_N, GEPA_SEED")

			return nil
		},
	}
}

// versionCmd shows version information.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gepa %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)
		},
	}
}
