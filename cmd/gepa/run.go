package main

import (
	"context"
	"fmt"
	"os"

	"github.com/longregen/gepa/internal/adapters/id"
	"github.com/longregen/gepa/internal/adapters/metrics"
	"github.com/longregen/gepa/internal/adapters/postgres"
	"github.com/longregen/gepa/internal/dataset"
	"github.com/longregen/gepa/internal/evalkit"
	"github.com/longregen/gepa/internal/gepa"
	"github.com/longregen/gepa/internal/gepa/progress"
	"github.com/longregen/gepa/internal/llm"
	"github.com/spf13/cobra"
)

// runFlags holds the flags shared by `run` and `resume`: dataset paths,
// candidate seed, and run-loop knobs that override the config defaults.
type runFlags struct {
	runDir         string
	trainPath      string
	valPath        string
	instruction    string
	instructionKey string
	fuzzy          bool
	maxMetricCalls int
	minibatchSize  int
	useMerge       bool
	store          string
	runID          string
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVar(&f.runDir, "run-dir", "", "Directory to persist run state (defaults to config run_dir)")
	cmd.Flags().StringVar(&f.trainPath, "train", "", "Path to the training JSONL dataset (required)")
	cmd.Flags().StringVar(&f.valPath, "val", "", "Path to the validation JSONL dataset (required)")
	cmd.Flags().StringVar(&f.instruction, "instruction", "", "Seed instruction text for the evalkit adapter")
	cmd.Flags().StringVar(&f.instructionKey, "instruction-key", "instruction", "Candidate component name the seed instruction is stored under")
	cmd.Flags().BoolVar(&f.fuzzy, "fuzzy", true, "Score completions by token overlap instead of exact match")
	cmd.Flags().IntVar(&f.maxMetricCalls, "max-metric-calls", 0, "Override config run.max_metric_calls (0 = use config)")
	cmd.Flags().IntVar(&f.minibatchSize, "minibatch-size", 0, "Override config run.reflection_minibatch_size (0 = use config)")
	cmd.Flags().BoolVar(&f.useMerge, "use-merge", true, "Enable the merge proposer")
	cmd.Flags().StringVar(&f.store, "store", "file", "Where to mirror the finished run's state: file (default, run-dir only) or postgres")
	cmd.Flags().StringVar(&f.runID, "run-id", "", "Run identifier used for the postgres store (defaults to a generated ID)")
}

func runCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a new GEPA optimization run",
		Long: `Start a new GEPA optimization run against a JSONL training and
validation set, using the reference evalkit text-completion adapter.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, f, false)
		},
	}
	addRunFlags(cmd, f)
	return cmd
}

func resumeCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a GEPA run from its persisted state",
		Long: `Resume an interrupted GEPA run. --run-dir must point at a
directory previously used with "gepa run"; the persisted state there is
loaded and the run continues toward its stop conditions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, f, true)
		},
	}
	addRunFlags(cmd, f)
	return cmd
}

func executeRun(cmd *cobra.Command, f *runFlags, resuming bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if f.trainPath == "" || f.valPath == "" {
		return fmt.Errorf("--train and --val are required")
	}
	runDir := f.runDir
	if runDir == "" {
		runDir = cfg.Run.RunDir
	}
	if resuming {
		if _, err := os.Stat(runDir); err != nil {
			return fmt.Errorf("resume requires an existing run directory: %w", err)
		}
	}

	trainLoader, err := dataset.Load(f.trainPath)
	if err != nil {
		return fmt.Errorf("failed to load training set: %w", err)
	}
	valLoader, err := dataset.Load(f.valPath)
	if err != nil {
		return fmt.Errorf("failed to load validation set: %w", err)
	}

	llmService := llm.NewService(llmClient)

	match := evalkit.MatchExact
	if f.fuzzy {
		match = evalkit.MatchFuzzy
	}
	adapter := evalkit.New(llmService, f.instructionKey, match, gepa.CompletionOptions{})

	seed := gepa.Candidate{f.instructionKey: f.instruction}

	maxMetricCalls := cfg.Run.MaxMetricCalls
	if f.maxMetricCalls > 0 {
		maxMetricCalls = f.maxMetricCalls
	}
	minibatchSize := cfg.Run.ReflectionMinibatchSize
	if f.minibatchSize > 0 {
		minibatchSize = f.minibatchSize
	}

	runCfg := gepa.RunConfig{
		SeedCandidate:           seed,
		Trainset:                trainLoader,
		Valset:                  valLoader,
		Adapter:                 adapter,
		LLM:                     llmService,
		MaxMetricCalls:          maxMetricCalls,
		ReflectionMinibatchSize: minibatchSize,
		PerfectScore:            cfg.Run.PerfectScore,
		SkipPerfectScore:        cfg.Run.SkipPerfectScore,
		BatchSampler:            gepa.NewSimpleBatchSampler(minibatchSize),
		UseMerge:                f.useMerge && cfg.Run.UseMerge,
		MaxMergeInvocations:     cfg.Run.MaxMergeInvocations,
		MergeValOverlapFloor:    cfg.Run.MergeValOverlapFloor,
		MergeSubsampleSize:      cfg.Run.MergeSubsampleSize,
		StopConditions:          []gepa.StopCondition{gepa.MaxCalls{N: maxMetricCalls}},
		RunDir:                  runDir,
		PersistEveryN:           cfg.Run.PersistEveryN,
		Seed:                    cfg.Run.Seed,
	}

	if cfg.Metrics.Enabled {
		runCfg.Progress = progress.NewPublisher()
		metrics.ObserveRun(runCfg.Progress)
	}

	fmt.Printf("Starting GEPA run in %s (max metric calls: %d)\n", runDir, maxMetricCalls)
	state, err := gepa.Run(ctx, runCfg)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	best := state.BestProgram()
	fmt.Printf("Run finished after %d iterations, %d evals.\n", state.I, state.TotalEvals)
	fmt.Printf("Best program: #%d (score %.4f)\n", best, state.AggregateScore(best))

	if f.store == "postgres" {
		runID := f.runID
		if runID == "" {
			runID = id.New().GenerateRunID()
		}
		pool, err := initPostgres(ctx)
		if err != nil {
			return fmt.Errorf("failed to mirror run to postgres: %w", err)
		}
		defer pool.Close()

		store := postgres.NewGEPAStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to ensure postgres schema: %w", err)
		}
		if err := store.SaveState(ctx, runID, state); err != nil {
			return fmt.Errorf("failed to save run to postgres: %w", err)
		}
		fmt.Printf("Mirrored run to postgres as %s\n", runID)
	}

	return nil
}
