package main

import (
	"context"
	"fmt"

	"github.com/longregen/gepa/internal/adapters/postgres"
	"github.com/longregen/gepa/internal/gepa"
	"github.com/spf13/cobra"
)

// loadStateByArg resolves run-dir-or-id to a gepa.State, reading from the
// file store by default or from postgres.GEPAStore when store == "postgres".
func loadStateByArg(ctx context.Context, store, arg string) (*gepa.State, error) {
	if store != "postgres" {
		return loadRunState(arg)
	}

	pool, err := initPostgres(ctx)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	return postgres.NewGEPAStore(pool).LoadState(ctx, arg)
}

func showCmd() *cobra.Command {
	var store string
	cmd := &cobra.Command{
		Use:   "show <run-dir-or-id>",
		Short: "Show a run's current status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := loadStateByArg(cmd.Context(), store, args[0])
			if err != nil {
				return fmt.Errorf("failed to load run: %w", err)
			}

			best := state.BestProgram()
			fmt.Printf("Iteration:     %d\n", state.I)
			fmt.Printf("Total evals:   %d\n", state.TotalEvals)
			fmt.Printf("Full val runs: %d\n", state.FullValRuns)
			fmt.Printf("Programs:      %d\n", len(state.Programs))
			fmt.Printf("Components:    %v\n", state.ComponentNames)
			fmt.Println()
			fmt.Printf("Best program: #%d (score %.4f)\n", best, state.AggregateScore(best))
			return nil
		},
	}
	cmd.Flags().StringVar(&store, "store", "file", "Where to read the run from: file (arg is a run directory) or postgres (arg is a run ID)")
	return cmd
}
