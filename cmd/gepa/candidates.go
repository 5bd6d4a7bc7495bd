package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/longregen/gepa/internal/adapters/id"
	"github.com/longregen/gepa/internal/adapters/postgres"
	"github.com/spf13/cobra"
)

func candidatesCmd() *cobra.Command {
	var store string
	var promote int

	cmd := &cobra.Command{
		Use:   "candidates <run-dir-or-id>",
		Short: "List a run's candidates, or promote one to the active deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runArg := args[0]

			state, err := loadStateByArg(ctx, store, runArg)
			if err != nil {
				return fmt.Errorf("failed to load run: %w", err)
			}

			if promote >= 0 {
				if store != "postgres" {
					return fmt.Errorf("--promote requires --store=postgres")
				}
				pool, err := initPostgres(ctx)
				if err != nil {
					return err
				}
				defer pool.Close()

				gepaStore := postgres.NewGEPAStore(pool)
				deployment, err := gepaStore.Promote(ctx, id.New().GenerateDeploymentID(), runArg, promote)
				if err != nil {
					return fmt.Errorf("failed to promote candidate %d: %w", promote, err)
				}
				fmt.Printf("Promoted candidate #%d as deployment %s (version %d)\n",
					deployment.CandidateIdx, deployment.ID, deployment.VersionNumber)
				return nil
			}

			indices := make([]int, len(state.Programs))
			for i := range state.Programs {
				indices[i] = i
			}
			sort.Slice(indices, func(i, j int) bool {
				return state.AggregateScore(indices[i]) > state.AggregateScore(indices[j])
			})

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "IDX\tSCORE\tPARENTS\tEXAMPLES SCORED")
			fmt.Fprintln(w, "---\t-----\t-------\t---------------")
			for _, idx := range indices {
				fmt.Fprintf(w, "%d\t%.4f\t%v\t%d\n",
					idx, state.AggregateScore(idx), state.Parents[idx], len(state.ValSubscores[idx]))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&store, "store", "file", "Where to read the run from: file (arg is a run directory) or postgres (arg is a run ID)")
	cmd.Flags().IntVar(&promote, "promote", -1, "Promote the candidate at this index to the active deployment (requires --store=postgres)")

	return cmd
}
