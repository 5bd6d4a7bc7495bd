package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func bestCmd() *cobra.Command {
	var store string
	var showText bool

	cmd := &cobra.Command{
		Use:   "best <run-dir-or-id>",
		Short: "Show the best candidate for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := loadStateByArg(cmd.Context(), store, args[0])
			if err != nil {
				return fmt.Errorf("failed to load run: %w", err)
			}

			best := state.BestProgram()
			candidate := state.Programs[best]

			fmt.Printf("Best candidate: #%d\n", best)
			fmt.Printf("Score:          %.4f\n", state.AggregateScore(best))
			fmt.Printf("Parents:        %v\n", state.Parents[best])
			fmt.Printf("Examples:       %d\n", len(state.ValSubscores[best]))
			fmt.Println()

			if showText {
				for _, name := range candidate.ComponentNames() {
					fmt.Printf("--- %s ---\n%s\n\n", name, candidate[name])
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&store, "store", "file", "Where to read the run from: file (arg is a run directory) or postgres (arg is a run ID)")
	cmd.Flags().BoolVarP(&showText, "text", "t", false, "Show each component's full text")

	return cmd
}
