package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bookshare/lending/lending"
	"github.com/bookshare/lending/lending/simulation"
)

func (a *app) simulateCommand() *cobra.Command {
	cfg := simulation.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run concurrent simulated users against the store and audit the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sim, err := simulation.New(a.engine, cfg, simulation.WithLogger(a.cfg.NewLogger()))
			if err != nil {
				return fmt.Errorf("%w: %w", lending.ErrInvalidInput, err)
			}

			report, err := sim.Run(cmd.Context())
			if err != nil {
				return err
			}

			if err = writeJSON(a.out, report); err != nil {
				return err
			}

			if len(report.Violations) > 0 {
				return fmt.Errorf("%w: %d violations", lending.ErrInvalidState, len(report.Violations))
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.Actors, "actors", cfg.Actors, "number of simulated users")
	cmd.Flags().IntVar(&cfg.BooksPerActor, "books-per-actor", cfg.BooksPerActor, "books each user starts with")
	cmd.Flags().IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "number of rounds")
	cmd.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "users acting concurrently")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	cmd.Flags().DurationVar(&cfg.CommandTimeout, "command-timeout", cfg.CommandTimeout, "timeout of a single workflow call")
	cmd.Flags().Float64Var(&cfg.ChanceGrant, "grant-chance", cfg.ChanceGrant, "chance that an owner grants instead of rejects")
	cmd.Flags().Float64Var(&cfg.ChanceList, "list-chance", cfg.ChanceList, "chance that an owner lists an unlisted book per round")

	return cmd
}
