package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"microloan-ledger/internal/app"
)

func newStatsCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print loan and user counts as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				s, err := a.Stats.GetLoanStats(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			})
		},
	}
}
