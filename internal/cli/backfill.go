package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBackfillCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Export persisted segments that have no storage URL yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			// Backfill never prompts; the strategy only satisfies the wiring.
			pipeline, err := a.pipeline(cmd.Context(), "longest", cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			sum, err := pipeline.Backfill(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pending: %d, exported: %d, failed: %d\n", sum.Pending, sum.Exported, sum.Failed)
			return nil
		},
	}
}
