package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/audio-quiz/internal/database"
)

func newMigrateCommand() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := database.Connect(cmd.Context(), dbConfig(cfg), log)
			if err != nil {
				return err
			}
			defer db.Close()

			msg := "migrations applied"
			if down {
				err, msg = db.MigrateDown(), "migrations rolled back"
			} else {
				err = db.Migrate()
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "Roll back every migration")
	return cmd
}
