// Package cli implements the audioquiz command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/audio-quiz/internal/config"
)

// Main runs the CLI and exits non-zero on error.
func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "audioquiz",
		Short:        "Build a voice quiz from radio correspondents' stories",
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("config", config.DefaultPath, "Path to the YAML config file")

	root.AddCommand(
		newIngestCommand(),
		newAddCommand(),
		newScrapeCommand(),
		newBackfillCommand(),
		newCorrespondentCommand(),
		newServeCommand(),
		newMigrateCommand(),
	)
	return root
}
