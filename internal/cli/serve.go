package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/audio-quiz/internal/cleanup"
	"github.com/codebuildervaibhav/audio-quiz/internal/handlers"
	"github.com/codebuildervaibhav/audio-quiz/internal/quiz"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the quiz API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			log := a.log.WithComponent("http")

			if err := cleanup.EnsureDir(a.cfg.Audio.TempDir); err != nil {
				return fmt.Errorf("create temp directory: %w", err)
			}
			sweeper := cleanup.NewScheduler(a.cfg.Audio.TempDir, a.cfg.Cleanup.IntervalMinutes, a.cfg.Cleanup.MaxAgeHours, a.log)
			sweeper.Start()
			defer sweeper.Stop()

			builder := quiz.NewBuilder(a.repo, a.cfg.Quiz.Distractors, nil)
			app := handlers.NewApp(handlers.NewQuizHandler(builder, a.cfg.Quiz.Size, log), a.db, log)

			go func() {
				<-cmd.Context().Done()
				log.Info("Shutting down gracefully...")
				_ = app.Shutdown()
			}()

			addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
			log.Info("Server starting", map[string]interface{}{
				"addr":   addr,
				"routes": []string{"GET /api/audio-quiz", "GET /generate-quiz", "GET /health"},
			})
			return app.Listen(addr)
		},
	}
}
