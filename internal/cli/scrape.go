package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
	"github.com/codebuildervaibhav/audio-quiz/internal/scraper"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

func newScrapeCommand() *cobra.Command {
	var url, date string
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Print the stories on a program page as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" && date == "" {
				return apperrors.InvalidInput("url", "--url or --date is required")
			}
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a := &app{cfg: cfg, log: log}

			var stories []types.Story
			if url != "" {
				stories, err = a.scraper().Stories(cmd.Context(), url)
			} else {
				d, perr := scraper.ParseDate(date)
				if perr != nil {
					return perr
				}
				stories, err = a.scraper().StoriesForDate(cmd.Context(), d)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			for _, s := range stories {
				if err := enc.Encode(s); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Program page URL")
	cmd.Flags().StringVar(&date, "date", "", "Program date (YYYY-MM-DD), scrapes every program")
	return cmd
}
