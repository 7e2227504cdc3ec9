package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
	"github.com/codebuildervaibhav/audio-quiz/internal/config"
	"github.com/codebuildervaibhav/audio-quiz/internal/ingest"
	"github.com/codebuildervaibhav/audio-quiz/internal/queue"
	"github.com/codebuildervaibhav/audio-quiz/internal/scraper"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

type ingestOptions struct {
	date          string
	strategy      string
	workers       int
	add           bool
	audioURL      string
	correspondent string
}

func newIngestCommand() *cobra.Command {
	var opts ingestOptions
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest the stories aired on a date, or one story with --add",
		Example: "  audioquiz ingest --date 2024-03-05 --strategy longest --workers 4\n" +
			"  audioquiz ingest --add --audio-url https://ondemand.npr.org/x.mp3 --correspondent \"Jane Doe\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts)
		},
	}
	bindIngestFlags(cmd, &opts)
	cmd.Flags().BoolVar(&opts.add, "add", false, "Ingest a single story given by --audio-url and --correspondent")
	return cmd
}

// newAddCommand is shorthand for ingest --add.
func newAddCommand() *cobra.Command {
	var opts ingestOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Ingest one story by audio URL and correspondent name",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.add = true
			return runIngest(cmd, opts)
		},
	}
	bindIngestFlags(cmd, &opts)
	return cmd
}

func bindIngestFlags(cmd *cobra.Command, opts *ingestOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.date, "date", "", "Program date (YYYY-MM-DD)")
	f.StringVar(&opts.strategy, "strategy", "", "Speaker selection: interactive, longest or first (default from config)")
	f.IntVar(&opts.workers, "workers", 0, "Concurrent stories (default from config; interactive forces 1)")
	f.StringVar(&opts.audioURL, "audio-url", "", "Story audio URL")
	f.StringVar(&opts.correspondent, "correspondent", "", "Correspondent full name")
}

// validate checks flag combinations before anything is opened.
func (o ingestOptions) validate() error {
	if o.add {
		if o.audioURL == "" || o.correspondent == "" {
			return apperrors.InvalidInput("add", "--audio-url and --correspondent are required")
		}
		return nil
	}
	if o.date == "" {
		return apperrors.InvalidInput("date", "--date is required unless --add is given")
	}
	_, err := scraper.ParseDate(o.date)
	return err
}

// applyTo resolves the strategy and worker count into cfg so the store's
// connection pool is sized for the workers that will actually run.
func (o *ingestOptions) applyTo(cfg *config.Config) {
	if o.strategy == "" {
		o.strategy = cfg.Ingest.SpeakerStrategy
	}
	workers := o.workers
	if o.strategy == "interactive" {
		workers = 1
	}
	cfg.SetWorkers(workers)
}

func runIngest(cmd *cobra.Command, opts ingestOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	a, err := newApp(cmd, opts.applyTo)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()
	workers := a.cfg.Ingest.Workers

	pipeline, err := a.pipeline(ctx, opts.strategy, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	var stories []types.Story
	if opts.add {
		stories = []types.Story{{CorrespondentName: opts.correspondent, AudioURL: opts.audioURL}}
	} else {
		date, _ := scraper.ParseDate(opts.date)
		stories, err = a.scraper().StoriesForDate(ctx, date)
		if err != nil {
			return err
		}
	}

	var sum ingest.Summary
	var results []ingest.Result
	if workers > 1 {
		sum, results = queue.NewWorkerPool(workers, pipeline, a.log).Run(ctx, stories)
		pipeline.LogSummary(sum)
	} else {
		sum, results = pipeline.Run(ctx, stories)
	}
	printResults(cmd.OutOrStdout(), results)

	if opts.add && sum.Failed > 0 && len(results) > 0 {
		return results[0].Err
	}
	return nil
}

func printResults(w io.Writer, results []ingest.Result) {
	for _, r := range results {
		name := r.Story.CorrespondentName
		if name == "" {
			name = fmt.Sprint(r.Story.Correspondents)
		}
		line := fmt.Sprintf("%-17s %-22s %s (%s)", r.Outcome, r.Reached, name, r.Story.AudioURL)
		if r.Err != nil {
			line += ": " + r.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
}
