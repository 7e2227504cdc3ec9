package cli

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/audio-quiz/internal/audio"
	"github.com/codebuildervaibhav/audio-quiz/internal/config"
	"github.com/codebuildervaibhav/audio-quiz/internal/database"
	"github.com/codebuildervaibhav/audio-quiz/internal/diarization"
	"github.com/codebuildervaibhav/audio-quiz/internal/embedding"
	"github.com/codebuildervaibhav/audio-quiz/internal/ingest"
	"github.com/codebuildervaibhav/audio-quiz/internal/logger"
	"github.com/codebuildervaibhav/audio-quiz/internal/matcher"
	"github.com/codebuildervaibhav/audio-quiz/internal/scraper"
	"github.com/codebuildervaibhav/audio-quiz/internal/segments"
	"github.com/codebuildervaibhav/audio-quiz/internal/storage"
	"github.com/codebuildervaibhav/audio-quiz/internal/telemetry"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

// app holds what every command needs once config is loaded.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	repo     *database.Repository
	shutdown func(context.Context) error
}

// loadConfig reads --config and builds the root logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.Logging), nil
}

// newApp loads config, starts tracing and opens the migrated store. Each
// override runs on the loaded config before anything is opened.
func newApp(cmd *cobra.Command, overrides ...func(*config.Config)) (*app, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}
	ctx := cmd.Context()

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRate:  cfg.Telemetry.SampleRate,
	}, log)
	if err != nil {
		log.WithError(err).Warn("Tracing disabled")
	}

	db, err := database.Open(ctx, dbConfig(cfg), log)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		repo:     database.NewRepository(db),
		shutdown: shutdown,
	}, nil
}

func dbConfig(cfg *config.Config) database.Config {
	return database.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		MaxRetries:         cfg.Database.MaxRetries,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
		LogLevel:           cfg.Database.LogLevel,
	}
}

func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(a.db.Close(), a.shutdown(ctx))
}

func (a *app) blob(ctx context.Context) (storage.Blob, error) {
	s := a.cfg.Storage
	return storage.New(ctx, storage.Config{
		Backend:         s.Backend,
		CredentialsFile: s.GCS.CredentialsFile,
		LocalRoot:       s.LocalRoot,
		PublicBaseURL:   s.PublicBaseURL,
		S3: storage.S3Config{
			Region:          s.S3.Region,
			Endpoint:        s.S3.Endpoint,
			AccessKeyID:     s.S3.AccessKeyID,
			SecretAccessKey: s.S3.SecretAccessKey,
			UsePathStyle:    s.S3.UsePathStyle,
		},
	})
}

func (a *app) scraper() *scraper.Scraper {
	return scraper.New(&scraper.BrowserFetcher{
		Timeout:   config.Duration(a.cfg.Scraper.Timeout, 60*time.Second),
		UserAgent: a.cfg.Scraper.UserAgent,
		Headless:  a.cfg.Scraper.Headless,
	}, a.log)
}

// strategies picks the speaker, sample and gender deciders. The interactive
// strategy prompts on in/out for all three.
func (a *app) strategies(name string, in io.Reader, out io.Writer) (segments.SpeakerSelectionStrategy, segments.EmbeddingSegmentStrategy, segments.GenderResolver, error) {
	if name == "interactive" {
		console := segments.NewConsole(in, out)
		return console, console, console, nil
	}
	speaker, err := segments.NewSpeakerStrategy(name, a.cfg.Ingest.FirstSpeakerBeforeSec)
	if err != nil {
		return nil, nil, nil, err
	}
	return speaker, segments.Longest{}, segments.FixedGender(types.Gender(a.cfg.Ingest.DefaultGender)), nil
}

// pipeline wires the ingestion pipeline for the given speaker strategy.
func (a *app) pipeline(ctx context.Context, strategy string, in io.Reader, out io.Writer) (*ingest.Pipeline, error) {
	c := a.cfg
	downloader, err := audio.NewDownloader(c.Audio.DownloadDir, config.Duration(c.Audio.DownloadTimeout, 5*time.Minute))
	if err != nil {
		return nil, err
	}
	diarizer, err := diarization.New(diarization.Config{
		Backend:  c.Diarization.Backend,
		URL:      c.Diarization.URL,
		Command:  c.Diarization.Command,
		Timeout:  config.Duration(c.Diarization.Timeout, 300*time.Second),
		HFToken:  c.Diarization.HFToken,
		Pipeline: c.Diarization.Pipeline,
	})
	if err != nil {
		return nil, err
	}
	embedder, err := embedding.New(embedding.Config{
		Backend:    c.Embedding.Backend,
		URL:        c.Embedding.URL,
		Command:    c.Embedding.Command,
		Timeout:    config.Duration(c.Embedding.Timeout, 120*time.Second),
		Dimensions: c.Embedding.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	blob, err := a.blob(ctx)
	if err != nil {
		return nil, err
	}
	speaker, sample, gender, err := a.strategies(strategy, in, out)
	if err != nil {
		return nil, err
	}

	return ingest.New(ingest.Deps{
		Downloader: downloader,
		Codec:      audio.NewFFmpeg(c.Audio.FFmpegPath),
		Diarizer:   diarizer,
		Embedder:   embedder,
		Blob:       blob,
		Matcher:    matcher.New(a.repo, c.Embedding.Dimensions, a.log),
		Store:      a.repo,
		Speaker:    speaker,
		Sample:     sample,
		Gender:     gender,
	}, ingest.Options{
		TempDir:        c.Audio.TempDir,
		Bucket:         c.Storage.Bucket,
		AudioType:      c.Storage.AudioType,
		MinDurationSec: c.Ingest.MinDurationSec,
		MinSimilarity:  c.Ingest.MinSimilarity,
		UploadRetries:  c.Storage.UploadRetries,
	}, a.log), nil
}
