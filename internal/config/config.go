// Package config loads the YAML configuration and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/codebuildervaibhav/audio-quiz/internal/logger"
)

// DefaultPath is read when no --config flag is given. A missing default file is not an error.
const DefaultPath = "config/config.yaml"

// Config represents the application configuration
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port" validate:"min=1,max=65535"`
	} `yaml:"server"`

	Database struct {
		Driver             string `yaml:"driver" validate:"oneof=postgres sqlite"`
		DSN                string `yaml:"dsn" validate:"required"`
		MaxOpenConns       int    `yaml:"max_open_conns" validate:"gte=0"`
		MaxIdleConns       int    `yaml:"max_idle_conns" validate:"gte=0"`
		ConnMaxLifetime    string `yaml:"conn_max_lifetime"`
		MaxRetries         int    `yaml:"max_retries" validate:"gte=1"`
		SlowQueryThreshold string `yaml:"slow_query_threshold"`
		LogLevel           string `yaml:"log_level" validate:"omitempty,oneof=silent error warn info"`
	} `yaml:"database"`

	Storage struct {
		Backend       string `yaml:"backend" validate:"oneof=gcs s3 local"`
		Bucket        string `yaml:"bucket" validate:"required"`
		AudioType     string `yaml:"audio_type" validate:"required,alphanum"`
		LocalRoot     string `yaml:"local_root"`
		PublicBaseURL string `yaml:"public_base_url"`
		UploadRetries int    `yaml:"upload_retries" validate:"gte=1"`
		GCS           struct {
			CredentialsFile string `yaml:"credentials_file"`
		} `yaml:"gcs"`
		S3 struct {
			Region          string `yaml:"region"`
			Endpoint        string `yaml:"endpoint"`
			AccessKeyID     string `yaml:"access_key_id"`
			SecretAccessKey string `yaml:"secret_access_key"`
			UsePathStyle    bool   `yaml:"use_path_style"`
		} `yaml:"s3"`
	} `yaml:"storage"`

	Audio struct {
		DownloadDir     string `yaml:"download_dir" validate:"required"`
		TempDir         string `yaml:"temp_dir" validate:"required"`
		FFmpegPath      string `yaml:"ffmpeg_path"`
		DownloadTimeout string `yaml:"download_timeout"`
	} `yaml:"audio"`

	Diarization struct {
		Backend  string   `yaml:"backend" validate:"oneof=pyannote command"`
		URL      string   `yaml:"url" validate:"omitempty,url"`
		Command  []string `yaml:"command" validate:"required_if=Backend command"`
		Timeout  string   `yaml:"timeout"`
		HFToken  string   `yaml:"-"`
		Pipeline string   `yaml:"pipeline"`
	} `yaml:"diarization"`

	Embedding struct {
		Backend    string   `yaml:"backend" validate:"oneof=http command"`
		URL        string   `yaml:"url" validate:"omitempty,url"`
		Command    []string `yaml:"command" validate:"required_if=Backend command"`
		Timeout    string   `yaml:"timeout"`
		Dimensions int      `yaml:"dimensions" validate:"gt=0"`
	} `yaml:"embedding"`

	Scraper struct {
		Timeout   string `yaml:"timeout"`
		UserAgent string `yaml:"user_agent"`
		Headless  bool   `yaml:"headless"`
	} `yaml:"scraper"`

	Ingest struct {
		Workers               int     `yaml:"workers" validate:"gte=1"`
		MinDurationSec        float64 `yaml:"min_duration_sec" validate:"gte=0"`
		MinSimilarity         float64 `yaml:"min_similarity" validate:"gte=0,lte=1"`
		SpeakerStrategy       string  `yaml:"speaker_strategy" validate:"oneof=interactive longest first"`
		FirstSpeakerBeforeSec float64 `yaml:"first_speaker_before_sec" validate:"gte=0"`
		DefaultGender         string  `yaml:"default_gender" validate:"oneof=M F U"`
	} `yaml:"ingest"`

	Quiz struct {
		Size        int `yaml:"size" validate:"gte=1,lte=50"`
		Distractors int `yaml:"distractors" validate:"gte=1"`
	} `yaml:"quiz"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes" validate:"gte=1"`
		MaxAgeHours     int `yaml:"max_age_hours" validate:"gte=1"`
	} `yaml:"cleanup"`

	Telemetry struct {
		Endpoint    string  `yaml:"endpoint"`
		ServiceName string  `yaml:"service_name"`
		SampleRate  float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
		Insecure    bool    `yaml:"insecure"`
	} `yaml:"telemetry"`

	Logging logger.Config `yaml:"logging"`

	// poolFollowsWorkers is set when max_open_conns was left unset.
	poolFollowsWorkers bool
}

// Load reads path (when present), applies env overrides and defaults, then validates.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Database.DSN, "CORRESPONDENTS_DB_CONN_URL")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Storage.Bucket, "GCS_AUDIO_BUCKET_NAME")
	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.GCS.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&c.Diarization.HFToken, "HUGGINGFACE_TOKEN")
	setString(&c.Diarization.URL, "DIARIZATION_URL")
	setString(&c.Embedding.URL, "EMBEDDING_URL")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	setString(&c.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
		if strings.HasPrefix(c.Database.DSN, "file:") || strings.HasSuffix(c.Database.DSN, ".db") {
			c.Database.Driver = "sqlite"
		}
	}
	if c.Ingest.Workers == 0 {
		c.Ingest.Workers = 1
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = c.Ingest.Workers + 2
		c.poolFollowsWorkers = true
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 2
	}
	if c.Database.ConnMaxLifetime == "" {
		c.Database.ConnMaxLifetime = "1h"
	}
	if c.Database.MaxRetries == 0 {
		c.Database.MaxRetries = 5
	}
	if c.Database.SlowQueryThreshold == "" {
		c.Database.SlowQueryThreshold = "200ms"
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "warn"
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "gcs"
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "npr_audio_quiz"
	}
	if c.Storage.AudioType == "" {
		c.Storage.AudioType = "mp3"
	}
	if c.Storage.LocalRoot == "" {
		c.Storage.LocalRoot = "blobs"
	}
	if c.Storage.UploadRetries == 0 {
		c.Storage.UploadRetries = 3
	}
	if c.Storage.S3.Region == "" {
		c.Storage.S3.Region = "us-east-1"
	}

	if c.Audio.DownloadDir == "" {
		c.Audio.DownloadDir = "downloads"
	}
	if c.Audio.TempDir == "" {
		c.Audio.TempDir = "temp"
	}
	if c.Audio.FFmpegPath == "" {
		c.Audio.FFmpegPath = "ffmpeg"
	}
	if c.Audio.DownloadTimeout == "" {
		c.Audio.DownloadTimeout = "5m"
	}

	if c.Diarization.Backend == "" {
		c.Diarization.Backend = "pyannote"
	}
	if c.Diarization.URL == "" && c.Diarization.Backend == "pyannote" {
		c.Diarization.URL = "http://localhost:8388"
	}
	if c.Diarization.Pipeline == "" {
		c.Diarization.Pipeline = "pyannote/speaker-diarization-3.1"
	}
	if c.Embedding.Backend == "" {
		c.Embedding.Backend = "http"
	}
	if c.Embedding.URL == "" && c.Embedding.Backend == "http" {
		c.Embedding.URL = "http://localhost:8389"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 256
	}

	if c.Scraper.Timeout == "" {
		c.Scraper.Timeout = "60s"
	}

	if c.Ingest.MinDurationSec == 0 {
		c.Ingest.MinDurationSec = 10.0
	}
	if c.Ingest.MinSimilarity == 0 {
		c.Ingest.MinSimilarity = 0.80
	}
	if c.Ingest.SpeakerStrategy == "" {
		c.Ingest.SpeakerStrategy = "interactive"
	}
	if c.Ingest.FirstSpeakerBeforeSec == 0 {
		c.Ingest.FirstSpeakerBeforeSec = 1.0
	}
	c.Ingest.DefaultGender = strings.ToUpper(c.Ingest.DefaultGender)
	if c.Ingest.DefaultGender == "" {
		c.Ingest.DefaultGender = "U"
	}

	if c.Quiz.Size == 0 {
		c.Quiz.Size = 10
	}
	if c.Quiz.Distractors == 0 {
		c.Quiz.Distractors = 3
	}

	if c.Cleanup.IntervalMinutes == 0 {
		c.Cleanup.IntervalMinutes = 30
	}
	if c.Cleanup.MaxAgeHours == 0 {
		c.Cleanup.MaxAgeHours = 24
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "audioquiz"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1.0
	}

	c.Logging.ApplyDefaults()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and reports the first failures in config terms.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// SetWorkers overrides ingest.workers. A connection pool size that was not
// configured explicitly is resized to match. Values below 1 are ignored.
func (c *Config) SetWorkers(n int) {
	if n < 1 {
		return
	}
	c.Ingest.Workers = n
	if c.poolFollowsWorkers {
		c.Database.MaxOpenConns = n + 2
	}
}

// Duration parses a duration field such as "5m". Empty or malformed values yield def.
func Duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
