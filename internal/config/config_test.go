package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "database:\n  dsn: file:quiz.db\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite for a file: dsn", cfg.Database.Driver)
	}
	if cfg.Ingest.MinDurationSec != 10.0 {
		t.Errorf("min_duration_sec = %v, want 10", cfg.Ingest.MinDurationSec)
	}
	if cfg.Ingest.MinSimilarity != 0.80 {
		t.Errorf("min_similarity = %v, want 0.80", cfg.Ingest.MinSimilarity)
	}
	if cfg.Storage.Bucket != "npr_audio_quiz" || cfg.Storage.AudioType != "mp3" {
		t.Errorf("storage = %s/%s, want npr_audio_quiz/mp3", cfg.Storage.Bucket, cfg.Storage.AudioType)
	}
	if cfg.Quiz.Size != 10 || cfg.Quiz.Distractors != 3 {
		t.Errorf("quiz = %d/%d, want 10/3", cfg.Quiz.Size, cfg.Quiz.Distractors)
	}
	if cfg.Database.MaxOpenConns != cfg.Ingest.Workers+2 {
		t.Errorf("max_open_conns = %d, want workers+2", cfg.Database.MaxOpenConns)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CORRESPONDENTS_DB_CONN_URL", "postgres://quiz@localhost/quiz")
	t.Setenv("GCS_AUDIO_BUCKET_NAME", "other_bucket")
	t.Setenv("PORT", "9090")

	cfg, err := Load(writeConfig(t, "storage:\n  bucket: from_file\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Storage.Bucket != "other_bucket" {
		t.Errorf("bucket = %q, want env value", cfg.Storage.Bucket)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing dsn", "server:\n  port: 80\n", "DSN"},
		{"bad strategy", "database:\n  dsn: x.db\ningest:\n  speaker_strategy: psychic\n", "SpeakerStrategy"},
		{"similarity above one", "database:\n  dsn: x.db\ningest:\n  min_similarity: 1.5\n", "MinSimilarity"},
		{"command backend without command", "database:\n  dsn: x.db\ndiarization:\n  backend: command\n", "Command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CORRESPONDENTS_DB_CONN_URL", "")
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing explicit config file should fail")
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("90s", time.Minute); got != 90*time.Second {
		t.Errorf("Duration(90s) = %v", got)
	}
	for _, bad := range []string{"", "soon", "-1s"} {
		if got := Duration(bad, time.Minute); got != time.Minute {
			t.Errorf("Duration(%q) = %v, want default", bad, got)
		}
	}
}

func TestSetWorkersResizesDefaultPool(t *testing.T) {
	cfg, err := Load(writeConfig(t, "database:\n  dsn: file:quiz.db\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.SetWorkers(8)
	if cfg.Ingest.Workers != 8 || cfg.Database.MaxOpenConns != 10 {
		t.Errorf("workers = %d, max_open_conns = %d, want 8 and 10", cfg.Ingest.Workers, cfg.Database.MaxOpenConns)
	}
	cfg.SetWorkers(0)
	if cfg.Ingest.Workers != 8 {
		t.Errorf("workers = %d after SetWorkers(0), want unchanged", cfg.Ingest.Workers)
	}
}

func TestSetWorkersKeepsExplicitPool(t *testing.T) {
	cfg, err := Load(writeConfig(t, "database:\n  dsn: file:quiz.db\n  max_open_conns: 4\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.SetWorkers(8)
	if cfg.Database.MaxOpenConns != 4 {
		t.Errorf("max_open_conns = %d, want configured 4", cfg.Database.MaxOpenConns)
	}
}
