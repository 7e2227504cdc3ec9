package audio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		url, want string
	}{
		{"https://ondemand.npr.org/anon.npr-mp3/npr/me/2025/05/20250526_me_story.mp3?size=3470360&d=216", "20250526_me_story.mp3"},
		{"https://example.org/a/b/clip.mp3", "clip.mp3"},
	}
	for _, tt := range tests {
		got, err := FileName(tt.url)
		if err != nil {
			t.Fatalf("FileName(%q): %v", tt.url, err)
		}
		if got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
	if _, err := FileName("https://example.org/"); !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("no file name err = %v", err)
	}
}

func TestWAVPath(t *testing.T) {
	if got := WAVPath(filepath.Join("downloads", "story.mp3")); got != filepath.Join("downloads", "story.wav") {
		t.Errorf("WAVPath = %q", got)
	}
}

func TestFetchDownloadsThenReuses(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("mp3 bytes"))
	}))
	defer srv.Close()

	d, err := NewDownloader(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	path, reused, err := d.Fetch(ctx, srv.URL+"/audio/story.mp3?size=9")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if reused {
		t.Error("first fetch reported reuse")
	}
	if filepath.Base(path) != "story.mp3" {
		t.Errorf("path = %q", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "mp3 bytes" {
		t.Errorf("content = %q", data)
	}

	_, reused, err = d.Fetch(ctx, srv.URL+"/audio/story.mp3?size=10")
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if !reused || hits != 1 {
		t.Errorf("reused = %v hits = %d, want true and 1", reused, hits)
	}
}

func TestFetchHTTPErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	d, _ := NewDownloader(dir, 0)
	_, _, err := d.Fetch(context.Background(), srv.URL+"/missing.mp3")
	if !apperrors.Is(err, apperrors.ErrCodeTransientIO) {
		t.Fatalf("err = %v, want TRANSIENT_IO", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("failed download left files: %v", entries)
	}
}

func TestValidateAudioFormat(t *testing.T) {
	if !ValidateAudioFormat("story.MP3") || ValidateAudioFormat("notes.txt") {
		t.Error("ValidateAudioFormat misclassified")
	}
}

func TestExtractRejectsEmptyRange(t *testing.T) {
	if err := NewFFmpeg("").Extract(context.Background(), "in.wav", "out.mp3", 5, 5); err == nil {
		t.Error("empty range accepted")
	}
}
