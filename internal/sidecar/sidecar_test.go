package sidecar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
)

func audioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPostAudioSendsFieldsAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "abc" {
			t.Errorf("header missing")
		}
		if r.FormValue("pipeline") != "diarization-3.1" {
			t.Errorf("pipeline = %q", r.FormValue("pipeline"))
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("audio part: %v", err)
			return
		}
		f.Close()
		if hdr.Filename != "clip.wav" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, map[string]string{"X-Token": "abc"})
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.PostAudio(context.Background(), "/diarize", audioFile(t), map[string]string{"pipeline": "diarization-3.1"}, &out); err != nil {
		t.Fatalf("PostAudio: %v", err)
	}
	if !out.OK {
		t.Error("response not decoded")
	}
}

func TestPostAudioUnreachableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var out struct{}
	err := NewClient(url, time.Second, nil).PostAudio(context.Background(), "/embed", audioFile(t), nil, &out)
	if !apperrors.Is(err, apperrors.ErrCodeTransientIO) {
		t.Errorf("err = %v, want TRANSIENT_IO", err)
	}
}

func TestRunJSON(t *testing.T) {
	var out struct {
		Path string `json:"path"`
	}
	argv := []string{"sh", "-c", `printf '{"path":"%s"}' "$1"`, "sh"}
	path := audioFile(t)
	if err := RunJSON(context.Background(), argv, path, nil, &out); err != nil {
		t.Fatalf("RunJSON: %v", err)
	}
	if out.Path != path {
		t.Errorf("path = %q, want %q", out.Path, path)
	}

	if err := RunJSON(context.Background(), nil, path, nil, &out); err == nil {
		t.Error("empty argv accepted")
	}
}
