package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
)

func sample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func embedServer(t *testing.T, vec []float32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"embedding": vec})
	}))
}

func TestHTTPEmbed(t *testing.T) {
	srv := embedServer(t, []float32{0.1, 0.2, 0.3})
	defer srv.Close()

	e, err := New(Config{URL: srv.URL, Dimensions: 3})
	if err != nil {
		t.Fatal(err)
	}
	vec, err := e.Embed(context.Background(), sample(t))
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[2] != 0.3 {
		t.Errorf("vec = %v", vec)
	}
}

func TestHTTPEmbedWrongDimensions(t *testing.T) {
	srv := embedServer(t, []float32{0.1, 0.2})
	defer srv.Close()

	e, _ := New(Config{URL: srv.URL, Dimensions: 3})
	_, err := e.Embed(context.Background(), sample(t))
	if !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
}

func TestDefaultDimensions(t *testing.T) {
	e, err := New(Config{Backend: "command", Command: []string{"embed.py"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := e.(*Command).dims; got != DefaultDimensions {
		t.Errorf("dims = %d", got)
	}
}
