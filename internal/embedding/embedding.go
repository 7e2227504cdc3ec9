// Package embedding turns a voice sample into a fixed-length speaker vector.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
	"github.com/codebuildervaibhav/audio-quiz/internal/sidecar"
)

// DefaultDimensions matches the sidecar's speaker model.
const DefaultDimensions = 256

// Embedder computes a voice embedding for a WAV file.
type Embedder interface {
	Embed(ctx context.Context, wavPath string) ([]float32, error)
}

// Config selects and configures an embedder.
type Config struct {
	Backend    string
	URL        string
	Command    []string
	Timeout    time.Duration
	Dimensions int
}

// New builds the configured embedder.
func New(cfg Config) (Embedder, error) {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	switch cfg.Backend {
	case "http", "":
		url := cfg.URL
		if url == "" {
			url = "http://localhost:8389"
		}
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 120 * time.Second
		}
		return &HTTP{client: sidecar.NewClient(url, timeout, nil), dims: cfg.Dimensions}, nil
	case "command":
		return &Command{argv: cfg.Command, dims: cfg.Dimensions}, nil
	}
	return nil, fmt.Errorf("unsupported embedding backend %q", cfg.Backend)
}

type response struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func (r response) vector(dims int) ([]float32, error) {
	if r.Error != "" {
		return nil, fmt.Errorf("embedding error: %s", r.Error)
	}
	if len(r.Embedding) != dims {
		return nil, apperrors.InvalidInput("embedding",
			fmt.Sprintf("got %d dimensions, want %d", len(r.Embedding), dims))
	}
	return r.Embedding, nil
}

// HTTP posts the sample to {url}/embed.
type HTTP struct {
	client *sidecar.Client
	dims   int
}

func (h *HTTP) Embed(ctx context.Context, wavPath string) ([]float32, error) {
	var resp response
	if err := h.client.PostAudio(ctx, "/embed", wavPath, nil, &resp); err != nil {
		return nil, err
	}
	return resp.vector(h.dims)
}

// Available checks if the sidecar is reachable.
func (h *HTTP) Available(ctx context.Context) bool {
	return h.client.Healthy(ctx)
}

// Command runs a local script printing {"embedding": [...]} on stdout.
type Command struct {
	argv []string
	dims int
}

func (c *Command) Embed(ctx context.Context, wavPath string) ([]float32, error) {
	var resp response
	if err := sidecar.RunJSON(ctx, c.argv, wavPath, nil, &resp); err != nil {
		return nil, err
	}
	return resp.vector(c.dims)
}
