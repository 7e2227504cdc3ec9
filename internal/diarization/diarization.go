// Package diarization splits a waveform into speaker-labeled turns using an external engine.
package diarization

import (
	"context"
	"fmt"
	"time"

	"github.com/codebuildervaibhav/audio-quiz/internal/sidecar"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

// Engine returns raw turns for a 16kHz mono WAV, ordered by start time.
type Engine interface {
	Name() string
	Diarize(ctx context.Context, wavPath string) ([]types.Turn, error)
}

// Config selects and configures an engine.
type Config struct {
	Backend  string
	URL      string
	Command  []string
	Timeout  time.Duration
	HFToken  string
	Pipeline string
}

// New builds the configured engine.
func New(cfg Config) (Engine, error) {
	switch cfg.Backend {
	case "pyannote", "":
		return NewPyannote(cfg), nil
	case "command":
		return &Command{argv: cfg.Command, hfToken: cfg.HFToken}, nil
	}
	return nil, fmt.Errorf("unsupported diarization backend %q", cfg.Backend)
}

// response is the JSON both backends produce.
type response struct {
	Segments []struct {
		SpeakerID string  `json:"speaker_id"`
		StartTime float64 `json:"start_time"`
		EndTime   float64 `json:"end_time"`
	} `json:"segments"`
	Error string `json:"error,omitempty"`
}

func (r response) turns() ([]types.Turn, error) {
	if r.Error != "" {
		return nil, fmt.Errorf("diarization error: %s", r.Error)
	}
	turns := make([]types.Turn, 0, len(r.Segments))
	for _, s := range r.Segments {
		if s.EndTime <= s.StartTime {
			continue
		}
		turns = append(turns, types.NewTurn(s.SpeakerID, s.StartTime, s.EndTime))
	}
	return turns, nil
}

// Pyannote calls the pyannote HTTP sidecar.
type Pyannote struct {
	client   *sidecar.Client
	pipeline string
}

// NewPyannote creates the HTTP engine. The Hugging Face token is forwarded for gated pipelines.
func NewPyannote(cfg Config) *Pyannote {
	url := cfg.URL
	if url == "" {
		url = "http://localhost:8388"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}
	headers := map[string]string{}
	if cfg.HFToken != "" {
		headers["Authorization"] = "Bearer " + cfg.HFToken
	}
	return &Pyannote{client: sidecar.NewClient(url, timeout, headers), pipeline: cfg.Pipeline}
}

func (p *Pyannote) Name() string { return "pyannote" }

// Available checks if the sidecar is reachable.
func (p *Pyannote) Available(ctx context.Context) bool {
	return p.client.Healthy(ctx)
}

func (p *Pyannote) Diarize(ctx context.Context, wavPath string) ([]types.Turn, error) {
	var resp response
	if err := p.client.PostAudio(ctx, "/diarize", wavPath, map[string]string{"pipeline": p.pipeline}, &resp); err != nil {
		return nil, err
	}
	return resp.turns()
}

// Command runs a local diarization script that prints the sidecar JSON on stdout.
type Command struct {
	argv    []string
	hfToken string
}

func (c *Command) Name() string { return "command" }

func (c *Command) Diarize(ctx context.Context, wavPath string) ([]types.Turn, error) {
	var env []string
	if c.hfToken != "" {
		env = append(env, "HUGGINGFACE_TOKEN="+c.hfToken)
	}
	var resp response
	if err := sidecar.RunJSON(ctx, c.argv, wavPath, env, &resp); err != nil {
		return nil, err
	}
	return resp.turns()
}
