// Package sidecar talks to the Python model services, either over HTTP or as a subprocess.
package sidecar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
)

// Client posts audio to an HTTP sidecar.
type Client struct {
	baseURL string
	headers map[string]string
	http    *http.Client
}

// NewClient creates a client for baseURL. headers are sent with every request.
func NewClient(baseURL string, timeout time.Duration, headers map[string]string) *Client {
	return &Client{
		baseURL: baseURL,
		headers: headers,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Healthy reports whether GET /health answers 200.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// PostAudio uploads audioPath as the multipart "audio" field to baseURL+endpoint and decodes the JSON reply into out.
func (c *Client) PostAudio(ctx context.Context, endpoint, audioPath string, fields map[string]string, out interface{}) error {
	audioData, err := os.ReadFile(audioPath)
	if err != nil {
		return fmt.Errorf("read audio file: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return fmt.Errorf("write audio data: %w", err)
	}
	for k, v := range fields {
		if v != "" {
			_ = writer.WriteField(k, v)
		}
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for k, v := range c.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.TransientIO(endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.TransientIO(endpoint, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))).
			WithDetail("status", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// RunJSON executes argv with audioPath appended and decodes the command's stdout as JSON into out.
func RunJSON(ctx context.Context, argv []string, audioPath string, env []string, out interface{}) error {
	if len(argv) == 0 {
		return fmt.Errorf("no command configured")
	}
	absAudioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], absAudioPath)...)
	cmd.Env = append(os.Environ(), env...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("%s failed: %w\nOutput: %s", filepath.Base(argv[0]), err, stderr.String())
	}
	if err := json.Unmarshal(stdout, out); err != nil {
		return fmt.Errorf("failed to parse %s JSON: %w", filepath.Base(argv[0]), err)
	}
	return nil
}
