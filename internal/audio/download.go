// Package audio acquires source recordings and wraps ffmpeg for conversion and trimming.
package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
)

// Downloader fetches source audio into a directory, keyed by the URL's file name.
type Downloader struct {
	dir    string
	client *http.Client
}

// NewDownloader creates dir if needed. A zero timeout means no client timeout.
func NewDownloader(dir string, timeout time.Duration) (*Downloader, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	return &Downloader{
		dir: dir,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// FileName derives the local name for rawURL: its path's base name without the query string.
func FileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", apperrors.InvalidInput("audio_url", err.Error())
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", apperrors.InvalidInput("audio_url", fmt.Sprintf("no file name in %q", rawURL))
	}
	return name, nil
}

// LocalPath is where Fetch stores rawURL.
func (d *Downloader) LocalPath(rawURL string) (string, error) {
	name, err := FileName(rawURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.dir, name), nil
}

// Fetch downloads rawURL unless a copy already exists. reused reports whether the existing copy was kept.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (localPath string, reused bool, err error) {
	localPath, err = d.LocalPath(rawURL)
	if err != nil {
		return "", false, err
	}
	if info, statErr := os.Stat(localPath); statErr == nil && info.Size() > 0 {
		return localPath, true, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", false, apperrors.InvalidInput("audio_url", err.Error())
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", false, apperrors.TransientIO("download", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", false, apperrors.TransientIO("download", fmt.Errorf("GET %s: %s", rawURL, resp.Status)).
			WithDetail("status", resp.StatusCode)
	}

	// write to .part so an interrupted download is never mistaken for a reusable copy
	part := localPath + ".part"
	f, err := os.Create(part)
	if err != nil {
		return "", false, fmt.Errorf("create %s: %w", part, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(part)
		return "", false, apperrors.TransientIO("download", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return "", false, err
	}
	if err := os.Rename(part, localPath); err != nil {
		return "", false, fmt.Errorf("finalize download: %w", err)
	}
	return localPath, false, nil
}

// WAVPath is the converted-waveform path next to src, so a prior conversion can be reused.
func WAVPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + ".wav"
}
