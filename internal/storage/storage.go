// Package storage provides the blob store that holds exported segment audio.
package storage

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Blob stores files by bucket and object path.
type Blob interface {
	// Save uploads localPath to bucket/dest and returns the internal storage URL and the public URL.
	Save(ctx context.Context, localPath, bucket, dest string) (storageURL, publicURL string, err error)
	Get(ctx context.Context, bucket, path string) ([]byte, error)
	// Delete reports false when the object did not exist.
	Delete(ctx context.Context, bucket, path string) (bool, error)
}

// DefaultAudioType is the extension used for exported segments.
const DefaultAudioType = "mp3"

// SegmentPath addresses a segment blob as {correspondent_id}/{audio_id}/{segment_id}.{audio_type}.
func SegmentPath(correspondentID, audioID, segmentID int64, audioType string) string {
	if audioType == "" {
		audioType = DefaultAudioType
	}
	return fmt.Sprintf("%d/%d/%d.%s", correspondentID, audioID, segmentID, audioType)
}

// Config selects and configures a backend.
type Config struct {
	Backend         string
	CredentialsFile string
	LocalRoot       string
	PublicBaseURL   string
	S3              S3Config
}

// New builds the configured backend.
func New(ctx context.Context, cfg Config) (Blob, error) {
	switch cfg.Backend {
	case "gcs", "":
		return NewGCS(ctx, cfg.CredentialsFile)
	case "s3":
		return NewS3(ctx, cfg.S3)
	case "local":
		return NewLocal(cfg.LocalRoot, cfg.PublicBaseURL)
	}
	return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
}

func contentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func cleanObjectPath(p string) string {
	return strings.TrimPrefix(p, "/")
}
