package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local stores blobs on the filesystem as root/bucket/path. Used for development and tests.
type Local struct {
	root          string
	publicBaseURL string
}

// NewLocal creates the root directory if needed.
func NewLocal(root, publicBaseURL string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &Local{root: abs, publicBaseURL: strings.TrimSuffix(publicBaseURL, "/")}, nil
}

// resolve rejects paths that would escape the bucket directory.
func (l *Local) resolve(bucket, path string) (string, error) {
	bucketDir := filepath.Join(l.root, filepath.Base(bucket))
	full := filepath.Join(bucketDir, filepath.FromSlash(cleanObjectPath(path)))
	if !strings.HasPrefix(full, bucketDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return full, nil
}

func (l *Local) Save(_ context.Context, localPath, bucket, dest string) (string, string, error) {
	full, err := l.resolve(bucket, dest)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", "", fmt.Errorf("failed to create blob directory: %w", err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	tmp := full + ".part"
	dst, err := os.Create(tmp)
	if err != nil {
		return "", "", fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmp)
		return "", "", fmt.Errorf("copy blob: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return "", "", err
	}
	if err := os.Rename(tmp, full); err != nil {
		return "", "", fmt.Errorf("finalize blob: %w", err)
	}

	dest = cleanObjectPath(dest)
	public := "file://" + filepath.ToSlash(full)
	if l.publicBaseURL != "" {
		public = fmt.Sprintf("%s/%s/%s", l.publicBaseURL, bucket, dest)
	}
	return "file://" + filepath.ToSlash(full), public, nil
}

func (l *Local) Get(_ context.Context, bucket, path string) ([]byte, error) {
	full, err := l.resolve(bucket, path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

func (l *Local) Delete(_ context.Context, bucket, path string) (bool, error) {
	full, err := l.resolve(bucket, path)
	if err != nil {
		return false, err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
