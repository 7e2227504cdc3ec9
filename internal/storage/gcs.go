package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

// GCS stores blobs in Google Cloud Storage.
type GCS struct {
	service *gcs.Service
}

// NewGCS authenticates with credentialsFile when set, otherwise with application default credentials.
func NewGCS(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*GCS, error) {
	var creds *google.Credentials
	var err error
	if credentialsFile != "" {
		data, readErr := os.ReadFile(credentialsFile)
		if readErr != nil {
			return nil, fmt.Errorf("unable to read credentials file: %w", readErr)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, gcs.DevstorageReadWriteScope)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, gcs.DevstorageReadWriteScope)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load google credentials: %w", err)
	}

	srv, err := gcs.NewService(ctx, append([]option.ClientOption{option.WithCredentials(creds)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("unable to create storage service: %w", err)
	}
	return &GCS{service: srv}, nil
}

// NewGCSWithService wraps an existing service client.
func NewGCSWithService(srv *gcs.Service) *GCS {
	return &GCS{service: srv}
}

func (g *GCS) Save(ctx context.Context, localPath, bucket, dest string) (string, string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	dest = cleanObjectPath(dest)
	obj := &gcs.Object{Name: dest, ContentType: contentType(dest)}
	if _, err := g.service.Objects.Insert(bucket, obj).Media(f).Context(ctx).Do(); err != nil {
		return "", "", fmt.Errorf("upload gs://%s/%s: %w", bucket, dest, err)
	}
	return GCSStorageURL(bucket, dest), GCSPublicURL(bucket, dest), nil
}

func (g *GCS) Get(ctx context.Context, bucket, path string) ([]byte, error) {
	resp, err := g.service.Objects.Get(bucket, cleanObjectPath(path)).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download gs://%s/%s: %w", bucket, path, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (g *GCS) Delete(ctx context.Context, bucket, path string) (bool, error) {
	err := g.service.Objects.Delete(bucket, cleanObjectPath(path)).Context(ctx).Do()
	if err == nil {
		return true, nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("delete gs://%s/%s: %w", bucket, path, err)
}

// GCSStorageURL is the gs:// reference recorded as a segment's storage_url.
func GCSStorageURL(bucket, name string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, name)
}

// GCSPublicURL is the externally servable reference recorded as a segment's public_url.
func GCSPublicURL(bucket, name string) string {
	u := url.URL{Scheme: "https", Host: "storage.googleapis.com", Path: "/" + bucket + "/" + name}
	return u.String()
}
