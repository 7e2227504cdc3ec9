package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures the S3 (or S3-compatible) backend.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3 stores blobs in Amazon S3 or a compatible service.
type S3 struct {
	client *awss3.Client
	cfg    S3Config
}

// NewS3 loads AWS configuration, with static credentials when both keys are set.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})
	return &S3{client: client, cfg: cfg}, nil
}

func (s *S3) Save(ctx context.Context, localPath, bucket, dest string) (string, string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	dest = cleanObjectPath(dest)
	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(dest),
		Body:        f,
		ContentType: aws.String(contentType(dest)),
	})
	if err != nil {
		return "", "", fmt.Errorf("upload s3://%s/%s: %w", bucket, dest, err)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, dest), s.PublicURL(bucket, dest), nil
}

func (s *S3) Get(ctx context.Context, bucket, path string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(cleanObjectPath(path)),
	})
	if err != nil {
		return nil, fmt.Errorf("download s3://%s/%s: %w", bucket, path, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Delete checks existence first since S3 deletes of missing keys succeed silently.
func (s *S3) Delete(ctx context.Context, bucket, path string) (bool, error) {
	key := aws.String(cleanObjectPath(path))
	_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{Bucket: aws.String(bucket), Key: key})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("head s3://%s/%s: %w", bucket, path, err)
	}
	if _, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{Bucket: aws.String(bucket), Key: key}); err != nil {
		return false, fmt.Errorf("delete s3://%s/%s: %w", bucket, path, err)
	}
	return true, nil
}

// PublicURL is path-style under a custom endpoint and virtual-hosted on AWS.
func (s *S3) PublicURL(bucket, key string) string {
	if s.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.cfg.Endpoint, "/"), bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.cfg.Region, key)
}
