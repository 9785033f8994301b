package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	appconfig "craftbox-server/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Storage keeps blobs in an S3 (or S3-compatible) bucket under an
// optional key prefix. Content refs map 1:1 to object keys; the bucket
// must already exist.
type S3Storage struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

func NewS3Storage(ctx context.Context, cfg appconfig.S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	store := &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("bucket %s is not accessible: %w", cfg.Bucket, err)
	}

	return store, nil
}

func (s *S3Storage) key(ref string) string {
	return s.keyPrefix + ref
}

func (s *S3Storage) Save(ctx context.Context, ref string, data io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(ref)),
		Body:   data,
	})
	if err != nil {
		return fmt.Errorf("putting blob %s: %w", ref, err)
	}
	return nil
}

func (s *S3Storage) Get(ctx context.Context, ref string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(ref)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("blob %s not found: %w", ref, err)
		}
		return nil, fmt.Errorf("getting blob %s: %w", ref, err)
	}
	return out.Body, nil
}

func (s *S3Storage) Delete(ctx context.Context, ref string) error {
	// DeleteObject is a no-op for missing keys, which matches the
	// idempotent delete the tree engine expects.
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(ref)),
	})
	if err != nil {
		return fmt.Errorf("deleting blob %s: %w", ref, err)
	}
	return nil
}
