package objectstorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store is a Client backed by an S3-compatible bucket. The ref it returns
// is an "s3://bucket/key" URI; pkg/artifact.storageKeyFromRef strips the
// scheme and bucket back off before the next GetBytes call, so refs persisted by this
// implementation and ones persisted by MemStore remain interchangeable at
// the pkg/artifact boundary.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store builds an S3Store over bucket using the default AWS config
// chain (environment, shared config, IAM role), optionally pointed at a
// custom endpoint (e.g. a MinIO instance in tests) via endpointURL.
func NewS3Store(ctx context.Context, bucket, region, endpointURL string) (*S3Store, error) {
	if bucket == "" {
		return nil, errors.New("objectstorage: bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("objectstorage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: bucket}, nil
}

// PutBytes uploads payload to key and returns its "s3://bucket/key" ref.
func (s *S3Store) PutBytes(ctx context.Context, key string, payload []byte) (string, error) {
	if err := CheckKey("put_bytes", key); err != nil {
		return "", err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(payload),
	})
	if err != nil {
		return "", fmt.Errorf("objectstorage: put %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// GetBytes downloads the object at key, returning ErrObjectNotFound if it
// does not exist.
func (s *S3Store) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if err := CheckKey("get_bytes", key); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("objectstorage: get %s: %w", key, err)
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("objectstorage: read %s: %w", key, err)
	}
	return payload, nil
}
