package s3infra

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewClient creates an S3 client. A non-empty endpoint (LocalStack) overrides
// the resolved one and enables path-style addressing.
func NewClient(awsCfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
}

// Store keeps listing images in a single bucket and hands out their public URLs.
type Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewStore creates a Store. publicBaseURL, when empty, is derived from the
// endpoint (path style) or the regional virtual-hosted bucket URL.
func NewStore(client *s3.Client, bucket, region, endpoint, publicBaseURL string) *Store {
	return &Store{client: client, bucket: bucket, baseURL: baseURL(bucket, region, endpoint, publicBaseURL)}
}

func baseURL(bucket, region, endpoint, public string) string {
	switch {
	case public != "":
		return strings.TrimRight(public, "/")
	case endpoint != "":
		return strings.TrimRight(endpoint, "/") + "/" + bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
}

// Upload streams an object to S3 under key and returns its public URL.
func (s *Store) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return s.URL(key), nil
}

// Delete removes the object behind a URL previously returned by Upload.
// URLs that do not belong to this store are ignored.
func (s *Store) Delete(ctx context.Context, url string) error {
	key, ok := s.KeyOf(url)
	if !ok {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}

func (s *Store) URL(key string) string {
	return s.baseURL + "/" + key
}

// KeyOf maps a public URL back to its object key.
func (s *Store) KeyOf(url string) (string, bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
