package registry

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bytehawks/distillery/src/target"
)

// S3 checks that a bucket exists and is visible with the configured keys.
// Any S3-compatible endpoint works; without one, AWS is assumed.
type S3 struct{}

func NewS3() *S3 { return &S3{} }

func (s *S3) Probe(ctx context.Context, t target.Target, secrets map[string]string) error {
	if t.Bucket == "" {
		return fmt.Errorf("s3: bucket is required")
	}

	endpoint, secure := fmt.Sprintf("s3.%s.amazonaws.com", t.Region), true
	if t.Endpoint != "" {
		host, plain, err := splitURL(t.Endpoint)
		if err != nil {
			return fmt.Errorf("s3: %w", err)
		}
		endpoint, secure = host, !plain
	}

	// Empty keys make minio send anonymous requests.
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(secrets["access_key"], secrets["secret_key"], ""),
		Secure: secure,
		Region: t.Region,
	})
	if err != nil {
		return fmt.Errorf("s3: client for %s: %w", endpoint, err)
	}

	exists, err := client.BucketExists(ctx, t.Bucket)
	if err != nil {
		return fmt.Errorf("s3: bucket %s: %w", t.Bucket, err)
	}
	if !exists {
		return fmt.Errorf("s3: bucket %s does not exist", t.Bucket)
	}
	return nil
}
