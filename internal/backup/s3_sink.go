package backup

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/samber/lo"

	"github.com/retag-io/retag/internal/ir"
)

// S3API is the slice of the S3 client the sink needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink stores snapshots as objects under a key prefix in a bucket,
// for runs where the local filesystem is ephemeral (CI, containers).
type S3Sink struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Sink(client S3API, bucket, prefix string) (*S3Sink, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 backup sink requires a bucket")
	}
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *S3Sink) Write(ctx context.Context, resourceName string, tags ir.TagMap) error {
	data, err := marshalSnapshot(tags)
	if err != nil {
		return err
	}

	key := path.Join(s.prefix, SnapshotFilename(resourceName))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      lo.ToPtr(s.bucket),
		Key:         lo.ToPtr(key),
		Body:        bytes.NewReader(data),
		ContentType: lo.ToPtr("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to write backup to s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}
