package aws

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/samber/lo"

	"github.com/retag-io/retag/internal/ir"
	"github.com/retag-io/retag/internal/provider"
)

const (
	bucketARNPrefix = "arn:aws:s3:::"
	bucketListLimit = 100
)

// S3API is the slice of the S3 client the provider needs.
type S3API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	GetBucketTagging(ctx context.Context, params *s3.GetBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error)
	PutBucketTagging(ctx context.Context, params *s3.PutBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.PutBucketTaggingOutput, error)
	DeleteBucketTagging(ctx context.Context, params *s3.DeleteBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketTaggingOutput, error)
}

// BucketProvider serves S3 buckets. PutBucketTagging always writes the
// whole set, so both modes send the final map the engine computed.
type BucketProvider struct {
	client S3API
}

func NewBucketProvider(client S3API) *BucketProvider {
	return &BucketProvider{client: client}
}

func (p *BucketProvider) Kind() ir.Kind { return ir.KindBucket }

func (p *BucketProvider) ListResources(ctx context.Context, cursor string) (*provider.Page, error) {
	input := &s3.ListBucketsInput{
		MaxBuckets: lo.ToPtr(int32(bucketListLimit)),
	}
	if cursor != "" {
		input.ContinuationToken = lo.ToPtr(cursor)
	}

	out, err := p.client.ListBuckets(ctx, input)
	if err != nil {
		return nil, classify("list buckets", "", err)
	}

	page := &provider.Page{
		NextCursor: lo.FromPtr(out.ContinuationToken),
	}
	for _, bucket := range out.Buckets {
		name := lo.FromPtr(bucket.Name)
		page.Resources = append(page.Resources, ir.Resource{
			ID:               bucketARNPrefix + name,
			Name:             name,
			Kind:             ir.KindBucket,
			TaggingSupported: true,
		})
	}
	return page, nil
}

func (p *BucketProvider) GetTags(ctx context.Context, id string) (ir.TagMap, error) {
	out, err := p.client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{
		Bucket: lo.ToPtr(bucketName(id)),
	})
	if err != nil {
		// A bucket with no tag set at all is an empty map, not a
		// failure.
		var ae smithy.APIError
		if errors.As(err, &ae) && ae.ErrorCode() == "NoSuchTagSet" {
			return ir.TagMap{}, nil
		}
		return nil, classify("get bucket tags", id, err)
	}
	return fromS3Tags(out.TagSet), nil
}

func (p *BucketProvider) SetTags(ctx context.Context, id string, tags ir.TagMap, _ ir.Mode) error {
	_, err := p.client.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
		Bucket: lo.ToPtr(bucketName(id)),
		Tagging: &types.Tagging{
			TagSet: toS3Tags(tags),
		},
	})
	if err != nil {
		return classify("tag bucket", id, err)
	}
	return nil
}

func (p *BucketProvider) DeleteAllTags(ctx context.Context, id string) error {
	_, err := p.client.DeleteBucketTagging(ctx, &s3.DeleteBucketTaggingInput{
		Bucket: lo.ToPtr(bucketName(id)),
	})
	if err != nil {
		return classify("delete bucket tags", id, err)
	}
	return nil
}

func bucketName(id string) string {
	return strings.TrimPrefix(id, bucketARNPrefix)
}

func fromS3Tags(tags []types.Tag) ir.TagMap {
	out := make(ir.TagMap, len(tags))
	for _, t := range tags {
		out[lo.FromPtr(t.Key)] = lo.FromPtr(t.Value)
	}
	return out
}

func toS3Tags(tags ir.TagMap) []types.Tag {
	out := make([]types.Tag, 0, len(tags))
	for _, k := range tags.SortedKeys() {
		out = append(out, types.Tag{
			Key:   lo.ToPtr(k),
			Value: lo.ToPtr(tags[k]),
		})
	}
	return out
}
