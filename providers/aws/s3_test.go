package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retag-io/retag/internal/ir"
	"github.com/retag-io/retag/internal/provider"
)

type fakeS3 struct {
	buckets map[string][]types.Bucket // keyed by the cursor that serves them
	next    map[string]string
	tags    map[string]ir.TagMap
	noTags  map[string]bool

	puts    []*s3.PutBucketTaggingInput
	deletes []*s3.DeleteBucketTaggingInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		buckets: make(map[string][]types.Bucket),
		next:    make(map[string]string),
		tags:    make(map[string]ir.TagMap),
		noTags:  make(map[string]bool),
	}
}

func (f *fakeS3) addBucket(cursor, name string, tags ir.TagMap) {
	f.buckets[cursor] = append(f.buckets[cursor], types.Bucket{Name: lo.ToPtr(name)})
	if tags == nil {
		f.noTags[name] = true
		return
	}
	f.tags[name] = tags.Clone()
}

func (f *fakeS3) ListBuckets(_ context.Context, params *s3.ListBucketsInput, _ ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	cursor := lo.FromPtr(params.ContinuationToken)
	out := &s3.ListBucketsOutput{Buckets: f.buckets[cursor]}
	if next := f.next[cursor]; next != "" {
		out.ContinuationToken = lo.ToPtr(next)
	}
	return out, nil
}

func (f *fakeS3) GetBucketTagging(_ context.Context, params *s3.GetBucketTaggingInput, _ ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error) {
	name := lo.FromPtr(params.Bucket)
	if f.noTags[name] {
		return nil, &smithy.GenericAPIError{Code: "NoSuchTagSet"}
	}
	tags, ok := f.tags[name]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchBucket"}
	}
	return &s3.GetBucketTaggingOutput{TagSet: toS3Tags(tags)}, nil
}

func (f *fakeS3) PutBucketTagging(_ context.Context, params *s3.PutBucketTaggingInput, _ ...func(*s3.Options)) (*s3.PutBucketTaggingOutput, error) {
	f.puts = append(f.puts, params)
	name := lo.FromPtr(params.Bucket)
	f.tags[name] = fromS3Tags(params.Tagging.TagSet)
	delete(f.noTags, name)
	return &s3.PutBucketTaggingOutput{}, nil
}

func (f *fakeS3) DeleteBucketTagging(_ context.Context, params *s3.DeleteBucketTaggingInput, _ ...func(*s3.Options)) (*s3.DeleteBucketTaggingOutput, error) {
	f.deletes = append(f.deletes, params)
	name := lo.FromPtr(params.Bucket)
	delete(f.tags, name)
	f.noTags[name] = true
	return &s3.DeleteBucketTaggingOutput{}, nil
}

func TestBucketProvider_ListResourcesSynthesizesARN(t *testing.T) {
	fake := newFakeS3()
	fake.addBucket("", "data-lake", ir.TagMap{})
	fake.next[""] = "page2"
	fake.addBucket("page2", "audit-logs", ir.TagMap{})

	p := NewBucketProvider(fake)

	page, err := p.ListResources(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, page.Resources, 1)
	assert.Equal(t, "arn:aws:s3:::data-lake", page.Resources[0].ID)
	assert.Equal(t, "data-lake", page.Resources[0].Name)
	assert.Equal(t, ir.KindBucket, page.Resources[0].Kind)
	require.Equal(t, "page2", page.NextCursor)

	page, err = p.ListResources(context.Background(), page.NextCursor)
	require.NoError(t, err)
	require.Len(t, page.Resources, 1)
	assert.Equal(t, "audit-logs", page.Resources[0].Name)
	assert.Empty(t, page.NextCursor)
}

func TestBucketProvider_GetTags(t *testing.T) {
	fake := newFakeS3()
	fake.addBucket("", "tagged", ir.TagMap{"env": "prod"})

	p := NewBucketProvider(fake)
	tags, err := p.GetTags(context.Background(), "arn:aws:s3:::tagged")

	require.NoError(t, err)
	assert.Equal(t, ir.TagMap{"env": "prod"}, tags)
}

func TestBucketProvider_NoTagSetIsEmptyMap(t *testing.T) {
	fake := newFakeS3()
	fake.addBucket("", "bare", nil)

	p := NewBucketProvider(fake)
	tags, err := p.GetTags(context.Background(), "arn:aws:s3:::bare")

	require.NoError(t, err)
	assert.NotNil(t, tags)
	assert.Empty(t, tags)
}

func TestBucketProvider_MissingBucketIsNotFound(t *testing.T) {
	p := NewBucketProvider(newFakeS3())
	_, err := p.GetTags(context.Background(), "arn:aws:s3:::gone")

	require.Error(t, err)
	assert.True(t, provider.IsNotFound(err))
}

func TestBucketProvider_SetTagsWritesWholeSet(t *testing.T) {
	fake := newFakeS3()
	fake.addBucket("", "b", ir.TagMap{"old": "1"})

	p := NewBucketProvider(fake)
	err := p.SetTags(context.Background(), "arn:aws:s3:::b", ir.TagMap{"env": "prod", "team": "data"}, ir.ModeMerge)

	require.NoError(t, err)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "b", lo.FromPtr(fake.puts[0].Bucket))
	assert.Equal(t, ir.TagMap{"env": "prod", "team": "data"}, fake.tags["b"])
}

func TestBucketProvider_DeleteAllTags(t *testing.T) {
	fake := newFakeS3()
	fake.addBucket("", "b", ir.TagMap{"a": "1"})

	p := NewBucketProvider(fake)
	require.NoError(t, p.DeleteAllTags(context.Background(), "arn:aws:s3:::b"))

	require.Len(t, fake.deletes, 1)
	tags, err := p.GetTags(context.Background(), "arn:aws:s3:::b")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestBucketName(t *testing.T) {
	assert.Equal(t, "my-bucket", bucketName("arn:aws:s3:::my-bucket"))
	assert.Equal(t, "plain-name", bucketName("plain-name"))
}
