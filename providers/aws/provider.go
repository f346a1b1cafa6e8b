// Package aws implements the tagging provider surface against
// EventBridge rules and S3 buckets.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/samber/lo"

	"github.com/retag-io/retag/internal/ir"
	"github.com/retag-io/retag/internal/provider"
)

// LoadConfig loads the SDK configuration for a region, optionally
// through a named shared-config profile.
func LoadConfig(ctx context.Context, region, profile string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return cfg, nil
}

// CallerIdentity resolves the account and principal the run will act
// as; logged up front so a run against the wrong account is visible
// before any mutation.
func CallerIdentity(ctx context.Context, cfg aws.Config) (account string, arn string, err error) {
	out, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve caller identity: %w", err)
	}
	return lo.FromPtr(out.Account), lo.FromPtr(out.Arn), nil
}

// New builds the tagging provider for a resource kind.
func New(cfg aws.Config, kind ir.Kind) (provider.TaggingProvider, error) {
	switch kind {
	case ir.KindRule:
		return NewRuleProvider(eventbridge.NewFromConfig(cfg)), nil
	case ir.KindBucket:
		return NewBucketProvider(s3.NewFromConfig(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown resource kind: %s", kind)
	}
}
