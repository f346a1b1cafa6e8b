package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/samber/lo"

	"github.com/retag-io/retag/internal/ir"
	"github.com/retag-io/retag/internal/provider"
)

const ruleListLimit = 100

// EventBridgeAPI is the slice of the EventBridge client the provider
// needs.
type EventBridgeAPI interface {
	ListRules(ctx context.Context, params *eventbridge.ListRulesInput, optFns ...func(*eventbridge.Options)) (*eventbridge.ListRulesOutput, error)
	ListTagsForResource(ctx context.Context, params *eventbridge.ListTagsForResourceInput, optFns ...func(*eventbridge.Options)) (*eventbridge.ListTagsForResourceOutput, error)
	TagResource(ctx context.Context, params *eventbridge.TagResourceInput, optFns ...func(*eventbridge.Options)) (*eventbridge.TagResourceOutput, error)
	UntagResource(ctx context.Context, params *eventbridge.UntagResourceInput, optFns ...func(*eventbridge.Options)) (*eventbridge.UntagResourceOutput, error)
}

// RuleProvider serves EventBridge rules. Rule tags live on the rule
// ARN; TagResource merges, so replace mode untags stale keys first.
type RuleProvider struct {
	client EventBridgeAPI
}

func NewRuleProvider(client EventBridgeAPI) *RuleProvider {
	return &RuleProvider{client: client}
}

func (p *RuleProvider) Kind() ir.Kind { return ir.KindRule }

func (p *RuleProvider) ListResources(ctx context.Context, cursor string) (*provider.Page, error) {
	input := &eventbridge.ListRulesInput{
		Limit: lo.ToPtr(int32(ruleListLimit)),
	}
	if cursor != "" {
		input.NextToken = lo.ToPtr(cursor)
	}

	out, err := p.client.ListRules(ctx, input)
	if err != nil {
		return nil, classify("list rules", "", err)
	}

	page := &provider.Page{
		NextCursor: lo.FromPtr(out.NextToken),
	}
	for _, rule := range out.Rules {
		page.Resources = append(page.Resources, ir.Resource{
			ID:               lo.FromPtr(rule.Arn),
			Name:             lo.FromPtr(rule.Name),
			Kind:             ir.KindRule,
			TaggingSupported: true,
		})
	}
	return page, nil
}

func (p *RuleProvider) GetTags(ctx context.Context, id string) (ir.TagMap, error) {
	out, err := p.client.ListTagsForResource(ctx, &eventbridge.ListTagsForResourceInput{
		ResourceARN: lo.ToPtr(id),
	})
	if err != nil {
		return nil, classify("get rule tags", id, err)
	}
	return fromEventBridgeTags(out.Tags), nil
}

func (p *RuleProvider) SetTags(ctx context.Context, id string, tags ir.TagMap, mode ir.Mode) error {
	if mode == ir.ModeReplace {
		if err := p.untagStale(ctx, id, tags); err != nil {
			return err
		}
	}
	if len(tags) == 0 {
		return nil
	}

	_, err := p.client.TagResource(ctx, &eventbridge.TagResourceInput{
		ResourceARN: lo.ToPtr(id),
		Tags:        toEventBridgeTags(tags),
	})
	if err != nil {
		return classify("tag rule", id, err)
	}
	return nil
}

func (p *RuleProvider) DeleteAllTags(ctx context.Context, id string) error {
	current, err := p.GetTags(ctx, id)
	if err != nil {
		return err
	}
	if len(current) == 0 {
		return nil
	}

	_, err = p.client.UntagResource(ctx, &eventbridge.UntagResourceInput{
		ResourceARN: lo.ToPtr(id),
		TagKeys:     current.SortedKeys(),
	})
	if err != nil {
		return classify("untag rule", id, err)
	}
	return nil
}

// untagStale removes keys present on the rule but absent from the
// desired set, which is what makes a TagResource call behave as a
// replace.
func (p *RuleProvider) untagStale(ctx context.Context, id string, desired ir.TagMap) error {
	current, err := p.GetTags(ctx, id)
	if err != nil {
		return err
	}

	var stale []string
	for _, k := range current.SortedKeys() {
		if _, ok := desired[k]; !ok {
			stale = append(stale, k)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	_, err = p.client.UntagResource(ctx, &eventbridge.UntagResourceInput{
		ResourceARN: lo.ToPtr(id),
		TagKeys:     stale,
	})
	if err != nil {
		return classify("untag rule", id, err)
	}
	return nil
}

func fromEventBridgeTags(tags []types.Tag) ir.TagMap {
	out := make(ir.TagMap, len(tags))
	for _, t := range tags {
		out[lo.FromPtr(t.Key)] = lo.FromPtr(t.Value)
	}
	return out
}

func toEventBridgeTags(tags ir.TagMap) []types.Tag {
	out := make([]types.Tag, 0, len(tags))
	for _, k := range tags.SortedKeys() {
		out = append(out, types.Tag{
			Key:   lo.ToPtr(k),
			Value: lo.ToPtr(tags[k]),
		})
	}
	return out
}
