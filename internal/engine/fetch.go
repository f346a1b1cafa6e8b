package engine

import (
	"context"
	"fmt"

	"github.com/retag-io/retag/internal/ir"
	"github.com/retag-io/retag/internal/logging"
	"github.com/retag-io/retag/internal/provider"
)

// TagFetchError is a per-resource fetch failure. It never aborts the
// run; the orchestrator records the resource as degraded and moves on.
type TagFetchError struct {
	ResourceID string
	Err        error
}

func (e *TagFetchError) Error() string {
	return fmt.Sprintf("fetching tags for %s: %v", e.ResourceID, e.Err)
}

func (e *TagFetchError) Unwrap() error { return e.Err }

// Fetcher retrieves the current tag set for one resource and
// distinguishes "tagging unsupported" from real failures.
type Fetcher struct {
	prov   provider.TaggingProvider
	policy *RetryPolicy
}

func NewFetcher(prov provider.TaggingProvider, policy *RetryPolicy) *Fetcher {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	return &Fetcher{prov: prov, policy: policy}
}

// Fetch returns the resource's current tags and whether tagging is
// supported for it. An unsupported resource is a terminal state, not an
// error: (nil, false, nil). A resource with zero tags yields an empty
// map. Any other remote failure comes back as *TagFetchError.
//
// After a decided fetch (success or unsupported) the fetcher pauses
// with jitter to respect the remote's implicit rate limits.
func (f *Fetcher) Fetch(ctx context.Context, res ir.Resource) (ir.TagMap, bool, error) {
	tags, err := f.prov.GetTags(ctx, res.ID)
	if err != nil {
		if provider.IsUnsupported(err) {
			logging.Info("tagging not supported", "resource", res.Name)
			f.policy.Pace(ctx)
			return nil, false, nil
		}
		return nil, false, &TagFetchError{ResourceID: res.ID, Err: err}
	}

	if tags == nil {
		tags = ir.TagMap{}
	}
	f.policy.Pace(ctx)
	return tags, true, nil
}
