package engine

import (
	"context"
	"fmt"

	"github.com/retag-io/retag/internal/ir"
	"github.com/retag-io/retag/internal/logging"
	"github.com/retag-io/retag/internal/provider"
)

// Lister is the slice of TaggingProvider the walker needs.
type Lister interface {
	Kind() ir.Kind
	ListResources(ctx context.Context, cursor string) (*provider.Page, error)
}

// DiscoveryError is the terminal failure of a listing walk. It is
// run-fatal: the orchestrator stops discovery and reports whatever was
// yielded before the failure.
type DiscoveryError struct {
	Kind ir.Kind
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("listing %s resources failed: %v", e.Kind, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Walker iterates a paginated listing endpoint page by page, holding at
// most one page in memory. Each page fetch is retried on transient
// failures with exponential backoff and jitter; exhausting the attempt
// ceiling surfaces a DiscoveryError and halts the walk. A walk always
// restarts from the first page; the cursor is never shared or persisted.
type Walker struct {
	lister Lister
	policy *RetryPolicy
}

func NewWalker(lister Lister, policy *RetryPolicy) *Walker {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	return &Walker{lister: lister, policy: policy}
}

// Walk yields every resource across all pages to fn, in listing order.
// Items already yielded are not rolled back when a later page fails.
// A non-nil error from fn aborts the walk and is returned verbatim.
func (w *Walker) Walk(ctx context.Context, fn func(ir.Resource) error) error {
	cursor := ""
	page := 0
	for {
		var current *provider.Page
		err := RetryWithBackoff(ctx, w.policy, func() error {
			var listErr error
			current, listErr = w.lister.ListResources(ctx, cursor)
			return listErr
		}, IsTransientError)
		if err != nil {
			return &DiscoveryError{Kind: w.lister.Kind(), Err: err}
		}

		logging.Debug("listed page", "kind", w.lister.Kind(), "page", page, "items", len(current.Resources))

		for _, res := range current.Resources {
			if err := fn(res); err != nil {
				return err
			}
		}

		if current.NextCursor == "" {
			return nil
		}
		cursor = current.NextCursor
		page++
	}
}
