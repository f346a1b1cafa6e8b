package engine

import (
	"context"
	"errors"
	"time"

	"github.com/retag-io/retag/internal/ir"
	"github.com/retag-io/retag/internal/logging"
	"github.com/retag-io/retag/internal/provider"
)

// DefaultApplyAttempts is the total attempt ceiling for one mutating
// call when the remote keeps throttling. The retry carries attempt
// count as loop state, never call-stack depth.
const DefaultApplyAttempts = 3

// DefaultThrottleDelay is the fixed pause between throttled attempts.
const DefaultThrottleDelay = 2 * time.Second

// Executor issues the mutating tag call for one resource and classifies
// the outcome.
type Executor struct {
	prov   provider.TaggingProvider
	policy *RetryPolicy

	// Attempts and ThrottleDelay tune the throttle retry loop; zero
	// values select the defaults.
	Attempts      int
	ThrottleDelay time.Duration
}

func NewExecutor(prov provider.TaggingProvider, policy *RetryPolicy) *Executor {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	return &Executor{prov: prov, policy: policy}
}

// Apply writes plan.Final to the resource. Empty-string values are
// filtered out before sending: a blank desired value is a no-op, not a
// deletion. In dry-run mode the call returns Applied without touching
// the remote. A replace that would leave zero tags is routed to
// DeleteAllTags instead of writing an empty set.
//
// A throttled attempt is retried with a fixed delay against the same
// tag map that was originally computed; if the remote resource changed
// in between, the retry writes what was planned, not a fresh fetch.
func (x *Executor) Apply(ctx context.Context, plan ir.Plan, mode ir.Mode, dryRun bool) ir.Outcome {
	final := plan.Final.FilterEmpty()

	if dryRun {
		logging.Info("dry run, skipping apply", "resource", plan.Resource.Name, "tags", len(final))
		return ir.Outcome{Kind: ir.OutcomeApplied}
	}

	attempts := x.Attempts
	if attempts <= 0 {
		attempts = DefaultApplyAttempts
	}
	delay := x.ThrottleDelay
	if delay <= 0 {
		delay = DefaultThrottleDelay
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = x.mutate(ctx, plan.Resource.ID, final, mode)
		if err == nil {
			logging.Info("applied tags", "resource", plan.Resource.Name, "tags", len(final))
			x.policy.Pace(ctx)
			return ir.Outcome{Kind: ir.OutcomeApplied}
		}
		if !provider.IsThrottled(err) || attempt == attempts {
			break
		}
		logging.Warn("rate limited, retrying", "resource", plan.Resource.Name, "attempt", attempt)
		select {
		case <-ctx.Done():
			return ir.Outcome{Kind: ir.OutcomeFailed, Failure: ir.FailureUnexpected, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}

	return classifyApplyFailure(err)
}

func (x *Executor) mutate(ctx context.Context, id string, final ir.TagMap, mode ir.Mode) error {
	if len(final) == 0 && mode == ir.ModeReplace {
		return x.prov.DeleteAllTags(ctx, id)
	}
	return x.prov.SetTags(ctx, id, final, mode)
}

func classifyApplyFailure(err error) ir.Outcome {
	out := ir.Outcome{Kind: ir.OutcomeFailed, Err: err}

	var pe *provider.Error
	if !errors.As(err, &pe) {
		out.Failure = ir.FailureUnexpected
		return out
	}

	switch pe.Kind {
	case provider.KindPermissionDenied:
		out.Failure = ir.FailurePermissionDenied
	case provider.KindNotFound:
		out.Failure = ir.FailureNotFound
	case provider.KindUnsupported:
		out.Failure = ir.FailureUnsupported
	case provider.KindThrottled:
		out.Failure = ir.FailureRateLimited
	default:
		out.Failure = ir.FailureOther
	}
	return out
}
