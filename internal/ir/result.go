package ir

import "fmt"

// OutcomeKind is the terminal state of one resource within a run.
type OutcomeKind string

const (
	OutcomeApplied OutcomeKind = "applied"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// FailureKind refines a failed outcome.
type FailureKind string

const (
	FailureNone             FailureKind = ""
	FailurePermissionDenied FailureKind = "permission_denied"
	FailureNotFound         FailureKind = "not_found"
	FailureUnsupported      FailureKind = "unsupported"
	FailureRateLimited      FailureKind = "rate_limited"
	FailureFetch            FailureKind = "fetch_failed"
	FailureOther            FailureKind = "other"
	FailureUnexpected       FailureKind = "unexpected"
)

// Outcome records how one resource ended the run.
type Outcome struct {
	Kind    OutcomeKind
	Failure FailureKind
	Err     error
}

func (o Outcome) String() string {
	if o.Kind == OutcomeFailed {
		return fmt.Sprintf("%s(%s)", o.Kind, o.Failure)
	}
	return string(o.Kind)
}

// RunResult aggregates a whole reconciliation run. Produced once at run
// end by the orchestrator and never mutated afterward.
type RunResult struct {
	Matched     int
	Taggable    int
	Unsupported int
	Applied     int
	Skipped     int
	Failed      int

	// Outcomes maps resource ID to its terminal outcome.
	Outcomes map[string]Outcome

	// DiscoveryErr is set when the discovery walk itself died; Outcomes
	// then covers only the partial matched set collected before the
	// failure.
	DiscoveryErr error
}

// Summary renders the one-line counts report.
func (r *RunResult) Summary() string {
	return fmt.Sprintf("matched=%d taggable=%d unsupported=%d applied=%d skipped=%d failed=%d",
		r.Matched, r.Taggable, r.Unsupported, r.Applied, r.Skipped, r.Failed)
}
