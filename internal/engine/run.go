package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/retag-io/retag/internal/backup"
	"github.com/retag-io/retag/internal/ir"
	"github.com/retag-io/retag/internal/logging"
	"github.com/retag-io/retag/internal/provider"
)

// Confirmer gates the apply phase. The engine never talks to a
// terminal itself; interactive prompting lives in the CLI.
type Confirmer interface {
	Confirm(taggable int) (bool, error)
}

// AutoApprove always proceeds; used for --auto-approve and automation.
type AutoApprove struct{}

func (AutoApprove) Confirm(int) (bool, error) { return true, nil }

// Decline always refuses; the run ends with zero mutations.
type Decline struct{}

func (Decline) Confirm(int) (bool, error) { return false, nil }

// Op selects what a run does to the matched resources.
type Op string

const (
	// OpApply reconciles toward the desired tag set.
	OpApply Op = "apply"
	// OpRemove strips the listed tag keys.
	OpRemove Op = "remove"
)

// Event is a progress notification emitted during a run.
type Event struct {
	Resource ir.Resource
	Phase    string // "discovered", "planned", "apply-started", "apply-finished"
	Outcome  ir.Outcome
	Duration time.Duration
}

// Options configures one reconciliation run.
type Options struct {
	Patterns   []string
	Desired    ir.TagMap
	Mode       ir.Mode
	Op         Op
	RemoveKeys []string
	DryRun     bool

	// Concurrency bounds the apply-phase worker pool. The default of 1
	// processes resources strictly sequentially, which is the
	// throttle-avoidance baseline.
	Concurrency int

	Policy    *RetryPolicy
	Confirmer Confirmer
	Backup    backup.Sink

	// RenderPlans, when set, is called with every computed plan before
	// the confirmation gate.
	RenderPlans func([]ir.Plan)
	// OnEvent, when set, receives progress events.
	OnEvent func(Event)
}

// Runner drives one end-to-end reconciliation pass: discover → inspect
// → plan → confirm → apply → report.
type Runner struct {
	registry *provider.Registry
	kinds    []ir.Kind
	opts     Options

	mu sync.Mutex // serializes outcome writes from apply workers
}

func NewRunner(registry *provider.Registry, kinds []ir.Kind, opts Options) *Runner {
	if opts.Policy == nil {
		opts.Policy = DefaultRetryPolicy()
	}
	if opts.Confirmer == nil {
		opts.Confirmer = AutoApprove{}
	}
	if opts.Backup == nil {
		opts.Backup = backup.NopSink{}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Mode == "" {
		opts.Mode = ir.ModeMerge
	}
	if opts.Op == "" {
		opts.Op = OpApply
	}
	return &Runner{registry: registry, kinds: kinds, opts: opts}
}

// Run executes the pass. Per-resource fetch and apply failures are
// isolated into the result; only a discovery-walk failure is run-fatal,
// and even then the result carries the partial matched set alongside
// the returned error.
func (r *Runner) Run(ctx context.Context) (*ir.RunResult, error) {
	result := &ir.RunResult{Outcomes: make(map[string]ir.Outcome)}

	matched, discoveryErr := r.discover(ctx)
	result.Matched = len(matched)

	if discoveryErr != nil {
		result.DiscoveryErr = discoveryErr
		for _, res := range matched {
			r.record(result, res.ID, ir.Outcome{Kind: ir.OutcomeSkipped})
		}
		r.tally(result)
		return result, discoveryErr
	}

	plans := r.inspect(ctx, matched, result)

	var taggable []ir.Plan
	for _, p := range plans {
		if p.Resource.TaggingSupported {
			taggable = append(taggable, p)
		}
	}
	result.Taggable = len(taggable)
	result.Unsupported = len(plans) - len(taggable)

	if r.opts.RenderPlans != nil {
		r.opts.RenderPlans(plans)
	}

	// Unsupported resources stay in the matched count but never reach
	// the apply phase.
	for _, p := range plans {
		if !p.Resource.TaggingSupported {
			r.record(result, p.Resource.ID, ir.Outcome{Kind: ir.OutcomeSkipped})
		}
	}

	if len(taggable) == 0 {
		logging.Info("no taggable resources, nothing to apply")
		r.tally(result)
		return result, nil
	}

	// Dry run mutates nothing, so there is nothing to gate.
	if !r.opts.DryRun {
		ok, err := r.opts.Confirmer.Confirm(len(taggable))
		if err != nil {
			return result, fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			logging.Info("apply declined, ending run", "taggable", len(taggable))
			for _, p := range taggable {
				r.record(result, p.Resource.ID, ir.Outcome{Kind: ir.OutcomeSkipped})
			}
			r.tally(result)
			return result, nil
		}
	}

	r.apply(ctx, taggable, result)
	r.tally(result)
	return result, nil
}

// discover walks every configured kind and collects resources matching
// the patterns. A DiscoveryError stops the walk; what was matched so
// far is returned alongside it.
func (r *Runner) discover(ctx context.Context) ([]ir.Resource, error) {
	var matched []ir.Resource

	for _, kind := range r.kinds {
		prov, err := r.registry.Get(kind)
		if err != nil {
			return matched, &DiscoveryError{Kind: kind, Err: err}
		}

		walker := NewWalker(prov, r.opts.Policy)
		err = walker.Walk(ctx, func(res ir.Resource) error {
			if !MatchesAny(res.Name, r.opts.Patterns) {
				return nil
			}
			matched = append(matched, res)
			r.emit(Event{Resource: res, Phase: "discovered"})
			return nil
		})
		if err != nil {
			logging.Error("discovery failed", "kind", kind, "error", err)
			return matched, err
		}
	}

	logging.Info("discovery complete", "matched", len(matched))
	return matched, nil
}

// inspect fetches current tags for each matched resource and computes
// its plan. Fetch failures are recorded and skipped, never fatal.
func (r *Runner) inspect(ctx context.Context, matched []ir.Resource, result *ir.RunResult) []ir.Plan {
	fetchers := make(map[ir.Kind]*Fetcher)

	var plans []ir.Plan
	for _, res := range matched {
		f, ok := fetchers[res.Kind]
		if !ok {
			prov, err := r.registry.Get(res.Kind)
			if err != nil {
				r.record(result, res.ID, ir.Outcome{Kind: ir.OutcomeFailed, Failure: ir.FailureFetch, Err: err})
				continue
			}
			f = NewFetcher(prov, r.opts.Policy)
			fetchers[res.Kind] = f
		}

		current, supported, err := f.Fetch(ctx, res)
		if err != nil {
			logging.Warn("could not fetch tags", "resource", res.Name, "error", err)
			r.record(result, res.ID, ir.Outcome{Kind: ir.OutcomeFailed, Failure: ir.FailureFetch, Err: err})
			continue
		}

		res.TaggingSupported = supported
		plan := r.plan(res, current)
		plans = append(plans, plan)
		r.emit(Event{Resource: res, Phase: "planned"})
	}
	return plans
}

// plan computes the delta and final tag set for one resource under the
// run's operation.
func (r *Runner) plan(res ir.Resource, current ir.TagMap) ir.Plan {
	if current == nil {
		current = ir.TagMap{}
	}

	var final ir.TagMap
	var delta ir.TagDelta
	switch r.opts.Op {
	case OpRemove:
		final = current.Without(r.opts.RemoveKeys)
		delta = Diff(current, final, ir.ModeReplace)
	default:
		final = finalTags(current, r.opts.Desired, r.opts.Mode)
		delta = Diff(current, r.opts.Desired, r.opts.Mode)
	}

	return ir.Plan{Resource: res, Current: current, Delta: delta, Final: final}
}

// applyMode is the mode handed to providers during the apply phase.
// Removal prunes keys, which only replace semantics can express.
func (r *Runner) applyMode() ir.Mode {
	if r.opts.Op == OpRemove {
		return ir.ModeReplace
	}
	return r.opts.Mode
}

// apply runs the worker pool over the taggable plans. Each resource is
// owned by exactly one worker, so no resource ever has two outstanding
// mutation sequences. Outcome writes are serialized by the collector
// mutex inside record.
func (r *Runner) apply(ctx context.Context, plans []ir.Plan, result *ir.RunResult) {
	mode := r.applyMode()

	executors := make(map[ir.Kind]*Executor)
	for _, kind := range r.kinds {
		if prov, err := r.registry.Get(kind); err == nil {
			executors[kind] = NewExecutor(prov, r.opts.Policy)
		}
	}

	work := make(chan ir.Plan)
	var wg sync.WaitGroup

	for i := 0; i < r.opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for plan := range work {
				r.applyOne(ctx, executors, plan, mode, result)
			}
		}()
	}

	for _, plan := range plans {
		// Cancellation takes effect between resources only; a started
		// apply is never cut short mid-call.
		if ctx.Err() != nil {
			r.record(result, plan.Resource.ID, ir.Outcome{Kind: ir.OutcomeSkipped})
			continue
		}
		work <- plan
	}
	close(work)
	wg.Wait()
}

func (r *Runner) applyOne(ctx context.Context, executors map[ir.Kind]*Executor, plan ir.Plan, mode ir.Mode, result *ir.RunResult) {
	exec, ok := executors[plan.Resource.Kind]
	if !ok {
		r.record(result, plan.Resource.ID, ir.Outcome{Kind: ir.OutcomeFailed, Failure: ir.FailureUnexpected,
			Err: fmt.Errorf("no executor for kind %s", plan.Resource.Kind)})
		return
	}

	r.emit(Event{Resource: plan.Resource, Phase: "apply-started"})
	start := time.Now()

	// Snapshot before mutation. Best effort: a failed backup is logged
	// and the apply proceeds.
	if !r.opts.DryRun {
		if err := r.opts.Backup.Write(ctx, plan.Resource.Name, plan.Current); err != nil {
			logging.Warn("tag backup failed", "resource", plan.Resource.Name, "error", err)
		}
	}

	outcome := exec.Apply(ctx, plan, mode, r.opts.DryRun)
	r.record(result, plan.Resource.ID, outcome)
	r.emit(Event{Resource: plan.Resource, Phase: "apply-finished", Outcome: outcome, Duration: time.Since(start)})
}

func (r *Runner) emit(event Event) {
	if r.opts.OnEvent != nil {
		r.opts.OnEvent(event)
	}
}

func (r *Runner) record(result *ir.RunResult, id string, outcome ir.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result.Outcomes[id] = outcome
}

func (r *Runner) tally(result *ir.RunResult) {
	for _, o := range result.Outcomes {
		switch o.Kind {
		case ir.OutcomeApplied:
			result.Applied++
		case ir.OutcomeSkipped:
			result.Skipped++
		case ir.OutcomeFailed:
			result.Failed++
		}
	}
}

// IsDiscoveryError reports whether err is the run-fatal discovery
// failure.
func IsDiscoveryError(err error) bool {
	var de *DiscoveryError
	return errors.As(err, &de)
}
