package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retag-io/retag/internal/ir"
	"github.com/retag-io/retag/internal/provider"
	"github.com/retag-io/retag/providers/mem"
)

func newRunFixture(t *testing.T) (*provider.Registry, *mem.Provider) {
	t.Helper()
	reg := provider.NewRegistry()
	prov := mem.New(ir.KindRule)
	reg.Register(prov)
	return reg, prov
}

func runOpts(opts Options) Options {
	if opts.Policy == nil {
		opts.Policy = fastPolicy()
	}
	return opts
}

func TestRunner_AppliesDesiredTags(t *testing.T) {
	reg, prov := newRunFixture(t)
	a := prov.AddResource("prod-etl-rule", ir.TagMap{"team": "data"})
	prov.AddResource("staging-web-rule", ir.TagMap{})

	r := NewRunner(reg, []ir.Kind{ir.KindRule}, runOpts(Options{
		Patterns: []string{"etl"},
		Desired:  ir.TagMap{"env": "prod"},
		Mode:     ir.ModeMerge,
	}))
	result, err := r.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
	assert.Equal(t, 1, result.Taggable)
	assert.Equal(t, 1, result.Applied)
	assert.Zero(t, result.Failed)
	assert.Equal(t, ir.TagMap{"team": "data", "env": "prod"}, prov.Tags(a.ID))
}

func TestRunner_FetchFailureIsIsolated(t *testing.T) {
	reg, prov := newRunFixture(t)
	bad := prov.AddResource("etl-bad-rule", nil)
	good := prov.AddResource("etl-good-rule", nil)
	prov.FailGet(bad.ID, provider.NewError(provider.KindPermissionDenied, "get tags", bad.ID, errors.New("denied")))

	r := NewRunner(reg, []ir.Kind{ir.KindRule}, runOpts(Options{
		Patterns: []string{"etl"},
		Desired:  ir.TagMap{"env": "prod"},
	}))
	result, err := r.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Matched)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, ir.FailureFetch, result.Outcomes[bad.ID].Failure)
	assert.Equal(t, ir.OutcomeApplied, result.Outcomes[good.ID].Kind)
	assert.Equal(t, ir.TagMap{"env": "prod"}, prov.Tags(good.ID))
}

func TestRunner_UnsupportedCountedButNeverApplied(t *testing.T) {
	reg, prov := newRunFixture(t)
	managed := prov.AddResource("etl-managed-rule", nil)
	prov.MarkUnsupported(managed.ID)
	prov.AddResource("etl-plain-rule", nil)

	r := NewRunner(reg, []ir.Kind{ir.KindRule}, runOpts(Options{
		Patterns: []string{"etl"},
		Desired:  ir.TagMap{"env": "prod"},
	}))
	result, err := r.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Matched)
	assert.Equal(t, 1, result.Taggable)
	assert.Equal(t, 1, result.Unsupported)
	assert.Equal(t, ir.OutcomeSkipped, result.Outcomes[managed.ID].Kind)
	for _, m := range prov.Mutations() {
		assert.NotEqual(t, managed.ID, m.ID)
	}
}

func TestRunner_DeclinedConfirmationMutatesNothing(t *testing.T) {
	reg, prov := newRunFixture(t)
	res := prov.AddResource("etl-rule", ir.TagMap{"keep": "1"})

	r := NewRunner(reg, []ir.Kind{ir.KindRule}, runOpts(Options{
		Patterns:  []string{"etl"},
		Desired:   ir.TagMap{"env": "prod"},
		Confirmer: Decline{},
	}))
	result, err := r.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Applied)
	assert.Empty(t, prov.Mutations())
	assert.Equal(t, ir.TagMap{"keep": "1"}, prov.Tags(res.ID))
}

func TestRunner_ZeroTaggableSkipsConfirmation(t *testing.T) {
	reg, prov := newRunFixture(t)
	res := prov.AddResource("etl-managed-rule", nil)
	prov.MarkUnsupported(res.ID)

	confirmed := false
	r := NewRunner(reg, []ir.Kind{ir.KindRule}, runOpts(Options{
		Patterns:  []string{"etl"},
		Desired:   ir.TagMap{"env": "prod"},
		Confirmer: confirmerFunc(func(int) (bool, error) { confirmed = true; return true, nil }),
	}))
	result, err := r.Run(context.Background())

	require.NoError(t, err)
	assert.False(t, confirmed)
	assert.Zero(t, result.Taggable)
	assert.Empty(t, prov.Mutations())
}

type confirmerFunc func(int) (bool, error)

func (f confirmerFunc) Confirm(n int) (bool, error) { return f(n) }

func TestRunner_DryRunIsIdempotentAndInert(t *testing.T) {
	reg, prov := newRunFixture(t)
	res := prov.AddResource("etl-rule", ir.TagMap{"team": "data"})

	opts := runOpts(Options{
		Patterns:  []string{"etl"},
		Desired:   ir.TagMap{"env": "prod"},
		DryRun:    true,
		Confirmer: Decline{}, // must never be consulted in dry run
	})

	for i := 0; i < 2; i++ {
		r := NewRunner(reg, []ir.Kind{ir.KindRule}, opts)
		result, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, result.Applied)
	}

	assert.Empty(t, prov.Mutations())
	assert.Equal(t, ir.TagMap{"team": "data"}, prov.Tags(res.ID))
}

func TestRunner_DiscoveryFailureKeepsPartialResults(t *testing.T) {
	reg, prov := newRunFixture(t)
	prov.SetPageSize(1)
	prov.AddResource("etl-first-rule", nil)
	prov.AddResource("etl-second-rule", nil)

	policy := fastPolicy()
	policy.MaxRetries = 0

	matchedFirst := false
	r := NewRunner(reg, []ir.Kind{ir.KindRule}, Options{
		Patterns: []string{"etl"},
		Desired:  ir.TagMap{"env": "prod"},
		Policy:   policy,
		OnEvent: func(e Event) {
			if e.Phase == "discovered" && !matchedFirst {
				matchedFirst = true
				// Second page fails terminally.
				prov.FailNextList(errors.New("access denied"))
			}
		},
	})
	result, err := r.Run(context.Background())

	require.Error(t, err)
	assert.True(t, IsDiscoveryError(err))
	assert.Equal(t, 1, result.Matched)
	assert.Equal(t, 1, result.Skipped)
	assert.Error(t, result.DiscoveryErr)
	assert.Empty(t, prov.Mutations())
}

func TestRunner_RemoveOpStripsKeys(t *testing.T) {
	reg, prov := newRunFixture(t)
	res := prov.AddResource("etl-rule", ir.TagMap{"drop": "1", "keep": "2"})

	r := NewRunner(reg, []ir.Kind{ir.KindRule}, runOpts(Options{
		Patterns:   []string{"etl"},
		Op:         OpRemove,
		RemoveKeys: []string{"drop"},
	}))
	result, err := r.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, ir.TagMap{"keep": "2"}, prov.Tags(res.ID))
}

func TestRunner_RemoveAllKeysDeletesEverything(t *testing.T) {
	reg, prov := newRunFixture(t)
	res := prov.AddResource("etl-rule", ir.TagMap{"a": "1", "b": "2"})

	r := NewRunner(reg, []ir.Kind{ir.KindRule}, runOpts(Options{
		Patterns:   []string{"etl"},
		Op:         OpRemove,
		RemoveKeys: []string{"a", "b"},
	}))
	_, err := r.Run(context.Background())

	require.NoError(t, err)
	muts := prov.Mutations()
	require.Len(t, muts, 1)
	assert.True(t, muts[0].DeleteAll)
	assert.Empty(t, prov.Tags(res.ID))
}

func TestRunner_ConcurrentApplyMatchesSequential(t *testing.T) {
	reg, prov := newRunFixture(t)
	ids := make([]string, 0, 6)
	for _, name := range []string{"etl-a", "etl-b", "etl-c", "etl-d", "etl-e", "etl-f"} {
		ids = append(ids, prov.AddResource(name, ir.TagMap{"team": "data"}).ID)
	}

	r := NewRunner(reg, []ir.Kind{ir.KindRule}, runOpts(Options{
		Patterns:    []string{"etl"},
		Desired:     ir.TagMap{"env": "prod"},
		Concurrency: 4,
	}))
	result, err := r.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 6, result.Applied)
	for _, id := range ids {
		assert.Equal(t, ir.TagMap{"team": "data", "env": "prod"}, prov.Tags(id))
	}
}

func TestRunner_BackupWrittenBeforeApply(t *testing.T) {
	reg, prov := newRunFixture(t)
	prov.AddResource("etl-rule", ir.TagMap{"team": "data"})

	sink := &recordingSink{}
	r := NewRunner(reg, []ir.Kind{ir.KindRule}, runOpts(Options{
		Patterns: []string{"etl"},
		Desired:  ir.TagMap{"env": "prod"},
		Backup:   sink,
	}))
	_, err := r.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, sink.writes, 1)
	assert.Equal(t, "etl-rule", sink.writes[0].name)
	assert.Equal(t, ir.TagMap{"team": "data"}, sink.writes[0].tags)
}

func TestRunner_BackupFailureDoesNotBlockApply(t *testing.T) {
	reg, prov := newRunFixture(t)
	res := prov.AddResource("etl-rule", nil)

	sink := &recordingSink{err: errors.New("disk full")}
	r := NewRunner(reg, []ir.Kind{ir.KindRule}, runOpts(Options{
		Patterns: []string{"etl"},
		Desired:  ir.TagMap{"env": "prod"},
		Backup:   sink,
	}))
	result, err := r.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, ir.TagMap{"env": "prod"}, prov.Tags(res.ID))
}

type recordingSink struct {
	err    error
	writes []struct {
		name string
		tags ir.TagMap
	}
}

func (s *recordingSink) Write(_ context.Context, name string, tags ir.TagMap) error {
	s.writes = append(s.writes, struct {
		name string
		tags ir.TagMap
	}{name, tags.Clone()})
	return s.err
}
