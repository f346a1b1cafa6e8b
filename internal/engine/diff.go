package engine

import (
	"sort"

	"github.com/retag-io/retag/internal/ir"
)

// Diff computes the ordered delta that turns current into the outcome
// of applying desired under the given mode. Keys are emitted in sorted
// order so output is deterministic and reviewable.
//
// In merge mode, desired wins on overlapping keys and current-only keys
// survive. In replace mode, current is treated as empty for
// classification, so every current-only key becomes a remove.
func Diff(current, desired ir.TagMap, mode ir.Mode) ir.TagDelta {
	target := finalTags(current, desired, mode)

	keys := make(map[string]bool, len(current)+len(target))
	for k := range current {
		keys[k] = true
	}
	for k := range target {
		keys[k] = true
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var delta ir.TagDelta
	for _, k := range sorted {
		cur, inCur := current[k]
		want, inWant := target[k]

		switch {
		case !inCur && inWant:
			delta = append(delta, ir.TagChange{Key: k, Kind: ir.ChangeAdd, New: want})
		case inCur && !inWant:
			delta = append(delta, ir.TagChange{Key: k, Kind: ir.ChangeRemove, Old: cur})
		case cur != want:
			delta = append(delta, ir.TagChange{Key: k, Kind: ir.ChangeUpdate, Old: cur, New: want})
		}
	}
	return delta
}

// finalTags returns the exact tag set that applying desired to current
// under mode should leave on the resource. Empty desired values are
// dropped before anything else; they never overwrite or delete.
func finalTags(current, desired ir.TagMap, mode ir.Mode) ir.TagMap {
	filtered := desired.FilterEmpty()
	if mode == ir.ModeReplace {
		return filtered
	}
	return current.Merged(filtered)
}

// ApplyDelta replays a delta onto a tag map: adds insert, removes
// delete, updates overwrite. Used to verify diff/apply symmetry.
func ApplyDelta(current ir.TagMap, delta ir.TagDelta) ir.TagMap {
	out := current.Clone()
	for _, c := range delta {
		switch c.Kind {
		case ir.ChangeAdd, ir.ChangeUpdate:
			out[c.Key] = c.New
		case ir.ChangeRemove:
			delete(out, c.Key)
		}
	}
	return out
}
