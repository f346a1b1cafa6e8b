package ir

import "sort"

// TagMap is a set of key/value tags. Keys are unique; ordering is
// irrelevant.
type TagMap map[string]string

// Clone returns an independent copy. A nil map clones to an empty map.
func (t TagMap) Clone() TagMap {
	out := make(TagMap, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Merged returns a copy of t with desired overlaid on top. Desired wins
// on overlapping keys.
func (t TagMap) Merged(desired TagMap) TagMap {
	out := t.Clone()
	for k, v := range desired {
		out[k] = v
	}
	return out
}

// FilterEmpty returns a copy with empty-string values removed.
// Blank desired values are treated as no-ops, never as deletions.
func (t TagMap) FilterEmpty() TagMap {
	out := make(TagMap, len(t))
	for k, v := range t {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// SortedKeys returns the keys in ascending order.
func (t TagMap) SortedKeys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether both maps hold exactly the same pairs.
func (t TagMap) Equal(other TagMap) bool {
	if len(t) != len(other) {
		return false
	}
	for k, v := range t {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Without returns a copy of t with the given keys removed.
func (t TagMap) Without(keys []string) TagMap {
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	out := make(TagMap, len(t))
	for k, v := range t {
		if !drop[k] {
			out[k] = v
		}
	}
	return out
}
