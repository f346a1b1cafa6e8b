package ir

// ChangeKind classifies one entry of a tag delta.
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"
	ChangeRemove ChangeKind = "remove"
	ChangeUpdate ChangeKind = "update"
)

// TagChange is a single key-level difference between a current and a
// desired tag set.
type TagChange struct {
	Key  string
	Kind ChangeKind
	Old  string // set for remove and update
	New  string // set for add and update
}

// TagDelta is a key-sorted sequence of tag changes, deterministic for a
// given (current, desired) pair.
type TagDelta []TagChange

// Empty reports whether the delta contains no changes.
func (d TagDelta) Empty() bool {
	return len(d) == 0
}

// Plan pairs a discovered resource with its current tags and the delta
// against the desired state. Consumed once during apply, then discarded.
type Plan struct {
	Resource Resource
	Current  TagMap
	Delta    TagDelta
	// Final is the exact tag set the apply phase will write.
	Final TagMap
}
