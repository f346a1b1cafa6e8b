package ir

// Kind identifies a class of taggable cloud resource.
type Kind string

const (
	KindRule   Kind = "rule"
	KindBucket Kind = "bucket"
)

// ValidKinds lists every resource kind the engine knows about.
func ValidKinds() []Kind {
	return []Kind{KindRule, KindBucket}
}

// Resource is a single discovered remote resource. Identity is the ID
// (an ARN for AWS providers); a Resource is immutable once discovered
// within a run.
type Resource struct {
	ID               string
	Name             string
	Kind             Kind
	TaggingSupported bool
}

// Mode selects how desired tags combine with existing tags.
type Mode string

const (
	// ModeMerge overlays desired tags onto existing ones; unrelated
	// existing tags are preserved.
	ModeMerge Mode = "merge"
	// ModeReplace supersedes the existing tag set entirely.
	ModeReplace Mode = "replace"
)
