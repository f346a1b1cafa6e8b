package engine

import "strings"

// MatchesAny reports whether name contains at least one of the patterns
// as a case-sensitive substring. No glob or regex semantics. An empty
// pattern set matches everything, which is how an account-wide run is
// expressed.
func MatchesAny(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}
