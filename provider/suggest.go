package provider

import "github.com/sahilm/fuzzy"

// SuggestModel returns the closest known model name to the given one, for
// diagnostics when detection falls through to the default profile. Empty
// string when nothing matches at all.
func SuggestModel(name string, known []string) string {
	if name == "" || len(known) == 0 {
		return ""
	}
	matches := fuzzy.Find(name, known)
	if len(matches) == 0 {
		return ""
	}
	return known[matches[0].Index]
}
