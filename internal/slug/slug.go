// Package slug derives URL-safe slugs from display names.
package slug

import (
	"regexp"
	"strings"
)

var (
	// Matches spaces, underscores, and slashes (for replacement with dashes).
	wordSeparatorRe = regexp.MustCompile(`[\s_/]+`)
	// Matches non-alphanumeric characters (except dashes).
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	// Matches multiple consecutive dashes.
	multipleDashRe = regexp.MustCompile(`-+`)
)

// Make converts a display name to its URL slug. Slugs are recomputed from
// the name on every save, so renaming a tour moves its page.
//
// Examples:
//
//	"The Forest Hiker"  → "the-forest-hiker"
//	"Sea & Surf!"       → "sea-surf"
//	"  multi   word "   → "multi-word"
func Make(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonAlphanumericRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
