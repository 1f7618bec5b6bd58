// Package resolve locates a legislator's profile page by trying candidate
// URLs in priority order and validating each fetched page before accepting it.
package resolve

import (
	"regexp"
	"strings"
)

var (
	reHonorific  = regexp.MustCompile(`(?i)^(Dr\.?|Shri|Smt\.?|Prof\.?|Mr\.?|Mrs\.?|Ms\.?)\s+`)
	reNonSlug    = regexp.MustCompile(`[^a-z0-9-]`)
	reHyphenRuns = regexp.MustCompile(`-+`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Slugify converts a display name into URL-slug form: lowercase, hyphens for
// spaces, everything outside [a-z0-9-] dropped.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = reWhitespace.ReplaceAllString(s, "-")
	s = reNonSlug.ReplaceAllString(s, "")
	s = reHyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NameSlugs generates the ordered slug variants tried for a name: the full
// name, first+last when middle names are present, and the honorific-stripped
// form. Variants are deduplicated preserving order; the first entry is the
// primary slug.
func NameSlugs(name string) []string {
	var slugs []string
	seen := map[string]bool{}
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			slugs = append(slugs, s)
		}
	}

	add(Slugify(name))

	if parts := strings.Fields(name); len(parts) > 2 {
		add(Slugify(parts[0] + " " + parts[len(parts)-1]))
	}

	add(Slugify(reHonorific.ReplaceAllString(strings.TrimSpace(name), "")))
	return slugs
}
