package extract

import (
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`[\s\x{00a0}]+`)

// collapseSpace folds runs of whitespace into single spaces.
func collapseSpace(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// Free-text blocks on the source pages run straight into chart bootstrap
// scripts and the next section's heading. Everything from the first such
// marker onward is noise.
var freeTextEndMarkers = []string{
	"Crime-O-Meter",
	"Assets & Liabilities",
	"google.charts",
	"No criminal cases",
	"function drawChart",
}

// CleanFreeText strips trailing section noise and label debris from a
// free-text block such as the education details.
func CleanFreeText(s string) string {
	for _, marker := range freeTextEndMarkers {
		if i := strings.Index(s, marker); i != -1 {
			s = s[:i]
		}
	}
	s = strings.ReplaceAll(s, "Category:", "")
	return collapseSpace(s)
}

// textAfterMarker returns the portion of s after the first occurrence of
// marker, or "" when the marker is absent.
func textAfterMarker(s, marker string) string {
	i := strings.Index(s, marker)
	if i == -1 {
		return ""
	}
	return s[i+len(marker):]
}
