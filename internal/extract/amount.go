package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Money cell markup on the source site is wildly inconsistent: the rupee
// marker, a non-breaking space, a tilde-prefixed word form, or a bare number
// may all appear in one cell. A single routine owns the disambiguation so
// every table column treats cells identically.
// The non-breaking space shows up both as the literal entity and as U+00A0,
// depending on whether the fragment came from raw markup or a re-serialized
// node tree; every pattern accepts both.
var (
	reRupeeNbsp  = regexp.MustCompile(`(?i)Rs\s*(?:&nbsp;|\x{00a0})\s*([0-9][0-9,]*)`)
	reRupeePlain = regexp.MustCompile(`(?i)Rs\.?\s+([0-9][0-9,]*)`)
	reBeforeSep  = regexp.MustCompile(`([0-9][0-9,]*)[\s\x{00a0}]*(?:&nbsp;|\x{00a0}|~)`)
	reFirstNum   = regexp.MustCompile(`[0-9][0-9,]*`)
)

// ExtractAmount pulls a declared amount out of a raw cell fragment. The
// patterns are tried in strict priority order; the first match wins:
//
//  1. "Rs" followed by &nbsp; and a number
//  2. "Rs" followed by whitespace and a number
//  3. a number immediately before &nbsp; or "~"
//  4. the first number anywhere in the fragment
//
// The result is always "Rs <digits>" with commas stripped, or Nil when the
// fragment holds no number at all. The output round-trips through
// ExtractAmount unchanged.
func ExtractAmount(fragment string) string {
	for _, re := range []*regexp.Regexp{reRupeeNbsp, reRupeePlain, reBeforeSep} {
		if m := re.FindStringSubmatch(fragment); m != nil {
			return "Rs " + strings.ReplaceAll(m[1], ",", "")
		}
	}
	if m := reFirstNum.FindString(fragment); m != "" {
		return "Rs " + strings.ReplaceAll(m, ",", "")
	}
	return Nil
}

// ParseAmount converts an ExtractAmount result back to a numeric value.
// Nil parses as zero with ok=false.
func ParseAmount(s string) (int64, bool) {
	digits := reFirstNum.FindString(s)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(digits, ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
