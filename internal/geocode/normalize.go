package geocode

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Suffixes the geocoding service cannot resolve: unit numbers, floor and
// level markers.
var (
	reUnit   = regexp.MustCompile(`#\s*\d{1,3}\s*-\s*\d{1,4}[A-Za-z]?`)
	reLevel  = regexp.MustCompile(`(?i)\b(?:level|lvl)\s*\d+\b`)
	reFloor  = regexp.MustCompile(`(?i)\b\d+(?:st|nd|rd|th)?\s*(?:flr|floor|storey|sty)\b`)
	reSpaces = regexp.MustCompile(`\s+`)

	// Building words stripped for the simplified second attempt.
	reBuildingWords = regexp.MustCompile(`(?i)\b(industrial|park|centre|center|tower|building|complex|hub|bldg)\b`)
)

// NormalizeAddress canonicalizes an address string into the geocode cache key:
// NFKC-normalized, case-folded, unit/floor suffixes stripped, whitespace
// collapsed.
func NormalizeAddress(s string) string {
	s = norm.NFKC.String(s)
	s = folder.String(s)
	s = reUnit.ReplaceAllString(s, " ")
	s = reLevel.ReplaceAllString(s, " ")
	s = reFloor.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SimplifyQuery drops generic building words for a second search attempt.
// "Ubi Techpark Industrial Building" often only matches as "Ubi Techpark".
func SimplifyQuery(q string) string {
	s := reBuildingWords.ReplaceAllString(q, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
