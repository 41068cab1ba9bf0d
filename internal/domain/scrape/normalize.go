package scrape

import "strings"

// Substitute markers appear as a trailing parenthetical on scraped names:
// "(S)" for a regular substitute appearance and "(S↑)" for a substitute
// playing up on a higher court. The set is closed on purpose: an
// unrecognized trailing parenthetical is part of the legal name and must
// survive normalization untouched.
const (
	markerSub   = "S"
	markerSubUp = "S↑"
)

// NormalizeName strips a recognized substitute marker and surrounding
// whitespace from a raw scraped name. It returns the normalized display
// name and whether a marker was present. Pure function.
func NormalizeName(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	if !strings.HasSuffix(name, ")") {
		return name, false
	}

	open := strings.LastIndex(name, "(")
	if open < 0 {
		return name, false
	}

	switch strings.TrimSpace(name[open+1 : len(name)-1]) {
	case markerSub, markerSubUp:
		return strings.TrimSpace(name[:open]), true
	default:
		return name, false
	}
}
