// Package codes extracts and validates media codes: a run of uppercase Latin
// letters immediately followed by digits, e.g. MOV123.
package codes

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// wordRe matches runs of Unicode word characters. RE2's \b only knows
	// ASCII, so "MOV1É" would otherwise yield MOV1.
	wordRe  = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	exactRe = regexp.MustCompile(`^[A-Z]+[0-9]+$`)
)

// Extract returns every code found in text, in order of occurrence.
// A code is a whole word. Duplicates are kept. Matching is case-sensitive:
// callers that accept lowercase input upper-case it first.
func Extract(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	for _, w := range wordRe.FindAllString(text, -1) {
		if exactRe.MatchString(w) {
			out = append(out, w)
		}
	}
	return out
}

// IsCode reports whether s is exactly one code.
func IsCode(s string) bool {
	return exactRe.MatchString(s)
}

// NormalizeQuery folds user-typed input into the stored code form.
// NFKC maps full-width letters and digits (common on mobile keyboards)
// to ASCII before upper-casing.
func NormalizeQuery(s string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFKC.String(s)))
}
