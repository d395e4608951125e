// Package detection holds the stateless text signal detectors. Every detector
// is safe for concurrent use and never mutates shared state.
package detection

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds compatibility forms (full-width letters and digits, ligatures)
// and lower-cases the text. All substring checks run on normalized text.
func Normalize(text string) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	return strings.ToLower(norm.NFKC.String(text))
}

// containsAny returns the subset of needles found in haystack, preserving
// needle order and dropping duplicates.
func containsAny(haystack string, needles []string) []string {
	var matches []string
	seen := make(map[string]struct{}, len(needles))
	for _, n := range needles {
		if _, dup := seen[n]; dup {
			continue
		}
		if strings.Contains(haystack, n) {
			seen[n] = struct{}{}
			matches = append(matches, n)
		}
	}
	return matches
}

var codePattern = regexp.MustCompile(`\d+`)

// MaskCodes replaces every 4-8 digit run with asterisks so alert previews and
// logs never carry a live one-time code.
func MaskCodes(text string) string {
	return codePattern.ReplaceAllStringFunc(text, func(run string) string {
		if len(run) >= minCodeLen && len(run) <= maxCodeLen {
			return "******"
		}
		return run
	})
}

// Preview returns a masked, truncated copy of body for logs and notifications
func Preview(body string, max int) string {
	masked := MaskCodes(body)
	if utf8.RuneCountInString(masked) <= max {
		return masked
	}
	runes := []rune(masked)
	return string(runes[:max]) + "..."
}
