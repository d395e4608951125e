package detection

import (
	"regexp"
	"strings"
)

const (
	minCodeLen = 4
	maxCodeLen = 8
)

var (
	linkPattern = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"{}|\\^` + "`" + `\[\]]+`)
	otpPattern  = regexp.MustCompile(`\b\d{4,6}\b`)
)

// LinkAndCodeDetector finds embedded URLs and numeric codes
type LinkAndCodeDetector struct{}

// NewLinkAndCodeDetector creates a link/code detector
func NewLinkAndCodeDetector() *LinkAndCodeDetector {
	return &LinkAndCodeDetector{}
}

// ContainsLink reports whether body carries an http(s) or www. URL
func (d *LinkAndCodeDetector) ContainsLink(body string) bool {
	return linkPattern.MatchString(body)
}

// ExtractLinks returns every URL in body with trailing punctuation trimmed
func (d *LinkAndCodeDetector) ExtractLinks(body string) []string {
	matches := linkPattern.FindAllString(body, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?)'")
		if m != "" {
			links = append(links, m)
		}
	}
	return links
}

// ContainsCode reports whether body has a 4-8 digit run not adjacent to other digits
func (d *LinkAndCodeDetector) ContainsCode(body string) bool {
	return d.ExtractCode(body) != ""
}

// ExtractCode returns the first 4-8 digit run, verbatim, or "" when none exists.
// Runs are maximal, so a 10 digit phone number never yields a code.
func (d *LinkAndCodeDetector) ExtractCode(body string) string {
	for _, run := range codePattern.FindAllString(body, -1) {
		if len(run) >= minCodeLen && len(run) <= maxCodeLen {
			return run
		}
	}
	return ""
}

// ContainsOTP reports whether body has a standalone 4-6 digit token
func (d *LinkAndCodeDetector) ContainsOTP(body string) bool {
	return otpPattern.MatchString(body)
}
