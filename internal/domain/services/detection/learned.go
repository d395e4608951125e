package detection

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"scamguard/internal/domain/models"
)

// learningIndicators decide whether a word from a confirmed scam is worth keeping
var learningIndicators = []string{
	"urgent", "immediately", "expire", "suspend", "block", "verify", "update",
	"confirm", "click", "link", "prize", "winner", "congratulations",
	"account", "bank", "card", "otp", "password", "pin",
}

const (
	minLearnedWordLen   = 4
	minTwoWordPhraseLen = 8
	minThreeWordLen     = 12
)

// ExtractLearnableKeywords returns words of at least four characters that
// contain a scam indicator, lower-cased and deduplicated in order.
func ExtractLearnableKeywords(body string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, w := range words(body) {
		if utf8.RuneCountInString(w) < minLearnedWordLen {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		for _, ind := range learningIndicators {
			if strings.Contains(w, ind) {
				seen[w] = struct{}{}
				out = append(out, w)
				break
			}
		}
	}
	return out
}

// ExtractLearnablePhrases returns every 2-word window of at least 8 characters
// and every 3-word window of at least 12 characters.
func ExtractLearnablePhrases(body string) []string {
	tokens := words(body)
	var out []string
	seen := make(map[string]struct{})
	add := func(p string, min int) {
		if utf8.RuneCountInString(p) < min {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for i := 0; i+1 < len(tokens); i++ {
		add(tokens[i]+" "+tokens[i+1], minTwoWordPhraseLen)
	}
	for i := 0; i+2 < len(tokens); i++ {
		add(tokens[i]+" "+tokens[i+1]+" "+tokens[i+2], minThreeWordLen)
	}
	return out
}

// words splits normalized text on whitespace. Punctuation is trimmed from the
// ends of each token only, so "verify-now" and URLs stay whole.
func words(body string) []string {
	fields := strings.Fields(Normalize(body))
	out := fields[:0]
	for _, f := range fields {
		if w := strings.TrimFunc(f, isEdgePunct); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func isEdgePunct(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
}

// LearnedPatternMatcher checks a body against a snapshot of learned items
type LearnedPatternMatcher struct{}

// NewLearnedPatternMatcher creates a matcher
func NewLearnedPatternMatcher() *LearnedPatternMatcher {
	return &LearnedPatternMatcher{}
}

// Match returns the learned keywords and phrases found in body. Confidence is
// (0.3*keywords + 0.7*patterns) / 5, capped at 1. The body is tokenized the
// same way learned items were, so punctuation does not hide a phrase.
func (m *LearnedPatternMatcher) Match(body string, keywords, patterns []string) models.LearnedMatch {
	text := strings.Join(words(body), " ")
	res := models.LearnedMatch{
		Keywords: containsAny(text, keywords),
		Patterns: containsAny(text, patterns),
	}
	raw := (0.3*float64(len(res.Keywords)) + 0.7*float64(len(res.Patterns))) / 5.0
	res.Confidence = math.Min(1.0, raw)
	return res
}
