package detection

import (
	"fmt"
	"strings"
)

// NearMatchThreshold is the exclusive lower bound of similarity that marks a
// sender as impersonating a bank without being an exact match.
const NearMatchThreshold = 0.7

var bankNames = []string{"SBI", "HDFC", "ICICI", "AXIS", "KOTAK", "PNB", "BOB", "CANARA", "UNION", "IDBI"}

var bankAliases = map[string][]string{
	"SBI":   {"SBI", "SBIALERT", "SBIINB"},
	"HDFC":  {"HDFC", "HDFCBK", "HDFCBANK"},
	"ICICI": {"ICICI", "ICICIB", "ICICIBANK"},
	"AXIS":  {"AXIS", "AXISBK", "AXISBANK"},
}

var fakeSuffixes = []string{
	"-HELP", "-CARE", "-SUPPORT", "-SERVICE", "-ALERT",
	"-INFO", "-UPDATE", "-VERIFY", "-SECURE", "-OFFICIAL",
}

// BankValidation is the verdict on a sender ID
type BankValidation struct {
	IsLegitimate bool    `json:"is_legitimate"`
	IsFake       bool    `json:"is_fake"`
	Bank         string  `json:"bank,omitempty"`
	Pattern      string  `json:"pattern,omitempty"`
	Similarity   float64 `json:"similarity,omitempty"`
	Warning      string  `json:"warning,omitempty"`
}

// BankNameValidator spots sender IDs that imitate bank names
type BankNameValidator struct {
	threshold float64
}

// NewBankNameValidator creates a validator with the default near-match threshold
func NewBankNameValidator() *BankNameValidator {
	return &BankNameValidator{threshold: NearMatchThreshold}
}

// Validate classifies sender as a legitimate bank, a fake bank, or neither.
// Explicit suffix rules win over aliases, aliases win over fuzzy matching.
func (v *BankNameValidator) Validate(sender string) BankValidation {
	upper := strings.ToUpper(strings.TrimSpace(sender))
	if upper == "" {
		return BankValidation{}
	}

	for _, bank := range bankNames {
		if !strings.Contains(upper, bank) {
			continue
		}
		for _, suffix := range fakeSuffixes {
			if strings.Contains(upper, bank+suffix) {
				return BankValidation{
					IsFake:  true,
					Bank:    bank,
					Pattern: bank + suffix,
					Warning: fmt.Sprintf("FAKE BANK SENDER! Real %s does not send messages as %s", bank, sender),
				}
			}
		}
		if isKnownAlias(upper, bank) {
			return BankValidation{IsLegitimate: true, Bank: bank}
		}
	}

	for _, bank := range bankNames {
		sim := Similarity(upper, bank)
		if sim > v.threshold && sim < 1.0 {
			return BankValidation{
				IsFake:     true,
				Bank:       bank,
				Pattern:    "near-match",
				Similarity: sim,
				Warning:    fmt.Sprintf("Sender %s imitates %s", sender, bank),
			}
		}
	}
	return BankValidation{}
}

func isKnownAlias(upper, bank string) bool {
	if upper == bank {
		return true
	}
	for _, alias := range bankAliases[bank] {
		if strings.Contains(upper, alias) {
			return true
		}
	}
	return false
}

// Similarity returns 1 - distance/maxLen over upper-cased runes, where the
// distance is a Levenshtein distance in which swapping look-alike characters
// (1/I/L, 0/O, 5/S, 8/B, 2/Z) costs half an edit. Inputs without look-alike
// swaps score exactly (maxLen - editDistance) / maxLen.
func Similarity(a, b string) float64 {
	ra := []rune(strings.ToUpper(a))
	rb := []rune(strings.ToUpper(b))
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - weightedDistance(ra, rb)/float64(longest)
}

var confusableGroups = []string{"1IL", "0O", "5S", "8B", "2Z"}

func substitutionCost(x, y rune) float64 {
	if x == y {
		return 0
	}
	for _, g := range confusableGroups {
		if strings.ContainsRune(g, x) && strings.ContainsRune(g, y) {
			return 0.5
		}
	}
	return 1
}

func weightedDistance(a, b []rune) float64 {
	prev := make([]float64, len(b)+1)
	cur := make([]float64, len(b)+1)
	for j := range prev {
		prev[j] = float64(j)
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = float64(i)
		for j := 1; j <= len(b); j++ {
			best := prev[j-1] + substitutionCost(a[i-1], b[j-1])
			if del := prev[j] + 1; del < best {
				best = del
			}
			if ins := cur[j-1] + 1; ins < best {
				best = ins
			}
			cur[j] = best
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
