package detection

import "fmt"

var authorityTerms = []string{
	"police", "cbi", "rbi", "income tax", "customs", "cyber cell",
	"court", "warrant", "arrest", "narcotics", "enforcement directorate",
}

var authorityThreats = []string{
	"arrest", "warrant", "fir registered", "case registered", "digital arrest",
	"parcel seized", "legal action", "penalty", "jail",
}

// AuthorityResult reports a government or law enforcement impersonation lure
type AuthorityResult struct {
	Detected bool     `json:"detected"`
	Terms    []string `json:"terms,omitempty"`
	Threats  []string `json:"threats,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// AuthorityImpersonationDetector finds messages that invoke an agency and a
// threat together. It contributes reasons and keywords, never severity.
type AuthorityImpersonationDetector struct{}

// NewAuthorityImpersonationDetector creates the detector
func NewAuthorityImpersonationDetector() *AuthorityImpersonationDetector {
	return &AuthorityImpersonationDetector{}
}

// Detect requires at least one authority term and one threat term
func (d *AuthorityImpersonationDetector) Detect(body string) AuthorityResult {
	text := Normalize(body)
	terms := containsAny(text, authorityTerms)
	if len(terms) == 0 {
		return AuthorityResult{}
	}
	threats := containsAny(text, authorityThreats)
	if len(threats) == 0 {
		return AuthorityResult{}
	}
	return AuthorityResult{
		Detected: true,
		Terms:    terms,
		Threats:  threats,
		Reason:   fmt.Sprintf("Impersonates %s with threats", terms[0]),
	}
}
