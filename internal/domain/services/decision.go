package services

import (
	"strings"

	"scamguard/internal/domain/models"
)

// TrustedSenderReason is the only reason given for a trusted sender
const TrustedSenderReason = "Trusted Sender"

const fallbackDangerReason = "High-risk message pattern detected"

// Signal names, also used as metric labels
const (
	SignalCallOTPCorrelation = "call_otp_correlation"
	SignalRemoteAccess       = "remote_access"
	SignalFakeBank           = "fake_bank"
	SignalLink               = "link_safety"
	SignalKeywords           = "keywords"
	SignalUrgency            = "urgency"
	SignalLinkPresence       = "link_presence"
	SignalCode               = "code"
	SignalAuthority          = "authority"
	SignalMultilingual       = "multilingual"
	SignalLearned            = "learned"
	SignalRepeat             = "repeat"
)

// Signal is one detector's contribution. Severity is the minimum level the
// signal forces: RiskSafe only adds reasons and keywords, RiskCaution is a
// floor used by detectors that failed, RiskDanger escalates.
type Signal struct {
	Name     string
	Severity models.RiskLevel
	Reasons  []string
	Keywords []string
}

// SignalSet is everything the decision engine needs, in evaluation order
type SignalSet struct {
	Trusted       bool
	Signals       []Signal
	HasKeywords   bool
	HasUrgency    bool
	HasLink       bool
	HasCode       bool
	UnknownSender bool
	ExtractedCode string
}

// Keywords returns the keywords accumulated across all signals, deduplicated
// in the order they were contributed
func (s SignalSet) Keywords() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, sig := range s.Signals {
		for _, k := range sig.Keywords {
			if _, dup := seen[k]; dup || k == "" {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// RiskDecisionEngine folds a SignalSet into a RiskState. It has no state and
// performs no I/O.
type RiskDecisionEngine struct{}

// NewRiskDecisionEngine creates a decision engine
func NewRiskDecisionEngine() *RiskDecisionEngine {
	return &RiskDecisionEngine{}
}

// Decide applies the trusted short-circuit, the max-severity fold over the
// ordered signals, and the baseline rule when nothing escalated
func (e *RiskDecisionEngine) Decide(set SignalSet) models.RiskState {
	if set.Trusted {
		return models.RiskState{Level: models.RiskSafe, Reasons: []string{TrustedSenderReason}}
	}

	folded := models.RiskSafe
	var reasons []string
	seen := make(map[string]struct{})
	for _, sig := range set.Signals {
		folded = folded.Max(sig.Severity)
		for _, r := range sig.Reasons {
			r = strings.TrimSpace(r)
			if _, dup := seen[r]; dup || r == "" {
				continue
			}
			seen[r] = struct{}{}
			reasons = append(reasons, r)
		}
	}

	level := folded
	if level < models.RiskDanger {
		level = level.Max(BaselineRisk(set.HasKeywords, set.HasUrgency, set.HasLink, set.HasCode, set.UnknownSender))
	}
	if level == models.RiskDanger && len(reasons) == 0 {
		reasons = append(reasons, fallbackDangerReason)
	}

	return models.RiskState{
		Level:           level,
		Reasons:         reasons,
		MatchedKeywords: set.Keywords(),
		ExtractedCode:   set.ExtractedCode,
	}
}

// BaselineRisk is the rule applied when no critical signal fired
func BaselineRisk(hasKeywords, hasUrgency, hasLink, hasCode, unknownSender bool) models.RiskLevel {
	switch {
	case hasCode && hasLink,
		hasUrgency && (hasLink || hasCode),
		unknownSender && (hasCode || hasLink || hasUrgency):
		return models.RiskDanger
	case hasKeywords, unknownSender && hasLink:
		return models.RiskCaution
	}
	return models.RiskSafe
}
