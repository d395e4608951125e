package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scamguard/internal/domain/models"
)

func TestDecideTrustedShortCircuit(t *testing.T) {
	e := NewRiskDecisionEngine()
	state := e.Decide(SignalSet{
		Trusted: true,
		Signals: []Signal{{Name: SignalRemoteAccess, Severity: models.RiskDanger, Reasons: []string{"CRITICAL"}}},
		HasCode: true,
		HasLink: true,
	})
	assert.Equal(t, models.RiskSafe, state.Level)
	assert.Equal(t, []string{TrustedSenderReason}, state.Reasons)
	assert.Empty(t, state.MatchedKeywords)
}

func TestBaselineRisk(t *testing.T) {
	tests := []struct {
		name                                   string
		keywords, urgency, link, code, unknown bool
		want                                   models.RiskLevel
	}{
		{"nothing", false, false, false, false, false, models.RiskSafe},
		{"unknown alone", false, false, false, false, true, models.RiskSafe},
		{"code and link", false, false, true, true, false, models.RiskDanger},
		{"urgency and link", false, true, true, false, false, models.RiskDanger},
		{"urgency and code", false, true, false, true, false, models.RiskDanger},
		{"unknown with code", false, false, false, true, true, models.RiskDanger},
		{"unknown with link", false, false, true, false, true, models.RiskDanger},
		{"unknown with urgency", false, true, false, false, true, models.RiskDanger},
		{"keywords only", true, false, false, false, false, models.RiskCaution},
		{"keywords and unknown", true, false, false, false, true, models.RiskCaution},
		{"code from known sender", false, false, false, true, false, models.RiskSafe},
		{"urgency from known sender", false, true, false, false, false, models.RiskSafe},
		{"link from known sender", false, false, true, false, false, models.RiskSafe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaselineRisk(tt.keywords, tt.urgency, tt.link, tt.code, tt.unknown))
		})
	}
}

func TestDecideCriticalSignalWins(t *testing.T) {
	e := NewRiskDecisionEngine()
	state := e.Decide(SignalSet{
		Signals: []Signal{
			{Name: SignalFakeBank, Severity: models.RiskDanger, Reasons: []string{"FAKE BANK: x"}},
			{Name: SignalKeywords, Reasons: []string{"Suspicious keywords found"}, Keywords: []string{"otp"}},
		},
	})
	assert.Equal(t, models.RiskDanger, state.Level)
	assert.Equal(t, []string{"FAKE BANK: x", "Suspicious keywords found"}, state.Reasons)
	assert.Equal(t, []string{"otp"}, state.MatchedKeywords)
}

func TestDecideNeverDeescalates(t *testing.T) {
	e := NewRiskDecisionEngine()
	state := e.Decide(SignalSet{
		Signals: []Signal{
			{Name: SignalRemoteAccess, Severity: models.RiskDanger, Reasons: []string{"CRITICAL: remote"}},
			{Name: SignalMultilingual, Severity: models.RiskSafe},
			{Name: SignalLearned, Severity: models.RiskCaution, Reasons: []string{"Could not complete learned check"}},
		},
	})
	assert.Equal(t, models.RiskDanger, state.Level)
}

func TestDecideCautionFloor(t *testing.T) {
	e := NewRiskDecisionEngine()
	state := e.Decide(SignalSet{
		Signals: []Signal{{Name: SignalKeywords, Severity: models.RiskCaution, Reasons: []string{"Could not complete keywords check"}}},
	})
	assert.Equal(t, models.RiskCaution, state.Level)
}

func TestDecideFallbackReason(t *testing.T) {
	e := NewRiskDecisionEngine()
	state := e.Decide(SignalSet{HasCode: true, HasLink: true})
	assert.Equal(t, models.RiskDanger, state.Level)
	assert.Equal(t, []string{"High-risk message pattern detected"}, state.Reasons)
}

func TestDecideDedupesReasonsAndKeywords(t *testing.T) {
	e := NewRiskDecisionEngine()
	state := e.Decide(SignalSet{
		Signals: []Signal{
			{Name: SignalLink, Reasons: []string{"HIGH risk link (bit.ly): URL shortener hides the real destination"}},
			{Name: SignalLink, Reasons: []string{"HIGH risk link (bit.ly): URL shortener hides the real destination"}},
			{Name: SignalKeywords, Reasons: []string{"Suspicious keywords found"}, Keywords: []string{"otp", "verify"}},
			{Name: SignalLearned, Reasons: []string{" "}, Keywords: []string{"verify", "blocked"}},
		},
		HasKeywords:   true,
		ExtractedCode: "4821",
	})
	assert.Equal(t, models.RiskCaution, state.Level)
	assert.Equal(t, []string{
		"HIGH risk link (bit.ly): URL shortener hides the real destination",
		"Suspicious keywords found",
	}, state.Reasons)
	assert.Equal(t, []string{"otp", "verify", "blocked"}, state.MatchedKeywords)
	assert.Equal(t, "4821", state.ExtractedCode)
}

func TestDecideSafe(t *testing.T) {
	state := NewRiskDecisionEngine().Decide(SignalSet{UnknownSender: true})
	assert.Equal(t, models.RiskSafe, state.Level)
	assert.Empty(t, state.Reasons)
}
