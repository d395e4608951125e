package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scamguard/internal/domain/models"
	"scamguard/pkg/logger"
)

type testEngine struct {
	*ScamRuleEngine
	trusted  *TrustedSenderRegistry
	calls    *CallContextStore
	learning *LearningStore
	reporter *Reporter
	history  *BlockedHistory
	pub      *recordingPublisher
	clock    *fakeClock
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	log := logger.NewNop()
	clock := newFakeClock()
	w := NewStateWriter(newMemKV(), 256, time.Second, nil, log)

	trusted := NewTrustedSenderRegistry(nil, newMemContacts(), log)
	calls := NewCallContextStore(DefaultCorrelationWindow, w, log)
	calls.SetClock(clock.Now)
	tracker := NewPatternTracker(PatternTrackerConfig{}, w, log)
	tracker.SetClock(clock.Now)
	learning := NewLearningStore(w, nil, log)
	history := NewBlockedHistory(50, w, log)
	pub := &recordingPublisher{}
	reporter := NewReporter(history, &memEvents{}, pub, enabledGuardian(pub), nil, log)

	engine := NewScamRuleEngine(EngineDeps{
		Trusted:  trusted,
		Calls:    calls,
		Tracker:  tracker,
		Learning: learning,
		Reporter: reporter,
	}, nil, log)

	return &testEngine{
		ScamRuleEngine: engine,
		trusted:        trusted,
		calls:          calls,
		learning:       learning,
		reporter:       reporter,
		history:        history,
		pub:            pub,
		clock:          clock,
	}
}

func TestEvaluateUnknownSenderShortenedLinkWithCode(t *testing.T) {
	e := newTestEngine(t)

	state := e.Evaluate("UNKNOWN", "Your account is blocked, click http://bit.ly/x and enter OTP 123456 immediately")
	e.reporter.Wait()

	assert.Equal(t, models.RiskDanger, state.Level)
	assert.Equal(t, []string{
		"HIGH risk link (bit.ly): URL shortener hides the real destination",
		"Suspicious keywords found",
		"Urgent language detected",
		"Requesting or sending code",
	}, state.Reasons)
	assert.Equal(t, []string{"otp"}, state.MatchedKeywords)
	assert.Equal(t, "123456", state.ExtractedCode)

	items := e.history.List(models.ChannelMessage)
	require.Len(t, items, 1)
	assert.NotContains(t, items[0].Content, "123456")

	alerts := e.pub.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertDanger, alerts[0].Kind)
	assert.Equal(t, []models.EventType{models.EventScamBlocked}, e.pub.EventTypes())
}

func TestEvaluateTrustedSenderIsAlwaysSafe(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.trusted.AddContact(context.Background(), contact("9876543210", "Son"))
	require.NoError(t, err)

	state := e.Evaluate("+91 98765 43210", "URGENT winner! Install AnyDesk now, share OTP 4821 at http://bit.ly/prize")
	e.reporter.Wait()

	assert.Equal(t, models.RiskState{Level: models.RiskSafe, Reasons: []string{TrustedSenderReason}}, state)
	assert.Zero(t, e.history.Len())
	assert.Empty(t, e.pub.Alerts())
}

func TestEvaluatePlainLinkWithCode(t *testing.T) {
	e := newTestEngine(t)
	state := e.Evaluate("9123456780", "Visit www.example.com code 48213")

	assert.Equal(t, models.RiskDanger, state.Level)
	assert.Equal(t, []string{"Contains suspicious link", "Requesting or sending code"}, state.Reasons)
	assert.Equal(t, "48213", state.ExtractedCode)
}

func TestEvaluateCallOTPCorrelation(t *testing.T) {
	e := newTestEngine(t)
	e.RecordSuspiciousCall("+91 98765 43210")

	state := e.Evaluate("9876543210", "Your code is 4821")
	e.reporter.Wait()

	assert.Equal(t, models.RiskDanger, state.Level)
	require.NotEmpty(t, state.Reasons)
	assert.Equal(t, "SCAM ALERT: Suspicious call followed by a code from the same number", state.Reasons[0])
	assert.Contains(t, e.pub.EventTypes(), models.EventCallOTPCorrelation)
}

func TestEvaluateCorrelationExpires(t *testing.T) {
	e := newTestEngine(t)
	e.RecordSuspiciousCall("9876543210")
	e.clock.Advance(5*time.Minute + time.Millisecond)

	state := e.Evaluate("9876543210", "Your code is 4821")
	assert.NotContains(t, state.Reasons, "SCAM ALERT: Suspicious call followed by a code from the same number")
}

func TestEvaluateRemoteAccess(t *testing.T) {
	e := newTestEngine(t)
	state := e.Evaluate("9123456780", "Please install AnyDesk so I can help")

	assert.Equal(t, models.RiskDanger, state.Level)
	assert.Equal(t, "CRITICAL: Remote access app mentioned. Never share your screen with unknown callers.", state.Reasons[0])
	assert.Contains(t, state.MatchedKeywords, "anydesk")
}

func TestEvaluateFakeBankSender(t *testing.T) {
	e := newTestEngine(t)
	state := e.Evaluate("SBI-HELP", "Dear customer, update your details")

	assert.Equal(t, models.RiskDanger, state.Level)
	assert.Equal(t, []string{"FAKE BANK: FAKE BANK SENDER! Real SBI does not send messages as SBI-HELP"}, state.Reasons)
}

func TestEvaluateBankLookingSenderIsStillUnknown(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		sender string
		body   string
	}{
		{"VM-SBIINB", "Your OTP for login is 482193. Do not share it with anyone."},
		{"HDFCBANKREFUND", "Share OTP 482913 to claim your refund"},
	}
	for _, tt := range tests {
		t.Run(tt.sender, func(t *testing.T) {
			state := e.Evaluate(tt.sender, tt.body)
			assert.Equal(t, models.RiskDanger, state.Level)
			assert.Contains(t, state.Reasons, "Requesting or sending code")
			assert.NotEmpty(t, state.ExtractedCode)
		})
	}
}

func TestEvaluateAllowListedBankSender(t *testing.T) {
	log := logger.NewNop()
	engine := NewScamRuleEngine(EngineDeps{
		Trusted: NewTrustedSenderRegistry([]string{"SBIINB"}, nil, log),
	}, nil, log)

	state := engine.Evaluate("VM-SBIINB", "Your OTP for login is 482193. Do not share it with anyone.")
	assert.Equal(t, models.RiskState{Level: models.RiskSafe, Reasons: []string{TrustedSenderReason}}, state)
}

func TestEvaluateRepeatedScamEscalates(t *testing.T) {
	e := newTestEngine(t)
	body := "Claim your prize today"

	first := e.Evaluate("9000011111", body)
	assert.Equal(t, models.RiskCaution, first.Level)
	assert.Equal(t, []string{"prize", "claim"}, first.MatchedKeywords)

	e.clock.Advance(time.Hour)
	second := e.Evaluate("9000011111", body)
	assert.Equal(t, models.RiskCaution, second.Level)

	e.clock.Advance(time.Hour)
	third := e.Evaluate("9000011111", body)
	assert.Equal(t, models.RiskDanger, third.Level)
	assert.Contains(t, third.Reasons, "REPEATED SCAM ATTEMPT! This is the 3rd similar scam message. Protection level increased.")

	fourth := e.Evaluate("9000011111", body)
	assert.Equal(t, models.RiskDanger, fourth.Level)
	e.reporter.Wait()

	alerts := e.pub.Alerts()
	require.Len(t, alerts, 1, "guardian is told once per window")
	assert.Equal(t, models.AlertRepeatedScam, alerts[0].Kind)
}

func TestEvaluateRepeatedRemoteAccessKeepsAlerting(t *testing.T) {
	e := newTestEngine(t)
	body := "Install AnyDesk now"

	for i := 0; i < 4; i++ {
		state := e.Evaluate("9000022222", body)
		assert.Equal(t, models.RiskDanger, state.Level)
	}
	e.reporter.Wait()

	kinds := make(map[models.AlertKind]int)
	for _, a := range e.pub.Alerts() {
		kinds[a.Kind]++
	}
	assert.Equal(t, 3, kinds[models.AlertDanger])
	assert.Equal(t, 1, kinds[models.AlertRepeatedScam])
}

func TestEvaluateLearnedPatternDoesNotRaiseRisk(t *testing.T) {
	e := newTestEngine(t)
	res := e.ConfirmScam("VM-SCAM", "Confirm the parcel delivery address", true)
	assert.Equal(t, 1, res.NewKeywords)

	state := e.Evaluate("9111122222", "Confirm the parcel delivery address")
	assert.Equal(t, models.RiskSafe, state.Level)
	assert.Equal(t, []string{"Matches previously learned scam pattern"}, state.Reasons)
	assert.Equal(t, []string{"confirm"}, state.MatchedKeywords)
}

func TestEvaluateAuthorityImpersonation(t *testing.T) {
	e := newTestEngine(t)
	state := e.Evaluate("9111122222", "This is police, arrest warrant issued in your name")

	assert.Contains(t, state.Reasons, "Impersonates police with threats")
	assert.Contains(t, state.MatchedKeywords, "police")
}

func TestEvaluateDetectorPanicIsReported(t *testing.T) {
	log := logger.NewNop()
	engine := NewScamRuleEngine(EngineDeps{
		Trusted: NewTrustedSenderRegistry(nil, nil, log),
	}, nil, log)

	// nil call store makes the correlation check panic once a code is present
	state := engine.Evaluate("VM-HDFCBK", "Your code is 4821")
	assert.Equal(t, models.RiskDanger, state.Level)
	assert.Equal(t, []string{"Could not complete call otp correlation check", "Requesting or sending code"}, state.Reasons)
}

type panickingTrust struct{}

func (panickingTrust) IsTrusted(string) bool { panic("contacts unavailable") }

func TestEvaluateTopLevelPanicIsDanger(t *testing.T) {
	log := logger.NewNop()
	engine := NewScamRuleEngine(EngineDeps{Trusted: panickingTrust{}}, nil, log)

	state := engine.Evaluate("9123456780", "hello")
	assert.Equal(t, models.RiskDanger, state.Level)
	assert.Equal(t, []string{"Message could not be fully analyzed"}, state.Reasons)
}

func TestEvaluateEmptyMessage(t *testing.T) {
	e := newTestEngine(t)
	state := e.Evaluate("", "")
	assert.Equal(t, models.RiskSafe, state.Level)
	assert.Empty(t, state.Reasons)
}

func TestHandleIncomingCall(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.trusted.AddContact(context.Background(), contact("9876543210", "Dad"))
	require.NoError(t, err)

	assert.False(t, e.HandleIncomingCall("+91 98765 43210"))
	assert.True(t, e.HandleIncomingCall("9123456780"))
	assert.True(t, e.HandleIncomingCall(""))
	e.reporter.Wait()

	assert.True(t, e.calls.IsRecentlySuspicious("9123456780"))
	calls := e.history.List(models.ChannelCall)
	require.Len(t, calls, 2)
	assert.Equal(t, "Unknown", calls[0].Sender)
	assert.Equal(t, "9123456780", calls[1].Sender)
}

func TestEvaluateConcurrent(t *testing.T) {
	e := newTestEngine(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := fmt.Sprintf("90000%05d", i)
			e.RecordSuspiciousCall(sender)
			state := e.Evaluate(sender, "Your OTP is 4821")
			assert.Equal(t, models.RiskDanger, state.Level)
			e.ConfirmScam(sender, "verify your account", true)
		}(i)
	}
	wg.Wait()
	e.reporter.Wait()
	assert.Equal(t, 20, e.history.Len())
}
