package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scamguard/internal/domain/models"
	"scamguard/pkg/logger"
)

func enabledGuardian(pub AlertPublisher) *GuardianNotifier {
	return NewGuardianNotifier(pub, GuardianConfig{Enabled: true, Name: "Asha", Phone: "+919800000000"}, nil, logger.NewNop())
}

func TestAlertText(t *testing.T) {
	assert.Equal(t, "Scam Guard Alert: Repeated Scam Alert. 3 messages", AlertText("Repeated Scam Alert", "3 messages"))
}

func TestGuardianNotifier(t *testing.T) {
	pub := &recordingPublisher{}
	g := enabledGuardian(pub)
	ctx := context.Background()

	require.NoError(t, g.NotifyRisk(ctx, "VM-SCAM", "Bank Phishing", "blocked"))
	require.NoError(t, g.NotifyRepeatedScam(ctx, "VM-SCAM", 3))
	require.NoError(t, g.SendWeeklySummary(ctx, "report"))

	alerts := pub.Alerts()
	require.Len(t, alerts, 3)
	assert.Equal(t, models.AlertDanger, alerts[0].Kind)
	assert.Equal(t, "Risk Detected: Bank Phishing", alerts[0].Title)
	assert.Equal(t, "+919800000000", alerts[0].Recipient)
	assert.Equal(t, models.RiskDanger, alerts[0].RiskLevel)

	assert.Equal(t, "Repeated Scam Alert", alerts[1].Title)
	assert.Contains(t, alerts[1].Message, "received 3 similar scam messages in the last 24 hours")

	assert.Equal(t, models.AlertWeeklySummary, alerts[2].Kind)
	assert.Equal(t, "report", alerts[2].Message)
	for _, a := range alerts {
		assert.NotEqual(t, [16]byte{}, [16]byte(a.ID))
	}
}

func TestGuardianNotifierDisabled(t *testing.T) {
	pub := &recordingPublisher{}
	g := NewGuardianNotifier(pub, GuardianConfig{}, nil, logger.NewNop())
	require.NoError(t, g.NotifyRisk(context.Background(), "X", "OTP Fraud", "d"))
	assert.Empty(t, pub.Alerts())
}

func TestGuardianNotifierPublishError(t *testing.T) {
	pub := &recordingPublisher{err: errStoreDown}
	err := enabledGuardian(pub).NotifyRisk(context.Background(), "X", "OTP Fraud", "d")
	assert.ErrorIs(t, err, errStoreDown)
}

func TestBlockedHistory(t *testing.T) {
	kv := newMemKV()
	w := NewStateWriter(kv, 64, time.Second, nil, logger.NewNop())
	h := NewBlockedHistory(3, w, logger.NewNop())

	h.Add(models.ChannelMessage, "A", "Your OTP is 482193", "r", models.RiskDanger)
	h.Add(models.ChannelCall, "B", "", "call", models.RiskCaution)
	h.Add(models.ChannelMessage, "C", "hello", "r", models.RiskCaution)
	h.Add(models.ChannelMessage, "D", "pay 5000 now", "r", models.RiskDanger)

	all := h.List("")
	require.Len(t, all, 3)
	assert.Equal(t, []string{"D", "C", "B"}, []string{all[0].Sender, all[1].Sender, all[2].Sender})
	assert.Equal(t, "pay ****** now", all[0].Content)

	calls := h.List(models.ChannelCall)
	require.Len(t, calls, 1)
	assert.Equal(t, "B", calls[0].Sender)

	require.NoError(t, w.Flush(context.Background()))
	restored := NewBlockedHistory(3, nil, logger.NewNop())
	require.NoError(t, restored.Load(context.Background(), kv))
	assert.Equal(t, 3, restored.Len())
	assert.Equal(t, "D", restored.List("")[0].Sender)
}

func TestBlockedHistoryMasksCodes(t *testing.T) {
	h := NewBlockedHistory(0, nil, logger.NewNop())
	item := h.Add(models.ChannelMessage, "A", "Your OTP is 482193", "r", models.RiskDanger)
	assert.Equal(t, "Your OTP is ******", item.Content)
	assert.NotContains(t, item.Content, "482193")
}

func newTestReporter(events EventRecorder, pub EventPublisher, guardian *GuardianNotifier) (*Reporter, *BlockedHistory) {
	h := NewBlockedHistory(10, nil, logger.NewNop())
	return NewReporter(h, events, pub, guardian, nil, logger.NewNop()), h
}

func TestReporterSafeIsSilent(t *testing.T) {
	events := &memEvents{}
	pub := &recordingPublisher{}
	r, h := newTestReporter(events, pub, enabledGuardian(pub))

	r.ReportMessage(Evaluation{Sender: "A", Body: "hi", State: models.RiskState{Level: models.RiskSafe}})
	r.Wait()
	assert.Zero(t, h.Len())
	assert.Empty(t, events.events)
	assert.Empty(t, pub.Alerts())
}

func TestReporterDangerAlertsGuardian(t *testing.T) {
	events := &memEvents{}
	pub := &recordingPublisher{}
	r, h := newTestReporter(events, pub, enabledGuardian(pub))

	r.ReportMessage(Evaluation{
		Sender:   "SBI-HELP",
		Body:     "Your OTP is 4821",
		Category: "Bank Phishing",
		Critical: []string{SignalFakeBank},
		State: models.RiskState{
			Level:   models.RiskDanger,
			Reasons: []string{"FAKE BANK: x"},
		},
	})
	r.Wait()

	items := h.List(models.ChannelMessage)
	require.Len(t, items, 1)
	assert.Equal(t, "FAKE BANK: x", items[0].Reason)
	assert.Equal(t, "Your OTP is ******", items[0].Content)

	assert.Equal(t, []models.EventType{models.EventScamBlocked, models.EventFakeBankDetected}, pub.EventTypes())
	require.Len(t, events.events, 2)
	assert.Equal(t, "Bank Phishing", events.events[0].Category)

	alerts := pub.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "Risk Detected: Bank Phishing", alerts[0].Title)
	assert.True(t, strings.HasPrefix(alerts[0].Message, "Message from SBI-HELP was blocked"))
}

func TestReporterCautionDoesNotAlert(t *testing.T) {
	events := &memEvents{}
	pub := &recordingPublisher{}
	r, _ := newTestReporter(events, pub, enabledGuardian(pub))

	r.ReportMessage(Evaluation{Sender: "A", State: models.RiskState{Level: models.RiskCaution, Reasons: []string{"Suspicious keywords found"}}})
	r.Wait()
	assert.Equal(t, []models.EventType{models.EventScamWarning}, pub.EventTypes())
	assert.Empty(t, pub.Alerts())
}

func TestReporterRepeatedScam(t *testing.T) {
	pub := &recordingPublisher{}
	r, _ := newTestReporter(nil, pub, enabledGuardian(pub))
	state := models.RiskState{Level: models.RiskDanger, Reasons: []string{"REPEATED"}}

	r.ReportMessage(Evaluation{
		Sender:   "X",
		State:    state,
		Critical: []string{SignalRepeat},
		Repeat:   models.RepeatResult{IsRepeat: true, Count: 3, ShouldEscalate: true, ShouldNotify: true},
	})
	r.ReportMessage(Evaluation{
		Sender:   "X",
		State:    state,
		Critical: []string{SignalRepeat},
		Repeat:   models.RepeatResult{IsRepeat: true, Count: 4, ShouldEscalate: true},
	})
	r.Wait()

	alerts := pub.Alerts()
	require.Len(t, alerts, 1, "suppressed repeat sends no alert at all")
	assert.Equal(t, models.AlertRepeatedScam, alerts[0].Kind)
	assert.Contains(t, alerts[0].Message, "received 3 similar")
}

func TestReporterSuppressedRepeatStillAlertsOtherSignals(t *testing.T) {
	pub := &recordingPublisher{}
	r, _ := newTestReporter(nil, pub, enabledGuardian(pub))

	r.ReportMessage(Evaluation{
		Sender:   "X",
		Body:     "Install AnyDesk now",
		Category: "Remote Access Scam",
		State:    models.RiskState{Level: models.RiskDanger, Reasons: []string{"CRITICAL: remote access"}},
		Critical: []string{SignalRemoteAccess, SignalRepeat},
		Repeat:   models.RepeatResult{IsRepeat: true, Count: 4, ShouldEscalate: true},
	})
	r.Wait()

	alerts := pub.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertDanger, alerts[0].Kind)
	assert.Equal(t, "Risk Detected: Remote Access Scam", alerts[0].Title)
	assert.Equal(t, []models.EventType{
		models.EventScamBlocked,
		models.EventRemoteAccessDetected,
		models.EventRepeatedScamAttempt,
	}, pub.EventTypes())
}

func TestOnlyRepeat(t *testing.T) {
	assert.True(t, onlyRepeat([]string{SignalRepeat}))
	assert.False(t, onlyRepeat([]string{SignalRemoteAccess, SignalRepeat}))
	assert.False(t, onlyRepeat(nil))
}

func TestReporterCall(t *testing.T) {
	events := &memEvents{}
	r, h := newTestReporter(events, nil, nil)

	r.ReportCall("9876543210")
	r.Wait()

	calls := h.List(models.ChannelCall)
	require.Len(t, calls, 1)
	assert.Equal(t, models.RiskCaution, calls[0].RiskLevel)
	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventSuspiciousCall, events.events[0].Type)
}

func TestReporterStoreFailureIsSwallowed(t *testing.T) {
	events := &memEvents{err: errStoreDown}
	r, h := newTestReporter(events, nil, nil)
	r.ReportMessage(Evaluation{Sender: "A", State: models.RiskState{Level: models.RiskDanger}})
	r.Wait()
	assert.Equal(t, 1, h.Len())
}

func TestWeeklySummary(t *testing.T) {
	clock := newFakeClock()
	events := &memEvents{}
	now := clock.Now()
	add := func(typ models.EventType, level models.RiskLevel, age time.Duration) {
		events.events = append(events.events, &models.RiskEvent{Type: typ, RiskLevel: level, CreatedAt: now.Add(-age)})
	}
	add(models.EventScamBlocked, models.RiskDanger, time.Hour)
	add(models.EventScamBlocked, models.RiskDanger, 2*time.Hour)
	add(models.EventScamWarning, models.RiskCaution, 3*time.Hour)
	add(models.EventSuspiciousCall, models.RiskCaution, 24*time.Hour)
	add(models.EventRemoteAccessDetected, models.RiskDanger, time.Hour)
	add(models.EventScamBlocked, models.RiskDanger, 8*24*time.Hour)

	pub := &recordingPublisher{}
	g := NewWeeklySummaryGenerator(events, enabledGuardian(pub), logger.NewNop())
	g.now = clock.Now

	s, err := g.GenerateAndSend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.ScamMessagesBlocked)
	assert.Equal(t, 1, s.ScamWarnings)
	assert.Equal(t, 1, s.SuspiciousCalls)
	assert.Equal(t, 1, s.RemoteAccessAttempts)
	assert.Equal(t, 3, s.CriticalEvents)
	assert.Equal(t, 5, s.TotalEvents)

	alerts := pub.Alerts()
	require.Len(t, alerts, 1)
	text := alerts[0].Message
	assert.Contains(t, text, "Weekly Safety Report\nMar 03 to Mar 10")
	assert.Contains(t, text, "- 2 scam message(s) blocked")
	assert.Contains(t, text, "- 1 remote access attempt(s) blocked")
	assert.Contains(t, text, "3 critical threat(s) blocked")
	assert.NotContains(t, text, "fake bank")
}

func TestWeeklySummaryQuietWeek(t *testing.T) {
	g := NewWeeklySummaryGenerator(&memEvents{}, nil, logger.NewNop())
	s, err := g.GenerateAndSend(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s.TotalEvents)
	assert.Contains(t, g.Format(s), "No scam attempts detected this week")
}

func TestWeeklySummaryCountError(t *testing.T) {
	g := NewWeeklySummaryGenerator(&memEvents{err: errStoreDown}, nil, logger.NewNop())
	_, err := g.Generate(context.Background())
	assert.ErrorIs(t, err, errStoreDown)
}
