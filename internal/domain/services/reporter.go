package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"scamguard/internal/domain/models"
	"scamguard/internal/domain/services/detection"
	"scamguard/internal/observability/metrics"
	"scamguard/pkg/logger"
)

// EventRecorder persists audit events.
// repository.EventRepository satisfies it.
type EventRecorder interface {
	Insert(ctx context.Context, e *models.RiskEvent) error
}

// EventPublisher fans audit events out to live subscribers
type EventPublisher interface {
	PublishRiskEvent(ctx context.Context, e *models.RiskEvent) error
}

// Evaluation is a finished message evaluation handed to the Reporter
type Evaluation struct {
	Sender   string
	Body     string
	State    models.RiskState
	Category string
	Critical []string
	Repeat   models.RepeatResult
}

// criticalEvents maps critical signals to the audit event they produce
var criticalEvents = map[string]models.EventType{
	SignalCallOTPCorrelation: models.EventCallOTPCorrelation,
	SignalRemoteAccess:       models.EventRemoteAccessDetected,
	SignalFakeBank:           models.EventFakeBankDetected,
	SignalRepeat:             models.EventRepeatedScamAttempt,
}

// Reporter performs the side effects of an evaluation: blocked history,
// audit events and guardian alerts. Slow work runs in the background so the
// caller gets its RiskState without waiting on I/O.
type Reporter struct {
	history   *BlockedHistory
	events    EventRecorder
	publisher EventPublisher
	guardian  *GuardianNotifier
	metrics   *metrics.EngineMetrics
	logger    *logger.Logger
	timeout   time.Duration

	wg sync.WaitGroup
}

// NewReporter creates a reporter; events, publisher and guardian may be nil
func NewReporter(history *BlockedHistory, events EventRecorder, publisher EventPublisher, guardian *GuardianNotifier, m *metrics.EngineMetrics, log *logger.Logger) *Reporter {
	return &Reporter{
		history:   history,
		events:    events,
		publisher: publisher,
		guardian:  guardian,
		metrics:   m,
		logger:    log.WithComponent("reporter"),
		timeout:   5 * time.Second,
	}
}

// ReportMessage records a non-SAFE message and alerts the guardian on DANGER.
// A repeated campaign alerts through its own message, and only when the
// tracker asked for a notification. A suppressed repeat still alerts when
// another critical signal fired on the same message.
func (r *Reporter) ReportMessage(ev Evaluation) {
	if ev.State.Level == models.RiskSafe {
		return
	}

	reason := ev.State.Summary()
	if r.history != nil {
		r.history.Add(models.ChannelMessage, ev.Sender, ev.Body, reason, ev.State.Level)
	}

	eventType := models.EventScamWarning
	if ev.State.Level == models.RiskDanger {
		eventType = models.EventScamBlocked
	}
	events := []*models.RiskEvent{r.newEvent(eventType, ev.Sender, reason, ev.Category, ev.State)}
	for _, sig := range ev.Critical {
		if t, ok := criticalEvents[sig]; ok {
			events = append(events, r.newEvent(t, ev.Sender, reason, ev.Category, ev.State))
		}
	}

	var alert func(ctx context.Context) error
	switch {
	case ev.Repeat.ShouldEscalate && ev.Repeat.ShouldNotify:
		alert = func(ctx context.Context) error {
			return r.guardian.NotifyRepeatedScam(ctx, ev.Sender, ev.Repeat.Count)
		}
	case ev.Repeat.ShouldEscalate && onlyRepeat(ev.Critical):
		// campaign already reported this window
	case ev.State.Level == models.RiskDanger:
		detail := "Message from " + ev.Sender + " was blocked: " + detection.Preview(reason, 160)
		alert = func(ctx context.Context) error {
			return r.guardian.NotifyRisk(ctx, ev.Sender, ev.Category, detail)
		}
	}
	if r.guardian == nil {
		alert = nil
	}

	r.dispatch(events, alert)
}

func onlyRepeat(critical []string) bool {
	for _, sig := range critical {
		if sig != SignalRepeat {
			return false
		}
	}
	return len(critical) > 0
}

// ReportCall records a suspicious incoming call
func (r *Reporter) ReportCall(number string) {
	reason := "Suspicious call from unknown number"
	if r.history != nil {
		r.history.Add(models.ChannelCall, number, "", reason, models.RiskCaution)
	}
	state := models.RiskState{Level: models.RiskCaution, Reasons: []string{reason}}
	r.dispatch([]*models.RiskEvent{r.newEvent(models.EventSuspiciousCall, number, reason, "", state)}, nil)
}

// Wait blocks until background reporting finished
func (r *Reporter) Wait() {
	r.wg.Wait()
}

func (r *Reporter) newEvent(t models.EventType, sender, details, category string, state models.RiskState) *models.RiskEvent {
	meta, _ := json.Marshal(map[string]any{
		"keywords": state.MatchedKeywords,
		"has_code": state.HasCode(),
	})
	return &models.RiskEvent{
		ID:        uuid.New(),
		Type:      t,
		Sender:    sender,
		Details:   details,
		Category:  category,
		RiskLevel: state.Level,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
}

func (r *Reporter) dispatch(events []*models.RiskEvent, alert func(ctx context.Context) error) {
	if r.events == nil && r.publisher == nil && alert == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		for _, e := range events {
			if r.events != nil {
				if err := r.events.Insert(ctx, e); err != nil {
					r.metrics.ObserveStoreError("event.insert")
					r.logger.Warn().Err(err).Str("type", string(e.Type)).Msg("failed to record event")
				}
			}
			if r.publisher != nil {
				if err := r.publisher.PublishRiskEvent(ctx, e); err != nil {
					r.logger.Warn().Err(err).Str("type", string(e.Type)).Msg("failed to publish event")
				}
			}
		}
		if alert != nil {
			if err := alert(ctx); err != nil {
				r.logger.Warn().Err(err).Msg("guardian alert failed")
			}
		}
	}()
}
