package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"scamguard/internal/domain/models"
	"scamguard/internal/observability/metrics"
	"scamguard/pkg/logger"
)

// AlertPublisher delivers guardian alerts
type AlertPublisher interface {
	PublishGuardianAlert(ctx context.Context, alert *models.GuardianAlert) error
}

// GuardianConfig configures the guardian contact
type GuardianConfig struct {
	Enabled bool
	Name    string
	Phone   string
}

// GuardianNotifier formats and publishes alerts for the user's guardian
type GuardianNotifier struct {
	publisher AlertPublisher
	cfg       GuardianConfig
	metrics   *metrics.EngineMetrics
	logger    *logger.Logger
	now       func() time.Time
}

// NewGuardianNotifier creates a notifier. A nil publisher only logs.
func NewGuardianNotifier(publisher AlertPublisher, cfg GuardianConfig, m *metrics.EngineMetrics, log *logger.Logger) *GuardianNotifier {
	return &GuardianNotifier{
		publisher: publisher,
		cfg:       cfg,
		metrics:   m,
		logger:    log.WithComponent("guardian-notifier"),
		now:       time.Now,
	}
}

// AlertText renders an alert as the single line sent to the guardian
func AlertText(title, detail string) string {
	return fmt.Sprintf("Scam Guard Alert: %s. %s", title, detail)
}

// NotifyRisk reports a dangerous message
func (n *GuardianNotifier) NotifyRisk(ctx context.Context, sender, riskType, detail string) error {
	return n.send(ctx, &models.GuardianAlert{
		Kind:      models.AlertDanger,
		Title:     "Risk Detected: " + riskType,
		Message:   detail,
		Sender:    sender,
		RiskLevel: models.RiskDanger,
	})
}

// NotifyRepeatedScam reports a campaign that crossed the repeat threshold
func (n *GuardianNotifier) NotifyRepeatedScam(ctx context.Context, sender string, count int) error {
	return n.send(ctx, &models.GuardianAlert{
		Kind:  models.AlertRepeatedScam,
		Title: "Repeated Scam Alert",
		Message: fmt.Sprintf("Your loved one has received %d similar scam messages in the last 24 hours. "+
			"Protection level has been increased automatically.", count),
		Sender:    sender,
		RiskLevel: models.RiskDanger,
	})
}

// SendWeeklySummary delivers the weekly report text
func (n *GuardianNotifier) SendWeeklySummary(ctx context.Context, report string) error {
	return n.send(ctx, &models.GuardianAlert{
		Kind:      models.AlertWeeklySummary,
		Title:     "Weekly Safety Report",
		Message:   report,
		RiskLevel: models.RiskSafe,
	})
}

func (n *GuardianNotifier) send(ctx context.Context, alert *models.GuardianAlert) error {
	if !n.cfg.Enabled {
		n.logger.Debug().Str("kind", string(alert.Kind)).Msg("guardian alerts disabled, skipping")
		return nil
	}
	alert.ID = uuid.New()
	alert.Recipient = n.cfg.Phone
	alert.CreatedAt = n.now().UTC()

	if n.publisher != nil {
		if err := n.publisher.PublishGuardianAlert(ctx, alert); err != nil {
			n.metrics.ObserveAlert(string(alert.Kind), "failed")
			n.logger.Error().Err(err).Str("kind", string(alert.Kind)).Msg("failed to publish guardian alert")
			return fmt.Errorf("failed to publish guardian alert: %w", err)
		}
	}
	n.metrics.ObserveAlert(string(alert.Kind), "sent")
	n.logger.Info().
		Str("kind", string(alert.Kind)).
		Str("sender", alert.Sender).
		Str("title", alert.Title).
		Msg("guardian alert sent")
	return nil
}
