package streaming

import (
	"context"

	"scamguard/internal/domain/models"
)

// Publisher implements services.AlertPublisher and services.EventPublisher
// on top of the EventBus and the WebSocket hub. Either may be nil.
type Publisher struct {
	eventBus *EventBus
	wsHub    *WebSocketHub
}

// NewPublisher creates a new publisher adapter
func NewPublisher(eventBus *EventBus, wsHub *WebSocketHub) *Publisher {
	return &Publisher{
		eventBus: eventBus,
		wsHub:    wsHub,
	}
}

// PublishGuardianAlert delivers an alert to NATS, local subscribers and WebSocket clients
func (p *Publisher) PublishGuardianAlert(ctx context.Context, alert *models.GuardianAlert) error {
	p.publish(ctx, NewAlertMessage(alert))
	return nil
}

// PublishRiskEvent delivers an audit event to NATS, local subscribers and WebSocket clients
func (p *Publisher) PublishRiskEvent(ctx context.Context, e *models.RiskEvent) error {
	p.publish(ctx, NewRiskEventMessage(e))
	return nil
}

func (p *Publisher) publish(ctx context.Context, msg *Message) {
	if p.eventBus != nil {
		p.eventBus.Publish(ctx, msg)
	}
	if p.wsHub != nil {
		p.wsHub.Broadcast(msg)
	}
}
