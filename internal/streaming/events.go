package streaming

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"scamguard/internal/domain/models"
)

// MessageType identifies what a stream message carries
type MessageType string

const (
	MessageRiskEvent     MessageType = "risk_event"
	MessageGuardianAlert MessageType = "guardian_alert"
)

// Message is the envelope delivered to NATS consumers and WebSocket clients
type Message struct {
	ID        string                `json:"id"`
	Type      MessageType           `json:"type"`
	Timestamp time.Time             `json:"timestamp"`
	RiskLevel models.RiskLevel      `json:"risk_level"`
	Event     *models.RiskEvent     `json:"event,omitempty"`
	Alert     *models.GuardianAlert `json:"alert,omitempty"`
}

// NewRiskEventMessage wraps an audit event
func NewRiskEventMessage(e *models.RiskEvent) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      MessageRiskEvent,
		Timestamp: time.Now().UTC(),
		RiskLevel: e.RiskLevel,
		Event:     e,
	}
}

// NewAlertMessage wraps a guardian alert
func NewAlertMessage(a *models.GuardianAlert) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      MessageGuardianAlert,
		Timestamp: time.Now().UTC(),
		RiskLevel: a.RiskLevel,
		Alert:     a,
	}
}

// Subscription filters the messages a client receives
type Subscription struct {
	// Messages below this level are skipped (SAFE = everything)
	MinLevel models.RiskLevel `json:"min_level"`

	// Filter by message type (empty = all)
	Types []MessageType `json:"types,omitempty"`
}

// Matches checks if a message passes the subscription filters
func (s *Subscription) Matches(m *Message) bool {
	if m.RiskLevel < s.MinLevel {
		return false
	}
	if len(s.Types) == 0 {
		return true
	}
	for _, t := range s.Types {
		if t == m.Type {
			return true
		}
	}
	return false
}

// ParseSubscription reads ?min_level=CAUTION&type=guardian_alert style filters
func ParseSubscription(q url.Values) (*Subscription, error) {
	sub := &Subscription{}
	if raw := q.Get("min_level"); raw != "" {
		lvl, err := models.ParseRiskLevel(raw)
		if err != nil {
			return nil, err
		}
		sub.MinLevel = lvl
	}
	for _, raw := range q["type"] {
		switch t := MessageType(strings.ToLower(raw)); t {
		case MessageRiskEvent, MessageGuardianAlert:
			sub.Types = append(sub.Types, t)
		default:
			return nil, fmt.Errorf("%w: unknown message type %q", models.ErrInvalidInput, raw)
		}
	}
	return sub, nil
}

// eventSubject returns <prefix>.<level>, e.g. scamguard.events.danger
func eventSubject(prefix string, level models.RiskLevel) string {
	return prefix + "." + strings.ToLower(level.String())
}
