package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Channel is the delivery channel a blocked item came through
type Channel string

const (
	ChannelMessage Channel = "MESSAGE"
	ChannelCall    Channel = "CALL"
)

// ParseChannel parses a channel name, case-insensitive
func ParseChannel(s string) (Channel, error) {
	switch Channel(strings.ToUpper(strings.TrimSpace(s))) {
	case ChannelMessage:
		return ChannelMessage, nil
	case ChannelCall:
		return ChannelCall, nil
	}
	return "", fmt.Errorf("%w: unknown channel %q", ErrInvalidInput, s)
}

// BlockedItem is one entry of the blocked/warned history shown to the user
type BlockedItem struct {
	ID        uuid.UUID `json:"id"`
	Channel   Channel   `json:"channel"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
	RiskLevel RiskLevel `json:"risk_level"`
}

// CallSuspicionRecord stamps the moment a suspicious call was seen
type CallSuspicionRecord struct {
	PhoneNumber string    `json:"phone_number"`
	DetectedAt  time.Time `json:"detected_at"`
}

// PatternFingerprint groups near-identical scam attempts by sender and keywords
type PatternFingerprint struct {
	Hash      string    `json:"hash"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Count     int       `json:"count"`
	Sender    string    `json:"sender"`
	Keywords  []string  `json:"keywords"`
	// Notified records that the guardian was already told about this window
	Notified bool `json:"notified,omitempty"`
}

// RepeatResult is returned by the repeat pattern tracker for every message
type RepeatResult struct {
	IsRepeat       bool   `json:"is_repeat"`
	Count          int    `json:"count"`
	ShouldEscalate bool   `json:"should_escalate"`
	ShouldNotify   bool   `json:"should_notify"`
	Message        string `json:"message,omitempty"`
}

// LearnedKind distinguishes single keywords from multi-word phrases
type LearnedKind string

const (
	LearnedKeyword LearnedKind = "keyword"
	LearnedPhrase  LearnedKind = "phrase"
)

// LearnedPattern is a keyword or phrase taken from a user-confirmed scam
type LearnedPattern struct {
	Value  string      `json:"value"`
	Kind   LearnedKind `json:"kind"`
	Source string      `json:"source"`
}

// LearnedMatch is the learned-pattern detector result
type LearnedMatch struct {
	Keywords   []string `json:"keywords,omitempty"`
	Patterns   []string `json:"patterns,omitempty"`
	Confidence float64  `json:"confidence"`
}

// HasMatch reports whether any learned keyword or pattern matched
func (m LearnedMatch) HasMatch() bool {
	return len(m.Keywords) > 0 || len(m.Patterns) > 0
}

// TrustedContact is an entry of the user's contact list
type TrustedContact struct {
	PhoneNumber string    `json:"phone_number"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventType labels audit records
type EventType string

const (
	EventScamBlocked          EventType = "SCAM_BLOCKED"
	EventScamWarning          EventType = "SCAM_WARNING"
	EventSuspiciousCall       EventType = "SUSPICIOUS_CALL"
	EventCallOTPCorrelation   EventType = "CALL_OTP_CORRELATION"
	EventRemoteAccessDetected EventType = "REMOTE_ACCESS_DETECTED"
	EventRepeatedScamAttempt  EventType = "REPEATED_SCAM_ATTEMPT"
	EventFakeBankDetected     EventType = "FAKE_BANK_DETECTED"
)

// RiskEvent is the audit record persisted for every non-SAFE outcome
type RiskEvent struct {
	ID        uuid.UUID       `json:"id"`
	Type      EventType       `json:"type"`
	Sender    string          `json:"sender"`
	Details   string          `json:"details"`
	Category  string          `json:"category,omitempty"`
	RiskLevel RiskLevel       `json:"risk_level"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// WeeklySummary aggregates a week of audit events for the guardian
type WeeklySummary struct {
	WeekStart            time.Time `json:"week_start"`
	WeekEnd              time.Time `json:"week_end"`
	ScamMessagesBlocked  int       `json:"scam_messages_blocked"`
	ScamWarnings         int       `json:"scam_warnings"`
	SuspiciousCalls      int       `json:"suspicious_calls"`
	CallOTPCorrelations  int       `json:"call_otp_correlations"`
	RemoteAccessAttempts int       `json:"remote_access_attempts"`
	RepeatedScams        int       `json:"repeated_scams"`
	FakeBankDetections   int       `json:"fake_bank_detections"`
	CriticalEvents       int       `json:"critical_events"`
	TotalEvents          int       `json:"total_events"`
}

// AlertKind classifies guardian alerts
type AlertKind string

const (
	AlertDanger        AlertKind = "danger"
	AlertRepeatedScam  AlertKind = "repeated_scam"
	AlertWeeklySummary AlertKind = "weekly_summary"
)

// GuardianAlert is a short human-readable notice delivered to the guardian
type GuardianAlert struct {
	ID        uuid.UUID `json:"id"`
	Kind      AlertKind `json:"kind"`
	Recipient string    `json:"recipient,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Sender    string    `json:"sender,omitempty"`
	RiskLevel RiskLevel `json:"risk_level"`
	CreatedAt time.Time `json:"created_at"`
}

// EventCount is one row of an audit aggregation
type EventCount struct {
	Type      EventType `json:"type"`
	RiskLevel RiskLevel `json:"risk_level"`
	Count     int       `json:"count"`
}
