package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RiskLevel is the final classification of a message. Values are ordered so
// that a higher value is always more dangerous.
type RiskLevel int

const (
	RiskSafe RiskLevel = iota
	RiskCaution
	RiskDanger
)

var riskLevelNames = [...]string{"SAFE", "CAUTION", "DANGER"}

// String returns the canonical upper-case name
func (l RiskLevel) String() string {
	if l < RiskSafe || l > RiskDanger {
		return fmt.Sprintf("RiskLevel(%d)", int(l))
	}
	return riskLevelNames[l]
}

// Valid reports whether l is one of the defined levels
func (l RiskLevel) Valid() bool {
	return l >= RiskSafe && l <= RiskDanger
}

// Max returns the more severe of l and other
func (l RiskLevel) Max(other RiskLevel) RiskLevel {
	if other > l {
		return other
	}
	return l
}

// ParseRiskLevel converts a level name (case-insensitive) to a RiskLevel
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SAFE":
		return RiskSafe, nil
	case "CAUTION":
		return RiskCaution, nil
	case "DANGER":
		return RiskDanger, nil
	}
	return RiskSafe, fmt.Errorf("%w: unknown risk level %q", ErrInvalidInput, s)
}

// MarshalJSON encodes the level by name
func (l RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a level name
func (l *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRiskLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// RiskState is the immutable outcome of evaluating one message.
// Reasons keep the order in which signals were evaluated.
type RiskState struct {
	Level           RiskLevel `json:"level"`
	Reasons         []string  `json:"reasons"`
	MatchedKeywords []string  `json:"matched_keywords,omitempty"`
	ExtractedCode   string    `json:"extracted_code,omitempty"`
}

// HasCode reports whether a numeric code was extracted
func (s RiskState) HasCode() bool {
	return s.ExtractedCode != ""
}

// Summary joins reasons into a single line for alerts and audit records
func (s RiskState) Summary() string {
	if len(s.Reasons) == 0 {
		return s.Level.String()
	}
	return strings.Join(s.Reasons, "; ")
}

// Action is what the delivery channel should do with a classified message
type Action string

const (
	ActionDeliver Action = "deliver"
	ActionWarn    Action = "warn"
	ActionBlock   Action = "block"
)

// ActionFor maps a risk level to the delivery action
func ActionFor(level RiskLevel) Action {
	switch level {
	case RiskDanger:
		return ActionBlock
	case RiskCaution:
		return ActionWarn
	default:
		return ActionDeliver
	}
}

// LinkRisk grades a single URL
type LinkRisk int

const (
	LinkRiskLow LinkRisk = iota
	LinkRiskMedium
	LinkRiskHigh
	LinkRiskCritical
)

var linkRiskNames = [...]string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}

func (r LinkRisk) String() string {
	if r < LinkRiskLow || r > LinkRiskCritical {
		return fmt.Sprintf("LinkRisk(%d)", int(r))
	}
	return linkRiskNames[r]
}

// MarshalJSON encodes the link risk by name
func (r LinkRisk) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}
