package amqp

import (
	"encoding/json"
	"time"
)

// Rule mutation operations carried by change messages.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// RuleChangedMessage announces one rule mutation. It carries only the ID,
// operation and version; consumers fetch the current rule set themselves, so
// stale or duplicated deliveries are harmless.
type RuleChangedMessage struct {
	RuleID    string    `json:"rule_id"`
	Op        string    `json:"op"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRuleChangedMessage creates a change message stamped with the current time.
func NewRuleChangedMessage(ruleID, op string, version int64) *RuleChangedMessage {
	return &RuleChangedMessage{
		RuleID:    ruleID,
		Op:        op,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RuleChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RuleChangedMessageFromJSON creates a message from JSON bytes
func RuleChangedMessageFromJSON(data []byte) (*RuleChangedMessage, error) {
	var msg RuleChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
