package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/naramuhl/finance-friend-central/internal/core"
)

// SnapshotMessage asks the worker to record the patrimony total of a user for
// one day. A later message for the same day replaces the earlier total.
type SnapshotMessage struct {
	UserID       string    `json:"user_id"`
	SnapshotDate string    `json:"snapshot_date"` // YYYY-MM-DD
	TotalCents   int64     `json:"total_cents"`
	Timestamp    time.Time `json:"timestamp"`
}

var (
	ErrMissingUser = errors.New("snapshot message without user_id")
)

// NewSnapshotMessage creates a snapshot message stamped with the current time
func NewSnapshotMessage(userID string, day core.Date, total core.Money) SnapshotMessage {
	return SnapshotMessage{
		UserID:       userID,
		SnapshotDate: day.String(),
		TotalCents:   total.Cents,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m SnapshotMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Day parses the snapshot date.
func (m SnapshotMessage) Day() (core.Date, error) {
	return core.ParseDate(m.SnapshotDate)
}

// Validate rejects messages the worker cannot apply.
func (m SnapshotMessage) Validate() error {
	if m.UserID == "" {
		return ErrMissingUser
	}
	_, err := m.Day()
	return err
}

// SnapshotMessageFromJSON decodes and validates a message body
func SnapshotMessageFromJSON(data []byte) (*SnapshotMessage, error) {
	var msg SnapshotMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
