package domain

import (
	"fmt"
	"time"
)

// Communication is an audit record of one dispatched chase. It is written by
// the dispatch path, never by scoring.
type Communication struct {
	ID        string    `json:"id"`
	FirmID    string    `json:"firm_id"`
	ChaseID   string    `json:"chase_id"`
	ClientRef string    `json:"client_ref"`
	Channel   Channel   `json:"channel"`
	Priority  Priority  `json:"priority"`
	Message   string    `json:"message"`
	Rationale string    `json:"rationale,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// ValidateCommunication validates a Communication instance
func ValidateCommunication(c *Communication) error {
	if c == nil {
		return fmt.Errorf("communication cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("communication ID is required")
	}

	if c.FirmID == "" {
		return fmt.Errorf("communication FirmID is required")
	}

	if c.ChaseID == "" {
		return fmt.Errorf("communication ChaseID is required")
	}

	if !isValidChannel(c.Channel) {
		return fmt.Errorf("communication Channel is invalid: %s", c.Channel)
	}

	return nil
}

// isValidChannel checks if a Channel is valid
func isValidChannel(ch Channel) bool {
	switch ch {
	case ChannelEmail, ChannelSMS, ChannelPhone:
		return true
	}
	return false
}
