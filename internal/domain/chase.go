package domain

import (
	"fmt"
	"time"
)

// ChaseType represents the category of outstanding work being chased
type ChaseType string

const (
	ChaseTypeAuthorizationRequest ChaseType = "authorization_request"
	ChaseTypeClientDocument       ChaseType = "client_document"
	ChaseTypePostAdvice           ChaseType = "post_advice"
)

// ChaseStatus represents the lifecycle status of a chase item
type ChaseStatus string

const (
	ChaseStatusPending      ChaseStatus = "pending"
	ChaseStatusSent         ChaseStatus = "sent"
	ChaseStatusAcknowledged ChaseStatus = "acknowledged"
	ChaseStatusOverdue      ChaseStatus = "overdue"
)

// ValueTier represents the relative value of the client behind a chase item
type ValueTier string

const (
	ValueTierLow    ValueTier = "low"
	ValueTierMedium ValueTier = "medium"
	ValueTierHigh   ValueTier = "high"
)

// ChaseItem represents an outstanding item an adviser firm is waiting on
type ChaseItem struct {
	ID             string
	FirmID         string
	ClientRef      string
	Type           ChaseType
	Status         ChaseStatus
	ValueTier      ValueTier
	ChaseCount     int
	ProviderName   string
	Subject        string
	Blocking       bool
	CreatedAt      time.Time
	DueAt          *time.Time
	LastChasedAt   *time.Time
	AcknowledgedAt *time.Time
}

// NewChaseItem creates a new ChaseItem in the pending state
func NewChaseItem(
	id, firmID, clientRef string,
	chaseType ChaseType,
	valueTier ValueTier,
	providerName, subject string,
	blocking bool,
	createdAt time.Time,
	dueAt *time.Time,
) *ChaseItem {
	return &ChaseItem{
		ID:           id,
		FirmID:       firmID,
		ClientRef:    clientRef,
		Type:         chaseType,
		Status:       ChaseStatusPending,
		ValueTier:    valueTier,
		ChaseCount:   0,
		ProviderName: providerName,
		Subject:      subject,
		Blocking:     blocking,
		CreatedAt:    createdAt,
		DueAt:        dueAt,
	}
}

// EffectiveStatus derives the status at the given instant. An item whose due
// date has passed reads as overdue while it is still pending or sent; the
// stored status is never the source of truth for overdue.
func (c *ChaseItem) EffectiveStatus(now time.Time) ChaseStatus {
	if c.Status == ChaseStatusAcknowledged {
		return ChaseStatusAcknowledged
	}
	if c.DueAt != nil && now.After(*c.DueAt) {
		return ChaseStatusOverdue
	}
	if c.Status == ChaseStatusOverdue {
		// Stored overdue is a cache of the derivation; without a past due
		// date the underlying state is sent or pending.
		if c.ChaseCount > 0 {
			return ChaseStatusSent
		}
		return ChaseStatusPending
	}
	return c.Status
}

// IsOpen reports whether the item still needs chasing at the given instant
func (c *ChaseItem) IsOpen(now time.Time) bool {
	return c.EffectiveStatus(now) != ChaseStatusAcknowledged
}

// DaysOverdue returns whole days elapsed since the due date, zero if the item
// is not overdue. Days keep counting from the original due date even after
// the item has been re-chased.
func (c *ChaseItem) DaysOverdue(now time.Time) int {
	if c.DueAt == nil || !now.After(*c.DueAt) {
		return 0
	}
	return int(now.Sub(*c.DueAt).Hours() / 24)
}

// DaysSinceLastChase returns whole days since the last chase was recorded,
// and false if the item has never been chased
func (c *ChaseItem) DaysSinceLastChase(now time.Time) (int, bool) {
	if c.LastChasedAt == nil {
		return 0, false
	}
	return int(now.Sub(*c.LastChasedAt).Hours() / 24), true
}

// RecordChase applies a chase action: the item moves to sent, the chase count
// increments and the last chased timestamp is set. Acknowledged items reject
// the transition.
func (c *ChaseItem) RecordChase(now time.Time) error {
	if c.Status == ChaseStatusAcknowledged {
		return ErrChaseAcknowledged
	}
	c.Status = ChaseStatusSent
	c.ChaseCount++
	c.LastChasedAt = &now
	return nil
}

// Acknowledge moves a sent item to the terminal acknowledged state
func (c *ChaseItem) Acknowledge(now time.Time) error {
	if c.Status == ChaseStatusAcknowledged {
		return ErrChaseAcknowledged
	}
	// Stored overdue with at least one chase behind it is a sent item
	// wearing its derived status.
	sent := c.Status == ChaseStatusSent || (c.Status == ChaseStatusOverdue && c.ChaseCount > 0)
	if !sent {
		return ErrAcknowledgeNotSent
	}
	c.Status = ChaseStatusAcknowledged
	c.AcknowledgedAt = &now
	return nil
}

// ValidateChaseItem validates a ChaseItem instance
func ValidateChaseItem(c *ChaseItem) error {
	if c == nil {
		return fmt.Errorf("chase item cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("chase item ID is required")
	}

	if c.FirmID == "" {
		return fmt.Errorf("chase item FirmID is required")
	}

	if c.ClientRef == "" {
		return fmt.Errorf("chase item ClientRef is required")
	}

	if !isValidChaseType(c.Type) {
		return fmt.Errorf("chase item Type is invalid: %s", c.Type)
	}

	if !isValidChaseStatus(c.Status) {
		return fmt.Errorf("chase item Status is invalid: %s", c.Status)
	}

	if !isValidValueTier(c.ValueTier) {
		return fmt.Errorf("chase item ValueTier is invalid: %s", c.ValueTier)
	}

	if c.ChaseCount < 0 {
		return fmt.Errorf("chase item ChaseCount cannot be negative")
	}

	return nil
}

// isValidChaseType checks if a ChaseType is valid
func isValidChaseType(t ChaseType) bool {
	switch t {
	case ChaseTypeAuthorizationRequest, ChaseTypeClientDocument, ChaseTypePostAdvice:
		return true
	}
	return false
}

// isValidChaseStatus checks if a ChaseStatus is valid
func isValidChaseStatus(s ChaseStatus) bool {
	switch s {
	case ChaseStatusPending, ChaseStatusSent, ChaseStatusAcknowledged, ChaseStatusOverdue:
		return true
	}
	return false
}

// isValidValueTier checks if a ValueTier is valid
func isValidValueTier(v ValueTier) bool {
	switch v {
	case ValueTierLow, ValueTierMedium, ValueTierHigh:
		return true
	}
	return false
}
