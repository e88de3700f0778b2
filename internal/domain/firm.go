package domain

import (
	"fmt"
	"time"
)

// Firm represents an adviser firm, the tenant in the system
type Firm struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// NewFirm creates a new Firm instance
func NewFirm(id, name string, createdAt time.Time) *Firm {
	return &Firm{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt,
	}
}

// ValidateFirm validates a Firm instance
func ValidateFirm(f *Firm) error {
	if f == nil {
		return fmt.Errorf("firm cannot be nil")
	}

	if f.ID == "" {
		return fmt.Errorf("firm ID is required")
	}

	if f.Name == "" {
		return fmt.Errorf("firm Name is required")
	}

	return nil
}
