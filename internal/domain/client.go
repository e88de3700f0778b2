package domain

import (
	"fmt"
	"time"
)

// Client represents a record in the firm's client book. Chase items refer to
// clients by ClientRef; the book backs the insight tools.
type Client struct {
	ID               string
	FirmID           string
	Ref              string
	Name             string
	Email            string
	ValueTier        ValueTier
	DateOfBirth      *time.Time
	LastReviewAt     *time.Time
	NextReviewDue    *time.Time
	ISAUsed          float64
	ISAAllowance     float64
	PensionUsed      float64
	PensionAllowance float64
	CashBalance      float64
	CreatedAt        time.Time
}

// Age returns the client's age in whole years, and false when the date of
// birth is unknown
func (c *Client) Age(now time.Time) (int, bool) {
	if c.DateOfBirth == nil {
		return 0, false
	}
	years := now.Year() - c.DateOfBirth.Year()
	anniversary := c.DateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years, true
}

// ISAHeadroom returns the unused portion of the client's ISA allowance
func (c *Client) ISAHeadroom() float64 {
	if c.ISAAllowance <= c.ISAUsed {
		return 0
	}
	return c.ISAAllowance - c.ISAUsed
}

// PensionHeadroom returns the unused portion of the client's pension allowance
func (c *Client) PensionHeadroom() float64 {
	if c.PensionAllowance <= c.PensionUsed {
		return 0
	}
	return c.PensionAllowance - c.PensionUsed
}

// ReviewDueWithin reports whether the client's next review falls inside the
// given window
func (c *Client) ReviewDueWithin(now time.Time, window time.Duration) bool {
	if c.NextReviewDue == nil {
		return false
	}
	return !c.NextReviewDue.After(now.Add(window))
}

// ValidateClient validates a Client instance
func ValidateClient(c *Client) error {
	if c == nil {
		return fmt.Errorf("client cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("client ID is required")
	}

	if c.FirmID == "" {
		return fmt.Errorf("client FirmID is required")
	}

	if c.Ref == "" {
		return fmt.Errorf("client Ref is required")
	}

	if !isValidValueTier(c.ValueTier) {
		return fmt.Errorf("client ValueTier is invalid: %s", c.ValueTier)
	}

	return nil
}
