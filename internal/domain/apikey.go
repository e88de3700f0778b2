package domain

import (
	"fmt"
	"time"
)

// APIKey authenticates a firm's API access. Only the SHA-256 hash of the
// token is stored; the plaintext is shown once at creation.
type APIKey struct {
	ID        string
	FirmID    string
	Name      string
	KeyHash   string
	CreatedAt time.Time
	RevokedAt *time.Time
}

// IsRevoked returns true once the key has been revoked.
func (a *APIKey) IsRevoked() bool {
	return a.RevokedAt != nil
}

// ValidateAPIKey checks that an APIKey has all required fields.
func ValidateAPIKey(a *APIKey) error {
	if a == nil {
		return fmt.Errorf("api key cannot be nil")
	}

	switch {
	case a.ID == "":
		return fmt.Errorf("api key ID is required")
	case a.FirmID == "":
		return fmt.Errorf("api key FirmID is required")
	case a.Name == "":
		return fmt.Errorf("api key Name is required")
	case a.KeyHash == "":
		return fmt.Errorf("api key KeyHash is required")
	}
	return nil
}
