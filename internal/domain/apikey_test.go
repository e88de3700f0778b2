package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAPIKey() *APIKey {
	return &APIKey{
		ID:        "key1",
		FirmID:    "firm1",
		Name:      "Test Key",
		KeyHash:   "hash123",
		CreatedAt: time.Now(),
	}
}

func TestValidateAPIKey(t *testing.T) {
	require.NoError(t, ValidateAPIKey(validAPIKey()))

	require.Error(t, ValidateAPIKey(nil))

	tests := []struct {
		name   string
		mutate func(*APIKey)
		errMsg string
	}{
		{"missing ID", func(k *APIKey) { k.ID = "" }, "ID"},
		{"missing FirmID", func(k *APIKey) { k.FirmID = "" }, "FirmID"},
		{"missing Name", func(k *APIKey) { k.Name = "" }, "Name"},
		{"missing KeyHash", func(k *APIKey) { k.KeyHash = "" }, "KeyHash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := validAPIKey()
			tt.mutate(key)

			err := ValidateAPIKey(key)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestAPIKeyIsRevoked(t *testing.T) {
	key := validAPIKey()
	assert.False(t, key.IsRevoked())

	now := time.Now()
	key.RevokedAt = &now
	assert.True(t, key.IsRevoked())
}
