package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 10, 9, 0, 0, 123456789, time.UTC)

	encoded := EncodeCursor("item-42", createdAt)
	require.NotEmpty(t, encoded)

	cursor, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "item-42", cursor.LastID)
	assert.True(t, createdAt.Equal(cursor.Timestamp))
}

func TestEncodeCursorEmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursorEmpty(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeCursorInvalid(t *testing.T) {
	cases := map[string]string{
		"not base64":    "!!!",
		"no separator":  base64.URLEncoding.EncodeToString([]byte("item-42")),
		"missing id":    base64.URLEncoding.EncodeToString([]byte("|2026-03-10T09:00:00Z")),
		"bad timestamp": base64.URLEncoding.EncodeToString([]byte("item-42|yesterday")),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCursor(raw)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

func TestDecodeCursorStdEncodingFallback(t *testing.T) {
	raw := "item-7|2026-03-10T09:00:00Z"
	encoded := base64.StdEncoding.EncodeToString([]byte(raw))

	cursor, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "item-7", cursor.LastID)
}
