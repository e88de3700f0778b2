// Package pagination implements the opaque keyset cursors used by list
// endpoints. A cursor pins the (created_at, id) position of the last item on
// the previous page so pages stay stable while new chases arrive.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidCursor is returned when a cursor cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor is the decoded keyset position of the last item already served.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// EncodeCursor packs a keyset position into an opaque URL-safe string.
func EncodeCursor(lastID string, createdAt time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := fmt.Sprintf("%s|%s", lastID, createdAt.UTC().Format(time.RFC3339Nano))
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor unpacks a cursor produced by EncodeCursor. An empty cursor
// decodes to nil, meaning "first page".
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		// Older clients may still hold std-encoded cursors.
		raw, err = base64.StdEncoding.DecodeString(cursor)
		if err != nil {
			return nil, ErrInvalidCursor
		}
	}

	id, stamp, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	createdAt, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: id, Timestamp: createdAt}, nil
}
