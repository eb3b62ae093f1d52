// Package pagination implements opaque keyset cursors for newest-first lists.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Cursor points just past the last item of a page: the next page holds items
// strictly older than Timestamp, or equally old with a smaller ID.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// Page is one slice of a newest-first listing.
type Page[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
}

var ErrInvalidCursor = errors.New("invalid cursor format")

// Encode returns the opaque form of a cursor.
func Encode(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := timestamp.UTC().Format(time.RFC3339Nano) + "|" + lastID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses an opaque cursor. An empty string means the first page.
func Decode(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	ts, id, ok := strings.Cut(string(decoded), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: id, Timestamp: timestamp}, nil
}

// ClampLimit applies the default and the upper bound to a requested page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NewPage trims a result fetched with limit+1 rows down to limit and sets the
// cursor for the next page.
func NewPage[T any](items []T, limit int, key func(T) (string, time.Time)) Page[T] {
	page := Page[T]{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
		id, ts := key(page.Items[len(page.Items)-1])
		page.NextCursor = Encode(id, ts)
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page
}
