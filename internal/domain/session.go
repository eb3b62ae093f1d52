package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultSessionTitle = "New Chat Session"
	maxTitleRunes       = 50
	minTitleRunes       = 10
)

// Session is a conversation thread owned by one user. It is never mutated
// after creation; messages are appended alongside it.
type Session struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
}

// NewSession creates a new Session instance
func NewSession(id, userID, title string, createdAt time.Time) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		CreatedAt: createdAt,
	}
}

// ValidateSession validates a Session instance
func ValidateSession(s *Session) error {
	if s == nil {
		return fmt.Errorf("session cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	if s.UserID == "" {
		return fmt.Errorf("session UserID is required")
	}

	if utf8.RuneCountInString(s.Title) > 200 {
		return fmt.Errorf("session Title must be at most 200 characters")
	}

	return nil
}

// OwnedBy reports whether userID owns the session.
func (s *Session) OwnedBy(userID string) bool {
	return s != nil && userID != "" && s.UserID == userID
}

// HeuristicTitle derives a display title from the first message of a
// conversation: the first sentence within 50 characters, or a default when
// the message is too short to be meaningful.
func HeuristicTitle(message string) string {
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) < minTitleRunes {
		return DefaultSessionTitle
	}

	title := message
	if runes := []rune(message); len(runes) > maxTitleRunes {
		title = string(runes[:maxTitleRunes])
	}
	if i := strings.Index(title, "."); i >= 0 {
		title = title[:i]
	}
	if i := strings.Index(title, "?"); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(title)

	if utf8.RuneCountInString(title) < minTitleRunes {
		return DefaultSessionTitle
	}
	if len(message) > len(title) {
		title += "..."
	}
	return title
}

// RecencyBucket names a mutually exclusive session age group.
type RecencyBucket string

const (
	BucketToday     RecencyBucket = "today"
	BucketThisWeek  RecencyBucket = "this_week"
	BucketThisMonth RecencyBucket = "this_month"
	BucketOlder     RecencyBucket = "older"
)

// SessionGroups partitions a user's sessions by creation time.
type SessionGroups struct {
	Today     []*Session
	ThisWeek  []*Session
	ThisMonth []*Session
	Older     []*Session
}

// Total returns the number of sessions across all buckets.
func (g SessionGroups) Total() int {
	return len(g.Today) + len(g.ThisWeek) + len(g.ThisMonth) + len(g.Older)
}

// BucketFor returns the recency bucket of a session created at createdAt,
// evaluated against now. Buckets are anchored to local midnight of now:
// today, the six days before, the 23 days before that, and everything older.
// Timestamps after now count as today.
func BucketFor(createdAt, now time.Time) RecencyBucket {
	createdAt = createdAt.In(now.Location())
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case !createdAt.Before(startOfToday):
		return BucketToday
	case !createdAt.Before(startOfToday.AddDate(0, 0, -6)):
		return BucketThisWeek
	case !createdAt.Before(startOfToday.AddDate(0, 0, -29)):
		return BucketThisMonth
	default:
		return BucketOlder
	}
}

// GroupSessionsByRecency assigns every session to exactly one bucket. Within a
// bucket sessions are ordered newest first, ties by ID.
func GroupSessionsByRecency(sessions []*Session, now time.Time) SessionGroups {
	sorted := make([]*Session, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	groups := SessionGroups{
		Today:     []*Session{},
		ThisWeek:  []*Session{},
		ThisMonth: []*Session{},
		Older:     []*Session{},
	}
	for _, s := range sorted {
		switch BucketFor(s.CreatedAt, now) {
		case BucketToday:
			groups.Today = append(groups.Today, s)
		case BucketThisWeek:
			groups.ThisWeek = append(groups.ThisWeek, s)
		case BucketThisMonth:
			groups.ThisMonth = append(groups.ThisMonth, s)
		default:
			groups.Older = append(groups.Older, s)
		}
	}
	return groups
}
