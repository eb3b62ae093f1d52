package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	now := time.Now()
	s := NewSession("s1", "u1", "  My symptoms  ", now)

	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, "My symptoms", s.Title)
	assert.True(t, s.OwnedBy("u1"))
	assert.False(t, s.OwnedBy("u2"))
	assert.False(t, s.OwnedBy(""))
}

func TestValidateSession(t *testing.T) {
	tests := []struct {
		name    string
		session *Session
		errMsg  string
	}{
		{"valid", &Session{ID: "s1", UserID: "u1"}, ""},
		{"nil", nil, "session cannot be nil"},
		{"missing ID", &Session{UserID: "u1"}, "session ID is required"},
		{"missing user", &Session{ID: "s1"}, "session UserID is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSession(tt.session)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestHeuristicTitle(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"too short", "Hi there", DefaultSessionTitle},
		{"empty", "   ", DefaultSessionTitle},
		{"cut at period", "My legs feel weak lately. What could it be?", "My legs feel weak lately..."},
		{"cut at question mark", "Is fatigue common with MS? I am always tired", "Is fatigue common with MS..."},
		{"whole short sentence", "Numbness in my left arm", "Numbness in my left arm"},
		{"truncated at fifty", "I have been experiencing tingling in both of my hands for three weeks now", "I have been experiencing tingling in both of my ha..."},
		{"first sentence too short", "Hello. I have numbness in my arm", DefaultSessionTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HeuristicTitle(tt.message))
		})
	}
}

func TestBucketFor(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 5, 15, 14, 30, 0, 0, loc)
	startOfToday := time.Date(2024, 5, 15, 0, 0, 0, 0, loc)

	tests := []struct {
		name    string
		created time.Time
		want    RecencyBucket
	}{
		{"just now", now, BucketToday},
		{"midnight today", startOfToday, BucketToday},
		{"future", now.Add(time.Hour), BucketToday},
		{"one ns before midnight", startOfToday.Add(-time.Nanosecond), BucketThisWeek},
		{"six days before midnight", startOfToday.AddDate(0, 0, -6), BucketThisWeek},
		{"just past the week", startOfToday.AddDate(0, 0, -6).Add(-time.Second), BucketThisMonth},
		{"29 days before midnight", startOfToday.AddDate(0, 0, -29), BucketThisMonth},
		{"just past the month", startOfToday.AddDate(0, 0, -29).Add(-time.Second), BucketOlder},
		{"last year", now.AddDate(-1, 0, 0), BucketOlder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketFor(tt.created, now))
		})
	}
}

func TestBucketFor_UsesLocationOfNow(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	now := time.Date(2024, 5, 15, 8, 0, 0, 0, loc)
	// 23:00 UTC on May 14 is 09:00 May 15 in UTC+10, which is after now but still today.
	created := time.Date(2024, 5, 14, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, BucketToday, BucketFor(created, now))
}

func TestGroupSessionsByRecency_PartitionsEverySession(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	var sessions []*Session
	for i := 0; i < 90; i++ {
		sessions = append(sessions, &Session{
			ID:        fmt.Sprintf("s%02d", i),
			UserID:    "u1",
			CreatedAt: now.Add(-time.Duration(i) * 13 * time.Hour),
		})
	}

	groups := GroupSessionsByRecency(sessions, now)
	assert.Equal(t, len(sessions), groups.Total())

	seen := map[string]RecencyBucket{}
	check := func(bucket RecencyBucket, list []*Session) {
		for _, s := range list {
			_, dup := seen[s.ID]
			require.False(t, dup, "session %s in more than one bucket", s.ID)
			seen[s.ID] = bucket
			assert.Equal(t, bucket, BucketFor(s.CreatedAt, now))
		}
	}
	check(BucketToday, groups.Today)
	check(BucketThisWeek, groups.ThisWeek)
	check(BucketThisMonth, groups.ThisMonth)
	check(BucketOlder, groups.Older)
	assert.Len(t, seen, len(sessions))

	again := GroupSessionsByRecency(sessions, now)
	assert.Equal(t, groups, again)
}

func TestGroupSessionsByRecency_NewestFirst(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	older := &Session{ID: "a", CreatedAt: now.Add(-2 * time.Hour)}
	newer := &Session{ID: "b", CreatedAt: now.Add(-1 * time.Hour)}
	tieA := &Session{ID: "c", CreatedAt: now.Add(-3 * time.Hour)}
	tieB := &Session{ID: "d", CreatedAt: now.Add(-3 * time.Hour)}

	groups := GroupSessionsByRecency([]*Session{older, tieB, newer, tieA}, now)
	require.Len(t, groups.Today, 4)
	assert.Equal(t, []string{"b", "a", "c", "d"}, []string{
		groups.Today[0].ID, groups.Today[1].ID, groups.Today[2].ID, groups.Today[3].ID,
	})
}

func TestGroupSessionsByRecency_EmptyBucketsAreNonNil(t *testing.T) {
	groups := GroupSessionsByRecency(nil, time.Now())
	assert.NotNil(t, groups.Today)
	assert.NotNil(t, groups.ThisWeek)
	assert.NotNil(t, groups.ThisMonth)
	assert.NotNil(t, groups.Older)
	assert.Zero(t, groups.Total())
}
