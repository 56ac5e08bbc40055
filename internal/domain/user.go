package domain

import "time"

// User represents an application user stored in the database.
type User struct {
	ID             int64
	Email          string
	DisplayName    string
	HashedPassword string
	IsBanned       bool
	CreatedAt      time.Time
	Engagement     Engagement
}

// Engagement holds the per-user state derived from login activity:
// XP, level, streak and the bookkeeping used by the inactivity sweep.
type Engagement struct {
	XP              int
	Level           int
	Streak          int
	LastActive      *time.Time
	LastAbsenceDays int
	DailyMsgSent    bool
	// ReengagementLevel is the highest tier for which a notice went
	// out since the last login. Any login resets it to zero.
	ReengagementLevel    int
	LastReengagementSent *time.Time
}

// NewEngagement returns the state a user starts with before their
// first tracked login.
func NewEngagement() Engagement {
	return Engagement{XP: 0, Level: 1, Streak: 1}
}
