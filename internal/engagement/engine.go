// Package engagement implements the user engagement state machine:
// login-time streak/XP/level updates and the periodic inactivity
// sweep that escalates re-engagement notices.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/friendix-ai/engagement-engine/internal/domain"
)

// ErrUserNotFound indicates that no user record exists for the given
// id or email. Callers decide whether that is an error; the engine
// never retries it.
var ErrUserNotFound = errors.New("user not found")

// DailyLoginXP is awarded on the first qualifying login of a UTC
// calendar day.
const DailyLoginXP = 10

// MessageXP is awarded for each chat message the user sends.
const MessageXP = 1

// Clock supplies the current time so tests can control it.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock {
	return ClockFunc(func() time.Time { return time.Now().UTC() })
}

// UserStore defines the persistence operations the engine needs. The
// SQL implementation lives in internal/repository.
type UserStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// UpdateEngagement overwrites the stored engagement state for the
	// user. Last write wins; losing a concurrent XP increment is
	// acceptable here.
	UpdateEngagement(ctx context.Context, id int64, eng domain.Engagement) error
	// MarkDailyNudge sets the daily_msg_sent flag without touching the
	// rest of the engagement state.
	MarkDailyNudge(ctx context.Context, id int64) error
	// MarkReengagement records a delivered notice at the given tier.
	MarkReengagement(ctx context.Context, id int64, tier int, sentAt time.Time) error
	// ForEachUser invokes fn for every user record. An error from fn
	// stops the iteration.
	ForEachUser(ctx context.Context, fn func(*domain.User) error) error
}

// Notifier delivers engagement messages. Rendering and transport are
// external concerns; the engine only decides when to send.
type Notifier interface {
	SendInApp(ctx context.Context, userID int64, text string, at time.Time) error
	SendReengagement(ctx context.Context, user *domain.User, tier int) error
}

// Engine owns the two engagement computations: the login-time update
// and the periodic inactivity sweep.
type Engine struct {
	store    UserStore
	notifier Notifier
	clock    Clock
	log      *slog.Logger
}

// NewEngine constructs an Engine. A nil clock falls back to the
// system clock.
func NewEngine(store UserStore, notifier Notifier, clock Clock, log *slog.Logger) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		store:    store,
		notifier: notifier,
		clock:    clock,
		log:      log,
	}
}

// LoginResult reports what a login-time update did, for client
// display.
type LoginResult struct {
	XPAwarded   int
	DailyBonus  bool
	Streak      int
	Level       int
	AbsenceDays int
}

// calendarDayDiff returns the whole-day difference between the UTC
// calendar dates of now and then. Same UTC date yields zero.
func calendarDayDiff(now, then time.Time) int {
	nowDate := now.UTC().Truncate(24 * time.Hour)
	thenDate := then.UTC().Truncate(24 * time.Hour)
	return int(nowDate.Sub(thenDate) / (24 * time.Hour))
}

// NextLoginState derives the engagement state a login at now produces
// from the current state. It is pure: persistence happens in
// ApplyLogin. The returned int is the XP awarded, zero only for repeat
// same-day logins.
func NextLoginState(eng domain.Engagement, now time.Time) (domain.Engagement, int) {
	next := eng
	awarded := 0

	switch {
	case eng.LastActive == nil:
		// First tracked login counts as a new day: the daily bonus
		// applies from day one.
		next.Streak = 1
		next.LastAbsenceDays = 0
		awarded = DailyLoginXP
	default:
		gap := calendarDayDiff(now, *eng.LastActive)
		switch {
		case gap == 0:
			next.LastAbsenceDays = 0
		case gap == 1:
			next.Streak = eng.Streak + 1
			next.LastAbsenceDays = 1
			awarded = DailyLoginXP
		default:
			next.Streak = 1
			next.LastAbsenceDays = gap
			awarded = DailyLoginXP
		}
	}

	if next.Streak < 1 {
		next.Streak = 1
	}

	next.XP = eng.XP + awarded
	next.Level = LevelFromXP(next.XP)

	// Every login clears the sweep triggers and bumps the activity
	// timestamp, whether or not XP was awarded.
	active := now.UTC()
	next.LastActive = &active
	next.DailyMsgSent = false
	next.ReengagementLevel = 0

	return next, awarded
}

// ApplyLogin runs the login-time update for the user and persists the
// result in a single write. Calling it twice within the same UTC
// calendar day changes nothing beyond the activity timestamp.
func (e *Engine) ApplyLogin(ctx context.Context, user *domain.User) (*LoginResult, error) {
	now := e.clock.Now()
	next, awarded := NextLoginState(user.Engagement, now)

	if err := e.store.UpdateEngagement(ctx, user.ID, next); err != nil {
		// The next login re-reads fresh state, so a dropped write
		// heals itself. Surface the error to the caller anyway.
		e.log.Error("failed to persist login update",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("persist login update: %w", err)
	}

	user.Engagement = next

	return &LoginResult{
		XPAwarded:   awarded,
		DailyBonus:  awarded > 0,
		Streak:      next.Streak,
		Level:       next.Level,
		AbsenceDays: next.LastAbsenceDays,
	}, nil
}

// AwardMessageXP grants the per-message XP and re-derives the level
// from the new total.
func (e *Engine) AwardMessageXP(ctx context.Context, user *domain.User) error {
	next := user.Engagement
	next.XP += MessageXP
	next.Level = LevelFromXP(next.XP)

	if err := e.store.UpdateEngagement(ctx, user.ID, next); err != nil {
		return fmt.Errorf("persist message xp: %w", err)
	}

	user.Engagement = next
	return nil
}

// AdminSetProgress applies an admin override of XP and level. The XP
// is clamped upward so the stored pair stays consistent; this is the
// only path that does not derive the level via LevelFromXP.
func (e *Engine) AdminSetProgress(ctx context.Context, user *domain.User, xp, level int) error {
	if level < 1 {
		level = 1
	}
	if xp < 0 {
		xp = 0
	}

	next := user.Engagement
	next.XP = ClampXPForLevel(xp, level)
	next.Level = level

	if err := e.store.UpdateEngagement(ctx, user.ID, next); err != nil {
		return fmt.Errorf("persist admin progress override: %w", err)
	}

	user.Engagement = next
	return nil
}
