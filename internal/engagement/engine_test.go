package engagement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/friendix-ai/engagement-engine/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

func ts(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func TestNextLoginState(t *testing.T) {
	now := ts(2025, time.March, 10, 15)

	lastActive := func(t time.Time) *time.Time { return &t }

	testCases := []struct {
		name            string
		eng             domain.Engagement
		expectedStreak  int
		expectedXP      int
		expectedAwarded int
		expectedLevel   int
		expectedAbsence int
	}{
		{
			name:            "first ever login earns the daily bonus",
			eng:             domain.NewEngagement(),
			expectedStreak:  1,
			expectedXP:      DailyLoginXP,
			expectedAwarded: DailyLoginXP,
			expectedLevel:   1,
			expectedAbsence: 0,
		},
		{
			name: "same day repeat login",
			eng: domain.Engagement{
				XP: 40, Level: 1, Streak: 3,
				LastActive: lastActive(ts(2025, time.March, 10, 2)),
			},
			expectedStreak:  3,
			expectedXP:      40,
			expectedAwarded: 0,
			expectedLevel:   1,
			expectedAbsence: 0,
		},
		{
			name: "consecutive day extends streak",
			eng: domain.Engagement{
				XP: 40, Level: 1, Streak: 3,
				LastActive: lastActive(ts(2025, time.March, 9, 23)),
			},
			expectedStreak:  4,
			expectedXP:      50,
			expectedAwarded: DailyLoginXP,
			expectedLevel:   2,
			expectedAbsence: 1,
		},
		{
			name: "long absence resets streak",
			eng: domain.Engagement{
				XP: 100, Level: 2, Streak: 9,
				LastActive: lastActive(ts(2025, time.February, 28, 12)),
			},
			expectedStreak:  1,
			expectedXP:      110,
			expectedAwarded: DailyLoginXP,
			expectedLevel:   2,
			expectedAbsence: 10,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			next, awarded := NextLoginState(tc.eng, now)

			require.Equal(t, tc.expectedAwarded, awarded)
			require.Equal(t, tc.expectedStreak, next.Streak)
			require.Equal(t, tc.expectedXP, next.XP)
			require.Equal(t, tc.expectedLevel, next.Level)
			require.Equal(t, tc.expectedAbsence, next.LastAbsenceDays)

			require.NotNil(t, next.LastActive)
			require.Equal(t, now, *next.LastActive)
			require.False(t, next.DailyMsgSent)
			require.Zero(t, next.ReengagementLevel)
		})
	}
}

func TestNextLoginState_ClearsSweepTriggers(t *testing.T) {
	now := ts(2025, time.March, 10, 8)
	sent := ts(2025, time.March, 1, 9)

	eng := domain.Engagement{
		XP: 60, Level: 2, Streak: 1,
		LastActive:           &sent,
		DailyMsgSent:         true,
		ReengagementLevel:    2,
		LastReengagementSent: &sent,
	}

	next, _ := NextLoginState(eng, now)

	require.False(t, next.DailyMsgSent)
	require.Zero(t, next.ReengagementLevel)
	// The send timestamp survives so cooldowns keep working across
	// logins.
	require.Equal(t, &sent, next.LastReengagementSent)
}

func TestNextLoginState_SameDayIdempotent(t *testing.T) {
	morning := ts(2025, time.June, 1, 6)
	evening := ts(2025, time.June, 1, 22)

	eng := domain.Engagement{XP: 40, Level: 1, Streak: 2, LastActive: timePtr(ts(2025, time.May, 31, 20))}

	first, awarded := NextLoginState(eng, morning)
	require.Equal(t, DailyLoginXP, awarded)

	second, awarded := NextLoginState(first, evening)
	require.Zero(t, awarded)
	require.Equal(t, first.XP, second.XP)
	require.Equal(t, first.Streak, second.Streak)
	require.Equal(t, first.Level, second.Level)
}

func TestNextLoginState_FiveDayRun(t *testing.T) {
	eng := domain.NewEngagement()

	for day := 1; day <= 5; day++ {
		eng, _ = NextLoginState(eng, ts(2025, time.July, day, 12))
	}

	// The first login already carries the bonus, so the fifth day
	// crosses the 50 XP threshold exactly.
	require.Equal(t, 5, eng.Streak)
	require.Equal(t, 50, eng.XP)
	require.Equal(t, 2, eng.Level)
}

func TestEngine_ApplyLogin_PersistFailure(t *testing.T) {
	store := newMemStore()
	store.updateErr = errors.New("write failed")

	now := ts(2025, time.April, 2, 10)
	engine := NewEngine(store, &memNotifier{}, fixedClock(now), testLogger())

	user := &domain.User{ID: 7, Engagement: domain.NewEngagement(), CreatedAt: now}
	store.add(user)

	_, err := engine.ApplyLogin(context.Background(), user)
	require.Error(t, err)
}

func TestEngine_AwardMessageXP(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, &memNotifier{}, fixedClock(ts(2025, time.April, 2, 10)), testLogger())

	user := &domain.User{ID: 3, Engagement: domain.Engagement{XP: 49, Level: 1, Streak: 1}}
	store.add(user)

	require.NoError(t, engine.AwardMessageXP(context.Background(), user))
	require.Equal(t, 50, user.Engagement.XP)
	require.Equal(t, 2, user.Engagement.Level)

	persisted := store.users[3].Engagement
	require.Equal(t, 50, persisted.XP)
	require.Equal(t, 2, persisted.Level)
}

func TestEngine_AdminSetProgress(t *testing.T) {
	testCases := []struct {
		name          string
		xp            int
		level         int
		expectedXP    int
		expectedLevel int
	}{
		{name: "xp clamped up to requested level", xp: 0, level: 4, expectedXP: 300, expectedLevel: 4},
		{name: "sufficient xp untouched", xp: 900, level: 5, expectedXP: 900, expectedLevel: 5},
		{name: "negative inputs normalized", xp: -5, level: 0, expectedXP: 0, expectedLevel: 1},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			engine := NewEngine(store, &memNotifier{}, fixedClock(ts(2025, time.April, 2, 10)), testLogger())

			user := &domain.User{ID: 1, Engagement: domain.NewEngagement()}
			store.add(user)

			require.NoError(t, engine.AdminSetProgress(context.Background(), user, tc.xp, tc.level))
			require.Equal(t, tc.expectedXP, user.Engagement.XP)
			require.Equal(t, tc.expectedLevel, user.Engagement.Level)
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }
