package engagement

import (
	"context"
	"log/slog"
	"time"

	"github.com/friendix-ai/engagement-engine/internal/domain"
)

// Re-engagement tiers by whole days of inactivity. Tier 0 means no
// action.
const (
	MaxTier = 8

	tier8Days = 365
	tier7Days = 180
	tier6Days = 90
	tier5Days = 60
	tier4Days = 28
	tier3Days = 21
	tier2Days = 14
	tier1Days = 7
)

// Cooldowns between notices. Weekly tiers tolerate a short gap; the
// monthly tiers need a wide one so an oddly timed run cannot double
// up.
const (
	shortCooldownDays = 6
	longCooldownDays  = 25
)

// dailyNudgeText is delivered as an in-app companion message after the
// first full day of inactivity.
const dailyNudgeText = "I haven't seen you in a while! Come back and chat with me soon. 💕"

// TierForInactivity maps whole days of inactivity to a re-engagement
// tier.
func TierForInactivity(days int) int {
	switch {
	case days >= tier8Days:
		return 8
	case days >= tier7Days:
		return 7
	case days >= tier6Days:
		return 6
	case days >= tier5Days:
		return 5
	case days >= tier4Days:
		return 4
	case days >= tier3Days:
		return 3
	case days >= tier2Days:
		return 2
	case days >= tier1Days:
		return 1
	default:
		return 0
	}
}

// CooldownDays returns the minimum spacing in days before another
// notice may follow a send, given the tier about to be sent.
func CooldownDays(tier int) int {
	if tier <= 4 {
		return shortCooldownDays
	}
	return longCooldownDays
}

// SweepAction is what the sweep decided for one user.
type SweepAction struct {
	UserID int64
	// Nudge marks the once-per-inactivity-period daily message.
	Nudge bool
	// Tier is the re-engagement notice tier sent, zero when none.
	Tier int
}

// SweepReport aggregates one sweep run.
type SweepReport struct {
	Scanned int
	Nudges  int
	Notices int
	Errors  int
	Actions []SweepAction
}

// Sweep evaluates every user's inactivity and dispatches the daily
// nudge and tier notices that are due. A failure on one user is
// logged and skipped; the sweep never aborts over remaining users.
func (e *Engine) Sweep(ctx context.Context) (*SweepReport, error) {
	now := e.clock.Now()
	report := &SweepReport{}

	err := e.store.ForEachUser(ctx, func(user *domain.User) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		report.Scanned++

		action, err := e.sweepUser(ctx, user, now)
		if err != nil {
			report.Errors++
			e.log.Error("sweep: user skipped",
				slog.Int64("user_id", user.ID),
				slog.Any("error", err),
			)
			return nil
		}

		if action.Nudge || action.Tier > 0 {
			report.Actions = append(report.Actions, action)
		}
		if action.Nudge {
			report.Nudges++
		}
		if action.Tier > 0 {
			report.Notices++
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	e.log.Info("inactivity sweep finished",
		slog.Int("scanned", report.Scanned),
		slog.Int("nudges", report.Nudges),
		slog.Int("notices", report.Notices),
		slog.Int("errors", report.Errors),
	)

	return report, nil
}

// sweepUser runs the per-user sweep step against a single record.
func (e *Engine) sweepUser(ctx context.Context, user *domain.User, now time.Time) (SweepAction, error) {
	action := SweepAction{UserID: user.ID}

	refDate := user.Engagement.LastActive
	if refDate == nil {
		if user.CreatedAt.IsZero() {
			return action, nil
		}
		refDate = &user.CreatedAt
	}

	daysInactive := int(now.UTC().Sub(refDate.UTC()).Hours() / 24)
	if daysInactive < 1 {
		return action, nil
	}

	// The nudge fires at most once per inactivity period; a login
	// clears the flag.
	if !user.Engagement.DailyMsgSent {
		if err := e.notifier.SendInApp(ctx, user.ID, dailyNudgeText, now); err != nil {
			return action, err
		}
		if err := e.store.MarkDailyNudge(ctx, user.ID); err != nil {
			return action, err
		}
		user.Engagement.DailyMsgSent = true
		action.Nudge = true
	}

	tier := TierForInactivity(daysInactive)
	if tier == 0 {
		return action, nil
	}

	if !e.shouldEscalate(user.Engagement, tier, now) {
		return action, nil
	}

	// Persist the advance only after a confirmed dispatch, otherwise
	// the notice for this tier would be lost forever.
	if err := e.notifier.SendReengagement(ctx, user, tier); err != nil {
		return action, err
	}
	if err := e.store.MarkReengagement(ctx, user.ID, tier, now); err != nil {
		return action, err
	}

	sent := now.UTC()
	user.Engagement.ReengagementLevel = tier
	user.Engagement.LastReengagementSent = &sent
	action.Tier = tier

	return action, nil
}

// shouldEscalate gates a notice on tier escalation and the cooldown
// window since the last send.
func (e *Engine) shouldEscalate(eng domain.Engagement, tier int, now time.Time) bool {
	if tier <= eng.ReengagementLevel {
		return false
	}

	if eng.LastReengagementSent == nil {
		return true
	}

	daysSince := int(now.UTC().Sub(eng.LastReengagementSent.UTC()).Hours() / 24)
	return daysSince >= CooldownDays(tier)
}
