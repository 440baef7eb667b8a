// Package policy decides whether a pending message may be released right
// now. It only reads; marking a message sent stays with the caller.
package policy

import (
	"context"
	"time"

	"pal/internal/message"
	"pal/internal/pattern"
)

const (
	// Hard quiet window: nothing goes out before 06:00 or from 23:00 on,
	// regardless of user settings.
	hardStartHour = 6
	hardEndHour   = 23

	// At most this many deliveries per user per trailing hour.
	maxSentPerHour = 3

	// ScheduleTolerance is how far from its scheduled time a message may
	// still be released.
	ScheduleTolerance = 15 * time.Minute
)

type Policy struct {
	Patterns *pattern.Store
	Queue    *message.Queue
}

// CanSendNow evaluates the release rules in order; the first failing rule
// rejects. Side-effect free.
func (p *Policy) CanSendNow(ctx context.Context, userID uint64, kind message.Kind, scheduledAt *time.Time, now time.Time) (bool, error) {
	if h := now.Hour(); h < hardStartHour || h >= hardEndHour {
		return false, nil
	}

	pat, err := p.Patterns.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if inQuietHours(pat, now) {
		return false, nil
	}

	n, err := p.Queue.SentSince(ctx, userID, now.Add(-time.Hour))
	if err != nil {
		return false, err
	}
	if n >= maxSentPerHour {
		return false, nil
	}

	if scheduledAt != nil {
		d := now.Sub(*scheduledAt)
		if d < 0 {
			d = -d
		}
		return d <= ScheduleTolerance, nil
	}

	return true, nil
}

// inQuietHours checks the user-set window, [start, end] inclusive. Windows
// that wrap past midnight are rejected at the write boundary; if one is
// somehow stored anyway, it is treated as unset rather than guessed at.
func inQuietHours(pat pattern.Pattern, now time.Time) bool {
	if pat.QuietHoursStart == nil || pat.QuietHoursEnd == nil {
		return false
	}
	start, err := pattern.ParseClock(*pat.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := pattern.ParseClock(*pat.QuietHoursEnd)
	if err != nil {
		return false
	}
	if start > end {
		return false
	}
	cur := now.Hour()*60 + now.Minute()
	return start <= cur && cur <= end
}
