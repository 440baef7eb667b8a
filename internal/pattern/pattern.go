package pattern

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Defaults used whenever a user has no learned or stored pattern.
const (
	DefaultMorning = "08:00"
	DefaultEvening = "20:00"
)

// Conversation-history windows the learner looks at. Wall-clock hours,
// inclusive; neither window straddles midnight, which is what makes the
// plain minutes-mean below safe.
const (
	morningStartHour = 6
	morningEndHour   = 11
	eveningStartHour = 18
	eveningEndHour   = 23
)

const learnWindowDays = 30

// ErrQuietHoursWrap rejects quiet-hours windows that wrap past midnight
// (start later than end). The policy has no defined semantics for those,
// so they are refused at the write boundary instead of being misread.
var ErrQuietHoursWrap = errors.New("quiet hours must not wrap past midnight")

var ErrBadClock = errors.New("time must be HH:MM")

// Pattern is a user's learned activity profile. One row per user, upserted
// whole on every recomputation.
type Pattern struct {
	UserID uint64 `gorm:"primaryKey"`

	TypicalMorningTime string `gorm:"not null"` // "HH:MM"
	TypicalEveningTime string `gorm:"not null"` // "HH:MM"

	QuietHoursStart *string `gorm:"type:text"`
	QuietHoursEnd   *string `gorm:"type:text"`

	LastUpdated time.Time `gorm:"not null"`
}

func (Pattern) TableName() string { return "user_activity_patterns" }

// ConversationSource supplies the timestamps the learner works from.
type ConversationSource interface {
	TimesSince(ctx context.Context, userID uint64, since time.Time) ([]time.Time, error)
}

type Store struct {
	DB            *gorm.DB
	Conversations ConversationSource
}

// Learn recomputes the user's typical morning/evening times from the
// trailing 30 days of conversation activity and replaces the stored row.
// No history is not an error; the defaults are stored instead.
func (s *Store) Learn(ctx context.Context, userID uint64, now time.Time) (Pattern, error) {
	times, err := s.Conversations.TimesSince(ctx, userID, now.AddDate(0, 0, -learnWindowDays))
	if err != nil {
		return Pattern{}, err
	}

	var morning, evening []time.Time
	for _, t := range times {
		switch h := t.Hour(); {
		case h >= morningStartHour && h <= morningEndHour:
			morning = append(morning, t)
		case h >= eveningStartHour && h <= eveningEndHour:
			evening = append(evening, t)
		}
	}

	p := Pattern{
		UserID:             userID,
		TypicalMorningTime: meanClock(morning, DefaultMorning),
		TypicalEveningTime: meanClock(evening, DefaultEvening),
		LastUpdated:        now,
	}
	err = s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&p).Error
	return p, err
}

// Get reads the stored pattern, falling back to the defaults without
// persisting them when the user has no row yet.
func (s *Store) Get(ctx context.Context, userID uint64) (Pattern, error) {
	var p Pattern
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Pattern{
			UserID:             userID,
			TypicalMorningTime: DefaultMorning,
			TypicalEveningTime: DefaultEvening,
		}, nil
	}
	return p, err
}

// Update stores user-set preferences, validating the clock strings and
// refusing wrap-around quiet windows.
func (s *Store) Update(ctx context.Context, p Pattern, now time.Time) error {
	for _, v := range []string{p.TypicalMorningTime, p.TypicalEveningTime} {
		if _, err := ParseClock(v); err != nil {
			return err
		}
	}
	var start, end = -1, -1
	if p.QuietHoursStart != nil {
		v, err := ParseClock(*p.QuietHoursStart)
		if err != nil {
			return err
		}
		start = v
	}
	if p.QuietHoursEnd != nil {
		v, err := ParseClock(*p.QuietHoursEnd)
		if err != nil {
			return err
		}
		end = v
	}
	if start >= 0 && end >= 0 && start > end {
		return ErrQuietHoursWrap
	}

	p.LastUpdated = now
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&p).Error
}

// ParseClock turns "HH:MM" into minutes since midnight.
func ParseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, v)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// meanClock is the plain minutes-since-midnight mean, floor-divided back
// into hour and minute. Not a circular mean; callers guarantee the inputs
// never straddle midnight.
func meanClock(times []time.Time, def string) string {
	if len(times) == 0 {
		return def
	}
	total := 0
	for _, t := range times {
		total += t.Hour()*60 + t.Minute()
	}
	avg := total / len(times)
	return fmt.Sprintf("%02d:%02d", avg/60, avg%60)
}
