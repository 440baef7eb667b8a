// Package initiator decides when the assistant speaks first: a daily sweep
// that ensures the recurring messages exist in the queue, and a delivery
// path that releases due ones under the send policy.
package initiator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pal/internal/message"
	"pal/internal/pattern"
	"pal/internal/planner"
)

// Planner is the slice of upstream data the sweep needs. *planner.Store
// satisfies it; tests substitute fakes.
type Planner interface {
	PendingTasks(ctx context.Context, userID uint64) ([]planner.Task, error)
	TodaySchedule(ctx context.Context, userID uint64, now time.Time) ([]planner.Schedule, error)
	ActiveGoals(ctx context.Context, userID uint64) ([]planner.Goal, error)
	JournalEntryOn(ctx context.Context, userID uint64, day string) (*planner.JournalEntry, error)
}

// Refiner optionally rewrites a generated body. Implementations must fall
// back to the input on failure; the sweep never checks an error here.
type Refiner interface {
	Refine(ctx context.Context, body string) string
}

const (
	weeklyReviewClock = "18:00"
	taskReminderClock = "10:00"
)

// Sweep is the once-per-day-per-kind idempotent ensure. Safe to run any
// number of times per day; existence checks keyed on the local calendar
// day keep it from enqueueing duplicates.
type Sweep struct {
	Queue    *message.Queue
	Patterns *pattern.Store
	Planner  Planner
	Refiner  Refiner // optional
}

// Run processes all message categories for one user. A failure in one
// category never aborts the others; the joined error is for logging only.
func (s *Sweep) Run(ctx context.Context, userID uint64, now time.Time) error {
	pat, err := s.Patterns.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("sweep user %d: patterns: %w", userID, err)
	}

	var errs []error
	collect := func(category string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep user %d: %s: %w", userID, category, err))
		}
	}

	collect("morning", s.ensureMorning(ctx, userID, now, pat))
	collect("evening", s.ensureEvening(ctx, userID, now, pat))
	collect("weekly", s.ensureWeeklyReview(ctx, userID, now))
	collect("tasks", s.ensureTaskReminders(ctx, userID, now))

	return errors.Join(errs...)
}

func (s *Sweep) ensureMorning(ctx context.Context, userID uint64, now time.Time, pat pattern.Pattern) error {
	day := message.DayOf(now)
	exists, err := s.Queue.HasKindOnDay(ctx, userID, day, message.KindMorningCheckin)
	if err != nil || exists {
		return err
	}

	schedules, err := s.Planner.TodaySchedule(ctx, userID, now)
	if err != nil {
		return err
	}
	tasks, err := s.Planner.PendingTasks(ctx, userID)
	if err != nil {
		return err
	}
	goals, err := s.Planner.ActiveGoals(ctx, userID)
	if err != nil {
		return err
	}

	draft := message.Morning(scheduleInputs(schedules), taskInputs(tasks), goalInputs(goals))
	draft.Body = s.refine(ctx, draft.Body)

	at, err := clockOn(now, pat.TypicalMorningTime)
	if err != nil {
		return err
	}
	_, err = s.Queue.Enqueue(ctx, userID, draft, at)
	return err
}

func (s *Sweep) ensureEvening(ctx context.Context, userID uint64, now time.Time, pat pattern.Pattern) error {
	day := message.DayOf(now)
	exists, err := s.Queue.HasKindOnDay(ctx, userID, day,
		message.KindEveningReflection, message.KindEveningSimple)
	if err != nil || exists {
		return err
	}

	entry, err := s.Planner.JournalEntryOn(ctx, userID, day)
	if err != nil {
		return err
	}
	schedules, err := s.Planner.TodaySchedule(ctx, userID, now)
	if err != nil {
		return err
	}

	draft := message.Evening(entry != nil, len(schedules))
	draft.Body = s.refine(ctx, draft.Body)

	at, err := clockOn(now, pat.TypicalEveningTime)
	if err != nil {
		return err
	}
	_, err = s.Queue.Enqueue(ctx, userID, draft, at)
	return err
}

func (s *Sweep) ensureWeeklyReview(ctx context.Context, userID uint64, now time.Time) error {
	if now.Weekday() != time.Sunday {
		return nil
	}
	day := message.DayOf(now)
	exists, err := s.Queue.HasKindOnDay(ctx, userID, day, message.KindWeeklyReview)
	if err != nil || exists {
		return err
	}

	at, err := clockOn(now, weeklyReviewClock)
	if err != nil {
		return err
	}
	_, err = s.Queue.Enqueue(ctx, userID, message.WeeklyReview(), at)
	return err
}

func (s *Sweep) ensureTaskReminders(ctx context.Context, userID uint64, now time.Time) error {
	tasks, err := s.Planner.PendingTasks(ctx, userID)
	if err != nil {
		return err
	}
	day := message.DayOf(now)

	at, err := clockOn(now, taskReminderClock)
	if err != nil {
		return err
	}

	var errs []error
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		left := daysUntil(now, *t.DueDate)
		if left < 0 || left > 1 {
			continue
		}

		draft := message.TaskReminder(taskInput(t), now)
		exists, err := s.Queue.HasReminderForTask(ctx, userID, day, draft.RelatedID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if exists {
			continue
		}
		if _, err := s.Queue.Enqueue(ctx, userID, draft, at); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Sweep) refine(ctx context.Context, body string) string {
	if s.Refiner == nil {
		return body
	}
	return s.Refiner.Refine(ctx, body)
}

// clockOn puts an "HH:MM" wall-clock time on now's calendar day, in now's
// location.
func clockOn(now time.Time, clock string) (time.Time, error) {
	mins, err := pattern.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, mins/60, mins%60, 0, 0, now.Location()), nil
}

// daysUntil counts whole local calendar days from now's day to due's day.
func daysUntil(now, due time.Time) int {
	ny, nm, nd := now.Date()
	dy, dm, dd := due.Date()
	a := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	b := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}

func taskInput(t planner.Task) message.TaskInput {
	return message.TaskInput{ID: t.ID, Title: t.Title, Priority: t.Priority, DueDate: t.DueDate}
}

func taskInputs(tasks []planner.Task) []message.TaskInput {
	out := make([]message.TaskInput, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskInput(t))
	}
	return out
}

func scheduleInputs(rows []planner.Schedule) []message.ScheduleInput {
	out := make([]message.ScheduleInput, 0, len(rows))
	for _, r := range rows {
		out = append(out, message.ScheduleInput{Title: r.Title, StartTime: r.StartTime})
	}
	return out
}

func goalInputs(goals []planner.Goal) []message.GoalInput {
	out := make([]message.GoalInput, 0, len(goals))
	for _, g := range goals {
		out = append(out, message.GoalInput{ID: g.ID, Title: g.Title, Progress: g.ProgressPercentage})
	}
	return out
}
