package initiator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pal/internal/message"
	"pal/internal/pattern"
	"pal/internal/planner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakePlanner struct {
	tasks     []planner.Task
	tasksErr  error
	schedules []planner.Schedule
	goals     []planner.Goal

	journal    *planner.JournalEntry
	journalErr error
}

func (f *fakePlanner) PendingTasks(ctx context.Context, userID uint64) ([]planner.Task, error) {
	return f.tasks, f.tasksErr
}

func (f *fakePlanner) TodaySchedule(ctx context.Context, userID uint64, now time.Time) ([]planner.Schedule, error) {
	return f.schedules, nil
}

func (f *fakePlanner) ActiveGoals(ctx context.Context, userID uint64) ([]planner.Goal, error) {
	return f.goals, nil
}

func (f *fakePlanner) JournalEntryOn(ctx context.Context, userID uint64, day string) (*planner.JournalEntry, error) {
	return f.journal, f.journalErr
}

func newSweep(t *testing.T) (*Sweep, *message.Queue, *fakePlanner) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "pal.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&message.Message{}, &pattern.Pattern{}))

	q := &message.Queue{DB: gdb}
	fp := &fakePlanner{}
	s := &Sweep{
		Queue:    q,
		Patterns: &pattern.Store{DB: gdb},
		Planner:  fp,
	}
	return s, q, fp
}

// 2026-08-30 is a Sunday; 2026-08-28 is a Friday.
var (
	sunday = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	friday = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
)

func countRows(t *testing.T, q *message.Queue, userID uint64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, q.DB.Model(&message.Message{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func kindsOn(t *testing.T, q *message.Queue, userID uint64, day string) map[message.Kind]int {
	t.Helper()
	var rows []message.Message
	require.NoError(t, q.DB.Where("user_id = ? AND due_date = ?", userID, day).Find(&rows).Error)
	out := map[message.Kind]int{}
	for _, m := range rows {
		out[m.Kind]++
	}
	return out
}

func TestSweepIdempotent(t *testing.T) {
	s, q, _ := newSweep(t)
	ctx := context.Background()

	require.NoError(t, s.Run(ctx, 1, sunday))
	after1 := countRows(t, q, 1)

	require.NoError(t, s.Run(ctx, 1, sunday))
	require.NoError(t, s.Run(ctx, 1, sunday.Add(3*time.Hour)))
	assert.Equal(t, after1, countRows(t, q, 1), "reruns on the same day add nothing")

	kinds := kindsOn(t, q, 1, "2026-08-30")
	assert.Equal(t, 1, kinds[message.KindMorningCheckin])
	assert.Equal(t, 1, kinds[message.KindEveningReflection])
	assert.Equal(t, 1, kinds[message.KindWeeklyReview])
}

func TestSweepNextDayEnqueuesAgain(t *testing.T) {
	s, q, _ := newSweep(t)
	ctx := context.Background()

	require.NoError(t, s.Run(ctx, 1, friday))
	require.NoError(t, s.Run(ctx, 1, friday.AddDate(0, 0, 1)))

	assert.Equal(t, 1, kindsOn(t, q, 1, "2026-08-28")[message.KindMorningCheckin])
	assert.Equal(t, 1, kindsOn(t, q, 1, "2026-08-29")[message.KindMorningCheckin])
}

func TestSweepWeeklyReviewOnlyOnSunday(t *testing.T) {
	s, q, _ := newSweep(t)
	ctx := context.Background()

	require.NoError(t, s.Run(ctx, 1, friday))
	assert.Zero(t, kindsOn(t, q, 1, "2026-08-28")[message.KindWeeklyReview])

	require.NoError(t, s.Run(ctx, 1, sunday))
	assert.Equal(t, 1, kindsOn(t, q, 1, "2026-08-30")[message.KindWeeklyReview])

	var review message.Message
	require.NoError(t, q.DB.Where("message_type = ?", message.KindWeeklyReview).First(&review).Error)
	assert.Equal(t, 18, review.ScheduledTime.Hour())
	assert.Equal(t, 0, review.ScheduledTime.Minute())
}

func TestSweepUsesLearnedTimes(t *testing.T) {
	s, q, _ := newSweep(t)
	ctx := context.Background()

	require.NoError(t, s.Patterns.Update(ctx, pattern.Pattern{
		UserID:             1,
		TypicalMorningTime: "09:15",
		TypicalEveningTime: "21:45",
	}, friday))

	require.NoError(t, s.Run(ctx, 1, friday))

	var morning message.Message
	require.NoError(t, q.DB.Where("message_type = ?", message.KindMorningCheckin).First(&morning).Error)
	assert.Equal(t, 9, morning.ScheduledTime.Hour())
	assert.Equal(t, 15, morning.ScheduledTime.Minute())

	var evening message.Message
	require.NoError(t, q.DB.Where("message_type = ?", message.KindEveningReflection).First(&evening).Error)
	assert.Equal(t, 21, evening.ScheduledTime.Hour())
	assert.Equal(t, 45, evening.ScheduledTime.Minute())
}

func TestSweepEveningSimpleWhenJournalExists(t *testing.T) {
	s, q, fp := newSweep(t)
	ctx := context.Background()

	fp.journal = &planner.JournalEntry{UserID: 1, Date: "2026-08-28", Content: "wrote things"}

	require.NoError(t, s.Run(ctx, 1, friday))

	kinds := kindsOn(t, q, 1, "2026-08-28")
	assert.Equal(t, 1, kinds[message.KindEveningSimple])
	assert.Zero(t, kinds[message.KindEveningReflection])

	// A later run must not add the reflection variant either; the two
	// evening kinds share one daily slot.
	fp.journal = nil
	require.NoError(t, s.Run(ctx, 1, friday))
	kinds = kindsOn(t, q, 1, "2026-08-28")
	assert.Equal(t, 1, kinds[message.KindEveningSimple])
	assert.Zero(t, kinds[message.KindEveningReflection])
}

func TestSweepTaskReminders(t *testing.T) {
	s, q, fp := newSweep(t)
	ctx := context.Background()

	dueToday := friday.Add(4 * time.Hour)
	dueTomorrow := friday.AddDate(0, 0, 1)
	dueLater := friday.AddDate(0, 0, 3)
	overdue := friday.AddDate(0, 0, -1)
	fp.tasks = []planner.Task{
		{ID: 1, UserID: 1, Title: "ship release", Priority: "high", DueDate: &dueToday},
		{ID: 2, UserID: 1, Title: "file expenses", Priority: "medium", DueDate: &dueTomorrow},
		{ID: 3, UserID: 1, Title: "plan offsite", Priority: "low", DueDate: &dueLater},
		{ID: 4, UserID: 1, Title: "already late", Priority: "high", DueDate: &overdue},
		{ID: 5, UserID: 1, Title: "no deadline", Priority: "high"},
	}

	require.NoError(t, s.Run(ctx, 1, friday))

	var reminders []message.Message
	require.NoError(t, q.DB.Where("message_type = ?", message.KindTaskReminder).Order("related_id asc").Find(&reminders).Error)
	require.Len(t, reminders, 2, "only tasks due today or tomorrow")
	assert.Equal(t, "1", reminders[0].RelatedID)
	assert.Equal(t, "2", reminders[1].RelatedID)
	for _, m := range reminders {
		assert.Equal(t, 10, m.ScheduledTime.Hour())
		assert.Equal(t, 0, m.ScheduledTime.Minute())
		assert.Equal(t, message.PriorityHigh, m.Priority)
	}

	// Rerun: still one reminder per task per day.
	require.NoError(t, s.Run(ctx, 1, friday))
	var n int64
	require.NoError(t, q.DB.Model(&message.Message{}).Where("message_type = ?", message.KindTaskReminder).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}

func TestSweepCategoryFailureIsIsolated(t *testing.T) {
	s, q, fp := newSweep(t)
	ctx := context.Background()

	fp.journalErr = errors.New("journal store down")

	err := s.Run(ctx, 1, sunday)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evening")

	kinds := kindsOn(t, q, 1, "2026-08-30")
	assert.Equal(t, 1, kinds[message.KindMorningCheckin], "morning unaffected")
	assert.Equal(t, 1, kinds[message.KindWeeklyReview], "weekly unaffected")
	assert.Zero(t, kinds[message.KindEveningReflection])
	assert.Zero(t, kinds[message.KindEveningSimple])

	// Once the journal store recovers, the evening slot fills in.
	fp.journalErr = nil
	require.NoError(t, s.Run(ctx, 1, sunday))
	assert.Equal(t, 1, kindsOn(t, q, 1, "2026-08-30")[message.KindEveningReflection])
}

type prefixRefiner struct{ called bool }

func (r *prefixRefiner) Refine(ctx context.Context, body string) string {
	r.called = true
	return "refined: " + body
}

func TestSweepRefinesDailyBodies(t *testing.T) {
	s, q, _ := newSweep(t)
	ref := &prefixRefiner{}
	s.Refiner = ref

	require.NoError(t, s.Run(context.Background(), 1, friday))

	assert.True(t, ref.called)
	var morning message.Message
	require.NoError(t, q.DB.Where("message_type = ?", message.KindMorningCheckin).First(&morning).Error)
	assert.Contains(t, morning.Body, "refined: ")
}
