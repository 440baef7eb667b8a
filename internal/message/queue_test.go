package message

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "pal.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&Message{}, &Initiation{}))
	return gdb
}

func TestEnqueueListDueRoundTrip(t *testing.T) {
	q := &Queue{DB: newTestDB(t)}
	ctx := context.Background()
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	id, err := q.Enqueue(ctx, 1, Draft{
		Kind:     KindMorningCheckin,
		Priority: PriorityMedium,
		Body:     "rise and shine",
	}, now.Add(-time.Minute))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	due, err := q.ListDue(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, id, due[0].ID)
	assert.Equal(t, "rise and shine", due[0].Body)
	assert.Equal(t, KindMorningCheckin, due[0].Kind)
	assert.Equal(t, "2026-08-28", due[0].DueDate)
	assert.False(t, due[0].Sent)

	ok, err := q.MarkSent(ctx, id, now)
	require.NoError(t, err)
	assert.True(t, ok)

	due, err = q.ListDue(ctx, 1, now)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestListDueOrderAndFilter(t *testing.T) {
	q := &Queue{DB: newTestDB(t)}
	ctx := context.Background()
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	low, err := q.Enqueue(ctx, 1, Draft{Kind: KindBreakSuggestion, Priority: PriorityLow, Body: "break"}, now.Add(-2*time.Hour))
	require.NoError(t, err)
	high, err := q.Enqueue(ctx, 1, Draft{Kind: KindTaskReminder, Priority: PriorityHigh, Body: "task"}, now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, 1, Draft{Kind: KindEveningReflection, Priority: PriorityHigh, Body: "later"}, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, 2, Draft{Kind: KindTaskReminder, Priority: PriorityHigh, Body: "other user"}, now.Add(-time.Hour))
	require.NoError(t, err)

	due, err := q.ListDue(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, high, due[0].ID, "more urgent priority first")
	assert.Equal(t, low, due[1].ID)
}

func TestMarkSentSingleUse(t *testing.T) {
	q := &Queue{DB: newTestDB(t)}
	ctx := context.Background()
	now := time.Now()

	id, err := q.Enqueue(ctx, 1, Draft{Kind: KindEncouragement, Priority: PriorityMedium, Body: "go"}, now)
	require.NoError(t, err)

	ok, err := q.MarkSent(ctx, id, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.MarkSent(ctx, id, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "second mark must lose")

	ok, err = q.MarkSent(ctx, "no-such-id", now)
	require.NoError(t, err)
	assert.False(t, ok)

	m, err := q.Get(ctx, 1, id)
	require.NoError(t, err)
	require.NotNil(t, m.SentAt)
	assert.WithinDuration(t, now, *m.SentAt, time.Second, "first mark's timestamp kept")
}

func TestMarkAcknowledged(t *testing.T) {
	q := &Queue{DB: newTestDB(t)}
	ctx := context.Background()
	now := time.Now()

	id, err := q.Enqueue(ctx, 1, Draft{Kind: KindGoalCheckin, Priority: PriorityMedium, Body: "goal"}, now)
	require.NoError(t, err)

	ok, err := q.MarkAcknowledged(ctx, id, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.MarkAcknowledged(ctx, "missing", now)
	require.NoError(t, err)
	assert.False(t, ok)

	m, err := q.Get(ctx, 1, id)
	require.NoError(t, err)
	assert.True(t, m.Acknowledged)
	require.NotNil(t, m.AcknowledgedAt)
}

func TestGetScopedToOwner(t *testing.T) {
	q := &Queue{DB: newTestDB(t)}
	ctx := context.Background()

	id, err := q.Enqueue(ctx, 1, Draft{Kind: KindEncouragement, Priority: PriorityMedium, Body: "hi"}, time.Now())
	require.NoError(t, err)

	_, err = q.Get(ctx, 2, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExistenceChecks(t *testing.T) {
	q := &Queue{DB: newTestDB(t)}
	ctx := context.Background()
	at := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	_, err := q.Enqueue(ctx, 1, Draft{
		Kind:      KindTaskReminder,
		Priority:  PriorityHigh,
		Body:      "task 7",
		RelatedID: "7",
		Metadata:  map[string]any{"task_id": 7},
	}, at)
	require.NoError(t, err)

	has, err := q.HasKindOnDay(ctx, 1, "2026-08-28", KindTaskReminder)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = q.HasKindOnDay(ctx, 1, "2026-08-29", KindTaskReminder)
	require.NoError(t, err)
	assert.False(t, has, "different day")

	has, err = q.HasKindOnDay(ctx, 1, "2026-08-28", KindMorningCheckin, KindWeeklyReview)
	require.NoError(t, err)
	assert.False(t, has, "different kinds")

	has, err = q.HasReminderForTask(ctx, 1, "2026-08-28", "7")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = q.HasReminderForTask(ctx, 1, "2026-08-28", "8")
	require.NoError(t, err)
	assert.False(t, has, "different task")
}

func TestSentSince(t *testing.T) {
	q := &Queue{DB: newTestDB(t)}
	ctx := context.Background()
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	for _, age := range []time.Duration{50 * time.Minute, 30 * time.Minute, 5 * time.Minute, 90 * time.Minute} {
		id, err := q.Enqueue(ctx, 1, Draft{Kind: KindEncouragement, Priority: PriorityMedium, Body: "x"}, now.Add(-2*time.Hour))
		require.NoError(t, err)
		ok, err := q.MarkSent(ctx, id, now.Add(-age))
		require.NoError(t, err)
		require.True(t, ok)
	}

	n, err := q.SentSince(ctx, 1, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, n, "the 90-minute-old send is outside the window")
}

func TestStats(t *testing.T) {
	q := &Queue{DB: newTestDB(t)}
	ctx := context.Background()
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	a, err := q.Enqueue(ctx, 1, Draft{Kind: KindMorningCheckin, Priority: PriorityMedium, Body: "a"}, now)
	require.NoError(t, err)
	b, err := q.Enqueue(ctx, 1, Draft{Kind: KindTaskReminder, Priority: PriorityHigh, Body: "b"}, now)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, 1, Draft{Kind: KindEncouragement, Priority: PriorityMedium, Body: "never sent"}, now)
	require.NoError(t, err)

	for _, id := range []string{a, b} {
		ok, err := q.MarkSent(ctx, id, now)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := q.MarkAcknowledged(ctx, a, now.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	thirty := 30
	ninety := 90
	require.NoError(t, q.RecordInitiation(ctx, 1, now, KindMorningCheckin, true, &thirty))
	require.NoError(t, q.RecordInitiation(ctx, 1, now, KindTaskReminder, true, &ninety))

	s, err := q.Stats(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, s.TotalSent)
	assert.EqualValues(t, 1, s.Acknowledged)
	assert.InDelta(t, 50.0, s.AckRate, 0.01)
	assert.InDelta(t, 60.0, s.AvgResponseSeconds, 0.01)
	assert.EqualValues(t, 1, s.ByKind[KindMorningCheckin])
	assert.EqualValues(t, 1, s.ByKind[KindTaskReminder])
	assert.NotContains(t, s.ByKind, KindEncouragement, "unsent messages don't count")
}
