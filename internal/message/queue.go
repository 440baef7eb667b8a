package message

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found")

// Queue is the durable per-user store of not-yet-sent messages.
type Queue struct {
	DB *gorm.DB
}

// NewID returns a fresh ULID for a queued message.
func NewID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Enqueue appends a new row. It never deduplicates; once-per-day checks are
// the sweep's job, and manual triggers bypass them on purpose.
func (q *Queue) Enqueue(ctx context.Context, userID uint64, d Draft, scheduledAt time.Time) (string, error) {
	meta := json.RawMessage("{}")
	if d.Metadata != nil {
		b, err := json.Marshal(d.Metadata)
		if err != nil {
			return "", err
		}
		meta = b
	}

	m := Message{
		ID:               NewID(),
		UserID:           userID,
		Kind:             d.Kind,
		Priority:         d.Priority,
		Body:             d.Body,
		ScheduledTime:    scheduledAt,
		DueDate:          DayOf(scheduledAt),
		RelatedID:        d.RelatedID,
		RequiresResponse: d.RequiresResponse,
		Metadata:         meta,
		CreatedAt:        time.Now(),
	}
	if err := q.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return "", err
	}
	return m.ID, nil
}

// ListDue returns unsent messages whose scheduled time has passed, most
// urgent first.
func (q *Queue) ListDue(ctx context.Context, userID uint64, now time.Time) ([]Message, error) {
	var rows []Message
	err := q.DB.WithContext(ctx).
		Where("user_id = ? AND sent = ? AND scheduled_time <= ?", userID, false, now).
		Order("priority asc, scheduled_time asc").
		Find(&rows).Error
	return rows, err
}

// Get reads one message scoped to its owner.
func (q *Queue) Get(ctx context.Context, userID uint64, id string) (*Message, error) {
	var m Message
	err := q.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkSent flips a message to sent exactly once. The conditional update is
// the delivery commit point: it returns false when the id is unknown or the
// row was already sent, so concurrent pollers cannot double-release.
func (q *Queue) MarkSent(ctx context.Context, id string, now time.Time) (bool, error) {
	res := q.DB.WithContext(ctx).
		Model(&Message{}).
		Where("id = ? AND sent = ?", id, false).
		Updates(map[string]any{"sent": true, "sent_at": now})
	return res.RowsAffected > 0, res.Error
}

// MarkAcknowledged records that the user engaged with a message. False only
// when the id does not exist.
func (q *Queue) MarkAcknowledged(ctx context.Context, id string, now time.Time) (bool, error) {
	res := q.DB.WithContext(ctx).
		Model(&Message{}).
		Where("id = ?", id).
		Updates(map[string]any{"acknowledged": true, "acknowledged_at": now})
	return res.RowsAffected > 0, res.Error
}

// HasKindOnDay reports whether any of the kinds already has a row scheduled
// on the given calendar day.
func (q *Queue) HasKindOnDay(ctx context.Context, userID uint64, day string, kinds ...Kind) (bool, error) {
	var n int64
	err := q.DB.WithContext(ctx).
		Model(&Message{}).
		Where("user_id = ? AND due_date = ? AND message_type IN ?", userID, day, kinds).
		Count(&n).Error
	return n > 0, err
}

// HasReminderForTask reports whether a task_reminder for this task is
// already scheduled on the given day.
func (q *Queue) HasReminderForTask(ctx context.Context, userID uint64, day, relatedID string) (bool, error) {
	var n int64
	err := q.DB.WithContext(ctx).
		Model(&Message{}).
		Where("user_id = ? AND due_date = ? AND message_type = ? AND related_id = ?",
			userID, day, KindTaskReminder, relatedID).
		Count(&n).Error
	return n > 0, err
}

// SentSince counts messages delivered to the user since the given instant.
// The rate limit in the send policy is built on this.
func (q *Queue) SentSince(ctx context.Context, userID uint64, since time.Time) (int64, error) {
	var n int64
	err := q.DB.WithContext(ctx).
		Model(&Message{}).
		Where("user_id = ? AND sent = ? AND sent_at >= ?", userID, true, since).
		Count(&n).Error
	return n, err
}

// RecordInitiation appends to the conversation_initiations audit log.
func (q *Queue) RecordInitiation(ctx context.Context, userID uint64, initiatedAt time.Time, kind Kind, responded bool, responseSeconds *int) error {
	in := Initiation{
		UserID:              userID,
		InitiatedAt:         initiatedAt,
		Kind:                kind,
		UserResponded:       responded,
		ResponseTimeSeconds: responseSeconds,
	}
	return q.DB.WithContext(ctx).Create(&in).Error
}

// Stats summarizes delivery and engagement for one user.
type Stats struct {
	TotalSent          int64          `json:"total_sent"`
	Acknowledged       int64          `json:"acknowledged"`
	AckRate            float64        `json:"acknowledgement_rate"`
	AvgResponseSeconds float64        `json:"avg_response_time_seconds"`
	ByKind             map[Kind]int64 `json:"by_type"`
}

func (q *Queue) Stats(ctx context.Context, userID uint64) (Stats, error) {
	s := Stats{ByKind: map[Kind]int64{}}

	db := q.DB.WithContext(ctx)
	if err := db.Model(&Message{}).
		Where("user_id = ? AND sent = ?", userID, true).
		Count(&s.TotalSent).Error; err != nil {
		return s, err
	}
	if err := db.Model(&Message{}).
		Where("user_id = ? AND acknowledged = ?", userID, true).
		Count(&s.Acknowledged).Error; err != nil {
		return s, err
	}
	if s.TotalSent > 0 {
		s.AckRate = float64(s.Acknowledged) / float64(s.TotalSent) * 100
	}

	var avg *float64
	if err := db.Model(&Initiation{}).
		Select("avg(response_time_seconds)").
		Where("user_id = ? AND user_responded = ?", userID, true).
		Scan(&avg).Error; err != nil {
		return s, err
	}
	if avg != nil {
		s.AvgResponseSeconds = *avg
	}

	type kindCount struct {
		Kind Kind  `gorm:"column:message_type"`
		N    int64 `gorm:"column:n"`
	}
	var counts []kindCount
	if err := db.Model(&Message{}).
		Select("message_type, count(*) as n").
		Where("user_id = ? AND sent = ?", userID, true).
		Group("message_type").
		Scan(&counts).Error; err != nil {
		return s, err
	}
	for _, c := range counts {
		s.ByKind[c.Kind] = c.N
	}

	return s, nil
}
