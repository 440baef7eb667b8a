package planner

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Store answers the upstream-data questions the initiator asks: what is
// pending, what is on today, is there a journal entry, who has been around.
type Store struct {
	DB *gorm.DB
}

// PendingTasks lists the user's open tasks, high priority first.
func (s *Store) PendingTasks(ctx context.Context, userID uint64) ([]Task, error) {
	var tasks []Task
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, TaskStatusPending).
		Order("CASE priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, due_date asc").
		Find(&tasks).Error
	return tasks, err
}

// TodaySchedule lists non-cancelled appointments on now's calendar day.
func (s *Store) TodaySchedule(ctx context.Context, userID uint64, now time.Time) ([]Schedule, error) {
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var rows []Schedule
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND start_time >= ? AND start_time < ? AND status <> ?",
			userID, dayStart, dayEnd, ScheduleStatusCancelled).
		Order("start_time asc").
		Find(&rows).Error
	return rows, err
}

// ActiveGoals lists the user's goals still in progress, newest first.
func (s *Store) ActiveGoals(ctx context.Context, userID uint64) ([]Goal, error) {
	var goals []Goal
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, GoalStatusActive).
		Order("created_at desc").
		Find(&goals).Error
	return goals, err
}

// JournalEntryOn returns the entry for the given calendar day, or nil.
func (s *Store) JournalEntryOn(ctx context.Context, userID uint64, day string) (*JournalEntry, error) {
	var e JournalEntry
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, day).
		Order("created_at desc").
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// TimesSince returns the user's conversation timestamps since the given
// instant, oldest first. This is the pattern learner's input.
func (s *Store) TimesSince(ctx context.Context, userID uint64, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := s.DB.WithContext(ctx).
		Model(&Conversation{}).
		Where("user_id = ? AND timestamp >= ?", userID, since).
		Order("timestamp asc").
		Pluck("timestamp", &times).Error
	return times, err
}

// ActiveUserIDs lists users with any conversation since the given instant.
// The sweep worker iterates over exactly this set.
func (s *Store) ActiveUserIDs(ctx context.Context, since time.Time) ([]uint64, error) {
	var ids []uint64
	err := s.DB.WithContext(ctx).
		Model(&Conversation{}).
		Distinct("user_id").
		Where("timestamp >= ?", since).
		Pluck("user_id", &ids).Error
	return ids, err
}

// CreateJournalEntry files a reflection for the given calendar day.
func (s *Store) CreateJournalEntry(ctx context.Context, userID uint64, day, content string) (uint64, error) {
	e := JournalEntry{
		UserID:    userID,
		Date:      day,
		Content:   content,
		Mood:      "neutral",
		CreatedAt: time.Now(),
	}
	if err := s.DB.WithContext(ctx).Create(&e).Error; err != nil {
		return 0, err
	}
	return e.ID, nil
}

// LogConversation appends to the conversation log.
func (s *Store) LogConversation(ctx context.Context, userID uint64, at time.Time, userMsg, aiMsg string) (uint64, error) {
	c := Conversation{
		UserID:      userID,
		Timestamp:   at,
		UserMessage: userMsg,
		AIResponse:  aiMsg,
		CreatedAt:   time.Now(),
	}
	if err := s.DB.WithContext(ctx).Create(&c).Error; err != nil {
		return 0, err
	}
	return c.ID, nil
}
