package planner

import "time"

// Task/goal status and priority values. Free-text in the wire format, but
// the queries below only ever match these.
const (
	TaskStatusPending       = "pending"
	TaskStatusDone          = "done"
	GoalStatusActive        = "active"
	ScheduleStatusCancelled = "cancelled"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

type Task struct {
	ID          uint64 `gorm:"primaryKey"`
	UserID      uint64 `gorm:"index;not null"`
	Title       string `gorm:"type:text;not null"`
	Description string `gorm:"type:text"`
	Priority    string `gorm:"not null;default:'medium'"`
	DueDate     *time.Time
	Status      string    `gorm:"not null;default:'pending'"`
	CreatedAt   time.Time `gorm:"not null"`
}

type Schedule struct {
	ID        uint64    `gorm:"primaryKey"`
	UserID    uint64    `gorm:"index;not null"`
	Title     string    `gorm:"type:text;not null"`
	StartTime time.Time `gorm:"index;not null"`
	EndTime   *time.Time
	Location  string    `gorm:"type:text"`
	Status    string    `gorm:"not null;default:'confirmed'"`
	CreatedAt time.Time `gorm:"not null"`
}

type Goal struct {
	ID                 uint64 `gorm:"primaryKey"`
	UserID             uint64 `gorm:"index;not null"`
	Title              string `gorm:"type:text;not null"`
	Description        string `gorm:"type:text"`
	Category           string `gorm:"type:text"`
	TargetDate         *time.Time
	ProgressPercentage int       `gorm:"not null;default:0"`
	Status             string    `gorm:"not null;default:'active'"`
	CreatedAt          time.Time `gorm:"not null"`
}

// JournalEntry keys on the local calendar day so "already reflected today"
// is an exact match.
type JournalEntry struct {
	ID          uint64    `gorm:"primaryKey"`
	UserID      uint64    `gorm:"index;not null"`
	Date        string    `gorm:"index;not null"` // "2006-01-02"
	Content     string    `gorm:"type:text;not null"`
	Mood        string    `gorm:"type:text"`
	EnergyLevel int       `gorm:"not null;default:5"`
	CreatedAt   time.Time `gorm:"not null"`
}

// Conversation is one logged exchange. Its timestamps are what the pattern
// learner and the active-user listing run on.
type Conversation struct {
	ID          uint64    `gorm:"primaryKey"`
	UserID      uint64    `gorm:"index;not null"`
	Timestamp   time.Time `gorm:"index;not null"`
	UserMessage string    `gorm:"type:text;not null"`
	AIResponse  string    `gorm:"type:text;not null"`
	ModelUsed   string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
}
