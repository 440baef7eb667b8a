package message

import (
	"encoding/json"
	"time"
)

// Message is one queued proactive message. Rows are append-only: delivery
// and acknowledgement flip flags, nothing is deleted.
type Message struct {
	ID     string `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`

	Kind     Kind     `gorm:"column:message_type;type:text;not null"`
	Priority Priority `gorm:"not null"`
	Body     string   `gorm:"column:message_content;type:text;not null"`

	ScheduledTime time.Time `gorm:"not null"`

	// DueDate is the local calendar day of ScheduledTime ("2006-01-02").
	// Its own indexed column, so the sweep's once-per-day checks are exact
	// matches instead of substring games over timestamps.
	DueDate string `gorm:"index;not null"`

	// RelatedID carries the task/goal the message is about, for exact-match
	// dedup of per-entity reminders. Empty for the daily kinds.
	RelatedID string `gorm:"index;not null;default:''"`

	Sent   bool       `gorm:"not null;default:false"`
	SentAt *time.Time `gorm:"index"`

	Acknowledged   bool       `gorm:"not null;default:false"`
	AcknowledgedAt *time.Time

	RequiresResponse bool            `gorm:"not null;default:false"`
	Metadata         json.RawMessage `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null"`
}

func (Message) TableName() string { return "ai_messages_queue" }

// Initiation is the append-only record of an exchange the assistant
// started. Used for statistics only, never for control flow.
type Initiation struct {
	ID          uint64    `gorm:"primaryKey"`
	UserID      uint64    `gorm:"index;not null"`
	InitiatedAt time.Time `gorm:"not null"`
	Kind        Kind      `gorm:"column:message_type;type:text;not null"`

	UserResponded       bool `gorm:"not null;default:false"`
	ResponseTimeSeconds *int
	UserSentiment       *string `gorm:"type:text"`
}

func (Initiation) TableName() string { return "conversation_initiations" }

// DayOf is the local calendar day a timestamp falls on.
func DayOf(t time.Time) string { return t.Format("2006-01-02") }
