package db

import (
	"fmt"

	"pal/internal/auth"
	"pal/internal/message"
	"pal/internal/pattern"
	"pal/internal/planner"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&message.Message{},
		&message.Initiation{},
		&pattern.Pattern{},
		&planner.Task{},
		&planner.Schedule{},
		&planner.Goal{},
		&planner.JournalEntry{},
		&planner.Conversation{},
		&auth.User{},
	); err != nil {
		return err
	}

	stmts := []string{
		// The sweep's once-per-day existence checks: exact-match lookups
		// over (user, kind, day), plus related_id for per-task reminders,
		// instead of pattern-matching serialized metadata.
		`create index if not exists idx_queue_kind_day on ai_messages_queue(user_id, message_type, due_date);`,
		`create index if not exists idx_queue_task_day on ai_messages_queue(user_id, message_type, related_id, due_date);`,

		// Delivery polling and the trailing-hour rate limit.
		`create index if not exists idx_queue_due on ai_messages_queue(user_id, sent, scheduled_time);`,
		`create index if not exists idx_queue_sent_at on ai_messages_queue(user_id, sent, sent_at);`,

		`create index if not exists idx_initiations_user on conversation_initiations(user_id, initiated_at desc);`,
		`create index if not exists idx_conversations_user_ts on conversations(user_id, timestamp desc);`,
		`create index if not exists idx_tasks_user_status on tasks(user_id, status);`,
		`create index if not exists idx_schedules_user_start on schedules(user_id, start_time);`,
		`create index if not exists idx_goals_user_status on goals(user_id, status);`,
		`create index if not exists idx_journal_user_date on journal_entries(user_id, date);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
