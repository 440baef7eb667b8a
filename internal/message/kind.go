package message

// Kind is the closed set of proactive message categories. Keeping it a
// typed enum means the generators, the send policy and the queue all agree
// on one spelling of each category.
type Kind string

const (
	KindMorningCheckin    Kind = "morning_checkin"
	KindEveningReflection Kind = "evening_reflection"
	KindEveningSimple     Kind = "evening_simple"
	KindWeeklyReview      Kind = "weekly_review"
	KindGoalCheckin       Kind = "goal_checkin"
	KindTaskReminder      Kind = "task_reminder"
	KindHabitReminder     Kind = "habit_reminder"
	KindBreakSuggestion   Kind = "break_suggestion"
	KindEncouragement     Kind = "encouragement"
	KindScheduleReminder  Kind = "schedule_reminder"
	KindTaskDeadline      Kind = "task_deadline"
)

func (k Kind) Valid() bool {
	switch k {
	case KindMorningCheckin, KindEveningReflection, KindEveningSimple,
		KindWeeklyReview, KindGoalCheckin, KindTaskReminder,
		KindHabitReminder, KindBreakSuggestion, KindEncouragement,
		KindScheduleReminder, KindTaskDeadline:
		return true
	}
	return false
}

// Priority orders delivery; lower value means more urgent.
type Priority int

const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityMedium   Priority = 3
	PriorityLow      Priority = 4
)
