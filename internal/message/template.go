package message

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Draft is what a template generator produces: everything the queue needs
// except the owner and the delivery time, which the caller decides.
type Draft struct {
	Kind             Kind
	Priority         Priority
	Body             string
	RequiresResponse bool
	Metadata         map[string]any
	RelatedID        string
}

// Generator inputs. The sweep maps planner rows onto these so the
// generators stay pure functions of plain data.

type TaskInput struct {
	ID       uint64
	Title    string
	Priority string // "high", "medium", "low"
	DueDate  *time.Time
}

type ScheduleInput struct {
	Title     string
	StartTime time.Time
}

type GoalInput struct {
	ID       uint64
	Title    string
	Progress int // percentage, 0..100
}

type HabitInput struct {
	Title         string
	CurrentStreak int
}

var morningGreetings = []string{
	"Good morning!",
	"Good morning! Let's make today a good one.",
	"Morning! A brand new day ahead.",
}

// Morning builds the daily check-in: greeting, today's schedule, up to two
// high-priority tasks and the first active goal's progress.
func Morning(schedules []ScheduleInput, tasks []TaskInput, goals []GoalInput) Draft {
	var b strings.Builder
	b.WriteString(morningGreetings[rand.Intn(len(morningGreetings))])
	b.WriteString("\n\n")

	if len(schedules) > 0 {
		fmt.Fprintf(&b, "You have %d appointments today.\n", len(schedules))
		first := schedules[0]
		fmt.Fprintf(&b, "First up: %s - %s\n\n", first.StartTime.Format("15:04"), first.Title)
	} else {
		b.WriteString("Nothing on the calendar today.\n\n")
	}

	var urgent []TaskInput
	for _, t := range tasks {
		if t.Priority == "high" {
			urgent = append(urgent, t)
			if len(urgent) == 2 {
				break
			}
		}
	}
	if len(urgent) > 0 {
		b.WriteString("Worth tackling today:\n")
		for _, t := range urgent {
			fmt.Fprintf(&b, "- %s\n", t.Title)
		}
		b.WriteString("\n")
	}

	if len(goals) > 0 && goals[0].Progress > 0 {
		g := goals[0]
		fmt.Fprintf(&b, "%q is at %d%%.\n", g.Title, g.Progress)
	}

	b.WriteString("\nWhat will you take on today? I'm rooting for you!")

	return Draft{
		Kind:     KindMorningCheckin,
		Priority: PriorityMedium,
		Body:     b.String(),
	}
}

// Evening builds the end-of-day message. If a journal entry already exists
// for today, it only sends a light acknowledgement instead of asking the
// user to reflect again.
func Evening(journalExists bool, scheduleCount int) Draft {
	if journalExists {
		return Draft{
			Kind:     KindEveningSimple,
			Priority: PriorityLow,
			Body:     "That's a wrap on today. Rest well!",
		}
	}

	var b strings.Builder
	b.WriteString("That's a wrap on today!\n\n")
	if scheduleCount > 0 {
		fmt.Fprintf(&b, "You got through %d appointments.\n\n", scheduleCount)
	}
	b.WriteString("Want to look back on the day for a moment?\n\n")
	b.WriteString("A few prompts:\n")
	b.WriteString("- something that went well\n")
	b.WriteString("- something you learned\n")
	b.WriteString("- something you're grateful for\n\n")
	b.WriteString("Anything goes. Just tell me about it.")

	return Draft{
		Kind:             KindEveningReflection,
		Priority:         PriorityHigh,
		Body:             b.String(),
		RequiresResponse: true,
	}
}

// GoalCheckin encourages based on which progress band the goal sits in.
func GoalCheckin(g GoalInput) Draft {
	var b strings.Builder
	fmt.Fprintf(&b, "Progress check on %q.\n\n", g.Title)
	fmt.Fprintf(&b, "Currently at %d%%.\n\n", g.Progress)

	switch {
	case g.Progress < 20:
		b.WriteString("You're just getting started. The first step is the hardest one; no need to rush.\n\n")
	case g.Progress < 50:
		b.WriteString("You're making steady progress. Keep the pace going.\n\n")
	case g.Progress < 80:
		b.WriteString("Great progress! The finish line is coming into view.\n\n")
	default:
		b.WriteString("Almost there! Just a little more to go.\n\n")
	}

	b.WriteString("How has it been going lately?\nLet me know if anything is in the way.")

	return Draft{
		Kind:             KindGoalCheckin,
		Priority:         PriorityMedium,
		Body:             b.String(),
		RequiresResponse: true,
		Metadata:         map[string]any{"goal_id": g.ID},
		RelatedID:        fmt.Sprintf("%d", g.ID),
	}
}

// TaskReminder phrases urgency from how many days remain until the due
// date, measured in local calendar days from today.
func TaskReminder(t TaskInput, today time.Time) Draft {
	urgency := "no deadline"
	if t.DueDate != nil {
		switch d := daysBetween(today, *t.DueDate); {
		case d == 0:
			urgency = "due today"
		case d == 1:
			urgency = "due tomorrow"
		default:
			urgency = fmt.Sprintf("%d days left", d)
		}
	}

	var b strings.Builder
	b.WriteString("A reminder about a task.\n\n")
	fmt.Fprintf(&b, "%q\nDeadline: %s\n\n", t.Title, urgency)
	if t.Priority == "high" {
		b.WriteString("This one is high priority.\n")
	}
	b.WriteString("Shall we get to it?")

	return Draft{
		Kind:             KindTaskReminder,
		Priority:         PriorityHigh,
		Body:             b.String(),
		RequiresResponse: true,
		Metadata:         map[string]any{"task_id": t.ID},
		RelatedID:        fmt.Sprintf("%d", t.ID),
	}
}

// HabitReminder acknowledges a running streak, or invites a fresh start.
func HabitReminder(h HabitInput) Draft {
	var b strings.Builder
	b.WriteString("Habit reminder.\n\n")
	fmt.Fprintf(&b, "%q\nHave you done it today?\n\n", h.Title)
	if h.CurrentStreak > 0 {
		fmt.Fprintf(&b, "You're on a %d-day streak. Keep it alive!", h.CurrentStreak)
	} else {
		b.WriteString("Today is a good day to start again!")
	}

	return Draft{
		Kind:             KindHabitReminder,
		Priority:         PriorityMedium,
		Body:             b.String(),
		RequiresResponse: true,
	}
}

// BreakSuggestion is triggered externally by elapsed focus time.
func BreakSuggestion(workMinutes int) Draft {
	var b strings.Builder
	b.WriteString("Time for a break?\n\n")
	fmt.Fprintf(&b, "You've been at it for %d minutes.\n", workMinutes)
	b.WriteString("How about stepping away for a bit?\n\n")
	b.WriteString("Some ideas:\n")
	b.WriteString("- stretch for five minutes\n")
	b.WriteString("- look out the window\n")
	b.WriteString("- drink some water\n")
	b.WriteString("- take a short walk\n\n")
	b.WriteString("Come back refreshed and dive back in!")

	return Draft{
		Kind:     KindBreakSuggestion,
		Priority: PriorityLow,
		Body:     b.String(),
	}
}

// WeeklyReview is the fixed Sunday-evening prompt.
func WeeklyReview() Draft {
	var b strings.Builder
	b.WriteString("You made it through another week!\n\n")
	b.WriteString("Want to look back on it together?\n\n")
	b.WriteString("Tell me:\n")
	b.WriteString("1. What was your biggest win this week?\n")
	b.WriteString("2. What did you learn?\n")
	b.WriteString("3. What would you like to improve next week?\n\n")
	b.WriteString("Looking back is how progress becomes visible.")

	return Draft{
		Kind:             KindWeeklyReview,
		Priority:         PriorityHigh,
		Body:             b.String(),
		RequiresResponse: true,
	}
}

var encouragements = map[string]string{
	"struggling":      "It's okay, some days just don't go to plan. Tomorrow is another chance, and we'll get through it together.",
	"tired":           "You sound worn out. Don't push yourself; resting is part of the work too.",
	"procrastinating": "Starting is the hardest part. How about just five minutes? Small steps count.",
	"celebrating":     "Fantastic! You earned this one. Take a moment to enjoy it!",
}

// Encouragement picks a canned line for the context tag, with a generic
// fallback for unknown tags.
func Encouragement(context string) Draft {
	body, ok := encouragements[context]
	if !ok {
		body = "I'm rooting for you. Let's keep at it together!"
	}
	return Draft{
		Kind:     KindEncouragement,
		Priority: PriorityMedium,
		Body:     body,
	}
}

// daysBetween counts whole local calendar days from a to b.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da) / (24 * time.Hour))
}
