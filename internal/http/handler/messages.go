package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"pal/internal/auth"
	"pal/internal/initiator"
	"pal/internal/message"
	"pal/internal/planner"

	"github.com/go-chi/chi/v5"
)

type MessageHandler struct {
	Queue   *message.Queue
	Deliver *initiator.Deliver
	Planner *planner.Store
}

type messageDTO struct {
	ID               string           `json:"id"`
	Kind             message.Kind     `json:"message_type"`
	Priority         message.Priority `json:"priority"`
	Body             string           `json:"content"`
	ScheduledTime    time.Time        `json:"scheduled_time"`
	RequiresResponse bool             `json:"requires_response"`
	Metadata         json.RawMessage  `json:"metadata"`
}

func toDTO(m message.Message) messageDTO {
	return messageDTO{
		ID:               m.ID,
		Kind:             m.Kind,
		Priority:         m.Priority,
		Body:             m.Body,
		ScheduledTime:    m.ScheduledTime,
		RequiresResponse: m.RequiresResponse,
		Metadata:         m.Metadata,
	}
}

// Pending releases and returns the messages due right now. Marking happens
// inside Deliver, so a concurrent poll cannot return the same message.
func (h *MessageHandler) Pending(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	msgs, err := h.Deliver.Pending(r.Context(), uid, time.Now())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]messageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toDTO(m))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"has_messages": len(out) > 0,
		"count":        len(out),
		"messages":     out,
	})
}

func (h *MessageHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	m, err := h.Queue.Get(r.Context(), uid, id)
	if errors.Is(err, message.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	ok, err := h.Queue.MarkAcknowledged(r.Context(), id, time.Now())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if m.SentAt != nil {
		if err := h.Queue.RecordInitiation(r.Context(), uid, *m.SentAt, m.Kind, true, nil); err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

type respondReq struct {
	Message string `json:"message"`
}

// Respond handles a reply to an assistant-initiated message: it records the
// acknowledgement with response time, logs the exchange, and files an
// evening reflection as today's journal entry.
func (h *MessageHandler) Respond(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req respondReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		http.Error(w, "message required", http.StatusBadRequest)
		return
	}

	m, err := h.Queue.Get(r.Context(), uid, id)
	if errors.Is(err, message.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	if _, err := h.Queue.MarkAcknowledged(r.Context(), id, now); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	if m.SentAt != nil {
		secs := int(now.Sub(*m.SentAt).Seconds())
		if err := h.Queue.RecordInitiation(r.Context(), uid, *m.SentAt, m.Kind, true, &secs); err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
	}

	reply := "Got it, thanks for telling me!"
	if m.Kind == message.KindEveningReflection {
		if _, err := h.Planner.CreateJournalEntry(r.Context(), uid, message.DayOf(now), req.Message); err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		reply += " I saved today's entry."
	}

	convID, err := h.Planner.LogConversation(r.Context(), uid, now, req.Message, reply)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"conversation_id": convID,
		"ai_response":     reply,
	})
}

type triggerReq struct {
	Type          message.Kind `json:"type"`
	Context       string       `json:"context"`
	Title         string       `json:"title"`
	CurrentStreak int          `json:"current_streak"`
	WorkMinutes   int          `json:"work_minutes"`
}

// Trigger enqueues one message of the requested kind immediately. This is
// the explicit escape hatch around the sweep's once-per-day dedup.
func (h *MessageHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req triggerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	now := time.Now()
	var draft message.Draft

	switch req.Type {
	case message.KindMorningCheckin:
		schedules, err := h.Planner.TodaySchedule(r.Context(), uid, now)
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		tasks, err := h.Planner.PendingTasks(r.Context(), uid)
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		goals, err := h.Planner.ActiveGoals(r.Context(), uid)
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		draft = message.Morning(scheduleInputs(schedules), taskInputs(tasks), goalInputs(goals))

	case message.KindEveningReflection:
		entry, err := h.Planner.JournalEntryOn(r.Context(), uid, message.DayOf(now))
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		schedules, err := h.Planner.TodaySchedule(r.Context(), uid, now)
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		draft = message.Evening(entry != nil, len(schedules))

	case message.KindWeeklyReview:
		draft = message.WeeklyReview()

	case message.KindEncouragement:
		draft = message.Encouragement(req.Context)

	case message.KindHabitReminder:
		if strings.TrimSpace(req.Title) == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}
		draft = message.HabitReminder(message.HabitInput{Title: req.Title, CurrentStreak: req.CurrentStreak})

	case message.KindBreakSuggestion:
		if req.WorkMinutes <= 0 {
			http.Error(w, "work_minutes required", http.StatusBadRequest)
			return
		}
		draft = message.BreakSuggestion(req.WorkMinutes)

	default:
		http.Error(w, "unknown message type", http.StatusBadRequest)
		return
	}

	id, err := h.Queue.Enqueue(r.Context(), uid, draft, now)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
}

func (h *MessageHandler) Stats(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	stats, err := h.Queue.Stats(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

func taskInputs(tasks []planner.Task) []message.TaskInput {
	out := make([]message.TaskInput, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, message.TaskInput{ID: t.ID, Title: t.Title, Priority: t.Priority, DueDate: t.DueDate})
	}
	return out
}

func scheduleInputs(rows []planner.Schedule) []message.ScheduleInput {
	out := make([]message.ScheduleInput, 0, len(rows))
	for _, s := range rows {
		out = append(out, message.ScheduleInput{Title: s.Title, StartTime: s.StartTime})
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
