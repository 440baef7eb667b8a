package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pal/internal/auth"
	"pal/internal/pattern"
)

type PatternHandler struct {
	Store *pattern.Store
}

type patternDTO struct {
	TypicalMorningTime string  `json:"typical_morning_time"`
	TypicalEveningTime string  `json:"typical_evening_time"`
	QuietHoursStart    *string `json:"quiet_hours_start"`
	QuietHoursEnd      *string `json:"quiet_hours_end"`
}

func (h *PatternHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	p, err := h.Store.Get(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(patternDTO{
		TypicalMorningTime: p.TypicalMorningTime,
		TypicalEveningTime: p.TypicalEveningTime,
		QuietHoursStart:    p.QuietHoursStart,
		QuietHoursEnd:      p.QuietHoursEnd,
	})
}

func (h *PatternHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req patternDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.TypicalMorningTime == "" {
		req.TypicalMorningTime = pattern.DefaultMorning
	}
	if req.TypicalEveningTime == "" {
		req.TypicalEveningTime = pattern.DefaultEvening
	}

	err := h.Store.Update(r.Context(), pattern.Pattern{
		UserID:             uid,
		TypicalMorningTime: req.TypicalMorningTime,
		TypicalEveningTime: req.TypicalEveningTime,
		QuietHoursStart:    req.QuietHoursStart,
		QuietHoursEnd:      req.QuietHoursEnd,
	}, time.Now())
	if errors.Is(err, pattern.ErrQuietHoursWrap) || errors.Is(err, pattern.ErrBadClock) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PatternHandler) Learn(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	p, err := h.Store.Learn(r.Context(), uid, time.Now())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(patternDTO{
		TypicalMorningTime: p.TypicalMorningTime,
		TypicalEveningTime: p.TypicalEveningTime,
		QuietHoursStart:    p.QuietHoursStart,
		QuietHoursEnd:      p.QuietHoursEnd,
	})
}
