package http

import (
	"net/http"

	"pal/internal/auth"
	"pal/internal/config"
	"pal/internal/http/handler"
	mw "pal/internal/http/middleware"
	"pal/internal/initiator"
	"pal/internal/message"
	"pal/internal/pattern"
	"pal/internal/planner"
	"pal/internal/policy"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{}
	r.With(auth.RequireAuth(jwtSvc)).Get("/me", me.Me)

	plannerStore := &planner.Store{DB: db}
	queue := &message.Queue{DB: db}
	patterns := &pattern.Store{DB: db, Conversations: plannerStore}
	deliver := &initiator.Deliver{
		Queue:  queue,
		Policy: &policy.Policy{Patterns: patterns, Queue: queue},
	}

	msgH := &handler.MessageHandler{Queue: queue, Deliver: deliver, Planner: plannerStore}
	patH := &handler.PatternHandler{Store: patterns}

	r.Route("/messages", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/pending", msgH.Pending)
		r.Get("/stats", msgH.Stats)
		r.Post("/trigger", msgH.Trigger)
		r.Post("/{id}/acknowledge", msgH.Acknowledge)
		r.Post("/{id}/respond", msgH.Respond)
	})

	r.Route("/patterns", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/", patH.Get)
		r.Post("/", patH.Update)
		r.Post("/learn", patH.Learn)
	})

	return r
}
