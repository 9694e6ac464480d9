package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	interviewHandler "github.com/mockview/interviewer/internal/handler/interview"
	liveHandler "github.com/mockview/interviewer/internal/handler/live"
	"github.com/mockview/interviewer/internal/model/question"
	sessionService "github.com/mockview/interviewer/internal/service/session"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(sessions *sessionService.Service, bank *question.Bank, opening string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}).Handler)

	r.Route("/api", func(api chi.Router) {
		interviewHandler.New(sessions, bank, opening).RegisterRoutes(api)
		liveHandler.New(sessions).RegisterRoutes(api)
	})

	return r
}
