package interview

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mockview/interviewer/internal/model/question"
	sessionService "github.com/mockview/interviewer/internal/service/session"
	"github.com/mockview/interviewer/pkg/utils"
)

// Handler exposes the interview session lifecycle over HTTP.
type Handler struct {
	sessions *sessionService.Service
	bank     *question.Bank
	opening  string
}

// New creates the interview handler. opening is the greeting shown when a
// session is created, before the first generation call.
func New(sessions *sessionService.Service, bank *question.Bank, opening string) *Handler {
	return &Handler{
		sessions: sessions,
		bank:     bank,
		opening:  opening,
	}
}

// RegisterRoutes mounts the interview routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/interviews", h.handleCreate)
	r.Get("/interviews/{sessionID}", h.handleGet)
	r.Post("/interviews/{sessionID}/messages", h.handleMessage)
	r.Post("/interviews/{sessionID}/end", h.handleEnd)
	r.Get("/interviews/{sessionID}/transcript", h.handleTranscript)
	r.Get("/interviews/{sessionID}/summary", h.handleSummary)
	r.Get("/questions/stats", h.handleBankStats)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"id":        session.ID,
		"agent":     session.Agent,
		"createdAt": session.CreatedAt,
		"opening":   h.opening,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, ended, err := h.sessions.GetSession(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"id":        session.ID,
		"agent":     session.Agent,
		"createdAt": session.CreatedAt,
		"ended":     ended,
	})
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Content == "" {
		utils.RespondError(w, http.StatusBadRequest, "content is required")
		return
	}

	result, err := h.sessions.PostMessage(r.Context(), sessionID, payload.Content)
	if err != nil {
		switch {
		case errors.Is(err, sessionService.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, sessionService.ErrSessionEnded):
			utils.RespondError(w, http.StatusConflict, "interview already ended")
		default:
			utils.RespondError(w, http.StatusInternalServerError, "failed to process message")
		}
		return
	}

	response := map[string]any{
		"reply": result.Reply,
		"ended": result.Ended,
	}
	if result.Ended {
		response["summary"] = result.Summary
	}
	utils.RespondJSON(w, http.StatusOK, response)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.sessions.RequestEnd(sessionID); err != nil {
		switch {
		case errors.Is(err, sessionService.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, sessionService.ErrSessionEnded):
			utils.RespondError(w, http.StatusConflict, "interview already ended")
		default:
			utils.RespondError(w, http.StatusInternalServerError, "failed to request end")
		}
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "ending"})
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.sessions.Transcript(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"messages":  messages,
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	summary, err := h.sessions.Summary(sessionID)
	if err != nil {
		switch {
		case errors.Is(err, sessionService.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, sessionService.ErrNotEnded):
			utils.RespondError(w, http.StatusNotFound, "summary not available yet")
		default:
			utils.RespondError(w, http.StatusInternalServerError, "failed to load summary")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"sessionId": sessionID,
		"summary":   summary,
	})
}

func (h *Handler) handleBankStats(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"count":        h.bank.Count(),
		"capabilities": h.bank.Capabilities(),
		"difficulties": h.bank.Difficulties(),
	})
}
