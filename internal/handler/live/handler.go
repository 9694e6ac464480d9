// Package live exposes an interview session over a WebSocket so a client
// can hold the whole conversation on one connection.
package live

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	sessionService "github.com/mockview/interviewer/internal/service/session"
	"github.com/mockview/interviewer/pkg/utils"
)

// Handler upgrades interview sessions to a WebSocket turn channel.
type Handler struct {
	sessions *sessionService.Service
	upgrader websocket.Upgrader
}

// New creates the live handler.
func New(sessions *sessionService.Service) *Handler {
	return &Handler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/live/{sessionID}", h.handleLive)
}

type inboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type outboundFrame struct {
	Type     string         `json:"type"`
	Content  string         `json:"content,omitempty"`
	Ended    bool           `json:"ended,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, _, err := h.sessions.GetSession(sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log.Info().Str("session_id", sessionID).Msg("live channel opened")

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("live channel read error")
			}
			return
		}

		if frame.Type != "message" || frame.Content == "" {
			h.writeFrame(conn, sessionID, outboundFrame{Type: "error", Error: "expected frame {type:\"message\", content}"})
			continue
		}

		result, err := h.sessions.PostMessage(r.Context(), sessionID, frame.Content)
		if err != nil {
			switch {
			case errors.Is(err, sessionService.ErrSessionEnded):
				h.writeFrame(conn, sessionID, outboundFrame{Type: "error", Error: "interview already ended"})
				return
			default:
				h.writeFrame(conn, sessionID, outboundFrame{Type: "error", Error: "failed to process message"})
				continue
			}
		}

		h.writeFrame(conn, sessionID, outboundFrame{
			Type:     "reply",
			Content:  result.Reply.Content,
			Ended:    result.Ended,
			Metadata: result.Reply.Metadata,
		})

		if result.Ended {
			h.writeFrame(conn, sessionID, outboundFrame{Type: "summary", Content: result.Summary, Ended: true})
			return
		}
	}
}

func (h *Handler) writeFrame(conn *websocket.Conn, sessionID string, frame outboundFrame) {
	if err := conn.WriteJSON(frame); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("live channel write failed")
	}
}
