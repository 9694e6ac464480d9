// Package session orchestrates interview sessions: it owns the turn-indexed
// message log, persists transcript lines and drives the interview agent
// once per user turn.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mockview/interviewer/internal/model/interview"
	"github.com/mockview/interviewer/internal/service/transcript"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionEnded    = errors.New("interview already ended")
	ErrEmptyMessage    = errors.New("message content is required")
	ErrNotEnded        = errors.New("interview not ended yet")
)

// Agent is the per-session interview driver. Each session gets its own
// instance so used-question state never leaks across sessions.
type Agent interface {
	Name() string
	GenerateReply(ctx context.Context, messages []interview.Message, state *interview.State) interview.Reply
	GeneratePerformanceSummary(ctx context.Context, messages []interview.Message) string
}

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	Reply   interview.Message
	Ended   bool
	Summary string
}

type sessionState struct {
	mu        sync.Mutex
	session   interview.Session
	agent     Agent
	messages  []interview.Message
	turnIndex int
	forceEnd  bool
	ended     bool
	summary   string
}

// Service manages all live sessions in memory and persists their
// transcripts. Construction takes an agent factory so every session starts
// with a fresh agent.
type Service struct {
	newAgent    func() Agent
	transcripts *transcript.Store

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

// NewService creates the orchestrator.
func NewService(newAgent func() Agent, transcripts *transcript.Store) *Service {
	return &Service{
		newAgent:    newAgent,
		transcripts: transcripts,
		sessions:    make(map[string]*sessionState),
	}
}

// CreateSession provisions a new interview with a fresh agent.
func (s *Service) CreateSession(_ context.Context) (interview.Session, error) {
	agent := s.newAgent()
	session := interview.Session{
		ID:        uuid.NewString(),
		Agent:     agent.Name(),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = &sessionState{session: session, agent: agent}
	s.mu.Unlock()

	s.persistEvent(session.ID, "session_started", map[string]any{"agent": agent.Name()})
	log.Info().Str("session_id", session.ID).Str("agent", agent.Name()).Msg("session created")
	return session, nil
}

func (s *Service) state(sessionID string) (*sessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return st, nil
}

// PostMessage runs one turn: append the user message, generate the reply,
// append it, and on termination generate the performance summary. Posting
// to an ended session fails with ErrSessionEnded.
func (s *Service) PostMessage(ctx context.Context, sessionID, content string) (TurnResult, error) {
	if content == "" {
		return TurnResult{}, ErrEmptyMessage
	}

	st, err := s.state(sessionID)
	if err != nil {
		return TurnResult{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.ended {
		return TurnResult{}, ErrSessionEnded
	}

	userMsg := interview.Message{
		Role:      interview.RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
		TurnIndex: st.turnIndex,
	}
	st.turnIndex++
	st.messages = append(st.messages, userMsg)
	s.persistMessage(sessionID, userMsg)

	history := append([]interview.Message(nil), st.messages...)
	reply := st.agent.GenerateReply(ctx, history, &interview.State{
		SessionID: sessionID,
		ForceEnd:  st.forceEnd,
	})

	assistantMsg := interview.Message{
		Role:      interview.RoleAssistant,
		Content:   reply.Text,
		Timestamp: time.Now().UTC(),
		TurnIndex: st.turnIndex,
		Metadata:  reply.Metadata,
	}
	st.turnIndex++
	st.messages = append(st.messages, assistantMsg)
	s.persistMessage(sessionID, assistantMsg)

	result := TurnResult{Reply: assistantMsg}
	if reply.End {
		st.ended = true
		s.persistEvent(sessionID, "interview_ended", map[string]any{"turns": st.turnIndex})

		st.summary = st.agent.GeneratePerformanceSummary(ctx, append([]interview.Message(nil), st.messages...))
		s.persistEvent(sessionID, "summary_generated", map[string]any{"length": len(st.summary)})

		result.Ended = true
		result.Summary = st.summary
		log.Info().Str("session_id", sessionID).Int("turns", st.turnIndex).Msg("interview ended")
	}

	return result, nil
}

// RequestEnd flags the session so the agent terminates on the next turn.
func (s *Service) RequestEnd(sessionID string) error {
	st, err := s.state(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ended {
		return ErrSessionEnded
	}
	st.forceEnd = true
	s.persistEvent(sessionID, "end_requested", nil)
	return nil
}

// GetSession returns the session descriptor and whether it has ended.
func (s *Service) GetSession(sessionID string) (interview.Session, bool, error) {
	st, err := s.state(sessionID)
	if err != nil {
		return interview.Session{}, false, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.session, st.ended, nil
}

// Transcript returns a copy of the session's ordered message log.
func (s *Service) Transcript(sessionID string) ([]interview.Message, error) {
	st, err := s.state(sessionID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]interview.Message(nil), st.messages...), nil
}

// Summary returns the performance summary once the interview has ended.
func (s *Service) Summary(sessionID string) (string, error) {
	st, err := s.state(sessionID)
	if err != nil {
		return "", err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.ended {
		return "", ErrNotEnded
	}
	return st.summary, nil
}

// Transcript persistence is best-effort: a storage failure is logged, never
// surfaced to the candidate.
func (s *Service) persistMessage(sessionID string, msg interview.Message) {
	if s.transcripts == nil {
		return
	}
	if err := s.transcripts.AppendMessage(sessionID, msg); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("transcript message persist failed")
	}
}

func (s *Service) persistEvent(sessionID, event string, details map[string]any) {
	if s.transcripts == nil {
		return
	}
	if err := s.transcripts.AppendEvent(sessionID, event, details); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Str("event", event).Msg("transcript event persist failed")
	}
}
