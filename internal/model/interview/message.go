package interview

import "time"

// Message roles as they appear in transcripts and prompts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single transcript utterance. Messages are append-only: the
// orchestrator assigns TurnIndex at append time and nothing mutates them
// afterwards.
type Message struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	TurnIndex int            `json:"turnIndex"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
