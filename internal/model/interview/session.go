package interview

import "time"

// Session identifies one candidate's interview run.
type Session struct {
	ID        string    `json:"id"`
	Agent     string    `json:"agent"`
	CreatedAt time.Time `json:"createdAt"`
}

// State carries per-turn session context from the orchestrator to the agent.
type State struct {
	SessionID string
	ForceEnd  bool
}
