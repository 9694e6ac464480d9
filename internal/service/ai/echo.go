package ai

import (
	"context"
	"fmt"

	"github.com/mockview/interviewer/internal/model/interview"
)

// EchoAgent is the built-in stub used when no generation backend is
// configured, keeping the server runnable end to end.
type EchoAgent struct{}

// NewEchoAgent returns the stub agent.
func NewEchoAgent() *EchoAgent {
	return &EchoAgent{}
}

func (e *EchoAgent) Name() string {
	return "local-echo-stub"
}

func (e *EchoAgent) GenerateReply(_ context.Context, messages []interview.Message, state *interview.State) interview.Reply {
	var lastUser *interview.Message
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == interview.RoleUser {
			lastUser = &messages[i]
			break
		}
	}

	text := "Hello! I'm a stubbed interviewer. Tell me about your skills."
	if lastUser != nil {
		text = fmt.Sprintf("Stub reply: I received your message %q.", lastUser.Content)
	}

	end := state != nil && state.ForceEnd
	if end {
		text = "Stub reply: understood, wrapping up the interview here."
	}

	return interview.Reply{
		Text:     text,
		End:      end,
		Metadata: map[string]any{"agent": e.Name()},
	}
}

func (e *EchoAgent) GeneratePerformanceSummary(_ context.Context, _ []interview.Message) string {
	return fallbackSummary
}
