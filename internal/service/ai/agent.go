package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/mockview/interviewer/internal/model/interview"
	"github.com/mockview/interviewer/internal/model/question"
	"github.com/mockview/interviewer/internal/protocol"
)

const (
	toolFetchQuestion    = "get_next_question"
	toolGenerateQuestion = "generate_question"

	noQuestionText  = "No more suitable questions are available."
	cannotGenerate  = "Unable to generate a new question at this time."
	fallbackReply   = "I apologize, I'm having trouble generating a response right now. Could you repeat or rephrase your last answer?"
	fallbackSummary = "## Performance Evaluation\n\nWe apologize, but we were unable to generate a detailed performance summary at this time due to a technical issue. Please review the interview transcript manually for assessment."
)

// AgentConfig tunes one interview agent.
type AgentConfig struct {
	// MaxAssistantTurns ends the interview once this many assistant
	// messages exist in the transcript.
	MaxAssistantTurns int
}

// Agent conducts a single interview session. It owns that session's
// used-question set, composes prompts, drives the gateway (exposing the
// question tools), decodes the control marker and applies the termination
// heuristic. An agent moves from active to ended exactly once; a new
// session requires a new agent with a fresh used-id set.
type Agent struct {
	gateway Generator
	bank    *question.Bank
	prompts *Prompts
	cfg     AgentConfig

	mu   sync.Mutex
	used map[string]struct{}
}

// NewAgent creates an agent over the shared question bank with an empty
// used-question set.
func NewAgent(gateway Generator, bank *question.Bank, prompts *Prompts, cfg AgentConfig) *Agent {
	if cfg.MaxAssistantTurns <= 0 {
		cfg.MaxAssistantTurns = 10
	}
	return &Agent{
		gateway: gateway,
		bank:    bank,
		prompts: prompts,
		cfg:     cfg,
		used:    make(map[string]struct{}),
	}
}

// Name identifies the active backend for display.
func (a *Agent) Name() string {
	return "ark/" + a.gateway.ModelName()
}

// GenerateReply produces the assistant reply for one turn. Failures never
// propagate: any backend error degrades to a fixed fallback reply with
// end=false and an error descriptor in metadata.
func (a *Agent) GenerateReply(ctx context.Context, messages []interview.Message, state *interview.State) interview.Reply {
	sessionID := ""
	if state != nil {
		sessionID = state.SessionID
	}

	prompt := []*schema.Message{
		schema.SystemMessage(a.prompts.System(a.bank.Count(), a.bank.Capabilities(), a.bank.Difficulties(), sessionID)),
	}
	prompt = append(prompt, toSchemaMessages(messages)...)

	result, err := a.gateway.Generate(ctx, prompt, a.tools())
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Int("messages", len(messages)).
			Msg("reply generation failed")
		return interview.Reply{
			Text: fallbackReply,
			End:  false,
			Metadata: map[string]any{
				"agent": a.Name(),
				"error": err.Error(),
			},
		}
	}

	visible, flags := protocol.Decode(result.Text)
	if flags.QuestionID != "" {
		a.markUsed(flags.QuestionID)
	}

	end := flags.End || a.shouldEnd(messages, state)

	log.Info().Str("session_id", sessionID).Bool("end", end).
		Int("tokens", result.TotalTokens).Int("questions_used", a.usedCount()).
		Msg("reply generated")

	return interview.Reply{
		Text: visible,
		End:  end,
		Metadata: map[string]any{
			"agent":          a.Name(),
			"model":          a.gateway.ModelName(),
			"tokens_used":    result.TotalTokens,
			"questions_used": a.usedCount(),
			"question_id":    flags.QuestionID,
		},
	}
}

// GeneratePerformanceSummary issues one evaluation call over the transcript.
// On failure it returns a fixed apologetic summary, never an error.
func (a *Agent) GeneratePerformanceSummary(ctx context.Context, messages []interview.Message) string {
	prompt := a.prompts.PerformanceEvaluation(transcriptText(messages))

	result, err := a.gateway.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, nil)
	if err != nil {
		log.Error().Err(err).Int("messages", len(messages)).Msg("performance summary failed")
		return fallbackSummary
	}

	log.Info().Int("length", len(result.Text)).Msg("performance summary generated")
	return result.Text
}

// shouldEnd is the local termination heuristic: the assistant-message count
// reaching the configured maximum, or a force-end flag in session state.
func (a *Agent) shouldEnd(messages []interview.Message, state *interview.State) bool {
	if state != nil && state.ForceEnd {
		return true
	}
	assistant := 0
	for _, m := range messages {
		if m.Role == interview.RoleAssistant {
			assistant++
		}
	}
	return assistant >= a.cfg.MaxAssistantTurns
}

func (a *Agent) markUsed(id string) {
	a.mu.Lock()
	a.used[id] = struct{}{}
	a.mu.Unlock()
}

func (a *Agent) usedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.used)
}

func (a *Agent) usedSnapshot() map[string]struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]struct{}, len(a.used))
	for id := range a.used {
		out[id] = struct{}{}
	}
	return out
}

// toolResult is the payload every question tool returns to the backend.
type toolResult struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Difficulty   string   `json:"difficulty"`
	Capabilities []string `json:"capabilities"`
}

type toolArgs struct {
	Capabilities    []string `json:"capabilities"`
	Difficulty      string   `json:"difficulty"`
	AdditionalNotes string   `json:"additional_notes"`
}

func decodeToolArgs(raw json.RawMessage) toolArgs {
	var args toolArgs
	if len(raw) > 0 {
		// Malformed arguments degrade to unfiltered selection.
		_ = json.Unmarshal(raw, &args)
	}
	return args
}

func marshalToolResult(r toolResult) (string, error) {
	if r.Capabilities == nil {
		r.Capabilities = []string{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(data), nil
}

// tools builds the dispatch table exposed to the backend for one turn.
func (a *Agent) tools() []Tool {
	capsParam := func(desc string) *schema.ParameterInfo {
		return &schema.ParameterInfo{
			Type:     schema.Array,
			ElemInfo: &schema.ParameterInfo{Type: schema.String},
			Desc:     desc,
		}
	}

	return []Tool{
		{
			Info: &schema.ToolInfo{
				Name: toolFetchQuestion,
				Desc: "Retrieve the next interview question from the local bank. Questions already used in this session are never repeated.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"capabilities": capsParam("Optional capability tags to target, e.g. [\"Formulas\", \"Pivot Tables\"]."),
					"difficulty":   {Type: schema.String, Desc: "Optional difficulty filter, e.g. Easy, Medium, Hard, Advanced."},
				}),
			},
			Call: a.fetchNextQuestion,
		},
		{
			Info: &schema.ToolInfo{
				Name: toolGenerateQuestion,
				Desc: "Generate a brand-new interview question, persist it to the bank and return it. Use only when the bank has no suitable question.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"capabilities":     capsParam("Optional capability tags to target."),
					"difficulty":       {Type: schema.String, Desc: "Optional target difficulty."},
					"additional_notes": {Type: schema.String, Desc: "Short phrase guiding what the question should emphasise."},
				}),
			},
			Call: a.generateQuestion,
		},
	}
}

// fetchNextQuestion delegates to the bank with this session's used-id set as
// exclusions. A returned question is marked used immediately so the same
// backend call cannot fetch it twice.
func (a *Agent) fetchNextQuestion(_ context.Context, raw json.RawMessage) (string, error) {
	args := decodeToolArgs(raw)

	q, ok := a.bank.SelectRandom(a.usedSnapshot(), args.Capabilities, args.Difficulty)
	if !ok {
		return marshalToolResult(toolResult{
			Text:         noQuestionText,
			Difficulty:   args.Difficulty,
			Capabilities: args.Capabilities,
		})
	}

	a.markUsed(q.ID)
	log.Info().Str("id", q.ID).Str("difficulty", q.Difficulty).Strs("capabilities", q.Capabilities).
		Msg("question retrieved")

	return marshalToolResult(toolResult{
		ID:           q.ID,
		Text:         q.Text,
		Difficulty:   q.Difficulty,
		Capabilities: q.Capabilities,
	})
}

// generateQuestion synthesises a new question via a separate generation
// call, persists it through the bank and marks it used. Synthesis or
// persistence failure yields an empty-id sentinel payload so the calling
// turn can continue.
func (a *Agent) generateQuestion(ctx context.Context, raw json.RawMessage) (string, error) {
	args := decodeToolArgs(raw)

	sentinel := toolResult{
		Text:         cannotGenerate,
		Difficulty:   args.Difficulty,
		Capabilities: args.Capabilities,
	}

	prompt := a.prompts.GenerateQuestion(args.Capabilities, args.Difficulty, args.AdditionalNotes)
	result, err := a.gateway.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, nil)
	if err != nil {
		log.Error().Err(err).Msg("question synthesis failed")
		return marshalToolResult(sentinel)
	}

	payload := parseQuestionPayload(result.Text, args.Capabilities, args.Difficulty)
	if strings.TrimSpace(payload.Text) == "" {
		log.Error().Msg("question synthesis produced empty text")
		return marshalToolResult(sentinel)
	}

	capabilities := payload.Capabilities
	if len(capabilities) == 0 {
		capabilities = []string{"General"}
	}

	id, err := a.bank.Add(payload.Text, capabilities, payload.Difficulty, "", payload.EvaluationCriteria)
	if err != nil {
		log.Error().Err(err).Msg("persisting generated question failed")
		return marshalToolResult(sentinel)
	}
	a.markUsed(id)

	log.Info().Str("id", id).Str("difficulty", payload.Difficulty).Strs("capabilities", capabilities).
		Msg("question generated")

	return marshalToolResult(toolResult{
		ID:           id,
		Text:         payload.Text,
		Difficulty:   payload.Difficulty,
		Capabilities: capabilities,
	})
}

func toSchemaMessages(messages []interview.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case interview.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case interview.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		}
	}
	return out
}

// transcriptText renders the conversation for evaluation, skipping system
// messages.
func transcriptText(messages []interview.Message) string {
	var lines []string
	for _, m := range messages {
		switch m.Role {
		case interview.RoleAssistant:
			lines = append(lines, "Interviewer: "+m.Content)
		case interview.RoleUser:
			lines = append(lines, "Candidate: "+m.Content)
		}
	}
	return strings.Join(lines, "\n\n")
}
