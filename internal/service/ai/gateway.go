package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
)

// Tool pairs the schema the backend sees with the callable the gateway
// dispatches to when the backend invokes it mid-generation.
type Tool struct {
	Info *schema.ToolInfo
	Call func(ctx context.Context, args json.RawMessage) (string, error)
}

// Result is the outcome of one generation call, tool rounds included.
type Result struct {
	Text        string
	TotalTokens int
	ToolRounds  int
}

// Generator is the gateway contract the agent depends on.
type Generator interface {
	Generate(ctx context.Context, messages []*schema.Message, tools []Tool) (*Result, error)
	ModelName() string
}

// Gateway adapts an eino tool-calling chat model to the agent. A single
// Generate call may run several model rounds: whenever the backend returns
// tool calls, the gateway dispatches them by name and feeds the results
// back until the backend produces plain text; once maxToolRounds is spent
// the gateway forces one closing tool-free generation.
type Gateway struct {
	chatModel model.ToolCallingChatModel
	modelName string
	timeout   time.Duration
	maxRounds int
}

// NewGateway wraps the given chat model. Every call runs under timeout;
// maxRounds bounds the tool-dispatch loop.
func NewGateway(chatModel model.ToolCallingChatModel, modelName string, timeout time.Duration, maxRounds int) *Gateway {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxRounds <= 0 {
		maxRounds = 4
	}
	return &Gateway{
		chatModel: chatModel,
		modelName: modelName,
		timeout:   timeout,
		maxRounds: maxRounds,
	}
}

// ModelName identifies the configured backend model.
func (g *Gateway) ModelName() string {
	return g.modelName
}

// Generate runs one generation call. Tool invocations happen sequentially
// inside the call; the final plain-text output is returned as-is, control
// markers included.
func (g *Gateway) Generate(ctx context.Context, messages []*schema.Message, tools []Tool) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	chatModel := model.ToolCallingChatModel(g.chatModel)
	dispatch := make(map[string]func(context.Context, json.RawMessage) (string, error), len(tools))
	if len(tools) > 0 {
		infos := make([]*schema.ToolInfo, 0, len(tools))
		for _, t := range tools {
			infos = append(infos, t.Info)
			dispatch[t.Info.Name] = t.Call
		}
		bound, err := g.chatModel.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("bind tools: %w", err)
		}
		chatModel = bound
	}

	conversation := append([]*schema.Message(nil), messages...)
	result := &Result{}

	for {
		response, err := chatModel.Generate(ctx, conversation)
		if err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		result.addUsage(response)

		if len(response.ToolCalls) == 0 {
			result.Text = strings.TrimSpace(response.Content)
			return result, nil
		}

		result.ToolRounds++
		conversation = append(conversation, response)
		for _, call := range response.ToolCalls {
			conversation = append(conversation, schema.ToolMessage(g.invoke(ctx, dispatch, call), call.ID))
		}

		if result.ToolRounds >= g.maxRounds {
			// Round budget spent mid-tool-call. A tool-call message usually
			// carries no content, so force one closing generation on the
			// unbound model to get text the candidate can read.
			log.Warn().Int("rounds", result.ToolRounds).Msg("tool round budget exhausted, forcing plain reply")
			final, err := g.chatModel.Generate(ctx, conversation)
			if err != nil {
				return nil, fmt.Errorf("generate: %w", err)
			}
			result.addUsage(final)
			result.Text = strings.TrimSpace(final.Content)
			return result, nil
		}
	}
}

func (r *Result) addUsage(msg *schema.Message) {
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		r.TotalTokens += msg.ResponseMeta.Usage.TotalTokens
	}
}

func (g *Gateway) invoke(ctx context.Context, dispatch map[string]func(context.Context, json.RawMessage) (string, error), call schema.ToolCall) string {
	name := call.Function.Name
	fn, ok := dispatch[name]
	if !ok {
		log.Warn().Str("tool", name).Msg("backend requested unknown tool")
		return fmt.Sprintf(`{"error":"unknown tool %s"}`, name)
	}

	log.Info().Str("tool", name).RawJSON("args", normalizeArgs(call.Function.Arguments)).Msg("tool call")
	out, err := fn(ctx, json.RawMessage(call.Function.Arguments))
	if err != nil {
		log.Error().Err(err).Str("tool", name).Msg("tool call failed")
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(payload)
	}
	return out
}

func normalizeArgs(raw string) []byte {
	if json.Valid([]byte(raw)) {
		return []byte(raw)
	}
	quoted, _ := json.Marshal(raw)
	return quoted
}
