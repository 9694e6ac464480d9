package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// questionPayload is the normalised form of a synthesised question.
type questionPayload struct {
	Text               string
	Capabilities       []string
	Difficulty         string
	EvaluationCriteria []string
}

var listSeparators = regexp.MustCompile(`[,|\n]`)

// parseQuestionPayload extracts a question object from raw backend output.
// It strips a leading code fence, takes the first '{' through the last '}'
// as the JSON candidate and, on any parse failure, falls back to treating
// the cleaned text as the question body with the supplied defaults.
func parseQuestionPayload(raw string, fallbackCapabilities []string, fallbackDifficulty string) questionPayload {
	if fallbackDifficulty == "" {
		fallbackDifficulty = "Medium"
	}
	fallback := questionPayload{
		Capabilities: fallbackCapabilities,
		Difficulty:   fallbackDifficulty,
	}

	cleaned := stripCodeFence(strings.TrimSpace(raw))
	fallback.Text = cleaned

	candidate := cleaned
	if start, end := strings.Index(candidate, "{"), strings.LastIndex(candidate, "}"); start != -1 && end > start {
		candidate = candidate[start : end+1]
	}

	var decoded struct {
		Text               string          `json:"text"`
		Capabilities       json.RawMessage `json:"capabilities"`
		Difficulty         string          `json:"difficulty"`
		EvaluationCriteria json.RawMessage `json:"evaluation_criteria"`
	}
	if err := json.Unmarshal([]byte(candidate), &decoded); err != nil {
		return fallback
	}
	if strings.TrimSpace(decoded.Text) == "" {
		return fallback
	}

	payload := questionPayload{
		Text:               strings.TrimSpace(decoded.Text),
		Capabilities:       coerceStringList(decoded.Capabilities),
		Difficulty:         strings.TrimSpace(decoded.Difficulty),
		EvaluationCriteria: coerceStringList(decoded.EvaluationCriteria),
	}
	if len(payload.Capabilities) == 0 {
		payload.Capabilities = fallbackCapabilities
	}
	if payload.Difficulty == "" {
		payload.Difficulty = fallbackDifficulty
	}
	return payload
}

// stripCodeFence removes a surrounding markdown fence, dropping a language
// tag line when present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.Trim(s, "`\n ")
	if first, rest, ok := strings.Cut(s, "\n"); ok && !strings.HasPrefix(strings.TrimSpace(first), "{") {
		return strings.TrimSpace(rest)
	}
	return s
}

// coerceStringList accepts a JSON array of strings or a single delimited
// string and returns a clean slice either way.
func coerceStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return trimNonEmpty(list)
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return splitList(single)
	}

	// Last resort: mixed-type arrays.
	var anyList []any
	if err := json.Unmarshal(raw, &anyList); err == nil {
		out := make([]string, 0, len(anyList))
		for _, v := range anyList {
			if s, ok := v.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	}
	return nil
}

// splitList splits on comma, pipe and newline.
func splitList(s string) []string {
	return trimNonEmpty(listSeparators.Split(s, -1))
}

func trimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
