package question

// Question is a single bank entry. Once persisted a question is never
// mutated in place; the bank only grows during a run.
type Question struct {
	ID                 string   `json:"id"`
	Text               string   `json:"text"`
	Difficulty         string   `json:"difficulty"`
	Capabilities       []string `json:"capabilities"`
	EvaluationCriteria []string `json:"evaluation_criteria"`
}
