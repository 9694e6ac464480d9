package interview

// Reply is the result of one generation turn. Text never contains the raw
// control-marker syntax; End reports whether the interview must terminate
// after this turn.
type Reply struct {
	Text     string         `json:"text"`
	End      bool           `json:"end"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
