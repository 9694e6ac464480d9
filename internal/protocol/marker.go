// Package protocol implements the control marker embedded in generated
// interview replies. The generation backend is instructed to append exactly
// one trailing token of the form
//
//	[[END=<true|false> QID=<id-or-none>]]
//
// which signals end-of-interview and the active question id. Only a marker
// anchored to the end of the text is recognised, so a candidate's own text
// can never be misparsed as a control signal.
package protocol

import (
	"fmt"
	"regexp"
	"strings"
)

// Flags are the decoded control signals of a single reply.
type Flags struct {
	// End reports whether the interview must terminate after this turn.
	End bool
	// QuestionID is the bank id referenced by this turn, empty when the
	// marker carried none/null or no marker was present.
	QuestionID string
}

var markerPattern = regexp.MustCompile(`(?i)\s*\[\[\s*END\s*=\s*(true|false)\s+QID\s*=\s*([^\]]+?)\s*\]\]\s*$`)

// Decode strips a trailing control marker from raw and returns the visible
// text plus the decoded flags. A missing or malformed marker is not an
// error: the text comes back unchanged with zero-valued flags.
func Decode(raw string) (string, Flags) {
	if raw == "" {
		return "", Flags{}
	}

	loc := markerPattern.FindStringSubmatchIndex(raw)
	if loc == nil {
		return raw, Flags{}
	}

	end := strings.EqualFold(raw[loc[2]:loc[3]], "true")

	qid := strings.TrimSpace(raw[loc[4]:loc[5]])
	switch strings.ToLower(qid) {
	case "none", "null", "":
		qid = ""
	}

	visible := strings.TrimRight(raw[:loc[0]], " \t\r\n")
	return visible, Flags{End: end, QuestionID: qid}
}

// Marker renders the wire form of the given flags. Used by prompts and
// tests; an empty question id encodes as none.
func Marker(end bool, questionID string) string {
	if questionID == "" {
		questionID = "none"
	}
	return fmt.Sprintf("[[END=%t QID=%s]]", end, questionID)
}
