package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeTrailingMarker(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantEnd bool
		wantQID string
	}{
		{
			name:    "end with question id",
			raw:     "Great answer! [[END=true QID=7]]",
			want:    "Great answer!",
			wantEnd: true,
			wantQID: "7",
		},
		{
			name:    "continue with question id",
			raw:     "Next question coming up.\n[[END=false QID=12]]",
			want:    "Next question coming up.",
			wantEnd: false,
			wantQID: "12",
		},
		{
			name:    "none id",
			raw:     "Let's move on. [[END=false QID=none]]",
			want:    "Let's move on.",
			wantQID: "",
		},
		{
			name:    "null id",
			raw:     "Thanks. [[END=true QID=null]]",
			want:    "Thanks.",
			wantEnd: true,
		},
		{
			name:    "case-insensitive literals",
			raw:     "Done. [[end=TRUE qid=None]]",
			want:    "Done.",
			wantEnd: true,
		},
		{
			name:    "internal whitespace tolerated",
			raw:     "Ok. [[ END = false   QID = 3 ]]",
			want:    "Ok.",
			wantQID: "3",
		},
		{
			name:    "trailing newline after marker",
			raw:     "Ok. [[END=false QID=3]]\n\n",
			want:    "Ok.",
			wantQID: "3",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			visible, flags := Decode(tc.raw)
			assert.Equal(t, tc.want, visible)
			assert.Equal(t, tc.wantEnd, flags.End)
			assert.Equal(t, tc.wantQID, flags.QuestionID)
		})
	}
}

func TestDecodeNoMarkerIsSafe(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "plain text", raw: "Let's continue."},
		{name: "empty", raw: ""},
		{name: "marker mid-text stays literal", raw: "We use [[END=true QID=1]] as a sentinel, ok?"},
		{name: "malformed marker", raw: "Bye. [[END=yes QID=1]]"},
		{name: "missing qid", raw: "Bye. [[END=true]]"},
		{name: "unterminated", raw: "Bye. [[END=true QID=1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			visible, flags := Decode(tc.raw)
			assert.Equal(t, tc.raw, visible)
			assert.False(t, flags.End)
			assert.Empty(t, flags.QuestionID)
		})
	}
}

func TestMarkerRoundTrip(t *testing.T) {
	texts := []string{"Tell me about VLOOKUP.", "Multi\nline\nreply.", ""}
	cases := []Flags{
		{End: false, QuestionID: ""},
		{End: true, QuestionID: ""},
		{End: false, QuestionID: "42"},
		{End: true, QuestionID: "q-remote"},
	}

	for _, text := range texts {
		for _, flags := range cases {
			raw := text + " " + Marker(flags.End, flags.QuestionID)
			visible, got := Decode(raw)
			assert.Equal(t, text, visible)
			assert.Equal(t, flags, got)
		}
	}
}
