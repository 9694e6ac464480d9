// Package transcript persists session transcripts as append-only JSONL
// files, one file per session. Two record types exist: "message" for
// utterances and "event" for lifecycle markers.
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mockview/interviewer/internal/model/interview"
)

// Store writes transcript lines under a base directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a transcript store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the transcript file for a session id.
func (s *Store) Path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".jsonl")
}

func (s *Store) appendLine(sessionID string, record map[string]any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode transcript record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}

	f, err := os.OpenFile(s.Path(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append transcript line: %w", err)
	}
	return nil
}

// AppendMessage records one utterance.
func (s *Store) AppendMessage(sessionID string, msg interview.Message) error {
	record := map[string]any{
		"type":       "message",
		"session_id": sessionID,
		"timestamp":  msg.Timestamp.UTC().Format(time.RFC3339Nano),
		"role":       msg.Role,
		"content":    msg.Content,
		"turn_index": msg.TurnIndex,
	}
	if len(msg.Metadata) > 0 {
		record["metadata"] = msg.Metadata
	}
	return s.appendLine(sessionID, record)
}

// AppendEvent records a lifecycle event such as session_started or
// interview_ended.
func (s *Store) AppendEvent(sessionID, event string, details map[string]any) error {
	record := map[string]any{
		"type":       "event",
		"session_id": sessionID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		"event":      event,
	}
	if len(details) > 0 {
		record["details"] = details
	}
	return s.appendLine(sessionID, record)
}

// Load reads back every parseable record for a session. Blank and malformed
// lines are skipped; a missing file yields an empty transcript.
func (s *Store) Load(sessionID string) ([]map[string]any, error) {
	f, err := os.Open(s.Path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("read transcript: %w", err)
	}
	return records, nil
}
