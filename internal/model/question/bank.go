package question

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyText         = errors.New("question text is required")
	ErrEmptyCapabilities = errors.New("at least one non-empty capability is required")
	ErrEmptyDifficulty   = errors.New("difficulty is required")
	ErrEmptyID           = errors.New("question id cannot be empty")
	ErrDuplicateID       = errors.New("question id already exists")
)

// Bank holds the interview question set loaded from a JSON file. Reads are
// shared; Add serializes writers and rewrites the whole file. The single
// writer discipline is per process: no cross-process locking is attempted.
type Bank struct {
	path string

	mu        sync.RWMutex
	questions []Question
}

// NewBank loads the bank at path. A missing or unreadable file yields an
// empty bank rather than an error so the interview stays runnable and the
// generation fallback path takes over.
func NewBank(path string) *Bank {
	b := &Bank{path: path}
	b.load()
	return b
}

// bankRecord tolerates the loose shapes found in persisted banks:
// capabilities may arrive as a single string instead of an array.
type bankRecord struct {
	ID                 string          `json:"id"`
	Text               string          `json:"text"`
	Difficulty         string          `json:"difficulty"`
	Capabilities       json.RawMessage `json:"capabilities"`
	EvaluationCriteria []string        `json:"evaluation_criteria"`
}

func (b *Bank) load() {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", b.path).Msg("question bank unreadable, starting empty")
		}
		return
	}

	var records []bankRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Error().Err(err).Str("path", b.path).Msg("question bank malformed, starting empty")
		return
	}

	questions := make([]Question, 0, len(records))
	for _, rec := range records {
		questions = append(questions, Question{
			ID:                 rec.ID,
			Text:               rec.Text,
			Difficulty:         rec.Difficulty,
			Capabilities:       coerceCapabilities(rec.Capabilities),
			EvaluationCriteria: append([]string(nil), rec.EvaluationCriteria...),
		})
	}
	b.questions = questions
}

// coerceCapabilities accepts an array of strings or a bare string; anything
// else becomes an empty set instead of rejecting the record.
func coerceCapabilities(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, c := range list {
			if c = strings.TrimSpace(c); c != "" {
				out = append(out, c)
			}
		}
		return out
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single = strings.TrimSpace(single); single != "" {
			return []string{single}
		}
	}
	return nil
}

// Count returns the number of questions currently in the bank.
func (b *Bank) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.questions)
}

// All returns a copy of every question.
func (b *Bank) All() []Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Question(nil), b.questions...)
}

// Capabilities returns the sorted distinct capability tags across the bank.
func (b *Bank) Capabilities() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, q := range b.questions {
		for _, c := range q.Capabilities {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Difficulties returns the sorted distinct difficulty labels across the bank.
func (b *Bank) Difficulties() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, q := range b.questions {
		if _, ok := seen[q.Difficulty]; !ok {
			seen[q.Difficulty] = struct{}{}
			out = append(out, q.Difficulty)
		}
	}
	sort.Strings(out)
	return out
}

func matches(q Question, exclude map[string]struct{}, capabilities []string, difficulty string) bool {
	if _, used := exclude[q.ID]; used {
		return false
	}
	if difficulty != "" && !strings.EqualFold(q.Difficulty, difficulty) {
		return false
	}
	if len(capabilities) > 0 {
		found := false
		for _, want := range capabilities {
			for _, have := range q.Capabilities {
				if strings.EqualFold(want, have) {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (b *Bank) candidates(exclude map[string]struct{}, capabilities []string, difficulty string) []Question {
	var out []Question
	for _, q := range b.questions {
		if matches(q, exclude, capabilities, difficulty) {
			out = append(out, q)
		}
	}
	return out
}

// SelectRandom picks uniformly at random among questions not in exclude that
// match the optional capability/difficulty filters. The second return is
// false when no candidate survives.
func (b *Bank) SelectRandom(exclude map[string]struct{}, capabilities []string, difficulty string) (Question, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	candidates := b.candidates(exclude, capabilities, difficulty)
	if len(candidates) == 0 {
		return Question{}, false
	}
	return candidates[rand.Intn(len(candidates))], true
}

// SelectMany samples up to count questions without replacement under the
// same filters as SelectRandom. When count exceeds the survivors every
// survivor is returned.
func (b *Bank) SelectMany(count int, exclude map[string]struct{}, capabilities []string, difficulty string) []Question {
	if count <= 0 {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	candidates := b.candidates(exclude, capabilities, difficulty)
	if len(candidates) <= count {
		return candidates
	}

	out := make([]Question, 0, count)
	for _, idx := range rand.Perm(len(candidates))[:count] {
		out = append(out, candidates[idx])
	}
	return out
}

// nextID is one greater than the largest integer-parseable id, or "1" for an
// empty bank. Non-numeric ids are ignored.
func (b *Bank) nextID() string {
	maxID := 0
	for _, q := range b.questions {
		if n, err := strconv.Atoi(q.ID); err == nil && n > maxID {
			maxID = n
		}
	}
	return strconv.Itoa(maxID + 1)
}

// Add validates and appends a question, persisting the whole bank. An empty
// id is assigned automatically. The in-memory append is rolled back when
// persistence fails, so memory and disk never diverge. Returns the id of
// the stored question.
func (b *Bank) Add(text string, capabilities []string, difficulty, id string, evaluationCriteria []string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	if len(capabilities) == 0 {
		return "", ErrEmptyCapabilities
	}
	caps := make([]string, 0, len(capabilities))
	for _, c := range capabilities {
		c = strings.TrimSpace(c)
		if c == "" {
			return "", ErrEmptyCapabilities
		}
		caps = append(caps, c)
	}
	difficulty = strings.TrimSpace(difficulty)
	if difficulty == "" {
		return "", ErrEmptyDifficulty
	}

	criteria := make([]string, 0, len(evaluationCriteria))
	for _, c := range evaluationCriteria {
		if c = strings.TrimSpace(c); c != "" {
			criteria = append(criteria, c)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if id == "" {
		id = b.nextID()
	} else if id = strings.TrimSpace(id); id == "" {
		return "", ErrEmptyID
	}
	for _, q := range b.questions {
		if q.ID == id {
			return "", fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
	}

	b.questions = append(b.questions, Question{
		ID:                 id,
		Text:               text,
		Difficulty:         difficulty,
		Capabilities:       caps,
		EvaluationCriteria: criteria,
	})

	if err := b.save(); err != nil {
		b.questions = b.questions[:len(b.questions)-1]
		return "", fmt.Errorf("persist question bank: %w", err)
	}

	log.Info().Str("id", id).Str("difficulty", difficulty).Strs("capabilities", caps).
		Msg("question added to bank")
	return id, nil
}

// save rewrites the bank file atomically: write to a temp file in the same
// directory, then rename over the target. Caller holds the write lock.
func (b *Bank) save() error {
	records := make([]Question, len(b.questions))
	for i, q := range b.questions {
		records[i] = q
		if records[i].Capabilities == nil {
			records[i].Capabilities = []string{}
		}
		if records[i].EvaluationCriteria == nil {
			records[i].EvaluationCriteria = []string{}
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".bank-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
