// Package helpers provides shared test fixtures.
package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/adimpact/chatbot/chat"
	"github.com/adimpact/chatbot/domain"
	"github.com/adimpact/chatbot/ratelimit"
	"github.com/adimpact/chatbot/store"
)

// StubCompleter returns a fixed reply or error for every completion and
// records what it was called with.
type StubCompleter struct {
	Reply string
	Err   error

	Calls     int
	LastTurns []domain.Turn
}

func (s *StubCompleter) ChatCompletion(_ context.Context, _ string, turns []domain.Turn) (string, error) {
	s.Calls++
	s.LastTurns = turns
	if s.Err != nil {
		return "", s.Err
	}
	return s.Reply, nil
}

// NewTestService wires a chat service over a fresh in-memory store, a rate
// limit high enough to never interfere, and the given completer.
func NewTestService(t *testing.T, llm chat.Completer) *chat.Service {
	t.Helper()
	return chat.New(store.New(), ratelimit.New(600), llm, 30*time.Minute)
}
