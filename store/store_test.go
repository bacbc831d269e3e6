package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/adimpact/chatbot/domain"
)

func TestCreateGeneratesID(t *testing.T) {
	s := New()

	id, err := s.Create("")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}
	if _, ok := s.History(id); !ok {
		t.Fatalf("session %s not found after create", id)
	}
}

func TestCreateConflict(t *testing.T) {
	s := New()

	if _, err := s.Create("s1"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Create("s1"); !errors.Is(err, domain.ErrSessionConflict) {
		t.Fatalf("expected ErrSessionConflict, got %v", err)
	}
}

func TestGetOrCreate(t *testing.T) {
	s := New()

	id, created := s.GetOrCreate("")
	if id == "" || !created {
		t.Fatalf("expected new generated session, got id=%q created=%v", id, created)
	}

	// Unknown caller-supplied ids are re-created under that exact id.
	id2, created := s.GetOrCreate("stale-id")
	if id2 != "stale-id" || !created {
		t.Fatalf("expected stale-id created, got id=%q created=%v", id2, created)
	}

	id3, created := s.GetOrCreate("stale-id")
	if id3 != "stale-id" || created {
		t.Fatalf("expected existing session reused, got id=%q created=%v", id3, created)
	}
}

func TestAppendTurnOrdering(t *testing.T) {
	s := New()
	id, _ := s.Create("")

	if err := s.AppendTurn(id, domain.RoleUser, "hello"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}
	if err := s.AppendTurn(id, domain.RoleAssistant, "hi there"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}

	turns, ok := s.History(id)
	if !ok {
		t.Fatal("session not found")
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != domain.RoleUser || turns[0].Content != "hello" {
		t.Fatalf("unexpected first turn: %+v", turns[0])
	}
	if turns[1].Role != domain.RoleAssistant || turns[1].Content != "hi there" {
		t.Fatalf("unexpected second turn: %+v", turns[1])
	}
}

func TestAppendTurnValidation(t *testing.T) {
	s := New()
	id, _ := s.Create("")

	if err := s.AppendTurn(id, domain.Role("bot"), "hello"); !errors.Is(err, domain.ErrInvalidTurn) {
		t.Fatalf("expected ErrInvalidTurn for bad role, got %v", err)
	}
	if err := s.AppendTurn(id, domain.RoleUser, "   "); !errors.Is(err, domain.ErrInvalidTurn) {
		t.Fatalf("expected ErrInvalidTurn for blank content, got %v", err)
	}
	if err := s.AppendTurn("missing", domain.RoleUser, "hello"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestConcurrentAppendsSameSession(t *testing.T) {
	s := New()
	id, _ := s.Create("")

	const writers = 4
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := s.AppendTurn(id, domain.RoleUser, fmt.Sprintf("w%d-%d", w, i)); err != nil {
					t.Errorf("AppendTurn failed: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	turns, _ := s.History(id)
	if len(turns) != writers*perWriter {
		t.Fatalf("lost turns: expected %d, got %d", writers*perWriter, len(turns))
	}
}

func TestSweepExpired(t *testing.T) {
	s := New()

	base := time.Now()
	s.now = func() time.Time { return base }

	stale, _ := s.Create("")
	fresh, _ := s.Create("")

	// Touch the fresh session halfway through the TTL window.
	s.now = func() time.Time { return base.Add(20 * time.Minute) }
	if err := s.AppendTurn(fresh, domain.RoleUser, "still here"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}

	s.now = func() time.Time { return base.Add(35 * time.Minute) }
	removed := s.SweepExpired(30 * time.Minute)
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok := s.History(stale); ok {
		t.Fatal("stale session survived sweep")
	}
	if _, ok := s.History(fresh); !ok {
		t.Fatal("fresh session removed by sweep")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := New()

	if s.Delete("missing") {
		t.Fatal("expected false for unknown session")
	}

	id, _ := s.Create("")
	if !s.Delete(id) {
		t.Fatal("expected true for existing session")
	}
	if s.Delete(id) {
		t.Fatal("expected false for repeated delete")
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := New()
	id, _ := s.Create("")
	s.AppendTurn(id, domain.RoleUser, "hello")

	turns, _ := s.History(id)
	turns[0].Content = "mutated"

	again, _ := s.History(id)
	if again[0].Content != "hello" {
		t.Fatalf("history was mutated through returned slice: %+v", again[0])
	}
}

func TestStatsTruncatesIDOnRuneBoundary(t *testing.T) {
	s := New()
	if _, err := s.Create(strings.Repeat("é", 30)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stats := s.Stats()
	if len(stats.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(stats.Sessions))
	}
	id := stats.Sessions[0].ID
	if !utf8.ValidString(id) {
		t.Fatalf("stats id is not valid UTF-8: %q", id)
	}
	if id != strings.Repeat("é", 20)+"..." {
		t.Fatalf("unexpected truncated id: %q", id)
	}
}

func TestStats(t *testing.T) {
	s := New()
	id, _ := s.Create("")
	s.AppendTurn(id, domain.RoleUser, "hello")

	stats := s.Stats()
	if stats.TotalSessions != 1 {
		t.Fatalf("expected 1 session, got %d", stats.TotalSessions)
	}
	if len(stats.Sessions) != 1 || stats.Sessions[0].Messages != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
