package session

import (
	"context"
	"testing"
	"time"

	"github.com/hyeok-dev/chess-sessiond/internal/archive"
	"github.com/hyeok-dev/chess-sessiond/internal/engine"
)

func waitForCheckmate(t *testing.T, store Store, playerKey string, timeout time.Duration) *Session {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		s, err := store.Get(ctx, playerKey)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if s != nil && s.Checkmate {
			return s
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("checkmate flag not set within %v", timeout)
	return nil
}

func playFoolsMate(t *testing.T, m *Manager, playerKey string) {
	t.Helper()
	ctx := context.Background()
	moves := []struct {
		side     Color
		from, to string
	}{
		{White, "f2", "f3"},
		{Black, "e7", "e5"},
		{White, "g2", "g4"},
		{Black, "d8", "h4"},
	}
	for _, mv := range moves {
		if _, err := m.SubmitMove(ctx, playerKey, mv.side, mv.from, mv.to, ""); err != nil {
			t.Fatalf("move %s%s: %v", mv.from, mv.to, err)
		}
	}
}

func TestVerifierConfirmsFoolsMate(t *testing.T) {
	store := newTestStore(t)
	eng := engine.New()
	v := NewVerifier(store, eng, 100*time.Millisecond)
	t.Cleanup(v.Close)
	repo := archive.NewMemoryRepository()
	v.AttachArchive(repo)
	m := NewManager(store, eng, v)
	ctx := context.Background()

	if _, err := m.CreateSession(ctx, "alice"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	playFoolsMate(t, m, "alice")

	s := waitForCheckmate(t, store, "alice", 2*time.Second)
	if s.Turn != White {
		t.Fatalf("mated side should own the turn, got %q", s.Turn)
	}

	// Terminal state annotates instead of mutating.
	res, err := m.SubmitMove(ctx, "alice", White, "e2", "e4", "")
	if err != nil {
		t.Fatalf("move on mated game: %v", err)
	}
	if !res.Checkmate {
		t.Fatalf("expected terminal-annotated result after verification")
	}

	games, err := repo.GetRecent(ctx, "alice", 5)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("expected 1 archived game, got %d", len(games))
	}
	if games[0].Winner != string(Black) || games[0].Result != "checkmate" {
		t.Fatalf("unexpected archive record: winner=%q result=%q", games[0].Winner, games[0].Result)
	}
}

func TestVerifierNoMateIsNoOp(t *testing.T) {
	store := newTestStore(t)
	eng := engine.New()
	v := NewVerifier(store, eng, 20*time.Millisecond)
	t.Cleanup(v.Close)
	m := NewManager(store, eng, v)
	ctx := context.Background()

	if _, err := m.CreateSession(ctx, "alice"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	s, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s == nil || s.Checkmate {
		t.Fatalf("verifier flagged a live game as checkmate")
	}
}

func TestVerifierMissingSessionIsNoOp(t *testing.T) {
	store := newTestStore(t)
	v := NewVerifier(store, engine.New(), 10*time.Millisecond)
	t.Cleanup(v.Close)

	v.Schedule("ghost")
	time.Sleep(100 * time.Millisecond)
	// Nothing to assert beyond "did not blow up": the firing swallows the miss.
}

func TestVerifierCheckmateIsMonotonic(t *testing.T) {
	store := newTestStore(t)
	eng := engine.New()
	v := NewVerifier(store, eng, time.Hour)
	t.Cleanup(v.Close)
	repo := archive.NewMemoryRepository()
	v.AttachArchive(repo)
	m := NewManager(store, eng, v)
	ctx := context.Background()

	if _, err := m.CreateSession(ctx, "alice"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	playFoolsMate(t, m, "alice")

	v.fire("alice")
	s, err := store.Get(ctx, "alice")
	if err != nil || s == nil {
		t.Fatalf("Get: %v", err)
	}
	if !s.Checkmate {
		t.Fatalf("expected checkmate after direct firing")
	}
	first := s.UpdatedAt

	// A second firing neither clears the flag nor duplicates the archive.
	v.fire("alice")
	s, err = store.Get(ctx, "alice")
	if err != nil || s == nil {
		t.Fatalf("Get: %v", err)
	}
	if !s.Checkmate || !s.UpdatedAt.Equal(first) {
		t.Fatalf("second firing mutated a terminal session")
	}
	games, err := repo.GetRecent(ctx, "alice", 5)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("expected 1 archived game, got %d", len(games))
	}
}

func TestVerifierCancelIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	eng := engine.New()
	v := NewVerifier(store, eng, 500*time.Millisecond)
	t.Cleanup(v.Close)
	m := NewManager(store, eng, v)
	ctx := context.Background()

	if _, err := m.CreateSession(ctx, "alice"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	playFoolsMate(t, m, "alice")

	v.Cancel("alice")
	v.Cancel("alice")
	v.Cancel("never-scheduled")

	time.Sleep(700 * time.Millisecond)
	s, err := store.Get(ctx, "alice")
	if err != nil || s == nil {
		t.Fatalf("Get: %v", err)
	}
	if s.Checkmate {
		t.Fatalf("cancelled verifier still fired")
	}
}
