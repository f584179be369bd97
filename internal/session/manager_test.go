package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/hyeok-dev/chess-sessiond/internal/engine"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	url := fmt.Sprintf("redis://%s/0", mr.Addr())
	store, err := NewRedisStore(url, time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// newTestManager wires a manager whose verifier never fires during the test.
func newTestManager(t *testing.T) (*Manager, Store) {
	t.Helper()
	store := newTestStore(t)
	eng := engine.New()
	v := NewVerifier(store, eng, time.Hour)
	t.Cleanup(v.Close)
	return NewManager(store, eng, v), store
}

func TestCreateSessionAndGetBoard(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.GetBoard(ctx, "alice"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound before create, got %v", err)
	}

	s, err := m.CreateSession(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.ID == "" || s.FEN != engine.StartingFEN {
		t.Fatalf("unexpected session: id=%q fen=%q", s.ID, s.FEN)
	}
	if s.Turn != White {
		t.Fatalf("expected white to move at creation, got %q", s.Turn)
	}
	if s.Checkmate {
		t.Fatalf("fresh session marked checkmate")
	}
	if s.History != nil {
		t.Fatalf("move history should be absent by default")
	}

	board, err := m.GetBoard(ctx, "alice")
	if err != nil {
		t.Fatalf("GetBoard: %v", err)
	}
	if board != s.Board {
		t.Fatalf("stored board differs from created board")
	}
}

func TestDuplicateCreateIsRejectedDeterministically(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.CreateSession(ctx, "bob"); err != nil {
		t.Fatalf("first CreateSession: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := m.CreateSession(ctx, "bob"); !errors.Is(err, ErrSessionExists) {
			t.Fatalf("attempt %d: expected ErrSessionExists, got %v", i, err)
		}
	}
}

func TestTurnFlow(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.CreateSession(ctx, "alice"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	res, err := m.SubmitMove(ctx, "alice", White, "e2", "e4", "")
	if err != nil {
		t.Fatalf("white e2e4: %v", err)
	}
	if res.Turn != Black {
		t.Fatalf("expected turn to flip to black, got %q", res.Turn)
	}
	if res.SAN != "e4" {
		t.Fatalf("unexpected SAN %q", res.SAN)
	}
	boardAfterWhite := res.Board

	// Same side again: turn violation, state untouched.
	if _, err := m.SubmitMove(ctx, "alice", White, "e7", "e5", ""); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	board, err := m.GetBoard(ctx, "alice")
	if err != nil {
		t.Fatalf("GetBoard: %v", err)
	}
	if board != boardAfterWhite {
		t.Fatalf("turn violation mutated persisted board")
	}

	res, err = m.SubmitMove(ctx, "alice", Black, "e7", "e5", "")
	if err != nil {
		t.Fatalf("black e7e5: %v", err)
	}
	if res.Turn != White {
		t.Fatalf("expected turn back to white, got %q", res.Turn)
	}
}

func TestInvalidMoveDoesNotMutate(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	created, err := m.CreateSession(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if _, err := m.SubmitMove(ctx, "alice", White, "e2", "e5", ""); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove, got %v", err)
	}
	s, err := m.GetSession(ctx, "alice")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if s.FEN != created.FEN || s.Turn != White {
		t.Fatalf("rejected move mutated session: fen=%q turn=%q", s.FEN, s.Turn)
	}
}

func TestSubmitMoveUnknownSide(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.SubmitMove(context.Background(), "alice", Color("purple"), "e2", "e4", ""); err == nil {
		t.Fatalf("expected error for unknown side")
	}
}

func TestTerminalSessionIsNeverMutated(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	if _, err := m.CreateSession(ctx, "alice"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := store.Update(ctx, "alice", func(s *Session) (bool, error) {
		s.Checkmate = true
		return true, nil
	}); err != nil {
		t.Fatalf("mark checkmate: %v", err)
	}
	before, err := m.GetSession(ctx, "alice")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}

	res, err := m.SubmitMove(ctx, "alice", White, "e2", "e4", "")
	if err != nil {
		t.Fatalf("move on finished game returned error: %v", err)
	}
	if !res.Checkmate {
		t.Fatalf("expected terminal-annotated result")
	}
	if res.SAN != "" {
		t.Fatalf("no move should be applied on a finished game, got SAN %q", res.SAN)
	}

	after, err := m.GetSession(ctx, "alice")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if after.FEN != before.FEN || after.Turn != before.Turn || !after.Checkmate {
		t.Fatalf("finished game was mutated")
	}
}
