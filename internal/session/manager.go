// Package session owns the per-player game lifecycle: creation, the turn
// state machine around the rules adapter, and the deferred checkmate
// verification that runs once per session.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyeok-dev/chess-sessiond/internal/engine"
	"github.com/hyeok-dev/chess-sessiond/internal/obslog"
)

type Manager struct {
	store    Store
	engine   *engine.Adapter
	verifier *Verifier
}

func NewManager(store Store, eng *engine.Adapter, verifier *Verifier) *Manager {
	return &Manager{store: store, engine: eng, verifier: verifier}
}

// CreateSession starts a fresh game for playerKey: standard starting
// position, white to move, and exactly one deferred verification scheduled.
// A key with a live session is rejected with ErrSessionExists.
func (m *Manager) CreateSession(ctx context.Context, playerKey string) (*Session, error) {
	playerKey = strings.TrimSpace(playerKey)
	if playerKey == "" {
		return nil, fmt.Errorf("empty player key")
	}

	board, err := m.engine.Render(engine.StartingFEN)
	if err != nil {
		return nil, fmt.Errorf("render starting position: %w", err)
	}

	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		PlayerKey: playerKey,
		FEN:       engine.StartingFEN,
		Board:     board,
		Turn:      White,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Insert(ctx, s); err != nil {
		return nil, err
	}
	if m.verifier != nil {
		m.verifier.Schedule(playerKey)
	}
	obslog.L().Info("session_create",
		zap.String("session_id", s.ID),
		zap.String("player_key", playerKey),
	)
	return s, nil
}

// GetSession returns the full session record for playerKey.
func (m *Manager) GetSession(ctx context.Context, playerKey string) (*Session, error) {
	s, err := m.store.Get(ctx, strings.TrimSpace(playerKey))
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// GetBoard is a pure store read of the derived board snapshot. It never
// touches the rules adapter.
func (m *Manager) GetBoard(ctx context.Context, playerKey string) (string, error) {
	s, err := m.GetSession(ctx, playerKey)
	if err != nil {
		return "", err
	}
	return s.Board, nil
}

// SubmitMove runs the turn state machine for one requested move, as a single
// atomic read-check-write step against the store:
//
//  1. a checkmated session is never mutated; the result carries the terminal
//     flag alongside the unchanged board
//  2. turn ownership is checked before any engine call
//  3. the rules adapter is the sole judge of legality
//  4. an accepted move updates position and board together and flips the
//     turn unconditionally
//
// Rejected attempts leave persisted state untouched.
func (m *Manager) SubmitMove(ctx context.Context, playerKey string, side Color, from, to, promotion string) (*MoveResult, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("unknown side %q", side)
	}

	var res MoveResult
	_, err := m.store.Update(ctx, playerKey, func(s *Session) (bool, error) {
		if s.Checkmate {
			res = MoveResult{Board: s.Board, Turn: s.Turn, Checkmate: true}
			return false, nil
		}
		if s.Turn != side {
			return false, ErrNotYourTurn
		}
		mv, err := m.engine.ApplyMove(s.FEN, from, to, promotion)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrInvalidMove, err)
		}
		s.FEN = mv.FEN
		s.Board = mv.Board
		s.Turn = side.Other()
		s.UpdatedAt = time.Now()
		res = MoveResult{Board: s.Board, Turn: s.Turn, SAN: mv.SAN}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	obslog.L().Info("session_move",
		zap.String("player_key", strings.TrimSpace(playerKey)),
		zap.String("side", string(side)),
		zap.String("san", res.SAN),
		zap.Bool("checkmate", res.Checkmate),
	)
	return &res, nil
}
