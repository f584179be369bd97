package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyeok-dev/chess-sessiond/internal/archive"
	"github.com/hyeok-dev/chess-sessiond/internal/domain"
	"github.com/hyeok-dev/chess-sessiond/internal/engine"
	"github.com/hyeok-dev/chess-sessiond/internal/obslog"
)

const verifyTimeout = 10 * time.Second

// Verifier is the one-shot deferred checkmate check scheduled at session
// creation. It is the only writer of the monotonic Checkmate flag. Firing is
// best-effort: a missing session or a rules-adapter failure is a silent
// no-op, never an error surfaced to any caller.
type Verifier struct {
	store  Store
	engine *engine.Adapter
	delay  time.Duration
	repo   archive.Repository

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func NewVerifier(store Store, eng *engine.Adapter, delay time.Duration) *Verifier {
	return &Verifier{
		store:  store,
		engine: eng,
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
}

// AttachArchive wires a repository for persisting confirmed terminal games.
func (v *Verifier) AttachArchive(repo archive.Repository) {
	if v != nil {
		v.repo = repo
	}
}

// Schedule registers the single deferred firing for playerKey. A key that is
// already scheduled keeps its original timer.
func (v *Verifier) Schedule(playerKey string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	if _, ok := v.timers[playerKey]; ok {
		return
	}
	v.timers[playerKey] = time.AfterFunc(v.delay, func() {
		v.mu.Lock()
		delete(v.timers, playerKey)
		closed := v.closed
		v.mu.Unlock()
		if closed {
			return
		}
		v.fire(playerKey)
	})
}

// Cancel stops a pending verification. Idempotent: a timer that already
// fired or was never scheduled is not an error.
func (v *Verifier) Cancel(playerKey string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if t, ok := v.timers[playerKey]; ok {
		t.Stop()
		delete(v.timers, playerKey)
	}
}

// Close stops all pending timers and rejects further scheduling.
func (v *Verifier) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	for key, t := range v.timers {
		t.Stop()
		delete(v.timers, key)
	}
}

// fire re-reads the session and flips Checkmate when the current position is
// mate. Read-check-write happens inside one atomic store update, so a move
// that lands concurrently is never clobbered.
func (v *Verifier) fire(playerKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	var confirmed *Session
	_, err := v.store.Update(ctx, playerKey, func(s *Session) (bool, error) {
		if s.Checkmate {
			return false, nil
		}
		mate, err := v.engine.IsCheckmate(s.FEN)
		if err != nil {
			return false, err
		}
		if !mate {
			return false, nil
		}
		s.Checkmate = true
		s.UpdatedAt = time.Now()
		confirmed = s.Clone()
		return true, nil
	})
	if errors.Is(err, ErrSessionNotFound) {
		return
	}
	if err != nil {
		obslog.L().Warn("verify_error", zap.String("player_key", playerKey), zap.Error(err))
		return
	}
	if confirmed == nil {
		return
	}

	obslog.L().Info("verify_checkmate",
		zap.String("session_id", confirmed.ID),
		zap.String("player_key", playerKey),
		zap.String("winner", string(confirmed.Turn.Other())),
	)
	v.archiveFinished(ctx, confirmed)
}

func (v *Verifier) archiveFinished(ctx context.Context, s *Session) {
	if v.repo == nil {
		return
	}
	rec := &domain.FinishedGame{
		SessionID: s.ID,
		PlayerKey: s.PlayerKey,
		FEN:       s.FEN,
		// The side to move at mate is the mated side.
		Winner:  string(s.Turn.Other()),
		Result:  "checkmate",
		EndedAt: s.UpdatedAt,
	}
	if _, err := v.repo.InsertFinished(ctx, rec); err != nil && !errors.Is(err, archive.ErrDuplicateGame) {
		obslog.L().Error("archive_error", zap.String("session_id", s.ID), zap.Error(err))
	}
}
