package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hyeok-dev/chess-sessiond/internal/domain"
)

func TestInsertFinishedDuplicate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	rec := &domain.FinishedGame{
		SessionID: "s1",
		PlayerKey: "alice",
		FEN:       "fen",
		Winner:    "black",
		Result:    "checkmate",
		EndedAt:   time.Now(),
	}
	id, err := repo.InsertFinished(ctx, rec)
	if err != nil {
		t.Fatalf("InsertFinished: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected assigned id")
	}
	if _, err := repo.InsertFinished(ctx, rec); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("expected ErrDuplicateGame, got %v", err)
	}
}

func TestGetRecentOrderAndLimit(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 3; i++ {
		_, err := repo.InsertFinished(ctx, &domain.FinishedGame{
			SessionID: string(rune('a' + i)),
			PlayerKey: "alice",
			Result:    "checkmate",
			EndedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("InsertFinished: %v", err)
		}
	}

	games, err := repo.GetRecent(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}
	if !games[0].EndedAt.After(games[1].EndedAt) {
		t.Fatalf("games not ordered latest first")
	}

	games, err = repo.GetRecent(ctx, "nobody", 5)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(games) != 0 {
		t.Fatalf("expected no games for unknown player")
	}
}
