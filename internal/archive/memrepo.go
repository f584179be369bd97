package archive

import (
	"context"
	"sort"
	"sync"

	"github.com/hyeok-dev/chess-sessiond/internal/domain"
)

// memrepo is the in-memory Repository used when no DATABASE_URL is set.
type memrepo struct {
	mu sync.RWMutex

	nextID        int64
	gamesBySess   map[string]*domain.FinishedGame
	gamesByPlayer map[string][]*domain.FinishedGame
}

func NewMemoryRepository() Repository {
	return &memrepo{
		gamesBySess:   make(map[string]*domain.FinishedGame),
		gamesByPlayer: make(map[string][]*domain.FinishedGame),
	}
}

func (m *memrepo) Close() error { return nil }

func (m *memrepo) InsertFinished(ctx context.Context, game *domain.FinishedGame) (int64, error) {
	if game == nil {
		return 0, ErrDuplicateGame
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.gamesBySess[game.SessionID]; exists {
		return 0, ErrDuplicateGame
	}

	m.nextID++
	cp := *game
	cp.ID = m.nextID

	m.gamesBySess[cp.SessionID] = &cp
	m.gamesByPlayer[cp.PlayerKey] = append(m.gamesByPlayer[cp.PlayerKey], &cp)
	return cp.ID, nil
}

func (m *memrepo) GetRecent(ctx context.Context, playerKey string, limit int) ([]*domain.FinishedGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.gamesByPlayer[playerKey]
	if len(list) == 0 {
		return []*domain.FinishedGame{}, nil
	}
	items := append([]*domain.FinishedGame(nil), list...)
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
