package session

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store for development runs and tests that do not
// need a Redis backend. Same atomicity contract, one mutex instead of WATCH.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemStore() *MemStore {
	return &MemStore{sessions: make(map[string]*Session)}
}

func (st *MemStore) Get(ctx context.Context, playerKey string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[strings.TrimSpace(playerKey)]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (st *MemStore) Insert(ctx context.Context, s *Session) error {
	key := strings.TrimSpace(s.PlayerKey)
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, exists := st.sessions[key]; exists {
		return ErrSessionExists
	}
	st.sessions[key] = s.Clone()
	return nil
}

func (st *MemStore) Update(ctx context.Context, playerKey string, fn func(*Session) (bool, error)) (*Session, error) {
	key := strings.TrimSpace(playerKey)
	st.mu.Lock()
	defer st.mu.Unlock()
	cur, ok := st.sessions[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	work := cur.Clone()
	write, err := fn(work)
	if err != nil {
		return nil, err
	}
	if write {
		st.sessions[key] = work.Clone()
	}
	return work, nil
}

func (st *MemStore) Keys(ctx context.Context) ([]string, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	keys := make([]string, 0, len(st.sessions))
	for k := range st.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (st *MemStore) Close() error { return nil }
