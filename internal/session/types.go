package session

import (
	"errors"
	"time"
)

// Color identifies the side that owns the turn.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Valid() bool { return c == White || c == Black }

func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

var (
	ErrSessionNotFound = errors.New("chess session not found")
	ErrSessionExists   = errors.New("chess session already exists")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrInvalidMove     = errors.New("invalid chess move")
)

// Session is the persisted state of one player's game, keyed by player.
type Session struct {
	ID        string `json:"id"`
	PlayerKey string `json:"player_key"`
	// FEN is the authoritative serialized position; Board is derived from it
	// on every accepted move and never mutated independently.
	FEN   string `json:"fen"`
	Board string `json:"board"`
	// History is reserved for move tracking; absent until a variant enables it.
	History   []string  `json:"history,omitempty"`
	Turn      Color     `json:"turn"`
	Checkmate bool      `json:"checkmate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so store callers can hand out sessions without
// aliasing the stored record.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.History != nil {
		cp.History = append([]string(nil), s.History...)
	}
	return &cp
}

// MoveResult is what a move submission returns: the rendered board after the
// attempt, the side that owns the next turn, and whether the game is already
// decided. SAN is empty when no move was applied (terminal sessions).
type MoveResult struct {
	Board     string
	Turn      Color
	SAN       string
	Checkmate bool
}
