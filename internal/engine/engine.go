// Package engine wraps the chess rules library behind a stateless adapter.
// Every call reloads the full serialized position, so concurrent sessions
// never observe each other's in-progress engine state.
package engine

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// StartingFEN is the standard initial position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// MoveResult carries the post-move state produced by the rules library.
type MoveResult struct {
	FEN   string
	UCI   string
	SAN   string
	Board string
}

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

// ApplyMove loads fen, applies from→to (with optional promotion piece such
// as "q") and returns the resulting position. The returned error message is
// the rules library's verdict and is safe to surface to callers.
func (a *Adapter) ApplyMove(fen, from, to, promotion string) (*MoveResult, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return nil, err
	}

	uci := strings.ToLower(strings.TrimSpace(from) + strings.TrimSpace(to) + strings.TrimSpace(promotion))
	if len(uci) < 4 {
		return nil, fmt.Errorf("malformed move %q", uci)
	}

	pos := game.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return nil, fmt.Errorf("decode move %q: %w", uci, err)
	}
	if err := game.Move(mv, nil); err != nil {
		return nil, fmt.Errorf("move %q: %w", uci, err)
	}

	return &MoveResult{
		FEN:   game.FEN(),
		UCI:   uci,
		SAN:   nchess.AlgebraicNotation{}.Encode(pos, mv),
		Board: game.Position().Board().Draw(),
	}, nil
}

// IsCheckmate reports whether the side to move in fen is checkmated.
func (a *Adapter) IsCheckmate(fen string) (bool, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return false, err
	}
	return game.Method() == nchess.Checkmate, nil
}

// Render returns a human-readable snapshot of the position in fen.
func (a *Adapter) Render(fen string) (string, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return "", err
	}
	return game.Position().Board().Draw(), nil
}

// Turn returns "white" or "black" for the side to move in fen.
func (a *Adapter) Turn(fen string) (string, error) {
	game, err := gameFromFEN(fen)
	if err != nil {
		return "", err
	}
	if game.Position().Turn() == nchess.White {
		return "white", nil
	}
	return "black", nil
}

func gameFromFEN(fen string) (*nchess.Game, error) {
	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("load position: %w", err)
	}
	return nchess.NewGame(opt), nil
}
