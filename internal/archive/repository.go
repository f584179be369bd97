// Package archive persists finished games once the verifier confirms a
// terminal state. Best-effort from the caller's perspective: the session
// store stays authoritative for live state.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/hyeok-dev/chess-sessiond/internal/domain"
)

var ErrDuplicateGame = errors.New("finished game already archived")

type Repository interface {
	InsertFinished(ctx context.Context, game *domain.FinishedGame) (int64, error)
	GetRecent(ctx context.Context, playerKey string, limit int) ([]*domain.FinishedGame, error)
	Close() error
}

type repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (Repository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &repository{db: db}, nil
}

func (r *repository) Close() error { return r.db.Close() }

func (r *repository) InsertFinished(ctx context.Context, game *domain.FinishedGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil finished game payload")
	}

	const query = `
		INSERT INTO finished_games (
			session_id,
			player_key,
			fen,
			winner,
			result,
			ended_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err := r.db.QueryRowContext(
		ctx,
		query,
		game.SessionID,
		game.PlayerKey,
		game.FEN,
		game.Winner,
		game.Result,
		game.EndedAt,
	).Scan(&id)
	if err == sql.ErrNoRows || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert finished game: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) GetRecent(ctx context.Context, playerKey string, limit int) ([]*domain.FinishedGame, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT
			id,
			session_id,
			player_key,
			fen,
			winner,
			result,
			ended_at
		FROM finished_games
		WHERE player_key = $1
		ORDER BY ended_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, playerKey, limit)
	if err != nil {
		return nil, fmt.Errorf("select finished games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.FinishedGame, 0, limit)
	for rows.Next() {
		var game domain.FinishedGame
		if err := rows.Scan(
			&game.ID,
			&game.SessionID,
			&game.PlayerKey,
			&game.FEN,
			&game.Winner,
			&game.Result,
			&game.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("scan finished game: %w", err)
		}
		games = append(games, &game)
	}
	return games, rows.Err()
}
