// Package sessiondto defines the request/response shapes of the HTTP surface.
package sessiondto

import "time"

type CreateSessionRequest struct {
	PlayerKey string `json:"player_key"`
}

type SessionResponse struct {
	ID        string    `json:"id"`
	PlayerKey string    `json:"player_key"`
	FEN       string    `json:"fen"`
	Board     string    `json:"board"`
	Turn      string    `json:"turn"`
	Checkmate bool      `json:"checkmate"`
	CreatedAt time.Time `json:"created_at"`
}

type BoardResponse struct {
	Board string `json:"board"`
}

type MoveRequest struct {
	PlayerKey string `json:"player_key"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

type MoveResponse struct {
	Board     string `json:"board"`
	Turn      string `json:"turn"`
	SAN       string `json:"san,omitempty"`
	Checkmate bool   `json:"checkmate"`
	Notice    string `json:"notice,omitempty"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
