package domain

import "time"

// FinishedGame is the archived record of a session whose terminal state was
// confirmed by the deferred verifier.
type FinishedGame struct {
	ID        int64
	SessionID string
	PlayerKey string
	FEN       string
	Winner    string
	Result    string
	EndedAt   time.Time
}
