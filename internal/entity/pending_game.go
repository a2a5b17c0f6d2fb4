package entity

import "time"

// PendingGame is a created game waiting for a second player. GameStartedAt
// is nil until the game starts and is set exactly once.
type PendingGame struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	CreatedAt     time.Time  `json:"created_at"`
	CreatedBy     string     `json:"created_by"`
	GameStartedAt *time.Time `json:"game_started_at,omitempty"`

	Revision int64 `json:"revision"`
}

func (that *PendingGame) IsStarted() bool {
	return that.GameStartedAt != nil
}
