package entity

import "time"

type WinningRule string

const (
	RuleHorizontal       WinningRule = "Horizontal"
	RuleVertical         WinningRule = "Vertical"
	RuleForwardDiagonal  WinningRule = "ForwardDiagonal"
	RuleBackwardDiagonal WinningRule = "BackwardDiagonal"
)

// Coordinate is a cell on the board. The origin is the top-left corner.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Move struct {
	ID          string     `json:"id"`
	PlayerID    string     `json:"player_id"`
	PerformedAt time.Time  `json:"performed_at"`
	Coordinate  Coordinate `json:"coordinate"`
}

type Winner struct {
	PlayerID    string       `json:"player_id"`
	WinningRule WinningRule  `json:"winning_rule"`
	Coordinates []Coordinate `json:"coordinates"`
}

// Game is a started game between two players. Moves are append-only and
// their order is the turn order. A nil Winner means the game is still open.
type Game struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
	StartedAt   time.Time `json:"started_at"`
	PlayerOneID string    `json:"player_one_id"`
	PlayerTwoID string    `json:"player_two_id"`
	Moves       []Move    `json:"moves"`
	Winner      *Winner   `json:"winner,omitempty"`

	// Revision backs the conditional update in the repository.
	Revision int64 `json:"revision"`
}

func (that *Game) HasWinner() bool {
	return that.Winner != nil
}

func (that *Game) HasPlayer(playerID string) bool {
	return playerID == that.PlayerOneID || playerID == that.PlayerTwoID
}

// LastMove returns the most recent move, or nil if none have been made.
func (that *Game) LastMove() *Move {
	if len(that.Moves) == 0 {
		return nil
	}

	return &that.Moves[len(that.Moves)-1]
}

// RecentMoves returns at most the last window moves in turn order.
func (that *Game) RecentMoves(window int) []Move {
	if window >= len(that.Moves) {
		return that.Moves
	}

	return that.Moves[len(that.Moves)-window:]
}

// IsBoardFull reports whether every cell of a gridSize x gridSize board has
// been played.
func (that *Game) IsBoardFull(gridSize int) bool {
	return len(that.Moves) >= gridSize*gridSize
}
