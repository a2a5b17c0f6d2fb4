package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func gameWithMoves(count int) *Game {
	game := &Game{
		ID:          "game-1",
		PlayerOneID: "player-one",
		PlayerTwoID: "player-two",
		Moves:       []Move{},
	}

	players := []string{game.PlayerOneID, game.PlayerTwoID}

	for i := 0; i < count; i++ {
		game.Moves = append(game.Moves, Move{
			ID:         string(rune('a' + i)),
			PlayerID:   players[i%2],
			Coordinate: Coordinate{X: i % 3, Y: i / 3},
		})
	}

	return game
}

func TestGame_HasWinner(t *testing.T) {
	game := gameWithMoves(0)
	assert.False(t, game.HasWinner())

	game.Winner = &Winner{PlayerID: "player-one", WinningRule: RuleVertical}
	assert.True(t, game.HasWinner())
}

func TestGame_HasPlayer(t *testing.T) {
	game := gameWithMoves(0)

	assert.True(t, game.HasPlayer("player-one"))
	assert.True(t, game.HasPlayer("player-two"))
	assert.False(t, game.HasPlayer("intruder"))
}

func TestGame_LastMove(t *testing.T) {
	t.Run("Nil on a game without moves", func(t *testing.T) {
		assert.Nil(t, gameWithMoves(0).LastMove())
	})

	t.Run("Returns the most recent move", func(t *testing.T) {
		game := gameWithMoves(3)

		lastMove := game.LastMove()

		assert.Equal(t, game.Moves[2], *lastMove)
	})
}

func TestGame_RecentMoves(t *testing.T) {
	t.Run("Returns all moves when the window is larger", func(t *testing.T) {
		game := gameWithMoves(4)

		assert.Len(t, game.RecentMoves(6), 4)
	})

	t.Run("Returns only the tail when the window is smaller", func(t *testing.T) {
		game := gameWithMoves(9)

		recent := game.RecentMoves(6)

		assert.Len(t, recent, 6)
		assert.Equal(t, game.Moves[3], recent[0])
		assert.Equal(t, game.Moves[8], recent[5])
	})
}

func TestGame_IsBoardFull(t *testing.T) {
	assert.False(t, gameWithMoves(8).IsBoardFull(3))
	assert.True(t, gameWithMoves(9).IsBoardFull(3))
}

func TestPendingGame_IsStarted(t *testing.T) {
	pendingGame := &PendingGame{ID: "pending-1"}
	assert.False(t, pendingGame.IsStarted())

	startedAt := time.Now().UTC()
	pendingGame.GameStartedAt = &startedAt
	assert.True(t, pendingGame.IsStarted())
}
