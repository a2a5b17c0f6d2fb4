package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playsquare/gridgame-backend/internal/apperror"
	"github.com/playsquare/gridgame-backend/internal/entity"
)

func newTestGame() *entity.Game {
	return &entity.Game{
		ID:          "game-1",
		PlayerOneID: "player-one",
		PlayerTwoID: "player-two",
		Moves:       []entity.Move{},
	}
}

// playMoves applies the coordinates as alternating moves starting with
// player one, validating each through the engine like the orchestrator does.
func playMoves(t *testing.T, rules *Engine, game *entity.Game, coordinates ...entity.Coordinate) {
	t.Helper()

	players := []string{game.PlayerOneID, game.PlayerTwoID}

	for i, coordinate := range coordinates {
		playerID := players[i%2]

		require.NoError(t, rules.CheckMove(game, playerID, coordinate))

		game.Moves = append(game.Moves, entity.Move{
			ID:          fmt.Sprintf("move-%d", i+1),
			PlayerID:    playerID,
			PerformedAt: time.Now().UTC(),
			Coordinate:  coordinate,
		})
		game.Winner = rules.Winner(game)
	}
}

func TestNew(t *testing.T) {
	t.Run("Creates an engine for a valid grid size", func(t *testing.T) {
		rules, err := New(5)

		require.NoError(t, err)
		assert.Equal(t, 5, rules.GridSize())
	})

	t.Run("Fails on a zero grid size", func(t *testing.T) {
		rules, err := New(0)

		require.ErrorIs(t, err, ErrInvalidGridSize)
		assert.Nil(t, rules)
	})

	t.Run("Fails on a negative grid size", func(t *testing.T) {
		_, err := New(-3)

		require.ErrorIs(t, err, ErrInvalidGridSize)
	})
}

func TestEngine_CheckMove(t *testing.T) {
	rules, err := New(DefaultGridSize)
	require.NoError(t, err)

	t.Run("Accepts the first move by player one", func(t *testing.T) {
		game := newTestGame()

		err := rules.CheckMove(game, "player-one", entity.Coordinate{X: 1, Y: 1})

		require.NoError(t, err)
	})

	t.Run("Rejects any move once the game has a winner", func(t *testing.T) {
		game := newTestGame()
		game.Winner = &entity.Winner{PlayerID: "player-one", WinningRule: entity.RuleHorizontal}

		err := rules.CheckMove(game, "player-two", entity.Coordinate{X: 2, Y: 2})

		require.ErrorIs(t, err, apperror.ErrGameAlreadyWon)
	})

	t.Run("Rejects a move by a player outside the game", func(t *testing.T) {
		game := newTestGame()

		err := rules.CheckMove(game, "intruder", entity.Coordinate{X: 0, Y: 0})

		require.ErrorIs(t, err, apperror.ErrNotPlayerInGame)
	})

	t.Run("Rejects a move to an occupied cell", func(t *testing.T) {
		// Given: player one has taken (1,1)
		game := newTestGame()
		playMoves(t, rules, game, entity.Coordinate{X: 1, Y: 1})

		// When: player two tries the same cell
		err := rules.CheckMove(game, "player-two", entity.Coordinate{X: 1, Y: 1})

		// Then: the move is rejected as occupied
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
	})

	t.Run("Rejects two consecutive moves by the same player", func(t *testing.T) {
		game := newTestGame()
		playMoves(t, rules, game, entity.Coordinate{X: 0, Y: 0})

		err := rules.CheckMove(game, "player-one", entity.Coordinate{X: 1, Y: 0})

		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("Rejects an opening move by player two", func(t *testing.T) {
		game := newTestGame()

		err := rules.CheckMove(game, "player-two", entity.Coordinate{X: 0, Y: 0})

		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("Rejects an out of bounds coordinate", func(t *testing.T) {
		game := newTestGame()

		err := rules.CheckMove(game, "player-one", entity.Coordinate{X: 3, Y: 3})

		require.ErrorIs(t, err, apperror.ErrOutOfBounds)
	})

	t.Run("Rejects a negative coordinate", func(t *testing.T) {
		game := newTestGame()

		err := rules.CheckMove(game, "player-one", entity.Coordinate{X: -1, Y: 0})

		require.ErrorIs(t, err, apperror.ErrOutOfBounds)
	})

	t.Run("Occupancy is checked before turn order", func(t *testing.T) {
		// Given: player one has taken (1,1) and it is player two's turn
		game := newTestGame()
		playMoves(t, rules, game, entity.Coordinate{X: 1, Y: 1})

		// When: player one replays the occupied cell out of turn
		err := rules.CheckMove(game, "player-one", entity.Coordinate{X: 1, Y: 1})

		// Then: the occupancy failure wins
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
	})

	t.Run("Turn order is checked before bounds", func(t *testing.T) {
		game := newTestGame()
		playMoves(t, rules, game, entity.Coordinate{X: 0, Y: 0})

		err := rules.CheckMove(game, "player-one", entity.Coordinate{X: 5, Y: 5})

		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})
}

func TestEngine_Winner(t *testing.T) {
	rules, err := New(DefaultGridSize)
	require.NoError(t, err)

	t.Run("No winner on an empty game", func(t *testing.T) {
		game := newTestGame()

		assert.Nil(t, rules.Winner(game))
	})

	t.Run("Detects a horizontal win", func(t *testing.T) {
		// Given: player one completes the y=0 row
		game := newTestGame()
		playMoves(t, rules, game,
			entity.Coordinate{X: 0, Y: 0},
			entity.Coordinate{X: 0, Y: 1},
			entity.Coordinate{X: 1, Y: 0},
			entity.Coordinate{X: 1, Y: 1},
			entity.Coordinate{X: 2, Y: 0},
		)

		// Then: the winner is player one with the row sorted by x
		expectedWinner := &entity.Winner{
			PlayerID:    "player-one",
			WinningRule: entity.RuleHorizontal,
			Coordinates: []entity.Coordinate{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}},
		}

		require.Equal(t, expectedWinner, game.Winner)
	})

	t.Run("Detects a vertical win", func(t *testing.T) {
		game := newTestGame()
		playMoves(t, rules, game,
			entity.Coordinate{X: 0, Y: 0},
			entity.Coordinate{X: 1, Y: 0},
			entity.Coordinate{X: 0, Y: 1},
			entity.Coordinate{X: 1, Y: 1},
			entity.Coordinate{X: 0, Y: 2},
		)

		expectedWinner := &entity.Winner{
			PlayerID:    "player-one",
			WinningRule: entity.RuleVertical,
			Coordinates: []entity.Coordinate{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 2}},
		}

		require.Equal(t, expectedWinner, game.Winner)
	})

	t.Run("Detects a backward diagonal win", func(t *testing.T) {
		game := newTestGame()
		playMoves(t, rules, game,
			entity.Coordinate{X: 0, Y: 0},
			entity.Coordinate{X: 1, Y: 0},
			entity.Coordinate{X: 1, Y: 1},
			entity.Coordinate{X: 2, Y: 0},
			entity.Coordinate{X: 2, Y: 2},
		)

		expectedWinner := &entity.Winner{
			PlayerID:    "player-one",
			WinningRule: entity.RuleBackwardDiagonal,
			Coordinates: []entity.Coordinate{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}},
		}

		require.Equal(t, expectedWinner, game.Winner)
	})

	t.Run("Detects a forward diagonal win", func(t *testing.T) {
		game := newTestGame()
		playMoves(t, rules, game,
			entity.Coordinate{X: 2, Y: 0},
			entity.Coordinate{X: 0, Y: 0},
			entity.Coordinate{X: 1, Y: 1},
			entity.Coordinate{X: 1, Y: 0},
			entity.Coordinate{X: 0, Y: 2},
		)

		expectedWinner := &entity.Winner{
			PlayerID:    "player-one",
			WinningRule: entity.RuleForwardDiagonal,
			Coordinates: []entity.Coordinate{{X: 2, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 2}},
		}

		require.Equal(t, expectedWinner, game.Winner)
	})

	t.Run("Detects a win by player two", func(t *testing.T) {
		game := newTestGame()
		playMoves(t, rules, game,
			entity.Coordinate{X: 0, Y: 0},
			entity.Coordinate{X: 0, Y: 1},
			entity.Coordinate{X: 2, Y: 2},
			entity.Coordinate{X: 1, Y: 1},
			entity.Coordinate{X: 2, Y: 0},
			entity.Coordinate{X: 2, Y: 1},
		)

		require.NotNil(t, game.Winner)
		assert.Equal(t, "player-two", game.Winner.PlayerID)
		assert.Equal(t, entity.RuleHorizontal, game.Winner.WinningRule)
	})

	t.Run("A full board with no line is a draw", func(t *testing.T) {
		// Given: nine moves that fill the board without a line
		game := newTestGame()
		playMoves(t, rules, game,
			entity.Coordinate{X: 0, Y: 0},
			entity.Coordinate{X: 1, Y: 0},
			entity.Coordinate{X: 2, Y: 0},
			entity.Coordinate{X: 1, Y: 1},
			entity.Coordinate{X: 0, Y: 1},
			entity.Coordinate{X: 2, Y: 1},
			entity.Coordinate{X: 1, Y: 2},
			entity.Coordinate{X: 0, Y: 2},
			entity.Coordinate{X: 2, Y: 2},
		)

		// Then: there is no winner and the board is exhausted
		assert.Nil(t, game.Winner)
		assert.True(t, game.IsBoardFull(rules.GridSize()))
	})

	t.Run("Ignores moves that fell out of the recent window", func(t *testing.T) {
		// Given: player one holds the full y=0 row, but its first cell was
		// played more than 2*gridSize moves ago
		game := newTestGame()
		playMoves(t, rules, game,
			entity.Coordinate{X: 0, Y: 0},
			entity.Coordinate{X: 0, Y: 1},
			entity.Coordinate{X: 1, Y: 1},
			entity.Coordinate{X: 2, Y: 1},
			entity.Coordinate{X: 0, Y: 2},
			entity.Coordinate{X: 2, Y: 2},
			entity.Coordinate{X: 1, Y: 0},
			entity.Coordinate{X: 1, Y: 2},
			entity.Coordinate{X: 2, Y: 0},
		)

		// Then: only the window is considered, so no winner is reported
		assert.Nil(t, game.Winner)
	})
}
