package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/playsquare/gridgame-backend/internal/apperror"
	"github.com/playsquare/gridgame-backend/internal/entity"
)

const DefaultGridSize = 3

var ErrInvalidGridSize = errors.New("grid size must be greater than zero")

// Engine validates moves and detects winners on a gridSize x gridSize board.
// It is pure: it holds no state besides the grid size and never touches the
// game it is given.
type Engine struct {
	gridSize int
}

func New(gridSize int) (*Engine, error) {
	if gridSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGridSize, gridSize)
	}

	return &Engine{gridSize: gridSize}, nil
}

func (that *Engine) GridSize() int {
	return that.gridSize
}

// CheckMove validates a candidate move, short-circuiting on the first
// failure. The check order is part of the contract: winner, player
// membership, occupancy, turn order, bounds.
//
// Only the last 2*gridSize moves are checked for occupancy: a finished line
// is guaranteed within that many moves of any cell it runs through, so older
// moves can never matter and validation stays cheap on long games.
func (that *Engine) CheckMove(game *entity.Game, playerID string, coordinate entity.Coordinate) error {
	if game.HasWinner() {
		return fmt.Errorf("%w: game %s", apperror.ErrGameAlreadyWon, game.ID)
	}

	if !game.HasPlayer(playerID) {
		return fmt.Errorf("%w: player %s, game %s", apperror.ErrNotPlayerInGame, playerID, game.ID)
	}

	for _, move := range game.RecentMoves(that.gridSize * 2) {
		if move.Coordinate == coordinate {
			return fmt.Errorf("%w: x=%d, y=%d", apperror.ErrCellOccupied, coordinate.X, coordinate.Y)
		}
	}

	lastMove := game.LastMove()

	isPlayerTurn := (lastMove == nil && game.PlayerOneID == playerID) ||
		(lastMove != nil && lastMove.PlayerID != playerID)

	if !isPlayerTurn {
		return fmt.Errorf("%w: player %s, game %s", apperror.ErrNotYourTurn, playerID, game.ID)
	}

	if coordinate.X < 0 || coordinate.X >= that.gridSize || coordinate.Y < 0 || coordinate.Y >= that.gridSize {
		return fmt.Errorf("%w: x=%d, y=%d", apperror.ErrOutOfBounds, coordinate.X, coordinate.Y)
	}

	return nil
}

// Winner returns the winner of the game, or nil when no line is complete.
// Only the last 2*gridSize moves are considered; a line cannot be completed
// with moves older than that window.
func (that *Engine) Winner(game *entity.Game) *entity.Winner {
	recent := game.RecentMoves(that.gridSize * 2)

	coordinatesByPlayer := make(map[string][]entity.Coordinate)
	playerOrder := make([]string, 0, 2)

	for _, move := range recent {
		if _, ok := coordinatesByPlayer[move.PlayerID]; !ok {
			playerOrder = append(playerOrder, move.PlayerID)
		}
		coordinatesByPlayer[move.PlayerID] = append(coordinatesByPlayer[move.PlayerID], move.Coordinate)
	}

	for _, playerID := range playerOrder {
		coordinates := coordinatesByPlayer[playerID]
		if len(coordinates) < that.gridSize {
			continue
		}

		if rule, line := that.findWinningLine(coordinates); rule != "" {
			return &entity.Winner{
				PlayerID:    playerID,
				WinningRule: rule,
				Coordinates: line,
			}
		}
	}

	return nil
}

// findWinningLine checks the player's occupied cells for a complete line.
// Rules are tested in a fixed order per anchor cell: horizontal, vertical,
// backward diagonal, forward diagonal. The first match wins.
func (that *Engine) findWinningLine(coordinates []entity.Coordinate) (entity.WinningRule, []entity.Coordinate) {
	occupied := make(map[entity.Coordinate]struct{}, len(coordinates))
	for _, coordinate := range coordinates {
		occupied[coordinate] = struct{}{}
	}

	backwardDiagonal := make([]entity.Coordinate, 0, that.gridSize)
	forwardDiagonal := make([]entity.Coordinate, 0, that.gridSize)

	for i := 0; i < that.gridSize; i++ {
		backwardDiagonal = append(backwardDiagonal, entity.Coordinate{X: i, Y: i})
		forwardDiagonal = append(forwardDiagonal, entity.Coordinate{X: that.gridSize - 1 - i, Y: i})
	}

	for _, anchor := range coordinates {
		horizontal := collectLine(coordinates, func(c entity.Coordinate) bool { return c.Y == anchor.Y })
		if len(horizontal) == that.gridSize {
			sort.Slice(horizontal, func(i, j int) bool { return horizontal[i].X < horizontal[j].X })
			return entity.RuleHorizontal, horizontal
		}

		vertical := collectLine(coordinates, func(c entity.Coordinate) bool { return c.X == anchor.X })
		if len(vertical) == that.gridSize {
			sort.Slice(vertical, func(i, j int) bool { return vertical[i].Y < vertical[j].Y })
			return entity.RuleVertical, vertical
		}

		if containsAll(occupied, backwardDiagonal) {
			return entity.RuleBackwardDiagonal, backwardDiagonal
		}

		if containsAll(occupied, forwardDiagonal) {
			return entity.RuleForwardDiagonal, forwardDiagonal
		}
	}

	return "", nil
}

func collectLine(coordinates []entity.Coordinate, onLine func(entity.Coordinate) bool) []entity.Coordinate {
	var line []entity.Coordinate

	for _, coordinate := range coordinates {
		if onLine(coordinate) {
			line = append(line, coordinate)
		}
	}

	return line
}

func containsAll(occupied map[entity.Coordinate]struct{}, line []entity.Coordinate) bool {
	for _, coordinate := range line {
		if _, ok := occupied[coordinate]; !ok {
			return false
		}
	}

	return true
}
