package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/playsquare/gridgame-backend/internal/apperror"
	"github.com/playsquare/gridgame-backend/internal/broadcast"
	"github.com/playsquare/gridgame-backend/internal/engine"
	"github.com/playsquare/gridgame-backend/internal/entity"
)

type GameService interface {
	CreateGame(ctx context.Context, title, creatorID string) (*entity.PendingGame, error)
	StartGame(ctx context.Context, pendingGameID, playerID string) (*entity.Game, error)
	AddMove(ctx context.Context, gameID, playerID string, coordinate entity.Coordinate) (*entity.Game, error)

	GetGameByID(ctx context.Context, gameID string) (*entity.Game, error)
	GetPendingGameByID(ctx context.Context, pendingGameID string) (*entity.PendingGame, error)

	GetPendingGames(ctx context.Context, limit, offset int) ([]entity.PendingGame, error)
	GetPendingGamesByPlayerID(ctx context.Context, playerID string, limit, offset int) ([]entity.PendingGame, error)
	GetUnfinishedGamesByPlayerID(ctx context.Context, playerID string, limit, offset int) ([]entity.Game, error)

	RegisterForUpdates(ctx context.Context, gameID string, moves broadcast.MoveSink, winners broadcast.WinnerSink) (string, error)
	UnregisterForUpdates(registrationID string)
}

type gameRepo interface {
	InsertPendingGame(ctx context.Context, pendingGame *entity.PendingGame) error
	UpdatePendingGame(ctx context.Context, pendingGame *entity.PendingGame) error
	FindPendingGameByID(ctx context.Context, id string) (*entity.PendingGame, error)

	InsertGame(ctx context.Context, game *entity.Game) error
	UpdateGame(ctx context.Context, game *entity.Game) error
	FindGameByID(ctx context.Context, id string) (*entity.Game, error)

	GetPendingGames(ctx context.Context, limit, offset int) ([]entity.PendingGame, error)
	GetPendingGamesByPlayerID(ctx context.Context, playerID string, limit, offset int) ([]entity.PendingGame, error)
	GetUnfinishedGamesByPlayerID(ctx context.Context, playerID string, limit, offset int) ([]entity.Game, error)
}

type broadcaster interface {
	Register(gameID string, moves broadcast.MoveSink, winners broadcast.WinnerSink) string
	Unregister(registrationID string)
	BroadcastMove(gameID string, move entity.Move)
	BroadcastWinner(gameID string, winner entity.Winner)
}

type gameService struct {
	logger *slog.Logger

	games   gameRepo
	rules   *engine.Engine
	updates broadcaster
}

func NewGameService(logger *slog.Logger, games gameRepo, rules *engine.Engine, updates broadcaster) GameService {
	return &gameService{
		logger: logger.With("component", "game-service"),

		games:   games,
		rules:   rules,
		updates: updates,
	}
}

func (that *gameService) CreateGame(ctx context.Context, title, creatorID string) (*entity.PendingGame, error) {
	pendingGame := &entity.PendingGame{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
		CreatedBy: creatorID,
	}

	if err := that.games.InsertPendingGame(ctx, pendingGame); err != nil {
		return nil, fmt.Errorf("failed to insert pending game: %w", err)
	}

	return pendingGame, nil
}

// StartGame turns a pending game into a started game. The pending-game
// update is conditional; two join requests racing on the same pending game
// cannot both succeed.
func (that *gameService) StartGame(ctx context.Context, pendingGameID, playerID string) (*entity.Game, error) {
	log := that.logger.With("method", "StartGame")

	pendingGame, err := that.games.FindPendingGameByID(ctx, pendingGameID)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending game %s: %w", pendingGameID, err)
	}

	if pendingGame.IsStarted() {
		return nil, fmt.Errorf("%w: game %s has already started", apperror.ErrConflict, pendingGameID)
	}

	startedAt := time.Now().UTC()
	pendingGame.GameStartedAt = &startedAt

	if err = that.games.UpdatePendingGame(ctx, pendingGame); err != nil {
		if errors.Is(err, apperror.ErrConcurrentModification) {
			log.Error("pending game was started concurrently", "pendingGameID", pendingGameID)
		}

		return nil, fmt.Errorf("failed to update pending game %s: %w", pendingGameID, err)
	}

	game := &entity.Game{
		ID:          pendingGame.ID,
		Title:       pendingGame.Title,
		CreatedAt:   pendingGame.CreatedAt,
		CreatedBy:   pendingGame.CreatedBy,
		StartedAt:   startedAt,
		PlayerOneID: pendingGame.CreatedBy,
		PlayerTwoID: playerID,
		Moves:       []entity.Move{},
	}

	if err = that.games.InsertGame(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to insert game %s: %w", game.ID, err)
	}

	log.Info("game started", "gameID", game.ID, "playerOneID", game.PlayerOneID, "playerTwoID", game.PlayerTwoID)

	return game, nil
}

// AddMove validates and appends one move, persists the game through a
// conditional update, and broadcasts the move (and winner, if the move
// completed a line) to registered listeners. Broadcast delivery is
// asynchronous; the caller gets the persisted game without waiting for it.
func (that *gameService) AddMove(ctx context.Context, gameID, playerID string, coordinate entity.Coordinate) (*entity.Game, error) {
	log := that.logger.With("method", "AddMove")

	game, err := that.games.FindGameByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to find game %s: %w", gameID, err)
	}

	if game.HasWinner() {
		return nil, fmt.Errorf("%w: game %s", apperror.ErrGameAlreadyWon, gameID)
	}

	if err = that.rules.CheckMove(game, playerID, coordinate); err != nil {
		return nil, fmt.Errorf("invalid move: %w", err)
	}

	move := entity.Move{
		ID:          uuid.NewString(),
		PlayerID:    playerID,
		PerformedAt: time.Now().UTC(),
		Coordinate:  coordinate,
	}

	game.Moves = append(game.Moves, move)
	game.Winner = that.rules.Winner(game)

	if err = that.games.UpdateGame(ctx, game); err != nil {
		if errors.Is(err, apperror.ErrConcurrentModification) {
			// Two moves were accepted against the same game snapshot. Only
			// one write may land; this caller lost the race.
			log.Error("game was modified concurrently", "gameID", gameID, "playerID", playerID)
		}

		return nil, fmt.Errorf("failed to update game %s: %w", gameID, err)
	}

	that.updates.BroadcastMove(game.ID, move)

	if game.Winner != nil {
		that.updates.BroadcastWinner(game.ID, *game.Winner)
		log.Info("game won", "gameID", game.ID, "playerID", game.Winner.PlayerID, "rule", game.Winner.WinningRule)
	}

	return game, nil
}

func (that *gameService) GetGameByID(ctx context.Context, gameID string) (*entity.Game, error) {
	game, err := that.games.FindGameByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to find game %s: %w", gameID, err)
	}

	return game, nil
}

func (that *gameService) GetPendingGameByID(ctx context.Context, pendingGameID string) (*entity.PendingGame, error) {
	pendingGame, err := that.games.FindPendingGameByID(ctx, pendingGameID)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending game %s: %w", pendingGameID, err)
	}

	return pendingGame, nil
}

func (that *gameService) GetPendingGames(ctx context.Context, limit, offset int) ([]entity.PendingGame, error) {
	pendingGames, err := that.games.GetPendingGames(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending games: %w", err)
	}

	return pendingGames, nil
}

func (that *gameService) GetPendingGamesByPlayerID(ctx context.Context, playerID string, limit, offset int) ([]entity.PendingGame, error) {
	pendingGames, err := that.games.GetPendingGamesByPlayerID(ctx, playerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending games for player %s: %w", playerID, err)
	}

	return pendingGames, nil
}

func (that *gameService) GetUnfinishedGamesByPlayerID(ctx context.Context, playerID string, limit, offset int) ([]entity.Game, error) {
	games, err := that.games.GetUnfinishedGamesByPlayerID(ctx, playerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list unfinished games for player %s: %w", playerID, err)
	}

	return games, nil
}

// RegisterForUpdates verifies the game exists, then registers the sinks with
// the fan-out registry.
func (that *gameService) RegisterForUpdates(ctx context.Context, gameID string, moves broadcast.MoveSink, winners broadcast.WinnerSink) (string, error) {
	if _, err := that.games.FindGameByID(ctx, gameID); err != nil {
		return "", fmt.Errorf("failed to find game %s: %w", gameID, err)
	}

	return that.updates.Register(gameID, moves, winners), nil
}

func (that *gameService) UnregisterForUpdates(registrationID string) {
	that.updates.Unregister(registrationID)
}
