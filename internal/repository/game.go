package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/playsquare/gridgame-backend/internal/apperror"
	"github.com/playsquare/gridgame-backend/internal/entity"
)

const (
	pendingGamesIndexKey = "pending-games"
)

type GameRepository interface {
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

type dbGame struct {
	client *redis.Client
}

func NewGameRepository(client *redis.Client) GameRepository {
	return &dbGame{
		client: client,
	}
}

func (that *dbGame) InsertPendingGame(ctx context.Context, pendingGame *entity.PendingGame) error {
	payload, err := json.Marshal(pendingGame)
	if err != nil {
		return fmt.Errorf("could not marshal pending game: %w", err)
	}

	createdAt := redis.Z{Score: float64(pendingGame.CreatedAt.UnixMilli()), Member: pendingGame.ID}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, pendingGameKey(pendingGame.ID), payload, 0)
		pipe.ZAdd(ctx, pendingGamesIndexKey, createdAt)
		pipe.ZAdd(ctx, pendingGamesByPlayerKey(pendingGame.CreatedBy), createdAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert pending game: %w", err)
	}

	return nil
}

// UpdatePendingGame applies a conditional update: it only succeeds when the
// stored record still carries the revision the caller loaded. A concurrent
// writer surfaces as apperror.ErrConcurrentModification.
func (that *dbGame) UpdatePendingGame(ctx context.Context, pendingGame *entity.PendingGame) error {
	key := pendingGameKey(pendingGame.ID)

	updated := *pendingGame
	updated.Revision++

	payload, err := json.Marshal(&updated)
	if err != nil {
		return fmt.Errorf("could not marshal pending game: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get pending game: %w", err)
		}

		var existing entity.PendingGame
		if err = json.Unmarshal([]byte(response), &existing); err != nil {
			return fmt.Errorf("failed to unmarshal pending game: %w", err)
		}

		if existing.Revision != pendingGame.Revision {
			return apperror.ErrConcurrentModification
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			if updated.IsStarted() {
				pipe.ZRem(ctx, pendingGamesIndexKey, updated.ID)
				pipe.ZRem(ctx, pendingGamesByPlayerKey(updated.CreatedBy), updated.ID)
			}
			return nil
		})

		return err
	}

	err = that.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return apperror.ErrConcurrentModification
	}
	if err != nil {
		return err
	}

	pendingGame.Revision = updated.Revision

	return nil
}

func (that *dbGame) FindPendingGameByID(ctx context.Context, id string) (*entity.PendingGame, error) {
	response, err := that.client.Get(ctx, pendingGameKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending game by ID: %w", err)
	}

	var pendingGame entity.PendingGame
	if err = json.Unmarshal([]byte(response), &pendingGame); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending game: %w", err)
	}

	return &pendingGame, nil
}

func (that *dbGame) InsertGame(ctx context.Context, game *entity.Game) error {
	payload, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	startedAt := redis.Z{Score: float64(game.StartedAt.UnixMilli()), Member: game.ID}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKey(game.ID), payload, 0)
		pipe.ZAdd(ctx, unfinishedGamesByPlayerKey(game.PlayerOneID), startedAt)
		pipe.ZAdd(ctx, unfinishedGamesByPlayerKey(game.PlayerTwoID), startedAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}

	return nil
}

// UpdateGame is conditional in the same way as UpdatePendingGame. Two racing
// moves against the same game snapshot both pass validation, but only one
// write lands; the loser gets apperror.ErrConcurrentModification.
func (that *dbGame) UpdateGame(ctx context.Context, game *entity.Game) error {
	key := gameKey(game.ID)

	updated := *game
	updated.Revision++

	payload, err := json.Marshal(&updated)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get game: %w", err)
		}

		var existing entity.Game
		if err = json.Unmarshal([]byte(response), &existing); err != nil {
			return fmt.Errorf("failed to unmarshal game: %w", err)
		}

		if existing.Revision != game.Revision {
			return apperror.ErrConcurrentModification
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			if updated.HasWinner() {
				pipe.ZRem(ctx, unfinishedGamesByPlayerKey(updated.PlayerOneID), updated.ID)
				pipe.ZRem(ctx, unfinishedGamesByPlayerKey(updated.PlayerTwoID), updated.ID)
			}
			return nil
		})

		return err
	}

	err = that.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return apperror.ErrConcurrentModification
	}
	if err != nil {
		return err
	}

	game.Revision = updated.Revision

	return nil
}

func (that *dbGame) FindGameByID(ctx context.Context, id string) (*entity.Game, error) {
	response, err := that.client.Get(ctx, gameKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game by ID: %w", err)
	}

	var game entity.Game
	if err = json.Unmarshal([]byte(response), &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &game, nil
}

func (that *dbGame) GetPendingGames(ctx context.Context, limit, offset int) ([]entity.PendingGame, error) {
	return that.listPendingGames(ctx, pendingGamesIndexKey, limit, offset)
}

func (that *dbGame) GetPendingGamesByPlayerID(ctx context.Context, playerID string, limit, offset int) ([]entity.PendingGame, error) {
	return that.listPendingGames(ctx, pendingGamesByPlayerKey(playerID), limit, offset)
}

func (that *dbGame) GetUnfinishedGamesByPlayerID(ctx context.Context, playerID string, limit, offset int) ([]entity.Game, error) {
	ids, err := that.pageOfIDs(ctx, unfinishedGamesByPlayerKey(playerID), limit, offset)
	if err != nil {
		return nil, err
	}

	games := make([]entity.Game, 0, len(ids))

	for _, id := range ids {
		game, err := that.FindGameByID(ctx, id)
		if errors.Is(err, apperror.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		games = append(games, *game)
	}

	return games, nil
}

func (that *dbGame) listPendingGames(ctx context.Context, indexKey string, limit, offset int) ([]entity.PendingGame, error) {
	ids, err := that.pageOfIDs(ctx, indexKey, limit, offset)
	if err != nil {
		return nil, err
	}

	pendingGames := make([]entity.PendingGame, 0, len(ids))

	for _, id := range ids {
		pendingGame, err := that.FindPendingGameByID(ctx, id)
		if errors.Is(err, apperror.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		pendingGames = append(pendingGames, *pendingGame)
	}

	return pendingGames, nil
}

func (that *dbGame) pageOfIDs(ctx context.Context, indexKey string, limit, offset int) ([]string, error) {
	if limit <= 0 || offset < 0 {
		return nil, nil
	}

	ids, err := that.client.ZRange(ctx, indexKey, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", indexKey, err)
	}

	return ids, nil
}

func gameKey(id string) string {
	return "game:" + id
}

func pendingGameKey(id string) string {
	return "pending-game:" + id
}

func pendingGamesByPlayerKey(playerID string) string {
	return pendingGamesIndexKey + ":player:" + playerID
}

func unfinishedGamesByPlayerKey(playerID string) string {
	return "unfinished-games:player:" + playerID
}
