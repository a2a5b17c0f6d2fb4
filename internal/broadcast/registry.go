package broadcast

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/playsquare/gridgame-backend/internal/entity"
)

// MoveSink and WinnerSink deliver one event to one listener. A non-nil error
// means the listener's transport is broken and it must not be sent to again.
type (
	MoveSink   func(move entity.Move) error
	WinnerSink func(winner entity.Winner) error
)

type listener struct {
	moves   MoveSink
	winners WinnerSink
}

// Registry fans game events out to every registered listener. It is safe for
// concurrent use from any goroutine. Delivery is asynchronous and
// independent per listener; a failing sink is unregistered automatically and
// never affects other listeners or the caller that triggered the broadcast.
type Registry struct {
	logger *slog.Logger

	mu        sync.RWMutex
	listeners map[string]map[string]*listener // gameID -> registrationID -> listener
	games     map[string]string               // registrationID -> gameID
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("component", "broadcast"),
		listeners: make(map[string]map[string]*listener),
		games:     make(map[string]string),
	}
}

// Register adds a listener for one game and returns its registration id.
// Callers are expected to have checked that the game exists.
func (that *Registry) Register(gameID string, moves MoveSink, winners WinnerSink) string {
	registrationID := uuid.NewString()

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.listeners[gameID] == nil {
		that.listeners[gameID] = make(map[string]*listener)
	}

	that.listeners[gameID][registrationID] = &listener{moves: moves, winners: winners}
	that.games[registrationID] = gameID

	return registrationID
}

// Unregister removes a listener. Unknown ids are a no-op, so it is safe to
// call from multiple cleanup paths racing each other.
func (that *Registry) Unregister(registrationID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	gameID, ok := that.games[registrationID]
	if !ok {
		return
	}

	delete(that.games, registrationID)
	delete(that.listeners[gameID], registrationID)

	if len(that.listeners[gameID]) == 0 {
		delete(that.listeners, gameID)
	}

	that.logger.Info("unregistered listener", "gameID", gameID, "registrationID", registrationID)
}

// BroadcastMove delivers the move to every listener on the game, each on its
// own goroutine.
func (that *Registry) BroadcastMove(gameID string, move entity.Move) {
	for registrationID, l := range that.snapshot(gameID) {
		go func(registrationID string, l *listener) {
			if err := l.moves(move); err != nil {
				that.logger.Error("failed to deliver move update",
					"gameID", gameID, "registrationID", registrationID, "error", err)
				that.Unregister(registrationID)
			}
		}(registrationID, l)
	}
}

// BroadcastWinner delivers the winner to every listener on the game.
func (that *Registry) BroadcastWinner(gameID string, winner entity.Winner) {
	for registrationID, l := range that.snapshot(gameID) {
		go func(registrationID string, l *listener) {
			if err := l.winners(winner); err != nil {
				that.logger.Error("failed to deliver winner update",
					"gameID", gameID, "registrationID", registrationID, "error", err)
				that.Unregister(registrationID)
			}
		}(registrationID, l)
	}
}

func (that *Registry) snapshot(gameID string) map[string]*listener {
	that.mu.RLock()
	defer that.mu.RUnlock()

	registered := that.listeners[gameID]
	if len(registered) == 0 {
		return nil
	}

	listeners := make(map[string]*listener, len(registered))
	for registrationID, l := range registered {
		listeners[registrationID] = l
	}

	return listeners
}
