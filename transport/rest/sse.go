package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/playsquare/gridgame-backend/internal/entity"
)

const (
	eventMove   = "move-update"
	eventWinner = "winner-update"
	eventPing   = "ping"
)

var errStreamClosed = errors.New("event stream is closed")

// handleGameUpdates streams move and winner events over SSE. The handler
// goroutine owns the keep-alive ping loop and blocks until the client
// disconnects or a write fails.
func (that *Server) handleGameUpdates(w http.ResponseWriter, r *http.Request, userID string) {
	log := that.logger.With("method", "handleGameUpdates")

	gameID := r.PathValue("gameID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		that.respondError(w, http.StatusInternalServerError, "streaming is not supported")
		return
	}

	user, err := that.users.GetUserByID(r.Context(), userID)
	if err != nil {
		that.respondDomainError(w, "handleGameUpdates", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	stream := newEventStream(w, flusher)

	registrationID, err := that.games.RegisterForUpdates(r.Context(), gameID,
		func(move entity.Move) error {
			return stream.send(eventMove, move)
		},
		func(winner entity.Winner) error {
			return stream.send(eventWinner, winner)
		},
	)
	if err != nil {
		that.respondDomainError(w, "handleGameUpdates", err)
		return
	}

	log.Info("listener registered", "gameID", gameID, "userID", userID, "registrationID", registrationID)

	// The stream is closed before unregistering so an in-flight broadcast
	// can no longer touch the response writer once this handler returns.
	defer func() {
		stream.close()
		that.games.UnregisterForUpdates(registrationID)
		log.Info("listener unregistered", "gameID", gameID, "registrationID", registrationID)
	}()

	ticker := time.NewTicker(that.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			ping := pingResponse{UserID: user.ID, Username: user.Username, Timestamp: time.Now().UTC()}
			if err = stream.send(eventPing, ping); err != nil {
				log.Info("keep-alive ping failed, closing stream", "gameID", gameID, "registrationID", registrationID)
				return
			}
		}
	}
}

// eventStream serializes all writes to one SSE connection so event delivery
// and keep-alive pings cannot interleave on the wire.
type eventStream struct {
	mu      sync.Mutex
	writer  http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

func newEventStream(writer http.ResponseWriter, flusher http.Flusher) *eventStream {
	return &eventStream{
		writer:  writer,
		flusher: flusher,
	}
}

func (that *eventStream) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return errStreamClosed
	}

	if _, err = fmt.Fprintf(that.writer, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	that.flusher.Flush()

	return nil
}

func (that *eventStream) close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closed = true
}
