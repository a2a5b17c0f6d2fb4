package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/playsquare/gridgame-backend/internal/apperror"
	"github.com/playsquare/gridgame-backend/internal/broadcast"
	"github.com/playsquare/gridgame-backend/internal/entity"
)

type gameService interface {
	RegisterForUpdates(ctx context.Context, gameID string, moves broadcast.MoveSink, winners broadcast.WinnerSink) (string, error)
	UnregisterForUpdates(registrationID string)
}

type userService interface {
	GetUserByID(ctx context.Context, id string) (*entity.User, error)
}

type authService interface {
	VerifyToken(tokenString string) (string, error)
}

type Server struct {
	logger *slog.Logger

	games        gameService
	users        userService
	auth         authService
	pingInterval time.Duration

	upgrader websocket.Upgrader
}

func New(logger *slog.Logger, games gameService, users userService, auth authService, pingInterval time.Duration) *Server {
	return &Server{
		logger: logger.With("component", "websocket"),

		games:        games,
		users:        users,
		auth:         auth,
		pingInterval: pingInterval,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Start - starts the WebSocket server and shuts it down when ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/games/{gameID}/updates", func(w http.ResponseWriter, r *http.Request) {
		that.handleGameUpdates(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down WebSocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// handleGameUpdates upgrades the connection, registers it for game events
// and keeps it alive with pings until the client goes away.
func (that *Server) handleGameUpdates(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleGameUpdates")

	gameID := r.PathValue("gameID")

	userID, err := that.auth.VerifyToken(bearerToken(r))
	if err != nil {
		http.Error(w, "invalid auth token", http.StatusUnauthorized)
		return
	}

	user, err := that.users.GetUserByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "unknown user", http.StatusUnauthorized)
		return
	}

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	client := newClient(conn)

	registrationID, err := that.games.RegisterForUpdates(r.Context(), gameID,
		func(move entity.Move) error {
			return client.send(messageTypeMove, move)
		},
		func(winner entity.Winner) error {
			return client.send(messageTypeWinner, winner)
		},
	)
	if errors.Is(err, apperror.ErrNotFound) {
		_ = client.send(messageTypeNotFound, gameID)
		client.close()
		return
	}
	if err != nil {
		log.Error("failed to register for updates", "gameID", gameID, "error", err)
		client.close()
		return
	}

	log.Info("listener registered", "gameID", gameID, "userID", userID, "registrationID", registrationID)

	cleanup := func() {
		that.games.UnregisterForUpdates(registrationID)
		client.close()
		log.Info("listener unregistered", "gameID", gameID, "registrationID", registrationID)
	}

	go that.keepAlive(ctx, client, user, cleanup)

	// The read loop only exists to notice the peer closing the connection.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cleanup()
				return
			}
		}
	}()
}

// keepAlive sends a ping every pingInterval; the first failure tears the
// connection down through the same path as an event delivery failure.
func (that *Server) keepAlive(ctx context.Context, client *client, user *entity.User, cleanup func()) {
	ticker := time.NewTicker(that.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cleanup()
			return
		case <-client.done:
			return
		case <-ticker.C:
			ping := pingPayload{UserID: user.ID, Username: user.Username, Timestamp: time.Now().UTC()}
			if err := client.send(messageTypePing, ping); err != nil {
				cleanup()
				return
			}
		}
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "

	if header := r.Header.Get("Authorization"); len(header) > len(prefix) {
		return header[len(prefix):]
	}

	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}

	return r.URL.Query().Get("token")
}
