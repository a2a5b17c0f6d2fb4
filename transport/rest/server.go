package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/playsquare/gridgame-backend/internal/broadcast"
	"github.com/playsquare/gridgame-backend/internal/entity"
)

type gameService interface {
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

type userService interface {
	Register(ctx context.Context, username, password string) (*entity.User, error)
	Login(ctx context.Context, username, password string) (*entity.User, error)
	GetUserByID(ctx context.Context, id string) (*entity.User, error)
}

type authService interface {
	GenerateToken(userID string) (string, error)
	VerifyToken(tokenString string) (string, error)
}

type Server struct {
	logger *slog.Logger

	games        gameService
	users        userService
	auth         authService
	pingInterval time.Duration
}

func New(logger *slog.Logger, games gameService, users userService, auth authService, pingInterval time.Duration) *Server {
	return &Server{
		logger: logger.With("component", "rest"),

		games:        games,
		users:        users,
		auth:         auth,
		pingInterval: pingInterval,
	}
}

// Start - starts the HTTP server and shuts it down when ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /service/ping", that.handlePing)
	mux.HandleFunc("GET /service/info", that.handleInfo)

	mux.HandleFunc("POST /api/users", that.handleRegisterUser)
	mux.HandleFunc("POST /api/users/login", that.handleLogin)

	mux.HandleFunc("POST /api/games/pending", that.authenticated(that.handleCreateGame))
	mux.HandleFunc("GET /api/games/pending", that.authenticated(that.handleGetPendingGames))
	mux.HandleFunc("GET /api/games/pending/user", that.authenticated(that.handleGetOwnPendingGames))
	mux.HandleFunc("GET /api/games/pending/id/{pendingGameID}", that.authenticated(that.handleGetPendingGame))
	mux.HandleFunc("POST /api/games/pending/id/{pendingGameID}/join", that.authenticated(that.handleJoinGame))

	mux.HandleFunc("GET /api/games/user", that.authenticated(that.handleGetUnfinishedGames))
	mux.HandleFunc("GET /api/games/id/{gameID}", that.authenticated(that.handleGetGame))
	mux.HandleFunc("POST /api/games/id/{gameID}/move", that.authenticated(that.handleAddMove))
	mux.HandleFunc("GET /api/games/id/{gameID}/updates", that.authenticated(that.handleGameUpdates))

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
			that.logger.Error("failed to shut down HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
