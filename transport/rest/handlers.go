package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/playsquare/gridgame-backend/internal/apperror"
	"github.com/playsquare/gridgame-backend/internal/entity"
)

const (
	serviceName    = "gridgame-backend"
	serviceVersion = "1.0.0"

	defaultPageLimit = 10
)

func (that *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	that.respondJSON(w, http.StatusOK, serviceInfoResponse{
		ServiceName: serviceName,
		Version:     serviceVersion,
		GoVersion:   runtime.Version(),
		Timestamp:   time.Now().UTC(),
	})
}

func (that *Server) handleCreateGame(w http.ResponseWriter, r *http.Request, userID string) {
	log := that.logger.With("method", "handleCreateGame")

	var req newGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.GameTitle == "" {
		that.respondError(w, http.StatusBadRequest, "game_title is required")
		return
	}

	pendingGame, err := that.games.CreateGame(r.Context(), req.GameTitle, userID)
	if err != nil {
		log.Error("failed to create game", "error", err)
		that.respondError(w, http.StatusInternalServerError, "failed to create game")
		return
	}

	log.Info("pending game created", "pendingGameID", pendingGame.ID, "userID", userID)

	that.respondJSON(w, http.StatusCreated, pendingGame)
}

func (that *Server) handleGetPendingGames(w http.ResponseWriter, r *http.Request, _ string) {
	limit, offset := pagination(r)

	pendingGames, err := that.games.GetPendingGames(r.Context(), limit, offset)
	if err != nil {
		that.respondDomainError(w, "handleGetPendingGames", err)
		return
	}

	that.respondJSON(w, http.StatusOK, paginatedResponse[entity.PendingGame]{
		Results: pendingGames,
		Offset:  offset,
		Limit:   limit,
	})
}

func (that *Server) handleGetOwnPendingGames(w http.ResponseWriter, r *http.Request, userID string) {
	limit, offset := pagination(r)

	pendingGames, err := that.games.GetPendingGamesByPlayerID(r.Context(), userID, limit, offset)
	if err != nil {
		that.respondDomainError(w, "handleGetOwnPendingGames", err)
		return
	}

	that.respondJSON(w, http.StatusOK, paginatedResponse[entity.PendingGame]{
		Results: pendingGames,
		Offset:  offset,
		Limit:   limit,
	})
}

func (that *Server) handleGetUnfinishedGames(w http.ResponseWriter, r *http.Request, userID string) {
	limit, offset := pagination(r)

	games, err := that.games.GetUnfinishedGamesByPlayerID(r.Context(), userID, limit, offset)
	if err != nil {
		that.respondDomainError(w, "handleGetUnfinishedGames", err)
		return
	}

	that.respondJSON(w, http.StatusOK, paginatedResponse[entity.Game]{
		Results: games,
		Offset:  offset,
		Limit:   limit,
	})
}

func (that *Server) handleGetPendingGame(w http.ResponseWriter, r *http.Request, _ string) {
	pendingGame, err := that.games.GetPendingGameByID(r.Context(), r.PathValue("pendingGameID"))
	if err != nil {
		that.respondDomainError(w, "handleGetPendingGame", err)
		return
	}

	that.respondJSON(w, http.StatusOK, pendingGame)
}

func (that *Server) handleJoinGame(w http.ResponseWriter, r *http.Request, userID string) {
	game, err := that.games.StartGame(r.Context(), r.PathValue("pendingGameID"), userID)
	if err != nil {
		that.respondDomainError(w, "handleJoinGame", err)
		return
	}

	that.respondJSON(w, http.StatusOK, game)
}

func (that *Server) handleGetGame(w http.ResponseWriter, r *http.Request, _ string) {
	game, err := that.games.GetGameByID(r.Context(), r.PathValue("gameID"))
	if err != nil {
		that.respondDomainError(w, "handleGetGame", err)
		return
	}

	that.respondJSON(w, http.StatusOK, game)
}

func (that *Server) handleAddMove(w http.ResponseWriter, r *http.Request, userID string) {
	var coordinate entity.Coordinate
	if err := json.NewDecoder(r.Body).Decode(&coordinate); err != nil {
		that.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, err := that.games.AddMove(r.Context(), r.PathValue("gameID"), userID, coordinate)
	if err != nil {
		that.respondDomainError(w, "handleAddMove", err)
		return
	}

	that.respondJSON(w, http.StatusOK, game)
}

func (that *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}

func (that *Server) respondError(w http.ResponseWriter, status int, message string) {
	that.respondJSON(w, status, errorResponse{Error: message})
}

// respondDomainError maps service errors onto HTTP statuses. Validation
// failures carry their reason to the client; everything unexpected is logged
// and masked as a 500.
func (that *Server) respondDomainError(w http.ResponseWriter, method string, err error) {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		that.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperror.ErrConflict), errors.Is(err, apperror.ErrConcurrentModification):
		that.respondError(w, http.StatusConflict, err.Error())
	case apperror.IsValidation(err):
		that.respondError(w, http.StatusBadRequest, err.Error())
	default:
		that.logger.With("method", method).Error("request failed", "error", err)
		that.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	offset = 0

	if value, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && value > 0 {
		limit = value
	}

	if value, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && value >= 0 {
		offset = value
	}

	return limit, offset
}
