package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/playsquare/gridgame-backend/internal/apperror"
)

const authCookieName = "auth_token"

// authenticatedHandler is a handler that runs with a verified user id.
type authenticatedHandler func(w http.ResponseWriter, r *http.Request, userID string)

// authenticated wraps a handler with bearer-token (or cookie) verification.
func (that *Server) authenticated(next authenticatedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			that.respondError(w, http.StatusUnauthorized, "missing auth token")
			return
		}

		userID, err := that.auth.VerifyToken(tokenString)
		if err != nil {
			that.respondError(w, http.StatusUnauthorized, "invalid auth token")
			return
		}

		next(w, r, userID)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}

	if cookie, err := r.Cookie(authCookieName); err == nil {
		return cookie.Value
	}

	return r.URL.Query().Get("token")
}

func (that *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleRegisterUser")

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		that.respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := that.users.Register(r.Context(), req.Username, req.Password)
	if errors.Is(err, apperror.ErrConflict) {
		that.respondError(w, http.StatusConflict, "username is taken")
		return
	}
	if err != nil {
		log.Error("failed to register user", "error", err)
		that.respondError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	log.Info("user registered", "userID", user.ID)

	that.respondJSON(w, http.StatusCreated, user)
}

func (that *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleLogin")

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := that.users.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, apperror.ErrInvalidCredentials) {
		that.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		log.Error("failed to log user in", "error", err)
		that.respondError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	tokenString, err := that.auth.GenerateToken(user.ID)
	if err != nil {
		log.Error("failed to generate auth token", "error", err)
		that.respondError(w, http.StatusInternalServerError, "failed to generate auth token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    tokenString,
		Expires:  time.Now().Add(24 * time.Hour),
		Path:     "/",
		HttpOnly: true,
	})

	that.respondJSON(w, http.StatusOK, loginResponse{Token: tokenString, User: user})
}
