package rest

import (
	"time"

	"github.com/playsquare/gridgame-backend/internal/entity"
)

type userRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

type newGameRequest struct {
	GameTitle string `json:"game_title"`
}

type paginatedResponse[T any] struct {
	Results []T `json:"results"`
	Offset  int `json:"offset"`
	Limit   int `json:"limit"`
}

type pingResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

type serviceInfoResponse struct {
	ServiceName string    `json:"service_name"`
	Version     string    `json:"version"`
	GoVersion   string    `json:"go_version"`
	Timestamp   time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}
