package websocket

import "time"

const (
	messageTypeMove     = "move-update"
	messageTypeWinner   = "winner-update"
	messageTypePing     = "ping"
	messageTypeNotFound = "not-found"
)

type message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type pingPayload struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}
