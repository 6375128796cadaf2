package session

import "time"

// Session maps an issued auth token to a user. Sessions are ephemeral: created
// on login, removed on logout, never persisted.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
