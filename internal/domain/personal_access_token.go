package domain

import "time"

// PersonalAccessToken authenticates a collector against the API and the
// websocket endpoint. Only the sha256 of the token is stored.
type PersonalAccessToken struct {
	ID        int64
	TokenHash string
	UserID    int64
	Abilities string
	ExpiresAt *time.Time
}

// User is a collector account; debts are assigned to users.
type User struct {
	ID       int64
	Username string
	Name     string
	Email    *string
	IsActive bool
}
