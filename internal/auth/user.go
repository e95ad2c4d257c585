package auth

import (
	"context"
	"time"
)

type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type contextKey struct{}

var userIDContextKey = contextKey{}

// ContextWithUserID returns a context carrying the authenticated user id.
// The auth middleware resolves the session once and stores the id here, so
// handlers never have to re-derive the session themselves.
func ContextWithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

func UserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(userIDContextKey).(int)
	return userID, ok
}
