package storage

import (
	"context"
	"time"
)

//go:generate moq -out sessionstorage_mock.go . SessionStorage

// SessionStorage keeps the single session issued by the sync server.
type SessionStorage interface {
	SaveSession(ctx context.Context, session *Session) error
	// LoadSession returns ErrNoSession if nobody is logged in.
	LoadSession(ctx context.Context) (*Session, error)
	// ClearSession is a no-op when there is no session.
	ClearSession(ctx context.Context) error
}

// Session хранится локально между запусками CLI
type Session struct {
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"username"`
	UserID      string    `json:"user_id"`
	AccessToken string    `json:"access_token"`
}

// Expired reports whether the access token is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
