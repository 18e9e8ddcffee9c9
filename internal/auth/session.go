package auth

import (
	"context"
	"time"
)

// Session is the authenticated caller of a request.
type Session struct {
	UserID    string
	Name      string
	Email     string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

// HasRole reports whether the session holds one of roles.
func (s *Session) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored by WithSession, if any.
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
