package identity

import "context"

// Session is the authenticated caller as seen by request handlers. It is
// passed explicitly through the context by the HTTP layer; there is no
// ambient global session state.
type Session struct {
	UserID         string
	Email          string
	Role           Role
	OrganizationID string
}

type sessionContextKey struct{}

// ContextWithSession attaches the authenticated session to the context.
func ContextWithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, &s)
}

// SessionFromContext extracts the authenticated session from the context.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	v, ok := ctx.Value(sessionContextKey{}).(*Session)
	if !ok || v == nil {
		return Session{}, false
	}
	return *v, true
}
