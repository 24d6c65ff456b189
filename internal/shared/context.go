package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession attaches the request session to the context so
// downstream middleware and handlers share one instance per request.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session, nil when none was loaded.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
