package transport

import "context"

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	authContextKey
)

// ContextWithSessionID returns a copy of ctx carrying sessionID. Server-side
// dispatch code uses this to recover the session without threading it
// through every function signature.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext extracts the session id stored by
// ContextWithSessionID. Returns false if none is present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok
}

// ContextWithAuth returns a copy of ctx carrying an opaque authentication
// result. Concrete type is owned by internal/authn; transport only moves
// it through the call chain.
func ContextWithAuth(ctx context.Context, auth any) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext extracts the authentication result stored by
// ContextWithAuth.
func AuthFromContext(ctx context.Context) (any, bool) {
	v := ctx.Value(authContextKey)
	return v, v != nil
}
