package session

import "context"

type ctxKey struct{}

type state struct {
	session *Session
	loading bool
}

// NewContext attaches the request's session and whether its status check is
// still in flight.
func NewContext(ctx context.Context, s *Session, loading bool) context.Context {
	return context.WithValue(ctx, ctxKey{}, state{session: s, loading: loading})
}

func FromContext(ctx context.Context) (*Session, bool) {
	st, ok := ctx.Value(ctxKey{}).(state)
	if !ok || st.session == nil {
		return nil, false
	}
	return st.session, true
}

// Loading reports whether the session's status is not yet known. A request
// without a session counts as loading.
func Loading(ctx context.Context) bool {
	st, ok := ctx.Value(ctxKey{}).(state)
	if !ok || st.session == nil {
		return true
	}
	return st.loading || !st.session.Checked
}
