package session

import (
	"context"
	"net/http"
)

type ctxKey struct{}

type bound struct {
	sess  *Session
	store Store
}

// WithSession attaches the session and the store that loaded it.
func WithSession(ctx context.Context, store Store, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, &bound{sess: s, store: store})
}

// FromContext returns the session attached by WithSession.
func FromContext(ctx context.Context) (*Session, bool) {
	b, ok := ctx.Value(ctxKey{}).(*bound)
	if !ok || b.sess == nil {
		return nil, false
	}
	return b.sess, true
}

// StoreFromContext returns the store attached alongside the session.
func StoreFromContext(ctx context.Context) (Store, bool) {
	b, ok := ctx.Value(ctxKey{}).(*bound)
	if !ok || b.store == nil {
		return nil, false
	}
	return b.store, true
}

// Save commits s through store and appends the resulting Set-Cookie header. Destroyed sessions
// get an expiring cookie. It must run before the response header is written.
func Save(ctx context.Context, w http.ResponseWriter, store Store, s *Session) error {
	var (
		header string
		err    error
	)
	if s.destroyed {
		header, err = store.Destroy(ctx, s)
	} else {
		header, err = store.Commit(ctx, s)
	}
	if err != nil {
		return err
	}
	w.Header().Add("Set-Cookie", header)
	return nil
}
