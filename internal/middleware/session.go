// Package middleware holds the HTTP middleware specific to the web front end.
package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"bagsoflaundry.com/web/internal/platform/requestctx"
	"bagsoflaundry.com/web/internal/session"
)

// Session decodes the session once per request and attaches it to the context. Changes
// that handlers did not commit themselves are committed just before the first write.
// A failing session backend answers 503.
func Session(store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sess, err := store.Get(ctx, r.Header.Get("Cookie"))
			if err != nil {
				requestctx.Logger(ctx).Error("session load failed", zap.Error(err))
				http.Error(w, "Service temporarily unavailable. Please try again.", http.StatusServiceUnavailable)
				return
			}
			ctx = requestctx.WithSessionID(ctx, sess.ID())
			logger := requestctx.Logger(ctx)

			hw := newHookWriter(w, func(w http.ResponseWriter) {
				if !sess.Dirty() {
					return
				}
				if err := session.Save(ctx, w, store, sess); err != nil {
					logger.Error("session commit failed", zap.Error(err))
				}
			})
			next.ServeHTTP(hw, r.WithContext(session.WithSession(ctx, store, sess)))
			// Handlers that never wrote still get their cookie.
			hw.fire()
		})
	}
}
