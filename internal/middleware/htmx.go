package middleware

import (
	"context"
	"net/http"

	"bagsoflaundry.com/web/internal/platform/httpx"
)

type htmxKey struct{}

// HTMX marks htmx requests in the context and varies caches on the request header.
func HTMX(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "HX-Request")
		ctx := context.WithValue(r.Context(), htmxKey{}, httpx.IsHTMX(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IsHTMX reports whether HTMX flagged the request as coming from htmx.
func IsHTMX(ctx context.Context) bool {
	v, _ := ctx.Value(htmxKey{}).(bool)
	return v
}
