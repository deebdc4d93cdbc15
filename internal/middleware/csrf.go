package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"go.uber.org/zap"

	"bagsoflaundry.com/web/internal/platform/requestctx"
	"bagsoflaundry.com/web/internal/session"
)

const (
	// CSRFField is the hidden form field carrying the token.
	CSRFField = "csrf_token"
	// CSRFHeader carries the token on htmx and script requests.
	CSRFHeader = "X-CSRF-Token"

	csrfSessionKey = "csrf"
)

type csrfKey struct{}

// CSRF ties a token to the session and rejects unsafe requests that do not echo it back
// in the form field or the header. It must run after Session.
func CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		var token string
		if found, err := sess.Get(csrfSessionKey, &token); !found || err != nil || token == "" {
			token = newCSRFToken()
			if err := sess.Set(csrfSessionKey, token); err != nil {
				requestctx.Logger(r.Context()).Error("csrf token store failed", zap.Error(err))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
		}

		if !isSafeMethod(r.Method) {
			sent := r.Header.Get(CSRFHeader)
			if sent == "" {
				sent = r.PostFormValue(CSRFField)
			}
			if subtle.ConstantTimeCompare([]byte(sent), []byte(token)) != 1 {
				requestctx.Logger(r.Context()).Warn("csrf token mismatch", zap.Bool("token_sent", sent != ""))
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfKey{}, token)))
	})
}

// CSRFToken returns the token for the current request, or "" when CSRF is disabled.
func CSRFToken(ctx context.Context) string {
	v, _ := ctx.Value(csrfKey{}).(string)
	return v
}

// RotateCSRF replaces the session's token. Call it after sign-in.
func RotateCSRF(sess *session.Session) error {
	return sess.Set(csrfSessionKey, newCSRFToken())
}

func newCSRFToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
