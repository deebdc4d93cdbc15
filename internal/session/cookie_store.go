package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

type cookiePayload struct {
	ID        string                     `json:"id"`
	CreatedAt time.Time                  `json:"createdAt"`
	Values    map[string]json.RawMessage `json:"values,omitempty"`
}

// CookieStore keeps the whole session bag inside the cookie.
type CookieStore struct {
	jar *cookieJar
}

// NewCookieStore constructs a CookieStore using the provided configuration.
func NewCookieStore(cfg Config) (*CookieStore, error) {
	jar, err := newCookieJar(cfg)
	if err != nil {
		return nil, err
	}
	return &CookieStore{jar: jar}, nil
}

// CookieName returns the configured cookie name.
func (s *CookieStore) CookieName() string { return s.jar.cfg.CookieName }

// Get implements Store.
func (s *CookieStore) Get(_ context.Context, cookieHeader string) (*Session, error) {
	var payload cookiePayload
	if !s.jar.decode(cookieHeader, &payload) || payload.ID == "" {
		return s.jar.fresh(), nil
	}
	values := payload.Values
	if values == nil {
		values = map[string]json.RawMessage{}
	}
	return &Session{id: payload.ID, values: values, createdAt: payload.CreatedAt}, nil
}

// Commit implements Store.
func (s *CookieStore) Commit(ctx context.Context, sess *Session) (string, error) {
	if sess == nil {
		return "", errors.New("session: nil session")
	}
	if sess.destroyed {
		return s.Destroy(ctx, sess)
	}
	header, err := s.jar.setCookie(cookiePayload{
		ID:        sess.id,
		CreatedAt: sess.createdAt,
		Values:    sess.snapshot(),
	})
	if err != nil {
		return "", err
	}
	sess.markClean()
	return header, nil
}

// Destroy implements Store.
func (s *CookieStore) Destroy(_ context.Context, sess *Session) (string, error) {
	if sess != nil {
		sess.values = map[string]json.RawMessage{}
		sess.destroyed = true
		sess.markClean()
	}
	return s.jar.expiredCookie(), nil
}
