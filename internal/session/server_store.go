package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates the backend holds no live record for the id.
var ErrNotFound = errors.New("session: record not found")

// Record is the persisted form of a server-side session.
type Record struct {
	Values    map[string]json.RawMessage `json:"values,omitempty"`
	CreatedAt time.Time                  `json:"createdAt"`
	ExpiresAt time.Time                  `json:"expiresAt"`
}

// Backend stores session records keyed by id. Implementations must be safe for concurrent use
// and must not return records whose ExpiresAt has passed.
type Backend interface {
	Load(ctx context.Context, id string) (Record, error)
	Save(ctx context.Context, id string, rec Record, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type idPayload struct {
	ID string `json:"sid"`
}

// ServerStore keeps only a signed session id in the cookie and the bag in a Backend.
type ServerStore struct {
	jar     *cookieJar
	backend Backend
}

// NewServerStore constructs a ServerStore over backend.
func NewServerStore(cfg Config, backend Backend) (*ServerStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend is required", ErrInvalidConfig)
	}
	jar, err := newCookieJar(cfg)
	if err != nil {
		return nil, err
	}
	return &ServerStore{jar: jar, backend: backend}, nil
}

// CookieName returns the configured cookie name.
func (s *ServerStore) CookieName() string { return s.jar.cfg.CookieName }

// Get implements Store. Backend failures other than ErrNotFound are returned.
func (s *ServerStore) Get(ctx context.Context, cookieHeader string) (*Session, error) {
	var payload idPayload
	if !s.jar.decode(cookieHeader, &payload) || payload.ID == "" {
		return s.jar.fresh(), nil
	}
	rec, err := s.backend.Load(ctx, payload.ID)
	if errors.Is(err, ErrNotFound) {
		return s.jar.fresh(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: load %s: %w", payload.ID, err)
	}
	if !rec.ExpiresAt.IsZero() && !s.jar.cfg.Now().Before(rec.ExpiresAt) {
		return s.jar.fresh(), nil
	}
	values := rec.Values
	if values == nil {
		values = map[string]json.RawMessage{}
	}
	return &Session{id: payload.ID, values: values, createdAt: rec.CreatedAt}, nil
}

// Commit implements Store.
func (s *ServerStore) Commit(ctx context.Context, sess *Session) (string, error) {
	if sess == nil {
		return "", errors.New("session: nil session")
	}
	if sess.destroyed {
		return s.Destroy(ctx, sess)
	}
	ttl := s.jar.cfg.TTL
	rec := Record{
		Values:    sess.snapshot(),
		CreatedAt: sess.createdAt,
		ExpiresAt: s.jar.cfg.Now().Add(ttl).UTC(),
	}
	if err := s.backend.Save(ctx, sess.id, rec, ttl); err != nil {
		return "", fmt.Errorf("session: save %s: %w", sess.id, err)
	}
	if old := sess.replaced; old != "" && old != sess.id {
		if err := s.backend.Delete(ctx, old); err != nil && !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("session: delete replaced %s: %w", old, err)
		}
	}
	header, err := s.jar.setCookie(idPayload{ID: sess.id})
	if err != nil {
		return "", err
	}
	sess.markClean()
	return header, nil
}

// Destroy implements Store.
func (s *ServerStore) Destroy(ctx context.Context, sess *Session) (string, error) {
	if sess != nil {
		for _, id := range []string{sess.id, sess.replaced} {
			if id == "" {
				continue
			}
			if err := s.backend.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
				return "", fmt.Errorf("session: delete %s: %w", id, err)
			}
		}
		sess.values = map[string]json.RawMessage{}
		sess.destroyed = true
		sess.markClean()
	}
	return s.jar.expiredCookie(), nil
}
