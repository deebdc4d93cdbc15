// Package session provides the opaque per-browser key/value bag behind the order wizard.
//
// A Session is addressed by a signed, encrypted cookie. Two Store shapes exist: CookieStore
// keeps the whole bag inside the cookie, ServerStore keeps only a signed id in the cookie and
// the bag in a Backend with a TTL.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Session holds mutable state for the current request lifecycle.
type Session struct {
	id        string
	replaced  string
	values    map[string]json.RawMessage
	createdAt time.Time
	isNew     bool
	dirty     bool
	destroyed bool
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		id:        id,
		values:    map[string]json.RawMessage{},
		createdAt: now.UTC(),
		isNew:     true,
	}
}

// ID returns the session identifier. Cookie-only sessions still carry one so logs can correlate requests.
func (s *Session) ID() string { return s.id }

// CreatedAt reports when the session was first issued.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// IsNew reports whether the session was created for this request rather than decoded from a cookie.
func (s *Session) IsNew() bool { return s.isNew }

// Dirty reports whether the session changed since it was loaded or last committed.
func (s *Session) Dirty() bool { return s.dirty }

// Destroyed reports whether Destroy was requested for this session.
func (s *Session) Destroyed() bool { return s.destroyed }

// Set stores value under key as JSON.
func (s *Session) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("session: encode %q: %w", key, err)
	}
	if s.values == nil {
		s.values = map[string]json.RawMessage{}
	}
	s.values[key] = raw
	s.dirty = true
	return nil
}

// Get decodes the value stored under key into dst. It reports false when the key is absent.
func (s *Session) Get(key string, dst any) (bool, error) {
	raw, ok := s.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("session: decode %q: %w", key, err)
	}
	return true, nil
}

// Has reports whether key is present.
func (s *Session) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Unset removes key. Removing an absent key is a no-op.
func (s *Session) Unset(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// Destroy flags the session so the next commit expires the cookie.
func (s *Session) Destroy() {
	s.destroyed = true
	s.dirty = true
}

// Regenerate issues a new identifier while keeping the values. Server-side stores drop the
// record held under the old identifier on the next commit. Call it whenever the privilege
// level of the session changes, such as on sign-in.
func (s *Session) Regenerate() {
	if s.replaced == "" {
		s.replaced = s.id
	}
	s.id = ulid.Make().String()
	s.dirty = true
}

func (s *Session) markClean() {
	s.dirty = false
	s.isNew = false
	s.replaced = ""
}

func (s *Session) snapshot() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
