package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/hkdf"
)

const (
	DefaultCookieName = "__bol_session"
	DefaultTTL        = 7 * 24 * time.Hour
	defaultCookiePath = "/"

	// maxCookieBytes is the browser limit for a cookie's name and value together.
	maxCookieBytes = 4096
)

var (
	// ErrInvalidConfig indicates the store was initialised with missing or invalid options.
	ErrInvalidConfig = errors.New("session: invalid config")
	// ErrTooLarge indicates the encoded session no longer fits in a browser cookie.
	ErrTooLarge = errors.New("session: encoded cookie too large")
)

// Store loads and persists sessions addressed by a cookie.
type Store interface {
	// Get decodes the session named by the raw Cookie header. Missing, tampered, or expired
	// cookies yield a fresh empty session, never an error.
	Get(ctx context.Context, cookieHeader string) (*Session, error)
	// Commit persists the session and returns the Set-Cookie header value.
	Commit(ctx context.Context, s *Session) (string, error)
	// Destroy discards the session and returns a Set-Cookie value that expires the cookie.
	Destroy(ctx context.Context, s *Session) (string, error)
}

// Config controls cookie encoding and lifetime.
type Config struct {
	CookieName string
	CookiePath string
	Secure     bool
	TTL        time.Duration
	// Secret feeds HKDF to derive the cookie hash and block keys.
	Secret []byte
	Now    func() time.Time
}

func (c Config) withDefaults() (Config, error) {
	if len(c.Secret) == 0 {
		return c, fmt.Errorf("%w: secret is required", ErrInvalidConfig)
	}
	if c.CookieName == "" {
		c.CookieName = DefaultCookieName
	}
	if c.CookiePath == "" {
		c.CookiePath = defaultCookiePath
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c, nil
}

// DeriveKeys expands secret into a 32-byte HMAC key and a 32-byte AES-256 key.
func DeriveKeys(secret []byte) (hashKey, blockKey []byte, err error) {
	if len(secret) == 0 {
		return nil, nil, fmt.Errorf("%w: secret is required", ErrInvalidConfig)
	}
	hashKey = make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte("bol-session-hash")), hashKey); err != nil {
		return nil, nil, fmt.Errorf("session: derive hash key: %w", err)
	}
	blockKey = make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte("bol-session-block")), blockKey); err != nil {
		return nil, nil, fmt.Errorf("session: derive block key: %w", err)
	}
	return hashKey, blockKey, nil
}

// EphemeralSecret returns a random secret for local development. Cookies do not survive restarts.
func EphemeralSecret() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return []byte("insecure-dev-secret-set-LAUNDRY_WEB_SESSION_SECRET")
	}
	return b
}

// cookieJar holds the codec and cookie attributes shared by both store shapes.
type cookieJar struct {
	cfg   Config
	codec *securecookie.SecureCookie
}

func newCookieJar(cfg Config) (*cookieJar, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	hashKey, blockKey, err := DeriveKeys(cfg.Secret)
	if err != nil {
		return nil, err
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.TTL / time.Second))
	// The jar enforces its own limit so oversize values surface as ErrTooLarge.
	codec.MaxLength(0)
	return &cookieJar{cfg: cfg, codec: codec}, nil
}

func (j *cookieJar) maxValueBytes() int {
	return maxCookieBytes - len(j.cfg.CookieName) - 1
}

// value returns the raw cookie value named by the jar, or "" when absent.
func (j *cookieJar) value(cookieHeader string) string {
	if strings.TrimSpace(cookieHeader) == "" {
		return ""
	}
	req := http.Request{Header: http.Header{"Cookie": {cookieHeader}}}
	c, err := req.Cookie(j.cfg.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (j *cookieJar) decode(cookieHeader string, dst any) bool {
	raw := j.value(cookieHeader)
	if raw == "" || len(raw) > j.maxValueBytes() {
		return false
	}
	return j.codec.Decode(j.cfg.CookieName, raw, dst) == nil
}

func (j *cookieJar) setCookie(dst any) (string, error) {
	encoded, err := j.codec.Encode(j.cfg.CookieName, dst)
	if err != nil {
		return "", fmt.Errorf("session: encode cookie: %w", err)
	}
	if len(encoded) > j.maxValueBytes() {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, len(encoded))
	}
	c := &http.Cookie{
		Name:     j.cfg.CookieName,
		Value:    encoded,
		Path:     j.cfg.CookiePath,
		MaxAge:   int(j.cfg.TTL / time.Second),
		Expires:  j.cfg.Now().Add(j.cfg.TTL).UTC(),
		HttpOnly: true,
		Secure:   j.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return c.String(), nil
}

func (j *cookieJar) expiredCookie() string {
	c := &http.Cookie{
		Name:     j.cfg.CookieName,
		Value:    "",
		Path:     j.cfg.CookiePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		HttpOnly: true,
		Secure:   j.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return c.String()
}

func (j *cookieJar) fresh() *Session {
	now := j.cfg.Now()
	return newSession(ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(), now)
}
