package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength   = 6
	defaultSessionTTL   = time.Hour
	defaultBcryptCost   = bcrypt.DefaultCost
	confirmationCodeLen = 24
)

type account struct {
	user User
	hash []byte
}

// MemoryProvider is an in-process provider for local development and tests. Passwords are
// bcrypt hashed; access tokens and confirmation codes are random and opaque.
type MemoryProvider struct {
	mu       sync.Mutex
	accounts map[string]*account
	sessions map[string]Session
	codes    map[string]string

	requireConfirmation bool
	sessionTTL          time.Duration
	cost                int
	now                 func() time.Time
	onCode              func(email, code string)
}

// MemoryOption customises a MemoryProvider.
type MemoryOption func(*MemoryProvider)

// WithConfirmation makes sign-ups wait for ExchangeCode. notify receives each issued code.
func WithConfirmation(notify func(email, code string)) MemoryOption {
	return func(p *MemoryProvider) {
		p.requireConfirmation = true
		p.onCode = notify
	}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) MemoryOption {
	return func(p *MemoryProvider) { p.cost = cost }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(p *MemoryProvider) { p.now = now }
}

// NewMemoryProvider returns an empty provider.
func NewMemoryProvider(opts ...MemoryOption) *MemoryProvider {
	p := &MemoryProvider{
		accounts:   make(map[string]*account),
		sessions:   make(map[string]Session),
		codes:      make(map[string]string),
		sessionTTL: defaultSessionTTL,
		cost:       defaultBcryptCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.LastIndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

// SignUp implements Provider.
func (p *MemoryProvider) SignUp(_ context.Context, email, password string, profile Profile) (SignUpResult, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return SignUpResult{}, ErrInvalidEmail
	}
	if password == "" {
		return SignUpResult{}, ErrPasswordRequired
	}
	if len(password) < minPasswordLength {
		return SignUpResult{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return SignUpResult{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.accounts[email]; exists {
		return SignUpResult{}, ErrUserExists
	}
	user := User{
		ID:        ulid.Make().String(),
		Email:     email,
		Profile:   profile,
		Confirmed: !p.requireConfirmation,
	}
	p.accounts[email] = &account{user: user, hash: hash}

	if p.requireConfirmation {
		code := randomToken(confirmationCodeLen)
		p.codes[code] = email
		if p.onCode != nil {
			p.onCode(email, code)
		}
		return SignUpResult{User: user, ConfirmationRequired: true}, nil
	}
	sess := p.issueLocked(user)
	return SignUpResult{User: user, Session: &sess}, nil
}

// SignIn implements Provider.
func (p *MemoryProvider) SignIn(_ context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return Session{}, ErrInvalidEmail
	}

	p.mu.Lock()
	acct, ok := p.accounts[email]
	p.mu.Unlock()
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !acct.user.Confirmed {
		return Session{}, ErrEmailNotConfirmed
	}
	return p.issueLocked(acct.user), nil
}

// ExchangeCode implements CodeExchanger. Codes are single use.
func (p *MemoryProvider) ExchangeCode(_ context.Context, code string) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	email, ok := p.codes[code]
	if !ok {
		return Session{}, ErrInvalidCode
	}
	delete(p.codes, code)
	acct, ok := p.accounts[email]
	if !ok {
		return Session{}, ErrInvalidCode
	}
	acct.user.Confirmed = true
	return p.issueLocked(acct.user), nil
}

// CurrentSession implements Provider.
func (p *MemoryProvider) CurrentSession(_ context.Context, accessToken string) (Session, error) {
	if accessToken == "" {
		return Session{}, ErrNoSession
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	sess, ok := p.sessions[accessToken]
	if !ok {
		return Session{}, ErrNoSession
	}
	if !p.now().Before(sess.ExpiresAt) {
		delete(p.sessions, accessToken)
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// SignOut implements Provider. Signing out an unknown token is not an error.
func (p *MemoryProvider) SignOut(_ context.Context, accessToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, accessToken)
	return nil
}

func (p *MemoryProvider) issueLocked(user User) Session {
	sess := Session{
		AccessToken: randomToken(32),
		User:        user,
		ExpiresAt:   p.now().Add(p.sessionTTL).UTC(),
	}
	p.sessions[sess.AccessToken] = sess
	return sess
}

func randomToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return ulid.Make().String()
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
