// Package identity abstracts the hosted identity provider behind sign-in, sign-up,
// current-session and sign-out, and maps its errors to customer-facing text.
package identity

import (
	"context"
	"errors"
	"time"
)

// Profile is the extra data collected at sign-up.
type Profile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// User is the provider's view of an account.
type User struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Profile   Profile `json:"profile"`
	Confirmed bool    `json:"confirmed"`
}

// Session is an authenticated provider session.
type Session struct {
	AccessToken string    `json:"accessToken"`
	User        User      `json:"user"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// SignUpResult reports the outcome of a sign-up. Session is nil while the email awaits
// confirmation.
type SignUpResult struct {
	User                 User
	Session              *Session
	ConfirmationRequired bool
}

// Provider is the external identity provider.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignUp(ctx context.Context, email, password string, profile Profile) (SignUpResult, error)
	CurrentSession(ctx context.Context, accessToken string) (Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// CodeExchanger is implemented by providers that confirm sign-ups through an emailed code.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (Session, error)
}

// ErrNoSession indicates the access token does not name a live session.
var ErrNoSession = errors.New("identity: no active session")

// ProviderError carries the provider's own message. The message set is fixed by the
// provider and drives FriendlyMessage.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string { return e.Message }

// Is matches provider errors by message so sentinels work with errors.Is.
func (e *ProviderError) Is(target error) bool {
	other, ok := target.(*ProviderError)
	return ok && other.Message == e.Message
}

// Provider error sentinels.
var (
	ErrInvalidCredentials = &ProviderError{Message: "Invalid login credentials"}
	ErrEmailNotConfirmed  = &ProviderError{Message: "Email not confirmed"}
	ErrTooManyRequests    = &ProviderError{Message: "Too many requests"}
	ErrInvalidEmail       = &ProviderError{Message: "Invalid email"}
	ErrUserExists         = &ProviderError{Message: "User already registered"}
	ErrWeakPassword       = &ProviderError{Message: "Password should be at least 6 characters"}
	ErrPasswordRequired   = &ProviderError{Message: "Signup requires a valid password"}
	ErrInvalidCode        = &ProviderError{Message: "Invalid or expired confirmation code"}
)

// MsgUnexpected is shown when the provider fails without a message of its own.
const MsgUnexpected = "An unexpected error occurred. Please try again."

var friendly = map[string]string{
	ErrInvalidCredentials.Message: "Invalid email or password. Please check your credentials and try again.",
	ErrEmailNotConfirmed.Message:  "Please check your email and click the confirmation link before signing in.",
	ErrTooManyRequests.Message:    "Too many login attempts. Please wait a few minutes before trying again.",
	ErrInvalidEmail.Message:       "Please enter a valid email address.",
	ErrUserExists.Message:         "An account with this email already exists. Please sign in instead.",
	ErrWeakPassword.Message:       "Password must be at least 6 characters long.",
	ErrPasswordRequired.Message:   "Please enter a valid password.",
}

// FriendlyMessage maps a provider error to customer-facing text. Unknown provider
// messages pass through verbatim; non-provider errors get MsgUnexpected.
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		return MsgUnexpected
	}
	if msg, ok := friendly[perr.Message]; ok {
		return msg
	}
	return perr.Message
}
