package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"bagsoflaundry.com/web/internal/areas"
	"bagsoflaundry.com/web/internal/identity"
	"bagsoflaundry.com/web/internal/intake"
	mw "bagsoflaundry.com/web/internal/middleware"
	"bagsoflaundry.com/web/internal/session"
	"bagsoflaundry.com/web/internal/wizard"
)

// app bundles the collaborators the handlers need.
type app struct {
	logger         *zap.Logger
	store          session.Store
	wizard         *wizard.Repository
	metrics        *wizard.Metrics
	submitter      intake.Submitter
	areas          *areas.Directory
	identity       identity.Provider
	renderer       *renderer
	authLimiter    *mw.RateLimiter
	csrf           bool
	traceProjectID string
	now            func() time.Time
}

type appOptions struct {
	Logger         *zap.Logger
	Store          session.Store
	Submitter      intake.Submitter
	Identity       identity.Provider
	Areas          *areas.Directory
	CSRF           bool
	AuthPerMinute  int
	TraceProjectID string
	Now            func() time.Time
}

func newApp(opts appOptions) (*app, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	submitter := opts.Submitter
	if submitter == nil {
		submitter = intake.NewLogSubmitter(logger.Named("intake"))
	}
	provider := opts.Identity
	if provider == nil {
		provider = identity.NewMemoryProvider()
	}
	dir := opts.Areas
	if dir == nil {
		dir = areas.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &app{
		logger:         logger,
		store:          opts.Store,
		wizard:         wizard.NewRepository(opts.Store),
		metrics:        wizard.NewMetrics(nil, logger),
		submitter:      submitter,
		areas:          dir,
		identity:       provider,
		renderer:       r,
		authLimiter:    mw.NewRateLimiter(opts.AuthPerMinute),
		csrf:           opts.CSRF,
		traceProjectID: opts.TraceProjectID,
		now:            now,
	}, nil
}

const (
	authSessionKey = "auth"
	redirectToKey  = "redirectTo"
)

// authEntry is what the session remembers about a signed-in user.
type authEntry struct {
	AccessToken string `json:"accessToken"`
	UserID      string `json:"userId"`
}

// currentUser resolves the provider session referenced by the request's session.
func (a *app) currentUser(r *http.Request) (identity.User, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		return identity.User{}, false
	}
	var entry authEntry
	if found, err := sess.Get(authSessionKey, &entry); !found || err != nil || entry.AccessToken == "" {
		return identity.User{}, false
	}
	current, err := a.identity.CurrentSession(r.Context(), entry.AccessToken)
	if err != nil {
		return identity.User{}, false
	}
	return current.User, true
}
