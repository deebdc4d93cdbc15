package main

import (
	"net/http"
	"net/mail"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"bagsoflaundry.com/web/internal/identity"
	mw "bagsoflaundry.com/web/internal/middleware"
	"bagsoflaundry.com/web/internal/platform/requestctx"
	"bagsoflaundry.com/web/internal/session"
	"bagsoflaundry.com/web/internal/wizard"
)

const (
	msgLoginRequired    = "Email and password are required"
	msgInvalidEmail     = "Please enter a valid email address"
	msgSignupRequired   = "All fields are required"
	msgPasswordTooShort = "Password must be at least 6 characters long"
	msgCheckEmail       = "Check your email to confirm your account!"
	msgNoExchange       = "Email confirmation is not available"

	minPasswordLength = 6
	dashboardPath     = "/dashboard"
	loginPath         = "/auth/login"
)

type loginPage struct {
	Email string
}

type signupPage struct {
	FirstName string
	LastName  string
	Email     string
	Success   string
}

type dashboardPage struct {
	Name       string
	Email      string
	HasDraft   bool
	Address    *wizard.Address
	Date       string
	ResumePath string
}

func looksLikeEmail(v string) bool {
	addr, err := mail.ParseAddress(v)
	return err == nil && addr.Address == v && strings.Contains(v[strings.LastIndexByte(v, '@'):], ".")
}

func (a *app) showLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.currentUser(r); ok {
		http.Redirect(w, r, dashboardPath, http.StatusFound)
		return
	}
	a.render(w, r, http.StatusOK, "login", view{
		Error: strings.TrimSpace(r.URL.Query().Get("error")),
		Page:  loginPage{},
	})
}

func (a *app) submitLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	page := loginPage{Email: email}

	if email == "" || password == "" {
		a.render(w, r, http.StatusBadRequest, "login", view{Error: msgLoginRequired, Page: page})
		return
	}
	if !looksLikeEmail(email) {
		a.render(w, r, http.StatusBadRequest, "login", view{Error: msgInvalidEmail, Page: page})
		return
	}

	provSession, err := a.identity.SignIn(r.Context(), email, password)
	if err != nil {
		requestctx.Logger(r.Context()).Info("sign-in rejected", zap.Error(err))
		a.render(w, r, http.StatusBadRequest, "login", view{Error: identity.FriendlyMessage(err), Page: page})
		return
	}
	if err := a.signIn(w, r, provSession); err != nil {
		unavailable(w, r, "session commit failed", err)
		return
	}
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func (a *app) showSignup(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "signup", view{Page: signupPage{}})
}

func (a *app) submitSignup(w http.ResponseWriter, r *http.Request) {
	page := signupPage{
		FirstName: strings.TrimSpace(r.PostFormValue("firstName")),
		LastName:  strings.TrimSpace(r.PostFormValue("lastName")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
	}
	password := r.PostFormValue("password")

	switch {
	case page.FirstName == "" || page.LastName == "" || page.Email == "" || password == "":
		a.render(w, r, http.StatusBadRequest, "signup", view{Error: msgSignupRequired, Page: page})
		return
	case !looksLikeEmail(page.Email):
		a.render(w, r, http.StatusBadRequest, "signup", view{Error: msgInvalidEmail, Page: page})
		return
	case len(password) < minPasswordLength:
		a.render(w, r, http.StatusBadRequest, "signup", view{Error: msgPasswordTooShort, Page: page})
		return
	}

	result, err := a.identity.SignUp(r.Context(), page.Email, password, identity.Profile{
		FirstName: page.FirstName,
		LastName:  page.LastName,
	})
	if err != nil {
		requestctx.Logger(r.Context()).Info("sign-up rejected", zap.Error(err))
		a.render(w, r, http.StatusBadRequest, "signup", view{Error: identity.FriendlyMessage(err), Page: page})
		return
	}
	if result.Session == nil {
		a.render(w, r, http.StatusOK, "signup", view{Page: signupPage{Success: msgCheckEmail}})
		return
	}
	if err := a.signIn(w, r, *result.Session); err != nil {
		unavailable(w, r, "session commit failed", err)
		return
	}
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

// signIn records the provider session under a freshly issued session id and rotates the
// CSRF token. The wizard draft carries over.
func (a *app) signIn(w http.ResponseWriter, r *http.Request, provSession identity.Session) error {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		return session.ErrNotFound
	}
	sess.Regenerate()
	if err := sess.Set(authSessionKey, authEntry{
		AccessToken: provSession.AccessToken,
		UserID:      provSession.User.ID,
	}); err != nil {
		return err
	}
	if a.csrf {
		if err := mw.RotateCSRF(sess); err != nil {
			return err
		}
	}
	store, _ := session.StoreFromContext(r.Context())
	return session.Save(r.Context(), w, store, sess)
}

// logout ends the provider session and destroys the cookie session, draft included.
func (a *app) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := session.FromContext(ctx)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	var entry authEntry
	if found, _ := sess.Get(authSessionKey, &entry); found && entry.AccessToken != "" {
		if err := a.identity.SignOut(ctx, entry.AccessToken); err != nil {
			requestctx.Logger(ctx).Warn("provider sign-out failed", zap.Error(err))
		}
	}
	sess.Destroy()
	store, _ := session.StoreFromContext(ctx)
	if err := session.Save(ctx, w, store, sess); err != nil {
		unavailable(w, r, "session destroy failed", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// callback completes email confirmation and sends the user where they were headed.
func (a *app) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	exchanger, ok := a.identity.(identity.CodeExchanger)
	if !ok {
		http.Redirect(w, r, loginPath+"?error="+url.QueryEscape(msgNoExchange), http.StatusFound)
		return
	}
	provSession, err := exchanger.ExchangeCode(ctx, code)
	if err != nil {
		requestctx.Logger(ctx).Info("code exchange failed", zap.Error(err))
		http.Redirect(w, r, loginPath+"?error="+url.QueryEscape(identity.FriendlyMessage(err)), http.StatusFound)
		return
	}

	sess, ok := session.FromContext(ctx)
	if !ok {
		unavailable(w, r, "callback without session", session.ErrNotFound)
		return
	}
	target := dashboardPath
	var stored string
	if found, _ := sess.Get(redirectToKey, &stored); found && safeRedirect(stored) {
		target = stored
	}
	sess.Unset(redirectToKey)
	if err := a.signIn(w, r, provSession); err != nil {
		unavailable(w, r, "session commit failed", err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// safeRedirect accepts only same-site absolute paths.
func safeRedirect(target string) bool {
	return strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.Contains(target, `\`)
}

func (a *app) dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(r)
	if !ok {
		if sess, found := session.FromContext(r.Context()); found {
			if err := sess.Set(redirectToKey, dashboardPath); err != nil {
				requestctx.Logger(r.Context()).Warn("remember redirect failed", zap.Error(err))
			}
		}
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}
	st, err := a.wizard.Read(r)
	if err != nil {
		unavailable(w, r, "wizard read failed", err)
		return
	}

	page := dashboardPage{
		Name:     strings.TrimSpace(user.Profile.FirstName),
		Email:    user.Email,
		HasDraft: !st.Empty(),
		Address:  st.Address,
		Date:     st.Date,
	}
	page.ResumePath = resumePath(st)
	a.render(w, r, http.StatusOK, "dashboard", view{User: &user, Page: page})
}

// resumePath is the first step whose prerequisites hold but whose own output is missing.
func resumePath(st wizard.State) string {
	for _, step := range wizard.Steps {
		if _, ok := step.Guard(st); !ok {
			break
		}
		if !stepDone(step, st) {
			return step.Path()
		}
	}
	return wizard.PathCheckout
}

func stepDone(step wizard.Step, st wizard.State) bool {
	switch step {
	case wizard.StepPickupDetails:
		return st.Address != nil && st.Date != "" && st.Phone != ""
	case wizard.StepOrderType:
		return st.OrderType != ""
	case wizard.StepAddons:
		return st.Addons != nil
	case wizard.StepCustomerDetails:
		return st.Customer != nil
	}
	return false
}
