package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	mw "bagsoflaundry.com/web/internal/middleware"
	"bagsoflaundry.com/web/internal/platform/observability"
	"bagsoflaundry.com/web/internal/wizard"
)

const requestTimeout = 30 * time.Second

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// RealIP trusts X-Forwarded-For; only deploy behind a proxy that overwrites it.
	r.Use(chimw.RealIP)
	r.Use(observability.InjectLogger(a.logger.Named("http")))
	r.Use(observability.Trace(a.traceProjectID))
	r.Use(observability.Recovery)
	r.Use(observability.RequestLogger)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(chimw.Compress(5))

	r.Get("/healthz", healthz)
	r.Get("/pricing/quote", a.quote)
	r.Route("/areas", func(r chi.Router) {
		r.Get("/", a.listAreas)
		r.Get("/coverage", a.coverage)
		r.Get("/{slug}", a.getArea)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.HTMX)
		r.Use(mw.Session(a.store))
		if a.csrf {
			r.Use(mw.CSRF)
		}

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, wizard.PathPickupDetails, http.StatusFound)
		})
		for _, step := range []wizard.Step{
			wizard.StepPickupDetails,
			wizard.StepOrderType,
			wizard.StepAddons,
			wizard.StepCustomerDetails,
		} {
			r.Get(step.Path(), a.showStep(step))
			r.Post(step.Path(), a.submitStep(step))
		}
		r.Get(wizard.PathCheckout, a.showCheckout)
		r.Post(wizard.PathCheckout, a.submitCheckout)
		r.Get(wizard.PathConfirmation, a.showConfirmation)
		r.Post("/start-over", a.startOver)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", a.showLogin)
			r.With(a.authLimiter.Limit).Post("/login", a.submitLogin)
			r.Get("/signup", a.showSignup)
			r.With(a.authLimiter.Limit).Post("/signup", a.submitSignup)
			r.Post("/logout", a.logout)
			r.Get("/callback", a.callback)
		})
		r.Get("/dashboard", a.dashboard)
	})
	return r
}
