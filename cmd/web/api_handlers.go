package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"bagsoflaundry.com/web/internal/areas"
	"bagsoflaundry.com/web/internal/platform/httpx"
	"bagsoflaundry.com/web/internal/pricing"
)

const maxQuoteWeightLb = 1000

type quoteResponse struct {
	pricing.Breakdown
	Subtotal string `json:"subtotal"`
}

func queryFlag(r *http.Request, name string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name))) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// quote prices a pricing-page estimate. lbs defaults to the preview weight.
func (a *app) quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lbs := pricing.PreviewWeightLb
	if raw := strings.TrimSpace(q.Get("lbs")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 || v > maxQuoteWeightLb {
			httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeInvalidLbs, "lbs must be a whole number between 0 and 1000", http.StatusBadRequest).ForField("lbs"))
			return
		}
		lbs = v
	}

	b := pricing.Quote(pricing.QuoteRequest{
		WeightLb: lbs,
		Plan:     pricing.ParsePlan(q.Get("plan")),
		Addons: pricing.Addons{
			Eco:     queryFlag(r, "eco"),
			HangDry: queryFlag(r, "hangDry"),
			Rush:    queryFlag(r, "rush"),
		},
	})
	httpx.WriteJSON(w, http.StatusOK, quoteResponse{Breakdown: b, Subtotal: pricing.FormatCents(b.SubtotalCents)})
}

func (a *app) listAreas(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"areas": a.areas.All()})
}

func (a *app) getArea(w http.ResponseWriter, r *http.Request) {
	area, err := a.areas.Lookup(chi.URLParam(r, "slug"))
	if errors.Is(err, areas.ErrNotFound) {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeAreaNotFound, "no service area with that name", http.StatusNotFound))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, area)
}

type coverageResponse struct {
	Postal  string      `json:"postal"`
	Covered bool        `json:"covered"`
	Area    *areas.Area `json:"area"`
}

func (a *app) coverage(w http.ResponseWriter, r *http.Request) {
	postal := strings.TrimSpace(r.URL.Query().Get("postal"))
	if postal == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodePostalRequired, "postal is required", http.StatusBadRequest).ForField("postal"))
		return
	}
	resp := coverageResponse{Postal: postal}
	if area, ok := a.areas.Covers(postal); ok {
		resp.Covered = true
		resp.Area = &area
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
