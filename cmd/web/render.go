package main

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"bagsoflaundry.com/web/internal/identity"
	mw "bagsoflaundry.com/web/internal/middleware"
	"bagsoflaundry.com/web/internal/platform/requestctx"
	"bagsoflaundry.com/web/internal/pricing"
	"bagsoflaundry.com/web/internal/wizard"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const layoutFile = "layout.tmpl"

// renderer holds one parsed template set per page, each layered over the shared layout.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	funcs := template.FuncMap{
		"cents": pricing.FormatCents,
	}
	layout, err := fs.ReadFile(templateFS, "templates/"+layoutFile)
	if err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, err
	}

	r := &renderer{pages: make(map[string]*template.Template)}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == layoutFile || !strings.HasSuffix(name, ".tmpl") {
			continue
		}
		body, err := fs.ReadFile(templateFS, "templates/"+name)
		if err != nil {
			return nil, err
		}
		t, err := template.New(name).Funcs(funcs).Parse(string(layout))
		if err != nil {
			return nil, fmt.Errorf("parse layout: %w", err)
		}
		if _, err := t.Parse(string(body)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[strings.TrimSuffix(name, ".tmpl")] = t
	}
	if len(r.pages) == 0 {
		return nil, fmt.Errorf("no templates found")
	}
	return r, nil
}

// view is the data every page template receives.
type view struct {
	CSRFToken string
	Error     string
	User      *identity.User
	Progress  []progressItem
	Page      any
}

type progressItem struct {
	Label   string
	Path    string
	Current bool
	Done    bool
}

var stepLabels = map[wizard.Step]string{
	wizard.StepPickupDetails:   "Pickup",
	wizard.StepOrderType:       "Service",
	wizard.StepAddons:          "Add-ons",
	wizard.StepCustomerDetails: "Details",
	wizard.StepCheckout:        "Review",
}

// progress marks every step before current as done; those are reachable by plain links.
func progress(current wizard.Step) []progressItem {
	items := make([]progressItem, 0, len(wizard.Steps))
	done := true
	for _, step := range wizard.Steps {
		if step == current {
			done = false
		}
		items = append(items, progressItem{
			Label:   stepLabels[step],
			Path:    step.Path(),
			Current: step == current,
			Done:    done,
		})
	}
	return items
}

// render executes page into a buffer first so template errors never produce half a page.
func (a *app) render(w http.ResponseWriter, r *http.Request, status int, page string, v view) {
	logger := requestctx.Logger(r.Context())
	t, ok := a.renderer.pages[page]
	if !ok {
		logger.Error("unknown template", zap.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if v.CSRFToken == "" {
		v.CSRFToken = mw.CSRFToken(r.Context())
	}
	if v.User == nil {
		if u, ok := a.currentUser(r); ok {
			v.User = &u
		}
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", v); err != nil {
		logger.Error("template exec error", zap.String("page", page), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// unavailable answers infrastructure failures with a plain 503 page.
func unavailable(w http.ResponseWriter, r *http.Request, msg string, err error) {
	requestctx.Logger(r.Context()).Error(msg, zap.Error(err))
	http.Error(w, "Service temporarily unavailable. Please try again.", http.StatusServiceUnavailable)
}
