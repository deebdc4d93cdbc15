package main

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bagsoflaundry.com/web/internal/platform/requestctx"
	"bagsoflaundry.com/web/internal/wizard"
)

type pickupPage struct {
	Line1  string
	City   string
	State  string
	Postal string
	Date   string
	Phone  string
}

type orderTypeOption struct {
	ID       string
	Label    string
	Selected bool
}

type orderTypePage struct {
	Options []orderTypeOption
}

type addonsPage struct {
	Addons        wizard.Addons
	EstimateCents int64
}

type detailsPage struct {
	FullName string
	Email    string
}

var stepTemplates = map[wizard.Step]string{
	wizard.StepPickupDetails:   "pickup",
	wizard.StepOrderType:       "order_type",
	wizard.StepAddons:          "addons",
	wizard.StepCustomerDetails: "details",
}

// stepPage builds the page model for step from the draft, overlaid with a rejected
// submission when form is non-nil.
func stepPage(step wizard.Step, st wizard.State, form url.Values) any {
	switch step {
	case wizard.StepPickupDetails:
		p := pickupPage{Date: st.Date, Phone: st.Phone}
		if st.Address != nil {
			p.Line1, p.City, p.State, p.Postal = st.Address.Line1, st.Address.City, st.Address.State, st.Address.Postal
		}
		if form != nil {
			p = pickupPage{
				Line1:  firstNonEmpty(form.Get("address"), form.Get("line1")),
				City:   form.Get("city"),
				State:  form.Get("state"),
				Postal: form.Get("postal"),
				Date:   form.Get("date"),
				Phone:  form.Get("phone"),
			}
		}
		return p
	case wizard.StepOrderType:
		selected := st.OrderType
		if selected == "" {
			selected = wizard.DefaultOrderType
		}
		var p orderTypePage
		for _, ot := range wizard.OrderTypes() {
			p.Options = append(p.Options, orderTypeOption{ID: ot.ID, Label: ot.Label, Selected: ot.ID == selected})
		}
		return p
	case wizard.StepAddons:
		var addons wizard.Addons
		if st.Addons != nil {
			addons = *st.Addons
		}
		if form != nil {
			addons = wizard.Addons{
				Eco:     form.Get("eco") != "",
				HangDry: form.Get("hangDry") != "",
				Rush:    form.Get("rush") != "",
				Notes:   form.Get("notes"),
			}
		}
		return addonsPage{Addons: addons, EstimateCents: wizard.PreviewEstimate(addons).SubtotalCents}
	case wizard.StepCustomerDetails:
		var p detailsPage
		if st.Customer != nil {
			p.FullName, p.Email = st.Customer.FullName, st.Customer.Email
		}
		if form != nil {
			p = detailsPage{FullName: form.Get("fullName"), Email: form.Get("email")}
		}
		return p
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// showStep renders a form step. A missing prerequisite redirects with 302.
func (a *app) showStep(step wizard.Step) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := a.wizard.Read(r)
		if err != nil {
			unavailable(w, r, "wizard read failed", err)
			return
		}
		if to, ok := step.Guard(st); !ok {
			http.Redirect(w, r, to, http.StatusFound)
			return
		}
		a.render(w, r, http.StatusOK, stepTemplates[step], view{
			Progress: progress(step),
			Page:     stepPage(step, st, nil),
		})
	}
}

// submitStep validates a form step, merges it into the draft and moves on. Rejections
// re-render the step with 400 and leave the draft untouched.
func (a *app) submitStep(step wizard.Step) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		st, err := a.wizard.Read(r)
		if err != nil {
			unavailable(w, r, "wizard read failed", err)
			return
		}
		if to, ok := step.Guard(st); !ok {
			http.Redirect(w, r, to, http.StatusSeeOther)
			return
		}

		// Unparseable bodies leave PostForm empty, which fails validation like blank fields.
		_ = r.ParseForm()
		form := r.PostForm
		if form == nil {
			form = url.Values{}
		}

		reject := func(msg string) {
			a.metrics.Rejected(ctx, step)
			a.render(w, r, http.StatusBadRequest, stepTemplates[step], view{
				Error:    msg,
				Progress: progress(step),
				Page:     stepPage(step, st, form),
			})
		}

		patch, err := wizard.Apply(step, form)
		var verr *wizard.ValidationError
		if errors.As(err, &verr) {
			reject(verr.Message)
			return
		}
		if err != nil {
			unavailable(w, r, "wizard apply failed", err)
			return
		}
		if step == wizard.StepCustomerDetails && st.IdempotencyKey == "" {
			patch.IdempotencyKey = uuid.NewString()
		}

		err = a.wizard.Write(w, r, patch, step.Next())
		if errors.Is(err, wizard.ErrDraftTooLarge) {
			requestctx.Logger(ctx).Warn("wizard draft too large", zap.String("step", string(step)), zap.Error(err))
			reject(wizard.MsgDraftTooLarge)
			return
		}
		if err != nil {
			unavailable(w, r, "wizard write failed", err)
			return
		}
		a.metrics.Submitted(ctx, step)
		requestctx.Logger(ctx).Debug("wizard step accepted", zap.String("step", string(step)))
	}
}

// startOver discards the draft.
func (a *app) startOver(w http.ResponseWriter, r *http.Request) {
	if err := a.wizard.Clear(w, r, wizard.PathPickupDetails); err != nil {
		unavailable(w, r, "wizard clear failed", err)
	}
}

func estimateCents(st wizard.State) int64 {
	if st.Estimate != nil {
		return st.Estimate.SubtotalCents
	}
	var addons wizard.Addons
	if st.Addons != nil {
		addons = *st.Addons
	}
	return wizard.PreviewEstimate(addons).SubtotalCents
}
