package main

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"bagsoflaundry.com/web/internal/areas"
	"bagsoflaundry.com/web/internal/intake"
	"bagsoflaundry.com/web/internal/platform/requestctx"
	"bagsoflaundry.com/web/internal/wizard"
)

// MsgSubmitFailed is shown when the order system rejects or cannot take the draft.
const MsgSubmitFailed = "We couldn't place your order right now. Please try again in a moment."

type checkoutPage struct {
	Address        wizard.Address
	Date           string
	Phone          string
	OrderTypeLabel string
	Addons         wizard.Addons
	Customer       wizard.Customer
	EstimateCents  int64
	Area           *areas.Area
}

type confirmationPage struct {
	Reference string
}

func (a *app) checkoutPage(st wizard.State) checkoutPage {
	p := checkoutPage{
		Date:          st.Date,
		Phone:         st.Phone,
		EstimateCents: estimateCents(st),
	}
	if st.Address != nil {
		p.Address = *st.Address
		if area, ok := a.areas.Covers(st.Address.Postal); ok {
			p.Area = &area
		}
	}
	if st.Addons != nil {
		p.Addons = *st.Addons
	}
	if st.Customer != nil {
		p.Customer = *st.Customer
	}
	p.OrderTypeLabel = st.OrderType
	if ot, ok := wizard.LookupOrderType(st.OrderType); ok {
		p.OrderTypeLabel = ot.Label
	}
	return p
}

func (a *app) showCheckout(w http.ResponseWriter, r *http.Request) {
	st, err := a.wizard.Read(r)
	if err != nil {
		unavailable(w, r, "wizard read failed", err)
		return
	}
	if to, ok := wizard.StepCheckout.Guard(st); !ok {
		http.Redirect(w, r, to, http.StatusFound)
		return
	}
	a.render(w, r, http.StatusOK, "checkout", view{
		Progress: progress(wizard.StepCheckout),
		Page:     a.checkoutPage(st),
	})
}

// submitCheckout hands the draft to order intake. On failure the draft stays in the
// session and the review page is shown again with 502.
func (a *app) submitCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := requestctx.Logger(ctx)

	st, err := a.wizard.Read(r)
	if err != nil {
		unavailable(w, r, "wizard read failed", err)
		return
	}
	if to, ok := wizard.StepCheckout.Guard(st); !ok {
		http.Redirect(w, r, to, http.StatusSeeOther)
		return
	}

	var userID string
	if u, ok := a.currentUser(r); ok {
		userID = u.ID
	}
	draft := intake.NewDraft(st, userID, a.now())
	receipt, err := a.submitter.Submit(ctx, draft)
	if err != nil {
		a.metrics.Rejected(ctx, wizard.StepCheckout)
		logger.Error("order intake failed", zap.String("draft_id", draft.ID), zap.Error(err))
		a.render(w, r, http.StatusBadGateway, "checkout", view{
			Error:    MsgSubmitFailed,
			Progress: progress(wizard.StepCheckout),
			Page:     a.checkoutPage(st),
		})
		return
	}

	logger.Info("order draft submitted",
		zap.String("draft_id", draft.ID),
		zap.String("reference", receipt.Reference),
		zap.String("status", receipt.Status),
	)
	a.metrics.Submitted(ctx, wizard.StepCheckout)
	target := wizard.PathConfirmation + "?order=" + url.QueryEscape(receipt.Reference)
	if err := a.wizard.Clear(w, r, target); err != nil {
		unavailable(w, r, "wizard clear failed", err)
	}
}

func (a *app) showConfirmation(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimSpace(r.URL.Query().Get("order"))
	if len(ref) > 64 {
		ref = ref[:64]
	}
	a.render(w, r, http.StatusOK, "confirmation", view{Page: confirmationPage{Reference: ref}})
}
