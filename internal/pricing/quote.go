package pricing

// QuoteRequest describes a pricing-page estimate.
type QuoteRequest struct {
	WeightLb int64
	Plan     Plan
	Addons   Addons
}

// Breakdown itemises an estimate. SubtotalCents always equals Estimate for the same inputs.
type Breakdown struct {
	Plan                   Plan  `json:"plan"`
	WeightLb               int64 `json:"lbs"`
	UnitRateCents          int64 `json:"unitRateCents"`
	BaseCents              int64 `json:"baseCents"`
	EcoCents               int64 `json:"ecoCents"`
	HangDryCents           int64 `json:"hangDryCents"`
	RushCents              int64 `json:"rushCents"`
	MinimumAdjustmentCents int64 `json:"minimumAdjustmentCents"`
	SubtotalCents          int64 `json:"subtotalCents"`
}

// Quote builds an itemised breakdown for the request.
func Quote(req QuoteRequest) Breakdown {
	plan := req.Plan
	if plan == "" {
		plan = PlanStandard
	}
	lbs := req.WeightLb
	if lbs < 0 {
		lbs = 0
	}
	b := Breakdown{
		Plan:          plan,
		WeightLb:      lbs,
		UnitRateCents: plan.RateCents(),
	}
	b.BaseCents = lbs * b.UnitRateCents
	if req.Addons.Eco {
		b.EcoCents = lbs * EcoSurchargeCents
	}
	if req.Addons.HangDry {
		b.HangDryCents = lbs * HangDrySurchargeCents
	}
	if req.Addons.Rush {
		b.RushCents = RushFeeCents
	}
	raw := b.BaseCents + b.EcoCents + b.HangDryCents + b.RushCents
	b.SubtotalCents = Estimate(lbs, b.UnitRateCents, RushFeeCents, req.Addons)
	b.MinimumAdjustmentCents = b.SubtotalCents - raw
	return b
}
