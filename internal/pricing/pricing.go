// Package pricing computes non-authoritative order estimates for the order wizard
// and the pricing page estimator. Final pricing happens downstream at order intake.
package pricing

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Rates and fees in US cents.
const (
	StandardRateCents     int64 = 225
	MemberRateCents       int64 = 199
	EcoSurchargeCents     int64 = 10
	HangDrySurchargeCents int64 = 25
	RushFeeCents          int64 = 1000
	MinimumOrderCents     int64 = 3500

	// PreviewWeightLb is the assumed load used for the wizard's add-ons preview.
	PreviewWeightLb int64 = 15
)

// Addons are the per-order options that change the estimate.
type Addons struct {
	Eco     bool
	HangDry bool
	Rush    bool
}

// Estimate returns the order subtotal in cents:
//
//	weightLb × (unitRate + eco + hangDry) + rush, floored at MinimumOrderCents.
//
// Negative weights are treated as zero.
func Estimate(weightLb, unitRateCents, rushFeeCents int64, addons Addons) int64 {
	if weightLb < 0 {
		weightLb = 0
	}
	perLb := unitRateCents
	if addons.Eco {
		perLb += EcoSurchargeCents
	}
	if addons.HangDry {
		perLb += HangDrySurchargeCents
	}
	subtotal := weightLb * perLb
	if addons.Rush {
		subtotal += rushFeeCents
	}
	if subtotal < MinimumOrderCents {
		subtotal = MinimumOrderCents
	}
	return subtotal
}

// Plan selects the per-pound rate.
type Plan string

const (
	PlanStandard Plan = "standard"
	PlanWeekly   Plan = "weekly"
)

// ParsePlan normalises a plan name; anything unknown is the standard plan.
func ParsePlan(raw string) Plan {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(PlanWeekly), "member":
		return PlanWeekly
	default:
		return PlanStandard
	}
}

// RateCents returns the per-pound rate for the plan.
func (p Plan) RateCents() int64 {
	if p == PlanWeekly {
		return MemberRateCents
	}
	return StandardRateCents
}

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatCents renders an amount for display with grouped dollars, e.g. 4500 -> "$45.00".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + "$" + printer.Sprintf("%d", cents/100) + fmt.Sprintf(".%02d", cents%100)
}
