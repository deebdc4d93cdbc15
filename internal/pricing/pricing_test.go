package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	cases := []struct {
		name   string
		lbs    int64
		rate   int64
		rush   int64
		addons Addons
		want   int64
	}{
		{name: "standard twenty pounds", lbs: 20, rate: StandardRateCents, want: 4500},
		{name: "below minimum", lbs: 5, rate: StandardRateCents, want: 3500},
		{name: "rush flat fee", lbs: 20, rate: StandardRateCents, rush: RushFeeCents, addons: Addons{Rush: true}, want: 5500},
		{name: "rush fee ignored without rush", lbs: 20, rate: StandardRateCents, rush: RushFeeCents, want: 4500},
		{name: "eco and hang dry per pound", lbs: 20, rate: StandardRateCents, addons: Addons{Eco: true, HangDry: true}, want: 20 * (225 + 10 + 25)},
		{name: "member rate", lbs: 30, rate: MemberRateCents, want: 5970},
		{name: "preview weight with rush", lbs: PreviewWeightLb, rate: StandardRateCents, rush: RushFeeCents, addons: Addons{Rush: true}, want: 4375},
		{name: "zero weight", lbs: 0, rate: StandardRateCents, want: MinimumOrderCents},
		{name: "negative weight", lbs: -4, rate: StandardRateCents, want: MinimumOrderCents},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Estimate(tc.lbs, tc.rate, tc.rush, tc.addons))
		})
	}
}

func TestQuoteMatchesEstimate(t *testing.T) {
	b := Quote(QuoteRequest{WeightLb: 10, Plan: PlanWeekly, Addons: Addons{Eco: true, Rush: true}})
	require.Equal(t, PlanWeekly, b.Plan)
	require.Equal(t, MemberRateCents, b.UnitRateCents)
	require.Equal(t, int64(1990), b.BaseCents)
	require.Equal(t, int64(100), b.EcoCents)
	require.Equal(t, RushFeeCents, b.RushCents)
	require.Equal(t, int64(3500-3090), b.MinimumAdjustmentCents)
	require.Equal(t, Estimate(10, MemberRateCents, RushFeeCents, Addons{Eco: true, Rush: true}), b.SubtotalCents)

	b = Quote(QuoteRequest{WeightLb: 40})
	require.Equal(t, PlanStandard, b.Plan)
	require.Zero(t, b.MinimumAdjustmentCents)
	require.Equal(t, int64(9000), b.SubtotalCents)
}

func TestParsePlan(t *testing.T) {
	require.Equal(t, PlanWeekly, ParsePlan(" Weekly "))
	require.Equal(t, PlanWeekly, ParsePlan("member"))
	require.Equal(t, PlanStandard, ParsePlan(""))
	require.Equal(t, PlanStandard, ParsePlan("platinum"))
}

func TestFormatCents(t *testing.T) {
	require.Equal(t, "$45.00", FormatCents(4500))
	require.Equal(t, "$35.05", FormatCents(3505))
	require.Equal(t, "$0.99", FormatCents(99))
	require.Equal(t, "-$1.50", FormatCents(-150))
}

func TestFormatCentsGroupsThousands(t *testing.T) {
	require.Equal(t, "$1,234.56", FormatCents(123456))
}
