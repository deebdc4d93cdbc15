package wizard

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func pickupForm() url.Values {
	return url.Values{
		"line1":  {" 123 Main St "},
		"city":   {"Detroit"},
		"state":  {"MI"},
		"postal": {"48201"},
		"date":   {"2025-06-01"},
		"phone":  {"313-555-0100"},
	}
}

func TestApplyPickup(t *testing.T) {
	patch, err := Apply(StepPickupDetails, pickupForm())
	require.NoError(t, err)
	require.Equal(t, &Address{Line1: "123 Main St", City: "Detroit", State: "MI", Postal: "48201"}, patch.Address)
	require.Equal(t, "2025-06-01", patch.Date)
	require.Equal(t, "313-555-0100", patch.Phone)
}

func TestApplyPickupAcceptsAddressAlias(t *testing.T) {
	form := pickupForm()
	form.Del("line1")
	form.Set("address", "9 Elm Ave")
	patch, err := Apply(StepPickupDetails, form)
	require.NoError(t, err)
	require.Equal(t, "9 Elm Ave", patch.Address.Line1)

	form.Set("line1", "123 Main St")
	patch, err = Apply(StepPickupDetails, form)
	require.NoError(t, err)
	require.Equal(t, "9 Elm Ave", patch.Address.Line1, "address wins over line1")
}

func TestApplyPickupBoundsFieldSize(t *testing.T) {
	form := pickupForm()
	form.Set("line1", strings.Repeat("a", maxLine1Bytes))
	_, err := Apply(StepPickupDetails, form)
	require.NoError(t, err)

	mutations := map[string]func(url.Values){
		"long line1":      func(f url.Values) { f.Set("line1", strings.Repeat("a", 5000)) },
		"escaped line1":   func(f url.Values) { f.Set("line1", strings.Repeat("&", maxLine1Bytes/6+1)) },
		"multibyte city":  func(f url.Values) { f.Set("city", strings.Repeat("é", maxCityBytes/2+1)) },
		"long state":      func(f url.Values) { f.Set("state", strings.Repeat("M", maxStateBytes+1)) },
		"zip plus junk":   func(f url.Values) { f.Set("postal", "48201-123456") },
		"very long phone": func(f url.Values) { f.Set("phone", strings.Repeat("5", maxPhoneBytes+1)) },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			form := pickupForm()
			mutate(form)
			patch, err := Apply(StepPickupDetails, form)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Equal(t, MsgPickupTooLong, verr.Message)
			require.True(t, patch.Empty())
		})
	}
}

func TestApplyPickupRejects(t *testing.T) {
	mutations := map[string]func(url.Values){
		"short address": func(f url.Values) { f.Set("line1", "12") },
		"short postal":  func(f url.Values) { f.Set("postal", "482") },
		"bad date":      func(f url.Values) { f.Set("date", "06/01/2025") },
		"impossible":    func(f url.Values) { f.Set("date", "2025-02-30") },
		"short phone":   func(f url.Values) { f.Set("phone", "555") },
		"blank phone":   func(f url.Values) { f.Set("phone", "       ") },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			form := pickupForm()
			mutate(form)
			patch, err := Apply(StepPickupDetails, form)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Equal(t, MsgPickupIncomplete, verr.Message)
			require.True(t, patch.Empty())
		})
	}
}

func TestApplyOrderType(t *testing.T) {
	patch, err := Apply(StepOrderType, url.Values{})
	require.NoError(t, err)
	require.Equal(t, DefaultOrderType, patch.OrderType)

	patch, err = Apply(StepOrderType, url.Values{"orderType": {"bedding_bundle"}})
	require.NoError(t, err)
	require.Equal(t, "bedding_bundle", patch.OrderType)

	_, err = Apply(StepOrderType, url.Values{"orderType": {"tuxedo"}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, MsgOrderTypeInvalid, verr.Message)
}

func TestApplyAddons(t *testing.T) {
	patch, err := Apply(StepAddons, url.Values{"rush": {"on"}, "eco": {"true"}, "notes": {"<b>Gate</b> code 42"}})
	require.NoError(t, err)
	require.Equal(t, &Addons{Eco: true, Rush: true, Notes: "Gate code 42"}, patch.Addons)
	require.NotNil(t, patch.Estimate)
	require.Equal(t, int64(15), patch.Estimate.Lbs)
	require.Equal(t, int64(15*(225+10)+1000), patch.Estimate.SubtotalCents)

	patch, err = Apply(StepAddons, url.Values{})
	require.NoError(t, err)
	require.Equal(t, &Addons{}, patch.Addons)
	require.Equal(t, int64(3500), patch.Estimate.SubtotalCents)

	_, err = Apply(StepAddons, url.Values{"notes": {strings.Repeat("x", MaxNotesRunes+1)}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, MsgNotesTooLong, verr.Message)
}

func TestApplyAddonsBoundsNotesBytes(t *testing.T) {
	for name, tc := range map[string]struct {
		notes string
		want  string
	}{
		"ascii at rune limit":     {notes: strings.Repeat("x", MaxNotesRunes)},
		"multibyte at byte limit": {notes: strings.Repeat("🧺", MaxNotesBytes/4)},
		"multibyte over bytes":    {notes: strings.Repeat("🧺", MaxNotesRunes), want: MsgNotesTooLarge},
		"ampersands escaped":      {notes: strings.Repeat("&", MaxNotesRunes), want: MsgNotesTooLarge},
		"angle brackets escaped":  {notes: strings.Repeat("a > b ", 80), want: MsgNotesTooLarge},
	} {
		t.Run(name, func(t *testing.T) {
			patch, err := Apply(StepAddons, url.Values{"notes": {tc.notes}})
			if tc.want == "" {
				require.NoError(t, err)
				require.Equal(t, tc.notes, patch.Addons.Notes)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Equal(t, tc.want, verr.Message)
		})
	}
}

func TestPreviewEstimateRecordsAppliedRushFee(t *testing.T) {
	require.Zero(t, PreviewEstimate(Addons{}).RushFeeCents)
	require.Equal(t, int64(1000), PreviewEstimate(Addons{Rush: true}).RushFeeCents)
	require.Equal(t, int64(15*225+1000), PreviewEstimate(Addons{Rush: true}).SubtotalCents)
}

func TestApplyCustomer(t *testing.T) {
	patch, err := Apply(StepCustomerDetails, url.Values{"fullName": {"Ada Lovelace"}, "email": {"ada@example.com"}})
	require.NoError(t, err)
	require.Equal(t, &Customer{FullName: "Ada Lovelace", Email: "ada@example.com"}, patch.Customer)

	for _, form := range []url.Values{
		{"fullName": {"A"}, "email": {"ada@example.com"}},
		{"fullName": {"Ada"}, "email": {"ada"}},
		{"fullName": {"Ada"}, "email": {"Ada <ada@example.com>"}},
		{"fullName": {"Ada"}, "email": {"ada@localhost"}},
	} {
		_, err := Apply(StepCustomerDetails, form)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "form %v", form)
		require.Equal(t, MsgCustomerIncomplete, verr.Message)
	}

	_, err = Apply(StepCustomerDetails, url.Values{"fullName": {strings.Repeat("Ada ", 30)}, "email": {"ada@example.com"}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, MsgCustomerTooLong, verr.Message)
}
