package wizard

import (
	"encoding/json"
	"html"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"bagsoflaundry.com/web/internal/pricing"
)

// Form error messages shown on the re-rendered step.
const (
	MsgPickupIncomplete   = "Please complete all fields."
	MsgPickupTooLong      = "Please shorten the address, city, state, or phone."
	MsgOrderTypeInvalid   = "Please choose an order type."
	MsgNotesTooLong       = "Notes must be 500 characters or fewer."
	MsgNotesTooLarge      = "Notes are too long to save. Please shorten them."
	MsgCustomerIncomplete = "Please enter your name and a valid email."
	MsgCustomerTooLong    = "Please shorten your name or email."
	MsgDraftTooLarge      = "Your order details are too long to save. Please shorten them."
)

// MaxNotesRunes bounds the add-ons notes field.
const MaxNotesRunes = 500

// Free-text fields are also bounded by their JSON-encoded size so the whole draft fits
// in one session cookie. HTML-significant characters count at their escaped width.
const (
	maxLine1Bytes    = 160
	maxCityBytes     = 80
	maxStateBytes    = 40
	maxPostalBytes   = 10
	maxPhoneBytes    = 32
	MaxNotesBytes    = 800
	maxFullNameBytes = 100
	maxEmailBytes    = 254
)

const dateLayout = "2006-01-02"

// ValidationError carries the single summary message for a rejected submission.
type ValidationError struct {
	Step    Step
	Message string
}

func (e *ValidationError) Error() string {
	return string(e.Step) + ": " + e.Message
}

var notesPolicy = bluemonday.StrictPolicy()

// Apply validates a step submission and returns the patch to merge into the draft.
// Nothing is returned for the checkout step, which carries no form fields.
func Apply(step Step, form url.Values) (State, error) {
	switch step {
	case StepPickupDetails:
		return parsePickup(form)
	case StepOrderType:
		return parseOrderType(form)
	case StepAddons:
		return parseAddons(form)
	case StepCustomerDetails:
		return parseCustomer(form)
	default:
		return State{}, nil
	}
}

func field(form url.Values, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(form.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// encodedLen is the size of v once stored as a JSON string, without the quotes.
func encodedLen(v string) int {
	raw, err := json.Marshal(v)
	if err != nil {
		return len(v)
	}
	return len(raw) - 2
}

func fits(v string, limit int) bool {
	return len(v) <= limit && encodedLen(v) <= limit
}

func parsePickup(form url.Values) (State, error) {
	line1 := field(form, "address", "line1")
	city := field(form, "city")
	region := field(form, "state")
	postal := field(form, "postal")
	date := field(form, "date")
	phone := field(form, "phone")

	if utf8.RuneCountInString(line1) < 3 ||
		utf8.RuneCountInString(postal) < 5 ||
		utf8.RuneCountInString(phone) < 7 ||
		!validDate(date) {
		return State{}, &ValidationError{Step: StepPickupDetails, Message: MsgPickupIncomplete}
	}
	if !fits(line1, maxLine1Bytes) ||
		!fits(city, maxCityBytes) ||
		!fits(region, maxStateBytes) ||
		!fits(postal, maxPostalBytes) ||
		!fits(phone, maxPhoneBytes) {
		return State{}, &ValidationError{Step: StepPickupDetails, Message: MsgPickupTooLong}
	}
	return State{
		Address: &Address{
			Line1:  line1,
			City:   city,
			State:  region,
			Postal: postal,
		},
		Date:  date,
		Phone: phone,
	}, nil
}

func validDate(v string) bool {
	if len(v) != len(dateLayout) {
		return false
	}
	_, err := time.Parse(dateLayout, v)
	return err == nil
}

func parseOrderType(form url.Values) (State, error) {
	id := field(form, "orderType")
	if id == "" {
		id = DefaultOrderType
	}
	if _, ok := LookupOrderType(id); !ok {
		return State{}, &ValidationError{Step: StepOrderType, Message: MsgOrderTypeInvalid}
	}
	return State{OrderType: id}, nil
}

func checked(form url.Values, name string) bool {
	switch strings.ToLower(strings.TrimSpace(form.Get(name))) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}

func parseAddons(form url.Values) (State, error) {
	notes := strings.TrimSpace(html.UnescapeString(notesPolicy.Sanitize(form.Get("notes"))))
	if utf8.RuneCountInString(notes) > MaxNotesRunes {
		return State{}, &ValidationError{Step: StepAddons, Message: MsgNotesTooLong}
	}
	if !fits(notes, MaxNotesBytes) {
		return State{}, &ValidationError{Step: StepAddons, Message: MsgNotesTooLarge}
	}
	addons := Addons{
		Eco:     checked(form, "eco"),
		HangDry: checked(form, "hangDry"),
		Rush:    checked(form, "rush"),
		Notes:   notes,
	}
	est := PreviewEstimate(addons)
	return State{Addons: &addons, Estimate: &est}, nil
}

// PreviewEstimate prices the add-ons at the fixed preview weight and the standard rate.
// RushFeeCents records the fee actually applied.
func PreviewEstimate(a Addons) Estimate {
	var rushFee int64
	if a.Rush {
		rushFee = pricing.RushFeeCents
	}
	return Estimate{
		Lbs:           pricing.PreviewWeightLb,
		UnitRateCents: pricing.StandardRateCents,
		RushFeeCents:  rushFee,
		SubtotalCents: pricing.Estimate(
			pricing.PreviewWeightLb,
			pricing.StandardRateCents,
			rushFee,
			pricing.Addons{Eco: a.Eco, HangDry: a.HangDry, Rush: a.Rush},
		),
	}
}

func parseCustomer(form url.Values) (State, error) {
	name := field(form, "fullName")
	email := field(form, "email")
	if utf8.RuneCountInString(name) < 2 || !validEmail(email) {
		return State{}, &ValidationError{Step: StepCustomerDetails, Message: MsgCustomerIncomplete}
	}
	if !fits(name, maxFullNameBytes) || !fits(email, maxEmailBytes) {
		return State{}, &ValidationError{Step: StepCustomerDetails, Message: MsgCustomerTooLong}
	}
	return State{Customer: &Customer{FullName: name, Email: email}}, nil
}

// validEmail accepts a bare addr-spec with a dotted domain.
func validEmail(v string) bool {
	if v == "" || strings.ContainsAny(v, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return false
	}
	at := strings.LastIndexByte(v, '@')
	return at > 0 && strings.Contains(v[at+1:], ".")
}
