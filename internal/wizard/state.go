// Package wizard holds the order wizard's draft state, its step machine, and the
// session-backed repository that persists the draft between requests.
package wizard

// Address is the pickup address.
type Address struct {
	Line1  string `json:"line1"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Postal string `json:"postal"`
}

// Addons are optional service extras.
type Addons struct {
	Eco     bool   `json:"eco"`
	HangDry bool   `json:"hangDry"`
	Rush    bool   `json:"rush"`
	Notes   string `json:"notes,omitempty"`
}

// Customer identifies who placed the order.
type Customer struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Estimate is derived from the add-ons step and is not authoritative.
type Estimate struct {
	Lbs           int64 `json:"lbs"`
	UnitRateCents int64 `json:"unitRateCents"`
	RushFeeCents  int64 `json:"rushFeeCents"`
	SubtotalCents int64 `json:"subtotalCents"`
}

// State is the draft accumulated across steps. Nil pointers and empty strings mean the
// field has not been provided yet.
type State struct {
	Address   *Address  `json:"address,omitempty"`
	Date      string    `json:"date,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	OrderType string    `json:"orderType,omitempty"`
	Addons    *Addons   `json:"addons,omitempty"`
	Customer  *Customer `json:"customer,omitempty"`
	Estimate  *Estimate `json:"estimate,omitempty"`
	// IdempotencyKey is issued once per draft, when the customer step is first accepted,
	// so repeated checkout submissions of the same draft share it.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// Empty reports whether no field has been set.
func (s State) Empty() bool {
	return s == State{}
}

// Merge returns current with every field present in patch replacing the current value.
// The merge is shallow: a present nested object replaces the previous one wholesale.
func Merge(current, patch State) State {
	out := current
	if patch.Address != nil {
		a := *patch.Address
		out.Address = &a
	}
	if patch.Date != "" {
		out.Date = patch.Date
	}
	if patch.Phone != "" {
		out.Phone = patch.Phone
	}
	if patch.OrderType != "" {
		out.OrderType = patch.OrderType
	}
	if patch.Addons != nil {
		a := *patch.Addons
		out.Addons = &a
	}
	if patch.Customer != nil {
		c := *patch.Customer
		out.Customer = &c
	}
	if patch.Estimate != nil {
		e := *patch.Estimate
		out.Estimate = &e
	}
	if patch.IdempotencyKey != "" {
		out.IdempotencyKey = patch.IdempotencyKey
	}
	return out
}
