package wizard

// Step identifies one page of the wizard.
type Step string

const (
	StepPickupDetails   Step = "pickup-details"
	StepOrderType       Step = "order-type"
	StepAddons          Step = "add-ons"
	StepCustomerDetails Step = "customer-details"
	StepCheckout        Step = "checkout"
)

// Route paths.
const (
	PathPickupDetails   = "/start-basic"
	PathOrderType       = "/order-type"
	PathAddons          = "/addons"
	PathCustomerDetails = "/details"
	PathCheckout        = "/checkout"
	PathConfirmation    = "/checkout/confirmation"
)

// Steps lists every step in wizard order.
var Steps = []Step{StepPickupDetails, StepOrderType, StepAddons, StepCustomerDetails, StepCheckout}

// Path returns the route that renders and accepts the step.
func (s Step) Path() string {
	switch s {
	case StepPickupDetails:
		return PathPickupDetails
	case StepOrderType:
		return PathOrderType
	case StepAddons:
		return PathAddons
	case StepCustomerDetails:
		return PathCustomerDetails
	case StepCheckout:
		return PathCheckout
	default:
		return PathPickupDetails
	}
}

// Next returns where a successful submission of the step redirects.
func (s Step) Next() string {
	switch s {
	case StepPickupDetails:
		return PathOrderType
	case StepOrderType:
		return PathAddons
	case StepAddons:
		return PathCustomerDetails
	case StepCustomerDetails:
		return PathCheckout
	default:
		return PathConfirmation
	}
}

// Prev returns the step before s, if any.
func (s Step) Prev() (Step, bool) {
	for i, step := range Steps {
		if step == s && i > 0 {
			return Steps[i-1], true
		}
	}
	return "", false
}

// Guard checks the step's immediate prerequisite. When it is missing, Guard returns the
// path of the step that establishes it and false.
func (s Step) Guard(st State) (string, bool) {
	switch s {
	case StepOrderType:
		if st.Address == nil || st.Date == "" || st.Phone == "" {
			return PathPickupDetails, false
		}
	case StepAddons:
		if st.OrderType == "" {
			return PathOrderType, false
		}
	case StepCustomerDetails:
		if st.Addons == nil {
			return PathAddons, false
		}
	case StepCheckout:
		if st.Customer == nil {
			return PathCustomerDetails, false
		}
	}
	return "", true
}
