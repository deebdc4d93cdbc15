package wizard

// OrderType is one entry of the closed order-type catalog.
type OrderType struct {
	ID    string
	Label string
}

// DefaultOrderType applies when the order-type form omits a selection.
const DefaultOrderType = "wash_fold_20lb"

var orderTypes = []OrderType{
	{ID: "wash_fold_10lb", Label: "Wash & Fold, up to 10 lb"},
	{ID: "wash_fold_20lb", Label: "Wash & Fold, up to 20 lb"},
	{ID: "wash_fold_30lb", Label: "Wash & Fold, up to 30 lb"},
	{ID: "small_bag", Label: "Small bag"},
	{ID: "medium_bag", Label: "Medium bag"},
	{ID: "large_bag", Label: "Large bag"},
	{ID: "dry_cleaning", Label: "Dry cleaning"},
	{ID: "bedding_bundle", Label: "Bedding bundle"},
}

// OrderTypes returns the catalog in display order.
func OrderTypes() []OrderType {
	out := make([]OrderType, len(orderTypes))
	copy(out, orderTypes)
	return out
}

// LookupOrderType returns the catalog entry for id.
func LookupOrderType(id string) (OrderType, bool) {
	for _, ot := range orderTypes {
		if ot.ID == id {
			return ot, true
		}
	}
	return OrderType{}, false
}
