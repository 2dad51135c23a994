package models

// Event names emitted by the engine.
const (
	EventViewItem        = "view_item"
	EventViewCart        = "view_cart"
	EventBeginCheckout   = "begin_checkout"
	EventSelectItem      = "select_item"
	EventAddToCart       = "add_to_cart"
	EventRemoveFromCart  = "remove_from_cart"
	EventAddPaymentInfo  = "add_payment_info"
	EventAddShippingInfo = "add_shipping_info"
	EventPurchase        = "purchase"
)

// Ecommerce is the nested payload of an event envelope. A nil Ecommerce is
// the reset marker the downstream tag manager requires between events.
type Ecommerce struct {
	Currency       string           `json:"currency,omitempty"`
	Value          string           `json:"value,omitempty"`
	ItemListID     string           `json:"item_list_id,omitempty"`
	ItemListName   string           `json:"item_list_name,omitempty"`
	PaymentType    string           `json:"payment_type,omitempty"`
	PaymentMethod  string           `json:"payment_method,omitempty"`
	ShippingTier   string           `json:"shipping_tier,omitempty"`
	TransactionID  string           `json:"transaction_id,omitempty"`
	Tax            string           `json:"tax,omitempty"`
	Shipping       string           `json:"shipping,omitempty"`
	Coupon         string           `json:"coupon,omitempty"`
	CouponDiscount string           `json:"coupon_discount,omitempty"`
	SaleDiscount   string           `json:"sale_discount,omitempty"`
	Items          []*ProductRecord `json:"items,omitempty"`
}

// EventEnvelope is one entry of the shared event queue. Every populated
// envelope must be preceded by a reset envelope ({ecommerce: null}).
type EventEnvelope struct {
	Event         string     `json:"event,omitempty"`
	Ecommerce     *Ecommerce `json:"ecommerce"`
	ContainerType string     `json:"container_type,omitempty"`
	WidgetID      string     `json:"widget_id,omitempty"`
	PageType      string     `json:"page_type,omitempty"`
}

// Reset returns the null-ecommerce envelope.
func Reset() EventEnvelope {
	return EventEnvelope{}
}

// IsReset reports whether the envelope is a reset marker.
func (e EventEnvelope) IsReset() bool {
	return e.Event == "" && e.Ecommerce == nil
}

// ListViewEventName derives the list-view event name from the page type.
func ListViewEventName(pageType string) string {
	switch pageType {
	case PageShop:
		return "view_item_list"
	case PageCategory:
		return "view_category_item_list"
	case PageProduct:
		return "view_related_item_list"
	case PageCart:
		return "view_cart_item_list"
	case PageCheckout:
		return "view_checkout_item_list"
	case PagePurchase:
		return "view_purchase_item_list"
	case "":
		return "view_other_item_list"
	default:
		return "view_" + pageType + "_item_list"
	}
}
