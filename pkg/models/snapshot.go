package models

// Page types resolved by the storefront renderer.
const (
	PageProduct  = "product"
	PageCategory = "category"
	PageShop     = "shop"
	PageCart     = "cart"
	PageCheckout = "checkout"
	PagePurchase = "purchase"
	PageOther    = "other"
)

// User status values. Anything else sanitizes to Guest.
const (
	UserGuest      = "Guest"
	UserRegistered = "Registered"
	UserCustomer   = "Customer"
)

// PageSnapshot is the immutable per-page-load context produced by the
// storefront renderer. The engine only reads it.
type PageSnapshot struct {
	PageType     string `json:"pageType"`
	Currency     string `json:"currency"`
	UserStatus   string `json:"userStatus"`
	HashedUserID string `json:"hashedUserId"`
	SiteName     string `json:"siteName,omitempty"`
	CategoryID   int    `json:"categoryId,omitempty"`
	CategoryName string `json:"categoryName,omitempty"`
	ProductID    int    `json:"productId,omitempty"`
}

// CartItem pairs a server-resolved product record with its cart quantity.
type CartItem struct {
	Record   ProductRecord `json:"record"`
	Quantity int           `json:"quantity"`
}

// CartSnapshot is the cart state at render time.
type CartSnapshot struct {
	Items []CartItem `json:"items"`
	Total float64    `json:"total"`
}

// Empty reports whether there is nothing to emit for this cart.
func (c *CartSnapshot) Empty() bool {
	return c == nil || len(c.Items) == 0
}

// Records expands cart items into product records with quantities applied.
func (c *CartSnapshot) Records() []*ProductRecord {
	if c == nil {
		return nil
	}
	out := make([]*ProductRecord, 0, len(c.Items))
	for i := range c.Items {
		rec := c.Items[i].Record.Clone()
		if !rec.HasIdentity() {
			continue
		}
		qty := c.Items[i].Quantity
		if qty < 1 {
			qty = 1
		}
		rec.Quantity = qty
		out = append(out, rec)
	}
	return out
}

// OrderSnapshot is the completed-order state rendered on the thank-you page.
type OrderSnapshot struct {
	OrderID             string     `json:"orderId"`
	Total               float64    `json:"total"`
	Tax                 float64    `json:"tax"`
	Shipping            float64    `json:"shipping"`
	Currency            string     `json:"currency"`
	PaymentMethod       string     `json:"paymentMethod"`
	PaymentMethodTitle  string     `json:"paymentMethodTitle"`
	ShippingMethodTitle string     `json:"shippingMethodTitle,omitempty"`
	Coupons             []string   `json:"coupons,omitempty"`
	CouponDiscount      float64    `json:"couponDiscount,omitempty"`
	Items               []CartItem `json:"items"`
}
