package models

// ProductRecord is the canonical item shape pushed inside ecommerce payloads.
// Prices are fixed two-decimal strings, never floats.
type ProductRecord struct {
	ItemID             string `json:"item_id"`
	ItemName           string `json:"item_name"`
	ItemBrand          string `json:"item_brand,omitempty"`
	Price              string `json:"price"`
	ItemOriginalPrice  string `json:"item_original_price"`
	ItemOnSale         bool   `json:"item_on_sale"`
	ItemCategory       string `json:"item_category,omitempty"`
	ItemCategory2      string `json:"item_category2,omitempty"`
	ItemCategory3      string `json:"item_category3,omitempty"`
	Discount           string `json:"discount,omitempty"`
	DiscountPercentage string `json:"discount_percentage,omitempty"`
	Quantity           int    `json:"quantity,omitempty"`
	Index              int    `json:"index,omitempty"`
}

// Clone returns a copy so callers can set quantity/index without mutating
// cached records.
func (p *ProductRecord) Clone() *ProductRecord {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// HasIdentity reports whether the record carries at least one identity
// signal. Records without one are dropped instead of emitted.
func (p *ProductRecord) HasIdentity() bool {
	return p != nil && (p.ItemID != "" || p.ItemName != "")
}

// ListContainer describes one detected product-list widget. Containers are
// rebuilt on every detection pass and never merged.
type ListContainer struct {
	ListID        string           `json:"list_id"`
	ListName      string           `json:"list_name"`
	ContainerType string           `json:"container_type"`
	WidgetID      string           `json:"widget_id"`
	Items         []*ProductRecord `json:"items"`
}

// Known container types. Anything unrecognized is reported as generic.
const (
	ContainerKitify         = "kitify"
	ContainerElementorLoop  = "elementor_loop"
	ContainerElementorPosts = "elementor_posts"
	ContainerWooCommerce    = "woocommerce"
	ContainerGeneric        = "generic"
)
