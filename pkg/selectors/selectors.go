// Package selectors holds the page-builder markup conventions the engine
// knows how to read. The selector lists are configuration data, not logic:
// adapting to a new builder means shipping a new profile, not touching the
// extractor.
package selectors

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// ContainerSpec describes one known product-list container convention.
// Order matters: earlier entries win when a container matches several.
type ContainerSpec struct {
	Type          string `yaml:"type"`
	Selector      string `yaml:"selector"`
	ChildSelector string `yaml:"child_selector"`
	ListIDPrefix  string `yaml:"list_id_prefix"`
	FallbackName  string `yaml:"fallback_name"`
}

// ProductSpec drives the per-element extraction fallback path.
type ProductSpec struct {
	ItemSelectors    []string `yaml:"item_selectors"`
	NameSelectors    []string `yaml:"name_selectors"`
	PriceContainer   string   `yaml:"price_container"`
	SaleCurrent      string   `yaml:"sale_current"`
	SaleOriginal     string   `yaml:"sale_original"`
	RegularPrice     string   `yaml:"regular_price"`
	StruckWrapper    string   `yaml:"struck_wrapper"`
	FallbackPrices   []string `yaml:"fallback_prices"`
	CategorySelector string   `yaml:"category_selector"`
	AddToCart        string   `yaml:"add_to_cart"`
	SKUAttributes    []string `yaml:"sku_attributes"`
	QuantityAttr     string   `yaml:"quantity_attribute"`
	IDClassPattern   string   `yaml:"id_class_pattern"`
	IDAttribute      string   `yaml:"id_attribute"`
	DataPrefix       string   `yaml:"data_prefix"`
}

// ListSpec drives list-name resolution and click delegation.
type ListSpec struct {
	WidgetSelector   string   `yaml:"widget_selector"`
	WidgetScope      string   `yaml:"widget_scope"`
	HeadingSelectors []string `yaml:"heading_selectors"`
	ProductScope     string   `yaml:"product_scope"`
	ExcludeClicks    string   `yaml:"exclude_clicks"`
}

// SingleSpec drives single-product-page extraction.
type SingleSpec struct {
	TitleSelectors   []string `yaml:"title_selectors"`
	SKUSelector      string   `yaml:"sku_selector"`
	PriceContainer   string   `yaml:"price_container"`
	CategorySelector string   `yaml:"category_selector"`
	BodyIDPattern    string   `yaml:"body_id_pattern"`
	FormSelector     string   `yaml:"form_selector"`
	SubmitButton     string   `yaml:"submit_button"`
	QuantityInput    string   `yaml:"quantity_input"`
}

// CartSpec drives the remove-from-cart row scrape.
type CartSpec struct {
	RemoveControl string `yaml:"remove_control"`
	Row           string `yaml:"row"`
	Name          string `yaml:"name"`
	PriceCell     string `yaml:"price_cell"`
	QuantityInput string `yaml:"quantity_input"`
}

// CheckoutSpec drives payment and shipping selection tracking.
type CheckoutSpec struct {
	PaymentInput       string `yaml:"payment_input"`
	PaymentLabelFormat string `yaml:"payment_label_format"`
	ShippingInput      string `yaml:"shipping_input"`
	ShippingRow        string `yaml:"shipping_row"`
	ShippingLabel      string `yaml:"shipping_label"`
}

// Profile is one versioned set of builder conventions.
type Profile struct {
	Version    int             `yaml:"version"`
	Containers []ContainerSpec `yaml:"containers"`
	Product    ProductSpec     `yaml:"product"`
	List       ListSpec        `yaml:"list"`
	Single     SingleSpec      `yaml:"single_product"`
	Cart       CartSpec        `yaml:"cart"`
	Checkout   CheckoutSpec    `yaml:"checkout"`
	Mutations  []string        `yaml:"mutations"`
}

// Parse decodes and validates a profile.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode selector profile: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load reads a profile from disk.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selector profile: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded profile covering the WooCommerce, Elementor
// and Kitify conventions.
func Default() *Profile {
	p, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded selector profile invalid: %v", err))
	}
	return p
}

func (p *Profile) validate() error {
	if len(p.Containers) == 0 {
		return fmt.Errorf("selector profile: no containers defined")
	}
	for _, c := range p.Containers {
		if c.Type == "" || c.Selector == "" || c.ChildSelector == "" {
			return fmt.Errorf("selector profile: container %q incomplete", c.Type)
		}
		for _, sel := range []string{c.Selector, c.ChildSelector} {
			if _, err := cascadia.Compile(sel); err != nil {
				return fmt.Errorf("selector profile: container %q selector %q: %w", c.Type, sel, err)
			}
		}
	}
	for _, sel := range p.Mutations {
		if _, err := cascadia.Compile(sel); err != nil {
			return fmt.Errorf("selector profile: mutation selector %q: %w", sel, err)
		}
	}
	if p.Product.IDClassPattern != "" {
		if _, err := regexp.Compile(p.Product.IDClassPattern); err != nil {
			return fmt.Errorf("selector profile: id_class_pattern: %w", err)
		}
	}
	if p.Single.BodyIDPattern != "" {
		if _, err := regexp.Compile(p.Single.BodyIDPattern); err != nil {
			return fmt.Errorf("selector profile: body_id_pattern: %w", err)
		}
	}
	return nil
}

// ContainerSelectors returns the ordered selector union used for detection.
func (p *Profile) ContainerSelectors() []string {
	out := make([]string, 0, len(p.Containers))
	for _, c := range p.Containers {
		out = append(out, c.Selector)
	}
	return out
}
