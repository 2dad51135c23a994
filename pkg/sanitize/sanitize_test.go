package sanitize

import (
	"strings"
	"testing"

	"tracker-base/pkg/models"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"19.99", "19.99"},
		{"$19.99", "19.99"},
		{"1 299,00 €", "129900.00"},
		{"  14.5 ", "14.50"},
		{"free", "0.00"},
		{"", "0.00"},
		{"12.345", "12.35"},
	}
	for _, tt := range tests {
		if got := Number(tt.in); got != tt.want {
			t.Errorf("Number(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestString(t *testing.T) {
	got := String("<b>Fancy   Lamp</b> &amp; Shade")
	if strings.Contains(got, "<") {
		t.Errorf("markup not stripped: %q", got)
	}
	if !strings.HasPrefix(got, "Fancy Lamp") {
		t.Errorf("whitespace not collapsed: %q", got)
	}

	long := strings.Repeat("x", 600)
	if got := String(long); len(got) != 500 {
		t.Errorf("expected truncation to 500, got %d", len(got))
	}
}

func TestDiscount(t *testing.T) {
	amount, pct, ok := Discount("14.99", "19.99")
	if !ok {
		t.Fatal("expected discount for 14.99 vs 19.99")
	}
	if amount != "5.00" {
		t.Errorf("discount = %q, want 5.00", amount)
	}
	if pct != "25.01" {
		t.Errorf("discount_percentage = %q, want 25.01", pct)
	}

	if _, _, ok := Discount("19.99", "19.99"); ok {
		t.Error("equal prices must not produce a discount")
	}
	if _, _, ok := Discount("19.99", "14.99"); ok {
		t.Error("original below current must not produce a discount")
	}
	if _, _, ok := Discount("0.00", "0.00"); ok {
		t.Error("zero original must not produce a discount")
	}
}

func TestApplyDiscount(t *testing.T) {
	rec := &models.ProductRecord{Price: "15.00", ItemOriginalPrice: "20.00", ItemOnSale: true}
	ApplyDiscount(rec)
	if rec.Discount != "5.00" || rec.DiscountPercentage != "25.00" {
		t.Errorf("got discount=%q pct=%q", rec.Discount, rec.DiscountPercentage)
	}

	offSale := &models.ProductRecord{Price: "15.00", ItemOriginalPrice: "20.00"}
	ApplyDiscount(offSale)
	if offSale.Discount != "" {
		t.Error("off-sale record must not get a discount")
	}
}

func TestCurrency(t *testing.T) {
	tests := []struct{ in, want string }{
		{"eur", "EUR"},
		{" USD ", "USD"},
		{"EURO", "USD"},
		{"", "USD"},
	}
	for _, tt := range tests {
		if got := Currency(tt.in); got != tt.want {
			t.Errorf("Currency(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuantityAndKey(t *testing.T) {
	if got := Quantity("3"); got != 3 {
		t.Errorf("Quantity(3) = %d", got)
	}
	if got := Quantity("abc"); got != 1 {
		t.Errorf("Quantity(abc) = %d, want 1", got)
	}
	if got := Quantity("0"); got != 1 {
		t.Errorf("Quantity(0) = %d, want 1", got)
	}
	if got := Key("Cash On Delivery!"); got != "cashondelivery" {
		t.Errorf("Key = %q", got)
	}
}

func TestLineValue(t *testing.T) {
	if got := LineValue("14.99", 2); got != "29.98" {
		t.Errorf("LineValue = %q", got)
	}
	if got := LineValue("bad", 2); got != "0.00" {
		t.Errorf("LineValue(bad) = %q", got)
	}
}
