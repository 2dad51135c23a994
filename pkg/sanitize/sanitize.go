// Package sanitize normalizes the strings and numbers that end up inside
// event payloads. Everything here is pure; bad input degrades to a safe
// default instead of an error.
package sanitize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	kg "github.com/kennygrant/sanitize"
	"github.com/shopspring/decimal"

	"tracker-base/pkg/models"
)

const (
	maxNameLen  = 500
	maxLabelLen = 200
)

var (
	currencyRe   = regexp.MustCompile(`^[A-Z]{3}$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	nonNumericRe = regexp.MustCompile(`[^0-9.]`)
	nonDigitRe   = regexp.MustCompile(`[^0-9]`)
	keyRe        = regexp.MustCompile(`[^a-z0-9_-]`)
)

// Text strips markup, collapses whitespace and truncates to max runes.
func Text(s string, max int) string {
	s = kg.HTML(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > max {
		s = string(r[:max])
	}
	return s
}

// String is Text with the product-name limit of 500 characters.
func String(s string) string {
	return Text(s, maxNameLen)
}

// Label is Text with the shorter limit used for payment and shipping titles.
func Label(s string) string {
	return Text(s, maxLabelLen)
}

// Number coerces arbitrary price text to a fixed two-decimal string. All
// non-numeric characters are stripped first; anything unparseable becomes
// "0.00".
func Number(raw string) string {
	cleaned := nonNumericRe.ReplaceAllString(raw, "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

// Amount formats a float as a fixed two-decimal string.
func Amount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// LineValue multiplies a sanitized price by a quantity, two decimals fixed.
func LineValue(price string, quantity int) string {
	d, err := decimal.NewFromString(price)
	if err != nil {
		return "0.00"
	}
	if quantity < 1 {
		quantity = 1
	}
	return d.Mul(decimal.NewFromInt(int64(quantity))).StringFixed(2)
}

// Discount computes discount and discount percentage from a sale price and
// the original price. ok is false unless original > price, in which case
// nothing should be attached to the record.
func Discount(price, original string) (amount, percentage string, ok bool) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return "", "", false
	}
	o, err := decimal.NewFromString(original)
	if err != nil {
		return "", "", false
	}
	if !o.GreaterThan(p) || !o.IsPositive() {
		return "", "", false
	}
	diff := o.Sub(p)
	pct := diff.Div(o).Mul(decimal.NewFromInt(100)).Round(2)
	return diff.StringFixed(2), pct.StringFixed(2), true
}

// ApplyDiscount fills the discount fields of an on-sale record in place.
func ApplyDiscount(rec *models.ProductRecord) {
	if rec == nil || !rec.ItemOnSale {
		return
	}
	if amount, pct, ok := Discount(rec.Price, rec.ItemOriginalPrice); ok {
		rec.Discount = amount
		rec.DiscountPercentage = pct
	}
}

// Currency validates an ISO-4217 code, defaulting to USD.
func Currency(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if currencyRe.MatchString(s) {
		return s
	}
	return "USD"
}

// Quantity parses a quantity field, defaulting to 1.
func Quantity(raw string) int {
	cleaned := nonDigitRe.ReplaceAllString(raw, "")
	n, err := strconv.Atoi(cleaned)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Key lowercases and strips everything outside [a-z0-9_-], the shape
// expected for list and method identifiers.
func Key(s string) string {
	return keyRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "")
}

// Date normalizes a date string to YYYY-MM-DD, or empty when unparseable.
func Date(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// UserStatus restricts the user status to the known set.
func UserStatus(s string) string {
	switch s {
	case models.UserRegistered, models.UserCustomer:
		return s
	default:
		return models.UserGuest
	}
}
