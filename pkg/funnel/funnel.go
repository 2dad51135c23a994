// Package funnel covers the checkout journey: cart views, the single
// product view, payment and shipping selection, cart-line removal and the
// final purchase. Everything here writes through the same emitter the list
// trackers use.
package funnel

import (
	"strings"

	"github.com/shopspring/decimal"

	"tracker-base/pkg/models"
	"tracker-base/pkg/sanitize"
	"tracker-base/pkg/track"
)

// ViewCart emits view_cart for a rendered cart page. Empty carts emit
// nothing.
func ViewCart(ctx *track.Context, cart *models.CartSnapshot) {
	emitCartEvent(ctx, models.EventViewCart, cart)
}

// BeginCheckout emits begin_checkout when the checkout page renders.
func BeginCheckout(ctx *track.Context, cart *models.CartSnapshot) {
	emitCartEvent(ctx, models.EventBeginCheckout, cart)
}

func emitCartEvent(ctx *track.Context, event string, cart *models.CartSnapshot) {
	if cart.Empty() {
		ctx.Log.Debug().Str("event", event).Msg("cart empty, nothing to emit")
		return
	}
	items := cart.Records()
	if len(items) == 0 {
		return
	}
	ctx.Emitter.Emit(event, models.EventEnvelope{
		Ecommerce: &models.Ecommerce{
			Currency: ctx.Currency(),
			Value:    sanitize.Amount(cart.Total),
			Items:    items,
		},
		PageType: ctx.Snapshot.PageType,
	}, true)
}

// ViewItem emits view_item on a product detail page. The server-resolved
// record wins; extraction from the rendered markup is the fallback.
func ViewItem(ctx *track.Context, single *models.ProductRecord) {
	rec := single.Clone()
	if rec == nil {
		rec = ctx.Extractor.SingleProduct()
	}
	if rec == nil || !rec.HasIdentity() {
		ctx.Log.Debug().Msg("no product resolvable on detail page")
		return
	}
	if rec.Quantity == 0 {
		rec.Quantity = 1
	}
	ctx.Emitter.Emit(models.EventViewItem, models.EventEnvelope{
		Ecommerce: &models.Ecommerce{
			Currency: ctx.Currency(),
			Value:    sanitize.LineValue(rec.Price, rec.Quantity),
			Items:    []*models.ProductRecord{rec},
		},
		PageType: ctx.Snapshot.PageType,
	}, true)
}

// saleDiscountTotal sums per-line sale discounts across order items. Empty
// when no line carries a discount, so the field stays off the payload.
func saleDiscountTotal(items []*models.ProductRecord) string {
	sum := decimal.Zero
	for _, rec := range items {
		if rec.Discount == "" {
			continue
		}
		d, err := decimal.NewFromString(rec.Discount)
		if err != nil {
			continue
		}
		qty := rec.Quantity
		if qty < 1 {
			qty = 1
		}
		sum = sum.Add(d.Mul(decimal.NewFromInt(int64(qty))))
	}
	if !sum.IsPositive() {
		return ""
	}
	return sum.StringFixed(2)
}

func joinCoupons(coupons []string) string {
	parts := make([]string, 0, len(coupons))
	for _, c := range coupons {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, sanitize.Label(c))
		}
	}
	return strings.Join(parts, ",")
}
