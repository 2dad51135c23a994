package funnel

import (
	"github.com/PuerkitoBio/goquery"

	"tracker-base/pkg/dom"
	"tracker-base/pkg/models"
	"tracker-base/pkg/sanitize"
	"tracker-base/pkg/track"
)

// BindRemoveFromCart delegates clicks on cart-row remove controls to
// remove_from_cart emissions. The row is scraped synchronously in the click
// handler, before the storefront detaches it.
func BindRemoveFromCart(ctx *track.Context) *dom.Subscription {
	spec := ctx.Profile.Cart
	return ctx.Doc.Listen(dom.EventClick, func(ev dom.Event) {
		control := ev.Target.Closest(spec.RemoveControl)
		if control.Length() == 0 {
			return
		}
		row := control.Closest(spec.Row)
		if row.Length() == 0 {
			return
		}

		rec := scrapeCartRow(ctx, control, row)
		if rec == nil {
			return
		}
		ctx.Emitter.Emit(models.EventRemoveFromCart, models.EventEnvelope{
			Ecommerce: &models.Ecommerce{
				Currency: ctx.Currency(),
				Value:    sanitize.LineValue(rec.Price, rec.Quantity),
				Items:    []*models.ProductRecord{rec},
			},
			PageType: ctx.Snapshot.PageType,
		}, true)
	})
}

func scrapeCartRow(ctx *track.Context, control, row *goquery.Selection) *models.ProductRecord {
	spec := ctx.Profile.Cart

	rec := &models.ProductRecord{
		ItemID:   removeControlID(ctx, control),
		ItemName: sanitize.String(row.Find(spec.Name).First().Text()),
		Quantity: sanitize.Quantity(row.Find(spec.QuantityInput).First().AttrOr("value", "")),
	}

	cell := row.Find(spec.PriceCell).First()
	if sale := cell.Find(ctx.Profile.Product.SaleCurrent).First(); sale.Length() > 0 {
		rec.Price = sanitize.Number(sale.Text())
		rec.ItemOriginalPrice = sanitize.Number(cell.Find(ctx.Profile.Product.SaleOriginal).First().Text())
		rec.ItemOnSale = true
		sanitize.ApplyDiscount(rec)
	} else {
		rec.Price = sanitize.Number(cell.Text())
		rec.ItemOriginalPrice = rec.Price
	}

	if !rec.HasIdentity() {
		return nil
	}
	return rec
}

// removeControlID reads the product identity the storefront stamps on the
// remove link.
func removeControlID(ctx *track.Context, control *goquery.Selection) string {
	if id, ok := control.Attr("data-product_id"); ok && id != "" {
		return id
	}
	for _, attr := range ctx.Profile.Product.SKUAttributes {
		if id, ok := control.Attr(attr); ok && id != "" {
			return id
		}
	}
	return ""
}
