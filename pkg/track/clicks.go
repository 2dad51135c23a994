package track

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"tracker-base/pkg/dom"
	"tracker-base/pkg/models"
	"tracker-base/pkg/sanitize"
)

// bindSelectItem delegates clicks inside a tracked container to select_item
// emissions carrying the container's list identity. Clicks on add-to-cart
// and other button controls are left to their own trackers.
func bindSelectItem(ctx *Context, container *goquery.Selection, listID, listName string) {
	containerNode := container.Nodes[0]

	sub := ctx.Doc.Listen(dom.EventClick, func(ev dom.Event) {
		if ev.Target.Closest(ctx.Profile.List.ExcludeClicks).Length() > 0 {
			return
		}
		item := ev.Target.Closest(ctx.Profile.List.ProductScope)
		if item.Length() == 0 || !within(item.Nodes[0], containerNode) {
			return
		}
		rec := ctx.Extractor.Extract(item)
		if rec == nil || rec.ItemID == "" {
			return
		}
		ctx.Emitter.Emit(models.EventSelectItem, models.EventEnvelope{
			Ecommerce: &models.Ecommerce{
				ItemListID:   listID,
				ItemListName: listName,
				Items:        []*models.ProductRecord{rec},
			},
		}, true)
	})
	ctx.addSub(sub)
}

// bindAddToCart handles clicks on listing add-to-cart controls, quantity
// aware.
func bindAddToCart(ctx *Context) {
	sub := ctx.Doc.Listen(dom.EventClick, func(ev dom.Event) {
		btn := ev.Target.Closest(ctx.Profile.Product.AddToCart)
		if btn.Length() == 0 {
			return
		}
		rec := ctx.Extractor.Extract(btn)
		if rec == nil {
			return
		}
		qty := ctx.Extractor.Quantity(btn)
		rec.Quantity = qty
		ctx.Emitter.Emit(models.EventAddToCart, models.EventEnvelope{
			Ecommerce: &models.Ecommerce{
				Currency: ctx.Currency(),
				Value:    sanitize.LineValue(rec.Price, qty),
				Items:    []*models.ProductRecord{rec},
			},
		}, true)
	})
	ctx.addSub(sub)
}

// bindSingleAddToCart handles the product-detail form submit. The
// server-provided record wins over DOM extraction.
func bindSingleAddToCart(ctx *Context, single *models.ProductRecord) {
	spec := ctx.Profile.Single
	sub := ctx.Doc.Listen(dom.EventClick, func(ev dom.Event) {
		btn := ev.Target.Closest(spec.SubmitButton)
		if btn.Length() == 0 {
			return
		}
		form := btn.Closest(spec.FormSelector)
		if form.Length() == 0 {
			return
		}

		rec := single.Clone()
		if rec == nil {
			rec = ctx.Extractor.SingleProduct()
		}
		if rec == nil {
			return
		}

		qty := sanitize.Quantity(form.Find(spec.QuantityInput).First().AttrOr("value", ""))
		rec.Quantity = qty
		ctx.Emitter.Emit(models.EventAddToCart, models.EventEnvelope{
			Ecommerce: &models.Ecommerce{
				Currency: ctx.Currency(),
				Value:    sanitize.LineValue(rec.Price, qty),
				Items:    []*models.ProductRecord{rec},
			},
		}, true)
	})
	ctx.addSub(sub)
}

func within(node, ancestor *html.Node) bool {
	for p := node; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}
