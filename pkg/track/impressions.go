package track

import (
	"github.com/PuerkitoBio/goquery"

	"tracker-base/pkg/dom"
	"tracker-base/pkg/selectors"
)

// observeImpressions registers a threshold-gated intersection watch on each
// product element of a freshly tracked container. An element's watch fires
// once and unregisters itself; scrolling the element back into view does
// not re-fire.
func observeImpressions(ctx *Context, container *goquery.Selection, spec selectors.ContainerSpec) {
	container.ChildrenFiltered(spec.ChildSelector).Each(func(_ int, el *goquery.Selection) {
		var obs *dom.Observation
		obs = ctx.Doc.ObserveIntersection(el, ctx.Config.ImpressionThreshold, func(entry dom.IntersectionEntry) {
			if rec := ctx.Extractor.Extract(entry.Target); rec != nil {
				ctx.countImpression()
				ctx.Log.Debug().
					Str("item", rec.ItemName).
					Bool("on_sale", rec.ItemOnSale).
					Float64("ratio", entry.Ratio).
					Msg("product impression")
			}
			obs.Unobserve()
		})
	})
}
