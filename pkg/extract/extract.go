// Package extract resolves canonical product records from page elements.
// The fast path reads the data attributes the storefront renderer stamps
// onto add-to-cart controls; the fallback path scrapes the surrounding
// markup using the active selector profile. Extraction is a pure read of
// the tree and never fails loudly: an element that yields no identity
// signal is simply reported as nil.
package extract

import (
	"regexp"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"tracker-base/pkg/dom"
	"tracker-base/pkg/models"
	"tracker-base/pkg/sanitize"
	"tracker-base/pkg/selectors"
)

const unknownName = "Unknown Product"

// Extractor memoizes per-element results in a node-keyed side table. The
// table is pruned when the document reports node removals, so entries never
// outlive their elements.
type Extractor struct {
	doc     *dom.Document
	profile *selectors.Profile
	brand   string

	idClassRe *regexp.Regexp
	bodyIDRe  *regexp.Regexp

	mu    sync.Mutex
	cache map[*html.Node]*models.ProductRecord
	sub   *dom.Subscription
}

// New builds an extractor bound to a document and selector profile. brand
// is the site name stamped as item_brand where the renderer would.
func New(doc *dom.Document, profile *selectors.Profile, brand string) *Extractor {
	e := &Extractor{
		doc:     doc,
		profile: profile,
		brand:   brand,
		cache:   map[*html.Node]*models.ProductRecord{},
	}
	if profile.Product.IDClassPattern != "" {
		e.idClassRe = regexp.MustCompile(profile.Product.IDClassPattern)
	}
	if profile.Single.BodyIDPattern != "" {
		e.bodyIDRe = regexp.MustCompile(profile.Single.BodyIDPattern)
	}
	e.sub = doc.OnRemoval(e.prune)
	return e
}

// Close cancels the removal subscription.
func (e *Extractor) Close() {
	e.sub.Cancel()
}

// Extract resolves the product record for an element, consulting the memo
// table first. Returns nil when no identity signal exists.
func (e *Extractor) Extract(el *goquery.Selection) *models.ProductRecord {
	if el == nil || el.Length() == 0 {
		return nil
	}
	key := el.Nodes[0]

	e.mu.Lock()
	if rec, ok := e.cache[key]; ok {
		e.mu.Unlock()
		return rec.Clone()
	}
	e.mu.Unlock()

	rec := e.extract(el)
	if rec != nil {
		e.mu.Lock()
		e.cache[key] = rec
		e.mu.Unlock()
		return rec.Clone()
	}
	return nil
}

// Invalidate drops the memoized record for an element, forcing a re-read on
// the next Extract.
func (e *Extractor) Invalidate(el *goquery.Selection) {
	if el == nil || el.Length() == 0 {
		return
	}
	e.mu.Lock()
	delete(e.cache, el.Nodes[0])
	e.mu.Unlock()
}

// CacheSize reports the number of memoized entries.
func (e *Extractor) CacheSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

// Quantity reads the quantity attribute off an add-to-cart control.
func (e *Extractor) Quantity(el *goquery.Selection) int {
	return sanitize.Quantity(el.AttrOr(e.profile.Product.QuantityAttr, ""))
}

func (e *Extractor) extract(el *goquery.Selection) *models.ProductRecord {
	if _, ok := el.Attr(e.attr("id")); ok {
		return e.fromDataAttributes(el)
	}
	return e.fromMarkup(el)
}

func (e *Extractor) attr(suffix string) string {
	return e.profile.Product.DataPrefix + suffix
}

func (e *Extractor) fromDataAttributes(el *goquery.Selection) *models.ProductRecord {
	rec := &models.ProductRecord{
		ItemID:            sanitize.String(el.AttrOr(e.attr("id"), "")),
		ItemName:          sanitize.String(el.AttrOr(e.attr("name"), "")),
		Price:             sanitize.Number(el.AttrOr(e.attr("price"), "")),
		ItemOriginalPrice: sanitize.Number(el.AttrOr(e.attr("original-price"), "")),
		ItemOnSale:        el.AttrOr(e.attr("on-sale"), "") == "true",
		ItemCategory:      sanitize.String(el.AttrOr(e.attr("category"), "")),
	}
	if !rec.HasIdentity() {
		return nil
	}
	sanitize.ApplyDiscount(rec)
	return rec
}

func (e *Extractor) fromMarkup(el *goquery.Selection) *models.ProductRecord {
	item := e.closestItem(el)
	if item == nil {
		return nil
	}

	productID := ""
	if e.idClassRe != nil {
		if m := e.idClassRe.FindStringSubmatch(item.AttrOr("class", "")); m != nil {
			productID = m[1]
		}
	}
	if productID == "" {
		productID = item.AttrOr(e.profile.Product.IDAttribute, "")
	}

	name := ""
	for _, sel := range e.profile.Product.NameSelectors {
		if text := item.Find(sel).First().Text(); sanitize.String(text) != "" {
			name = sanitize.String(text)
			break
		}
	}

	price, original, onSale := e.resolvePrice(item)
	category := sanitize.String(item.Find(e.profile.Product.CategorySelector).First().Text())

	sku := productID
	if btn := item.Find(e.profile.Product.AddToCart).First(); btn.Length() > 0 {
		for _, attr := range e.profile.Product.SKUAttributes {
			if v, ok := btn.Attr(attr); ok && v != "" {
				sku = v
				break
			}
		}
	}

	if productID == "" && name == "" {
		return nil
	}

	itemID := sku
	if itemID == "" {
		itemID = productID
	}
	if name == "" {
		name = unknownName
	}

	rec := &models.ProductRecord{
		ItemID:            sanitize.String(itemID),
		ItemName:          name,
		Price:             price,
		ItemOriginalPrice: original,
		ItemOnSale:        onSale,
		ItemCategory:      category,
	}
	sanitize.ApplyDiscount(rec)
	return rec
}

// resolvePrice looks for the sale pair first (struck former price plus
// current price); failing that a single regular amount outside the struck
// wrapper; failing that the generic fallbacks, stopping at the first
// non-zero hit.
func (e *Extractor) resolvePrice(item *goquery.Selection) (price, original string, onSale bool) {
	price, original = "0.00", "0.00"
	p := e.profile.Product

	if container := item.Find(p.PriceContainer).First(); container.Length() > 0 {
		saleCur := container.Find(p.SaleCurrent).First()
		saleOrig := container.Find(p.SaleOriginal).First()
		if saleCur.Length() > 0 && saleOrig.Length() > 0 {
			return sanitize.Number(saleCur.Text()), sanitize.Number(saleOrig.Text()), true
		}
		regular := container.Find(p.RegularPrice).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.Closest(p.StruckWrapper).Length() == 0
		}).First()
		if regular.Length() > 0 {
			price = sanitize.Number(regular.Text())
			original = price
		}
	}

	if price == "0.00" {
		for _, sel := range p.FallbackPrices {
			node := item.Find(sel).First()
			if node.Length() == 0 {
				continue
			}
			price = sanitize.Number(node.Text())
			original = price
			if price != "0.00" {
				break
			}
		}
	}
	return price, original, false
}

func (e *Extractor) closestItem(el *goquery.Selection) *goquery.Selection {
	for _, sel := range e.profile.Product.ItemSelectors {
		if item := el.Closest(sel); item.Length() > 0 {
			return item
		}
	}
	return nil
}

// SingleProduct extracts the record for a product-detail page from the page
// itself. The server-provided single-product snapshot, when present, is
// authoritative over this.
func (e *Extractor) SingleProduct() *models.ProductRecord {
	s := e.profile.Single

	name := ""
	for _, sel := range s.TitleSelectors {
		if text := sanitize.String(e.doc.Find(sel).First().Text()); text != "" {
			name = text
			break
		}
	}

	productID := ""
	if e.bodyIDRe != nil {
		if m := e.bodyIDRe.FindStringSubmatch(e.doc.Body().AttrOr("class", "")); m != nil {
			productID = m[1]
		}
	}

	sku := sanitize.String(e.doc.Find(s.SKUSelector).First().Text())

	price, original, onSale := "0.00", "0.00", false
	if container := e.doc.Find(s.PriceContainer).First(); container.Length() > 0 {
		p := e.profile.Product
		saleCur := container.Find(p.SaleCurrent).First()
		saleOrig := container.Find(p.SaleOriginal).First()
		if saleCur.Length() > 0 && saleOrig.Length() > 0 {
			onSale = true
			price = sanitize.Number(saleCur.Text())
			original = sanitize.Number(saleOrig.Text())
		} else if regular := container.Find(p.RegularPrice).First(); regular.Length() > 0 {
			price = sanitize.Number(regular.Text())
			original = price
		}
	}

	category := sanitize.String(e.doc.Find(s.CategorySelector).First().Text())

	if productID == "" && name == "" {
		return nil
	}

	itemID := sku
	if itemID == "" {
		itemID = productID
	}
	if name == "" {
		name = unknownName
	}

	rec := &models.ProductRecord{
		ItemID:            sanitize.String(itemID),
		ItemName:          name,
		ItemBrand:         sanitize.String(e.brand),
		Price:             price,
		ItemOriginalPrice: original,
		ItemOnSale:        onSale,
		ItemCategory:      category,
	}
	sanitize.ApplyDiscount(rec)
	return rec
}

func (e *Extractor) prune(removed []*html.Node) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, root := range removed {
		pruneSubtree(e.cache, root)
	}
}

func pruneSubtree(cache map[*html.Node]*models.ProductRecord, n *html.Node) {
	delete(cache, n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		pruneSubtree(cache, c)
	}
}
