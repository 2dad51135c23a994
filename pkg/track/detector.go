package track

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"tracker-base/pkg/models"
	"tracker-base/pkg/sanitize"
	"tracker-base/pkg/selectors"
)

// Detector scans the document for product-list containers. Detection is
// idempotent: a container is handed to the pipeline exactly once per page
// session, no matter how many passes run. Content changes inside an
// already-tracked container are deliberately not re-emitted as new list
// views.
type Detector struct {
	ctx *Context
}

// NewDetector builds a detector on a context.
func NewDetector(ctx *Context) *Detector {
	return &Detector{ctx: ctx}
}

// Detect runs one detection pass over the whole document. Called on init,
// after mutation bursts settle, and on builder content-updated signals.
func (d *Detector) Detect() {
	for _, spec := range d.ctx.Profile.Containers {
		spec := spec
		d.ctx.Doc.Find(spec.Selector).Each(func(_ int, container *goquery.Selection) {
			if d.ctx.IsTracked(container.Nodes[0]) {
				return
			}
			d.trackContainer(container, spec)
		})
	}
}

func (d *Detector) trackContainer(container *goquery.Selection, spec selectors.ContainerSpec) {
	items := d.containerProducts(container, spec)
	// Containers with no resolvable products stay undiscovered so a later
	// pass can pick them up once content arrives.
	if len(items) == 0 {
		return
	}

	widgetID := d.widgetID(container)
	listName := d.listName(container, spec)
	listID := d.listID(spec, widgetID)

	d.ctx.MarkTracked(container.Nodes[0])

	eventName := models.ListViewEventName(d.ctx.Snapshot.PageType)
	d.ctx.Emitter.Emit(eventName, models.EventEnvelope{
		Ecommerce: &models.Ecommerce{
			ItemListID:   listID,
			ItemListName: listName,
			Items:        items,
		},
		ContainerType: spec.Type,
		WidgetID:      widgetID,
		PageType:      d.ctx.Snapshot.PageType,
	}, false)

	if d.ctx.Config.AutoTrackImpressions {
		observeImpressions(d.ctx, container, spec)
	}
	bindSelectItem(d.ctx, container, listID, listName)
}

// containerProducts extracts the container's direct product children,
// deduplicated by item_id (first occurrence wins) with indices assigned in
// DOM order after the dedup.
func (d *Detector) containerProducts(container *goquery.Selection, spec selectors.ContainerSpec) []*models.ProductRecord {
	seen := map[string]struct{}{}
	var items []*models.ProductRecord

	container.ChildrenFiltered(spec.ChildSelector).Each(func(_ int, el *goquery.Selection) {
		rec := d.ctx.Extractor.Extract(el)
		if rec == nil || rec.ItemID == "" {
			return
		}
		if _, dup := seen[rec.ItemID]; dup {
			return
		}
		seen[rec.ItemID] = struct{}{}
		items = append(items, rec)
	})

	for i, rec := range items {
		rec.Index = i + 1
	}
	return items
}

// listName resolves the human label by priority: page-type override,
// nearest non-product heading in the enclosing widget, page-type fallback,
// container-type fallback.
func (d *Detector) listName(container *goquery.Selection, spec selectors.ContainerSpec) string {
	snap := d.ctx.Snapshot

	if snap.PageType == models.PageShop {
		return "Shop"
	}
	if snap.PageType == models.PageCategory && snap.CategoryName != "" {
		return sanitize.String(snap.CategoryName)
	}

	if name := d.widgetHeading(container); name != "" {
		return name
	}

	switch snap.PageType {
	case models.PageProduct:
		return "Related Products"
	case models.PageCart:
		return "Cart Recommendations"
	case models.PageCheckout:
		return "Checkout Recommendations"
	}

	if spec.FallbackName != "" {
		return spec.FallbackName
	}
	return "Product List"
}

// widgetHeading finds a section heading in the enclosing widget that is not
// itself a product title.
func (d *Detector) widgetHeading(container *goquery.Selection) string {
	scope := container.Closest(d.ctx.Profile.List.WidgetScope)
	if scope.Length() == 0 {
		return ""
	}
	productScope := d.ctx.Profile.List.ProductScope
	for _, sel := range d.ctx.Profile.List.HeadingSelectors {
		heading := scope.Find(sel).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.Closest(productScope).Length() == 0
		}).First()
		if heading.Length() == 0 {
			continue
		}
		if text := sanitize.String(heading.Text()); text != "" {
			return text
		}
	}
	return ""
}

func (d *Detector) listID(spec selectors.ContainerSpec, widgetID string) string {
	snap := d.ctx.Snapshot
	if snap.PageType == models.PageCategory && snap.CategoryID > 0 {
		return "category_" + strconv.Itoa(snap.CategoryID)
	}
	if snap.PageType == models.PageShop {
		return "shop_page"
	}
	return sanitize.Key(spec.ListIDPrefix + "_" + widgetID)
}

// widgetID resolves a stable id for the enclosing widget, falling back to a
// random one when the markup carries none.
func (d *Detector) widgetID(container *goquery.Selection) string {
	widget := container.Closest(d.ctx.Profile.List.WidgetSelector)
	prefix := "container"
	if widget.Length() > 0 {
		prefix = "widget"
		if id, ok := widget.Attr("data-id"); ok && id != "" {
			return id
		}
		if id, ok := widget.Attr("id"); ok && id != "" {
			return id
		}
	}
	return prefix + "_" + uuid.NewString()[:8]
}
