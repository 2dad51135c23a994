package dom

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Observation is the handle for one element's intersection watch.
type Observation struct {
	doc  *Document
	node *html.Node
	id   int
}

// Unobserve cancels the watch. The impression tracker calls this from
// inside its own callback to get one-shot semantics.
func (o *Observation) Unobserve() {
	if o == nil {
		return
	}
	o.doc.mu.Lock()
	if watches, ok := o.doc.intersections[o.node]; ok {
		delete(watches, o.id)
		if len(watches) == 0 {
			delete(o.doc.intersections, o.node)
		}
	}
	o.doc.mu.Unlock()
}

// ObserveIntersection watches the first element of target. fn fires whenever
// SetVisibility reports a ratio at or above threshold; it keeps firing until
// the observation is cancelled.
func (d *Document) ObserveIntersection(target *goquery.Selection, threshold float64, fn func(IntersectionEntry)) *Observation {
	if target.Length() == 0 {
		return nil
	}
	node := target.Nodes[0]
	d.mu.Lock()
	id := d.nextSubID
	d.nextSubID++
	if d.intersections[node] == nil {
		d.intersections[node] = map[int]*intersectionWatch{}
	}
	d.intersections[node][id] = &intersectionWatch{threshold: threshold, fn: fn}
	d.mu.Unlock()
	return &Observation{doc: d, node: node, id: id}
}

// SetVisibility reports the viewport visibility ratio for every element of
// target, as the harness observes the user scrolling.
func (d *Document) SetVisibility(target *goquery.Selection, ratio float64) {
	for _, node := range target.Nodes {
		d.mu.Lock()
		watches := make([]*intersectionWatch, 0, len(d.intersections[node]))
		for _, w := range d.intersections[node] {
			watches = append(watches, w)
		}
		d.mu.Unlock()

		for _, w := range watches {
			if ratio >= w.threshold {
				w.fn(IntersectionEntry{Target: d.SelectionOf(node), Ratio: ratio})
			}
		}
	}
}
