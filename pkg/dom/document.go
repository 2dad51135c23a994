// Package dom models the rendered storefront page. It wraps a parsed HTML
// tree with the three signals a browser would otherwise provide: subtree
// mutations, user events (click/change), and viewport intersection. All
// signals are explicit subscription registrations returning cancellation
// handles; callbacks run one at a time on the caller's goroutine.
package dom

import (
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"tracker-base/pkg/models"
)

// Document is a live page tree. Methods are not safe for concurrent use;
// the engine serializes callback turns the way a browser event loop does.
type Document struct {
	doc *goquery.Document

	mu            sync.Mutex
	nextSubID     int
	mutationSubs  map[int]func(added []*goquery.Selection)
	removalSubs   map[int]func(removed []*html.Node)
	listeners     map[string]map[int]func(Event)
	intersections map[*html.Node]map[int]*intersectionWatch
}

type intersectionWatch struct {
	threshold float64
	fn        func(IntersectionEntry)
}

// Event is a dispatched user interaction.
type Event struct {
	Type   string
	Target *goquery.Selection
}

// IntersectionEntry reports an element crossing a visibility threshold.
type IntersectionEntry struct {
	Target *goquery.Selection
	Ratio  float64
}

// Subscription is a cancellation handle for a registered callback.
type Subscription struct {
	cancel func()
	once   sync.Once
}

// Cancel unregisters the callback. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Parse builds a Document from page markup.
func Parse(r io.Reader) (*Document, error) {
	gq, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	if gq.Find("body").Length() == 0 {
		return nil, models.ErrEmptyDocument
	}
	return &Document{
		doc:           gq,
		mutationSubs:  map[int]func([]*goquery.Selection){},
		removalSubs:   map[int]func([]*html.Node){},
		listeners:     map[string]map[int]func(Event){},
		intersections: map[*html.Node]map[int]*intersectionWatch{},
	}, nil
}

// ParseString builds a Document from a markup string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Find queries the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Body returns the page body selection.
func (d *Document) Body() *goquery.Selection {
	return d.doc.Find("body").First()
}

// SelectionOf wraps raw nodes already attached to this document.
func (d *Document) SelectionOf(nodes ...*html.Node) *goquery.Selection {
	return d.doc.FindNodes(nodes...)
}

// AppendHTML parses a markup fragment and appends it under the first element
// matching parentSelector, then notifies mutation subscribers with the added
// element nodes. This is the injection path AJAX pagination and builder
// re-renders go through.
func (d *Document) AppendHTML(parentSelector, fragment string) error {
	parent := d.doc.Find(parentSelector).First()
	if parent.Length() == 0 {
		return models.ErrNoContainer
	}

	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return err
	}

	var added []*goquery.Selection
	for _, n := range nodes {
		parent.AppendNodes(n)
		if n.Type == html.ElementNode {
			added = append(added, d.SelectionOf(n))
		}
	}
	if len(added) > 0 {
		d.notifyMutation(added)
	}
	return nil
}

// Remove detaches all elements matching selector and notifies removal
// subscribers so side tables keyed by node can prune. Returns the number of
// removed elements.
func (d *Document) Remove(selector string) int {
	sel := d.doc.Find(selector)
	if sel.Length() == 0 {
		return 0
	}
	removed := append([]*html.Node(nil), sel.Nodes...)
	sel.Remove()
	d.notifyRemoval(removed)
	return len(removed)
}

// RemoveSelection detaches an already-resolved selection.
func (d *Document) RemoveSelection(sel *goquery.Selection) {
	if sel == nil || sel.Length() == 0 {
		return
	}
	removed := append([]*html.Node(nil), sel.Nodes...)
	sel.Remove()
	d.notifyRemoval(removed)
}

// OnMutation registers a callback for appended subtrees.
func (d *Document) OnMutation(fn func(added []*goquery.Selection)) *Subscription {
	d.mu.Lock()
	id := d.nextSubID
	d.nextSubID++
	d.mutationSubs[id] = fn
	d.mu.Unlock()
	return &Subscription{cancel: func() {
		d.mu.Lock()
		delete(d.mutationSubs, id)
		d.mu.Unlock()
	}}
}

// OnRemoval registers a callback for detached nodes.
func (d *Document) OnRemoval(fn func(removed []*html.Node)) *Subscription {
	d.mu.Lock()
	id := d.nextSubID
	d.nextSubID++
	d.removalSubs[id] = fn
	d.mu.Unlock()
	return &Subscription{cancel: func() {
		d.mu.Lock()
		delete(d.removalSubs, id)
		d.mu.Unlock()
	}}
}

func (d *Document) notifyMutation(added []*goquery.Selection) {
	for _, fn := range d.snapshotMutationSubs() {
		fn(added)
	}
}

func (d *Document) notifyRemoval(removed []*html.Node) {
	d.mu.Lock()
	subs := make([]func([]*html.Node), 0, len(d.removalSubs))
	for _, fn := range d.removalSubs {
		subs = append(subs, fn)
	}
	d.mu.Unlock()
	for _, fn := range subs {
		fn(removed)
	}
}

func (d *Document) snapshotMutationSubs() []func([]*goquery.Selection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs := make([]func([]*goquery.Selection), 0, len(d.mutationSubs))
	for _, fn := range d.mutationSubs {
		subs = append(subs, fn)
	}
	return subs
}
