// Package track ties detection, impression observation and mutation
// watching together around one page session.
package track

import (
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"tracker-base/pkg/dom"
	"tracker-base/pkg/emit"
	"tracker-base/pkg/extract"
	"tracker-base/pkg/models"
	"tracker-base/pkg/sanitize"
	"tracker-base/pkg/selectors"
)

// Context is the page-session state shared by the tracking components.
// Tracked-container membership lives here, scoped to one page load; nothing
// survives navigation.
type Context struct {
	Doc       *dom.Document
	Profile   *selectors.Profile
	Snapshot  models.PageSnapshot
	Config    models.Config
	Emitter   *emit.Emitter
	Extractor *extract.Extractor
	Log       zerolog.Logger

	mu          sync.Mutex
	tracked     map[*html.Node]struct{}
	impressions int
	subs        []*dom.Subscription
}

// NewContext wires a context around a parsed document.
func NewContext(doc *dom.Document, snapshot models.PageSnapshot, cfg models.Config, profile *selectors.Profile, queue *emit.Queue, log zerolog.Logger) *Context {
	cfg = cfg.Normalize()
	return &Context{
		Doc:       doc,
		Profile:   profile,
		Snapshot:  snapshot,
		Config:    cfg,
		Emitter:   emit.New(queue, cfg, log),
		Extractor: extract.New(doc, profile, snapshot.SiteName),
		Log:       log,
		tracked:   map[*html.Node]struct{}{},
	}
}

// MarkTracked records a container as tracked for the element's lifetime.
// Returns false when the container was already tracked.
func (c *Context) MarkTracked(n *html.Node) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tracked[n]; ok {
		return false
	}
	c.tracked[n] = struct{}{}
	return true
}

// IsTracked reports tracked membership.
func (c *Context) IsTracked(n *html.Node) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tracked[n]
	return ok
}

// TrackedCount reports how many containers are tracked.
func (c *Context) TrackedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tracked)
}

// Currency resolves the effective currency: config override first, then the
// page snapshot.
func (c *Context) Currency() string {
	if c.Config.Currency != "" && c.Config.Currency != "USD" {
		return sanitize.Currency(c.Config.Currency)
	}
	if c.Snapshot.Currency != "" {
		return sanitize.Currency(c.Snapshot.Currency)
	}
	return sanitize.Currency(c.Config.Currency)
}

func (c *Context) countImpression() {
	c.mu.Lock()
	c.impressions++
	c.mu.Unlock()
}

// ImpressionCount reports how many impression signals have fired.
func (c *Context) ImpressionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.impressions
}

func (c *Context) addSub(sub *dom.Subscription) {
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
}

// Close cancels every registered listener and the extractor's removal
// subscription.
func (c *Context) Close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, s := range subs {
		s.Cancel()
	}
	c.Extractor.Close()
}
