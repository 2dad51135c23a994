package track

import (
	"github.com/rs/zerolog"

	"tracker-base/pkg/dom"
	"tracker-base/pkg/emit"
	"tracker-base/pkg/models"
	"tracker-base/pkg/selectors"
)

// Tracker is the top-level page session: detection, click delegation and
// the mutation watcher, sharing one event queue.
type Tracker struct {
	ctx      *Context
	detector *Detector
	watcher  *Watcher
	queue    *emit.Queue
	single   *models.ProductRecord
}

// New builds a tracker for a parsed page. single may be nil; on product
// pages it overrides DOM extraction for the detail form.
func New(doc *dom.Document, snapshot models.PageSnapshot, cfg models.Config, profile *selectors.Profile, single *models.ProductRecord, log zerolog.Logger) *Tracker {
	queue := emit.NewQueue()
	ctx := NewContext(doc, snapshot, cfg, profile, queue, log)
	detector := NewDetector(ctx)
	return &Tracker{
		ctx:      ctx,
		detector: detector,
		watcher:  NewWatcher(ctx, detector),
		queue:    queue,
		single:   single,
	}
}

// Init runs the initial detection pass and arms the listeners.
func (t *Tracker) Init() {
	t.detector.Detect()
	t.watcher.Start()
	bindAddToCart(t.ctx)
	if t.ctx.Snapshot.PageType == models.PageProduct {
		bindSingleAddToCart(t.ctx, t.single)
	}
	t.ctx.Log.Debug().
		Str("page_type", t.ctx.Snapshot.PageType).
		Int("containers", t.ctx.TrackedCount()).
		Msg("tracker initialized")
}

// NotifyContentUpdated runs an immediate detection pass. Page builders emit
// a content-updated signal after swapping widgets in; no debounce applies.
func (t *Tracker) NotifyContentUpdated() {
	t.detector.Detect()
}

// Context exposes the session state, mostly for the funnel trackers.
func (t *Tracker) Context() *Context {
	return t.ctx
}

// Watcher exposes the mutation watcher.
func (t *Tracker) Watcher() *Watcher {
	return t.watcher
}

// Queue returns the session's event queue.
func (t *Tracker) Queue() *emit.Queue {
	return t.queue
}

// Close stops the watcher and cancels every listener.
func (t *Tracker) Close() {
	t.watcher.Stop()
	t.ctx.Close()
}
