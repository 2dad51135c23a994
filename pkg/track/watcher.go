package track

import (
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"tracker-base/pkg/dom"
)

// Watcher re-runs detection when product-bearing subtrees are appended to
// the page. Mutation bursts are coalesced: one rescan per debounce window,
// no matter how many nodes arrive.
type Watcher struct {
	ctx      *Context
	detector *Detector
	matchers []cascadia.Selector
	delay    time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	rescans int
	sub     *dom.Subscription
}

// NewWatcher compiles the profile's mutation patterns. The debounce delay
// comes from the config (milliseconds).
func NewWatcher(ctx *Context, detector *Detector) *Watcher {
	w := &Watcher{
		ctx:      ctx,
		detector: detector,
		delay:    time.Duration(ctx.Config.DebounceDelay) * time.Millisecond,
	}
	for _, pattern := range ctx.Profile.Mutations {
		// Profiles are validated at load time, so Compile cannot fail here.
		if m, err := cascadia.Compile(pattern); err == nil {
			w.matchers = append(w.matchers, m)
		}
	}
	return w
}

// Start subscribes to document mutations for the rest of the page session.
func (w *Watcher) Start() {
	w.sub = w.ctx.Doc.OnMutation(w.onMutation)
}

// Stop cancels the subscription and any pending rescan.
func (w *Watcher) Stop() {
	w.sub.Cancel()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = false
	w.mu.Unlock()
}

func (w *Watcher) onMutation(added []*goquery.Selection) {
	for _, sel := range added {
		for _, n := range sel.Nodes {
			if w.matches(n) {
				w.schedule()
				return
			}
		}
	}
}

// matches reports whether the node itself or any descendant matches a
// product pattern.
func (w *Watcher) matches(n *html.Node) bool {
	for _, m := range w.matchers {
		if m(n) || len(m.MatchAll(n)) > 0 {
			return true
		}
	}
	return false
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = true
	w.timer = time.AfterFunc(w.delay, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.rescans++
	w.mu.Unlock()

	w.ctx.Log.Debug().Msg("rescanning for new products")
	w.detector.Detect()
}

// Flush runs a pending rescan immediately instead of waiting out the
// debounce window. No-op when nothing is pending.
func (w *Watcher) Flush() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.flush()
}

// Rescans reports how many debounced rescans have run.
func (w *Watcher) Rescans() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rescans
}
