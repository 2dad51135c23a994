package emit

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tracker-base/pkg/models"
)

// DedupWindow is how long an identical (event, items) fingerprint suppresses
// re-emission.
const DedupWindow = time.Second

// Emitter constructs envelopes and writes them to the queue, suppressing
// duplicates within the dedup window. Entries in the fingerprint table
// expire by time; there is no explicit eviction.
type Emitter struct {
	queue *Queue
	cfg   models.Config
	log   zerolog.Logger

	mu       sync.Mutex
	lastSeen map[string]time.Time
	now      func() time.Time
}

// New builds an emitter writing to queue.
func New(queue *Queue, cfg models.Config, log zerolog.Logger) *Emitter {
	return &Emitter{
		queue:    queue,
		cfg:      cfg,
		log:      log,
		lastSeen: map[string]time.Time{},
		now:      time.Now,
	}
}

// SetClock overrides the emitter's time source. Test hook.
func (e *Emitter) SetClock(now func() time.Time) {
	e.now = now
}

// Emit pushes a reset envelope followed by the payload. A no-op when
// tracking is disabled. When dedupe is true, an emission with the same
// fingerprint within the window is silently suppressed.
func (e *Emitter) Emit(name string, env models.EventEnvelope, dedupe bool) {
	if !e.cfg.TrackingEnabled {
		return
	}
	env.Event = name

	if dedupe {
		key := name + fingerprint(env.Ecommerce)
		now := e.now()

		e.mu.Lock()
		if last, ok := e.lastSeen[key]; ok && now.Sub(last) < DedupWindow {
			e.mu.Unlock()
			if e.cfg.Debug {
				e.log.Debug().Str("event", name).Msg("deduplicated")
			}
			return
		}
		e.lastSeen[key] = now
		e.mu.Unlock()
	}

	e.queue.pushPair(models.Reset(), env)

	if e.cfg.Debug {
		e.log.Debug().Str("event", name).Int("queue_len", e.queue.Len()).Msg("event pushed")
	}
}

// fingerprint serializes the item list the same way regardless of how the
// payload was assembled, so overlapping triggers collide.
func fingerprint(ec *models.Ecommerce) string {
	var items []*models.ProductRecord
	if ec != nil {
		items = ec.Items
	}
	if items == nil {
		items = []*models.ProductRecord{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
