// Package emit owns the shared event queue (the page data layer) and the
// deduplicating emitter that writes to it.
package emit

import (
	"sync"

	"tracker-base/pkg/models"
)

// Queue is the append-only event sink consumed by the tag manager. The
// reset-then-payload pair is appended under one lock acquisition, so no
// other emission can interleave between the two entries.
type Queue struct {
	mu     sync.Mutex
	events []models.EventEnvelope
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) pushPair(reset, payload models.EventEnvelope) {
	q.mu.Lock()
	q.events = append(q.events, reset, payload)
	q.mu.Unlock()
}

// Events returns a copy of the queue contents in push order.
func (q *Queue) Events() []models.EventEnvelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]models.EventEnvelope(nil), q.events...)
}

// Len reports the number of queue entries, reset envelopes included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Payloads returns only the populated envelopes, in push order.
func (q *Queue) Payloads() []models.EventEnvelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.EventEnvelope, 0, len(q.events)/2)
	for _, e := range q.events {
		if !e.IsReset() {
			out = append(out, e)
		}
	}
	return out
}
