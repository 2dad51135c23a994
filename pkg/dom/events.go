package dom

import "github.com/PuerkitoBio/goquery"

// Event types the engine listens for.
const (
	EventClick  = "click"
	EventChange = "change"
)

// Listen registers a document-level handler for an event type. Handlers do
// their own delegation via Closest, mirroring how the page script binds on
// the body.
func (d *Document) Listen(eventType string, fn func(Event)) *Subscription {
	d.mu.Lock()
	id := d.nextSubID
	d.nextSubID++
	if d.listeners[eventType] == nil {
		d.listeners[eventType] = map[int]func(Event){}
	}
	d.listeners[eventType][id] = fn
	d.mu.Unlock()
	return &Subscription{cancel: func() {
		d.mu.Lock()
		delete(d.listeners[eventType], id)
		d.mu.Unlock()
	}}
}

// Dispatch delivers an event to every listener of its type.
func (d *Document) Dispatch(eventType string, target *goquery.Selection) {
	d.mu.Lock()
	handlers := make([]func(Event), 0, len(d.listeners[eventType]))
	for _, fn := range d.listeners[eventType] {
		handlers = append(handlers, fn)
	}
	d.mu.Unlock()

	ev := Event{Type: eventType, Target: target}
	for _, fn := range handlers {
		fn(ev)
	}
}

// DispatchClick simulates a click on the first element of target.
func (d *Document) DispatchClick(target *goquery.Selection) {
	d.Dispatch(EventClick, target.First())
}

// DispatchChange simulates a change event on the first element of target.
func (d *Document) DispatchChange(target *goquery.Selection) {
	d.Dispatch(EventChange, target.First())
}
