package funnel

import (
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tracker-base/pkg/dom"
	"tracker-base/pkg/models"
	"tracker-base/pkg/sanitize"
	"tracker-base/pkg/track"
)

// ShippingTracker emits add_shipping_info when a shipping method is
// selected, with the same settle and re-arm behavior as the payment side.
type ShippingTracker struct {
	ctx  *track.Context
	cart *models.CartSnapshot

	mu      sync.Mutex
	tracked map[string]bool
	timer   *time.Timer
	sub     *dom.Subscription
}

// NewShippingTracker builds a tracker over the checkout cart state.
func NewShippingTracker(ctx *track.Context, cart *models.CartSnapshot) *ShippingTracker {
	return &ShippingTracker{ctx: ctx, cart: cart, tracked: map[string]bool{}}
}

// Bind arms the change listener and schedules the initial settle.
func (s *ShippingTracker) Bind() {
	s.sub = s.ctx.Doc.Listen(dom.EventChange, func(ev dom.Event) {
		if !ev.Target.Is(s.ctx.Profile.Checkout.ShippingInput) {
			return
		}
		s.trackMethod(ev.Target)
	})
	s.schedule(initialSettleDelay)
}

// OnCheckoutUpdated re-settles after the checkout block re-renders.
func (s *ShippingTracker) OnCheckoutUpdated() {
	s.schedule(updateSettleDelay)
}

// Settle tracks the currently selected shipping method immediately.
func (s *ShippingTracker) Settle() {
	if input := s.selectedInput(); input != nil {
		s.trackMethod(input)
	}
}

// Stop cancels the listener and any pending settle.
func (s *ShippingTracker) Stop() {
	s.sub.Cancel()
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
}

func (s *ShippingTracker) schedule(delay time.Duration) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(delay, s.Settle)
	s.mu.Unlock()
}

func (s *ShippingTracker) selectedInput() *goquery.Selection {
	var input *goquery.Selection
	s.ctx.Doc.Find(s.ctx.Profile.Checkout.ShippingInput).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if _, ok := sel.Attr("checked"); ok {
			input = sel
			return false
		}
		return true
	})
	return input
}

func (s *ShippingTracker) trackMethod(input *goquery.Selection) {
	method := sanitize.Key(input.AttrOr("value", ""))
	if method == "" {
		return
	}

	s.mu.Lock()
	if s.tracked[method] {
		s.mu.Unlock()
		return
	}
	s.tracked = map[string]bool{method: true}
	s.mu.Unlock()

	ec := &models.Ecommerce{
		Currency:     s.ctx.Currency(),
		ShippingTier: s.methodLabel(input, method),
	}
	if !s.cart.Empty() {
		ec.Value = sanitize.Amount(s.cart.Total)
		ec.Items = s.cart.Records()
	}
	s.ctx.Emitter.Emit(models.EventAddShippingInfo, models.EventEnvelope{
		Ecommerce: ec,
		PageType:  s.ctx.Snapshot.PageType,
	}, false)
}

// methodLabel reads the rate title from the input's row label, falling back
// to the method key.
func (s *ShippingTracker) methodLabel(input *goquery.Selection, method string) string {
	spec := s.ctx.Profile.Checkout
	row := input.Closest(spec.ShippingRow)
	if row.Length() > 0 {
		if label := sanitize.Label(row.Find(spec.ShippingLabel).First().Text()); label != "" {
			return label
		}
	}
	return method
}
