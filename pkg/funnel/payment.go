package funnel

import (
	"fmt"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tracker-base/pkg/dom"
	"tracker-base/pkg/models"
	"tracker-base/pkg/sanitize"
	"tracker-base/pkg/track"
)

// Checkout pages re-render their payment and shipping blocks over AJAX, so
// selection tracking settles instead of firing on raw DOM state: once after
// the initial render and once after every checkout update.
const (
	initialSettleDelay = time.Second
	updateSettleDelay  = 500 * time.Millisecond
)

// PaymentTracker emits add_payment_info when a payment method is selected.
// Each method emits once; switching methods re-arms the others, so toggling
// back and forth reports every actual change while re-selecting the active
// method stays silent.
type PaymentTracker struct {
	ctx  *track.Context
	cart *models.CartSnapshot

	mu      sync.Mutex
	tracked map[string]bool
	timer   *time.Timer
	sub     *dom.Subscription
}

// NewPaymentTracker builds a tracker over the checkout cart state.
func NewPaymentTracker(ctx *track.Context, cart *models.CartSnapshot) *PaymentTracker {
	return &PaymentTracker{ctx: ctx, cart: cart, tracked: map[string]bool{}}
}

// Bind arms the change listener and schedules the initial settle.
func (p *PaymentTracker) Bind() {
	p.sub = p.ctx.Doc.Listen(dom.EventChange, func(ev dom.Event) {
		if !ev.Target.Is(p.ctx.Profile.Checkout.PaymentInput) {
			return
		}
		p.trackMethod(ev.Target.AttrOr("value", ""))
	})
	p.schedule(initialSettleDelay)
}

// OnCheckoutUpdated re-settles after the checkout block re-renders.
func (p *PaymentTracker) OnCheckoutUpdated() {
	p.schedule(updateSettleDelay)
}

// Settle tracks the currently selected method immediately. The scheduled
// settles funnel through here; tests call it directly.
func (p *PaymentTracker) Settle() {
	p.trackMethod(p.selectedMethod())
}

// Stop cancels the listener and any pending settle.
func (p *PaymentTracker) Stop() {
	p.sub.Cancel()
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.mu.Unlock()
}

func (p *PaymentTracker) schedule(delay time.Duration) {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(delay, p.Settle)
	p.mu.Unlock()
}

func (p *PaymentTracker) selectedMethod() string {
	var method string
	p.ctx.Doc.Find(p.ctx.Profile.Checkout.PaymentInput).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if _, ok := s.Attr("checked"); ok {
			method = s.AttrOr("value", "")
			return false
		}
		return true
	})
	return method
}

func (p *PaymentTracker) trackMethod(method string) {
	method = sanitize.Key(method)
	if method == "" {
		return
	}

	p.mu.Lock()
	if p.tracked[method] {
		p.mu.Unlock()
		return
	}
	// A real selection change re-arms the other methods so switching back
	// reports again.
	p.tracked = map[string]bool{method: true}
	p.mu.Unlock()

	ec := &models.Ecommerce{
		Currency:      p.ctx.Currency(),
		PaymentType:   p.methodLabel(method),
		PaymentMethod: method,
	}
	if !p.cart.Empty() {
		ec.Value = sanitize.Amount(p.cart.Total)
		ec.Items = p.cart.Records()
	}
	p.ctx.Emitter.Emit(models.EventAddPaymentInfo, models.EventEnvelope{
		Ecommerce: ec,
		PageType:  p.ctx.Snapshot.PageType,
	}, false)
}

// methodLabel resolves the customer-facing gateway title from the method's
// label element, falling back to the method key.
func (p *PaymentTracker) methodLabel(method string) string {
	sel := fmt.Sprintf(p.ctx.Profile.Checkout.PaymentLabelFormat, method)
	if label := sanitize.Label(p.ctx.Doc.Find(sel).First().Text()); label != "" {
		return label
	}
	return method
}
