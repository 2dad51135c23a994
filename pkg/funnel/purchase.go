package funnel

import (
	"tracker-base/pkg/models"
	"tracker-base/pkg/sanitize"
	"tracker-base/pkg/track"
)

// MarkerStore persists which orders already emitted a purchase event.
// Thank-you pages get reloaded; the marker is what keeps revenue from
// double counting.
type MarkerStore interface {
	Tracked(orderID string) (bool, error)
	Mark(orderID string) error
}

// PurchaseTracker emits the purchase event exactly once per order.
type PurchaseTracker struct {
	ctx   *track.Context
	store MarkerStore
}

// NewPurchaseTracker builds a tracker. store may be nil, in which case
// every call emits.
func NewPurchaseTracker(ctx *track.Context, store MarkerStore) *PurchaseTracker {
	return &PurchaseTracker{ctx: ctx, store: store}
}

// Track emits purchase for the rendered order unless it was already
// marked. A marker read failure fails open: emitting twice beats losing
// the conversion.
func (p *PurchaseTracker) Track(order *models.OrderSnapshot) error {
	if order == nil || order.OrderID == "" {
		return models.ErrNoIdentity
	}

	if p.store != nil {
		tracked, err := p.store.Tracked(order.OrderID)
		if err != nil {
			p.ctx.Log.Warn().Err(err).Str("order", order.OrderID).Msg("marker lookup failed")
		} else if tracked {
			p.ctx.Log.Debug().Str("order", order.OrderID).Msg("purchase already tracked")
			return nil
		}
	}

	items := orderRecords(order)
	currency := sanitize.Currency(order.Currency)
	if order.Currency == "" {
		currency = p.ctx.Currency()
	}

	ec := &models.Ecommerce{
		Currency:      currency,
		Value:         sanitize.Amount(order.Total),
		TransactionID: order.OrderID,
		Tax:           sanitize.Amount(order.Tax),
		Shipping:      sanitize.Amount(order.Shipping),
		PaymentMethod: sanitize.Key(order.PaymentMethod),
		SaleDiscount:  saleDiscountTotal(items),
		Items:         items,
	}
	if order.PaymentMethodTitle != "" {
		ec.PaymentType = sanitize.Label(order.PaymentMethodTitle)
	}
	if order.ShippingMethodTitle != "" {
		ec.ShippingTier = sanitize.Label(order.ShippingMethodTitle)
	}
	if coupon := joinCoupons(order.Coupons); coupon != "" {
		ec.Coupon = coupon
		ec.CouponDiscount = sanitize.Amount(order.CouponDiscount)
	}

	p.ctx.Emitter.Emit(models.EventPurchase, models.EventEnvelope{
		Ecommerce: ec,
		PageType:  p.ctx.Snapshot.PageType,
	}, false)

	if p.store != nil {
		if err := p.store.Mark(order.OrderID); err != nil {
			return err
		}
	}
	return nil
}

func orderRecords(order *models.OrderSnapshot) []*models.ProductRecord {
	out := make([]*models.ProductRecord, 0, len(order.Items))
	for i := range order.Items {
		rec := order.Items[i].Record.Clone()
		if !rec.HasIdentity() {
			continue
		}
		qty := order.Items[i].Quantity
		if qty < 1 {
			qty = 1
		}
		rec.Quantity = qty
		rec.Index = len(out) + 1
		out = append(out, rec)
	}
	return out
}
