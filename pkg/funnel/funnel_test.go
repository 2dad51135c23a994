package funnel

import (
	"testing"

	"github.com/rs/zerolog"

	"tracker-base/pkg/dom"
	"tracker-base/pkg/emit"
	"tracker-base/pkg/models"
	"tracker-base/pkg/selectors"
	"tracker-base/pkg/track"
)

func newContext(t *testing.T, page, pageType string) (*dom.Document, *track.Context, *emit.Queue) {
	t.Helper()
	doc, err := dom.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	queue := emit.NewQueue()
	snap := models.PageSnapshot{PageType: pageType, Currency: "EUR"}
	ctx := track.NewContext(doc, snap, models.DefaultConfig(), selectors.Default(), queue, zerolog.Nop())
	t.Cleanup(ctx.Close)
	return doc, ctx, queue
}

func testCart() *models.CartSnapshot {
	return &models.CartSnapshot{
		Total: 69.97,
		Items: []models.CartItem{
			{Record: models.ProductRecord{ItemID: "101", ItemName: "Walnut Desk", Price: "14.99", ItemOriginalPrice: "19.99", ItemOnSale: true, Discount: "5.00", DiscountPercentage: "25.01"}, Quantity: 1},
			{Record: models.ProductRecord{ItemID: "102", ItemName: "Oak Chair", Price: "27.49", ItemOriginalPrice: "27.49"}, Quantity: 2},
		},
	}
}

func TestViewCart(t *testing.T) {
	_, ctx, queue := newContext(t, `<html><body class="cart"></body></html>`, models.PageCart)

	ViewCart(ctx, testCart())

	payloads := queue.Payloads()
	if len(payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(payloads))
	}
	ev := payloads[0]
	if ev.Event != models.EventViewCart {
		t.Errorf("event = %q", ev.Event)
	}
	if ev.Ecommerce.Currency != "EUR" || ev.Ecommerce.Value != "69.97" {
		t.Errorf("currency = %q value = %q", ev.Ecommerce.Currency, ev.Ecommerce.Value)
	}
	if len(ev.Ecommerce.Items) != 2 || ev.Ecommerce.Items[1].Quantity != 2 {
		t.Errorf("unexpected items %+v", ev.Ecommerce.Items)
	}
}

func TestViewCartEmptySkips(t *testing.T) {
	_, ctx, queue := newContext(t, `<html><body class="cart"></body></html>`, models.PageCart)

	ViewCart(ctx, nil)
	ViewCart(ctx, &models.CartSnapshot{})

	if queue.Len() != 0 {
		t.Errorf("queue len = %d, want nothing for an empty cart", queue.Len())
	}
}

func TestBeginCheckout(t *testing.T) {
	_, ctx, queue := newContext(t, `<html><body class="checkout"></body></html>`, models.PageCheckout)

	BeginCheckout(ctx, testCart())

	payloads := queue.Payloads()
	if len(payloads) != 1 || payloads[0].Event != models.EventBeginCheckout {
		t.Fatalf("unexpected payloads %+v", payloads)
	}
}

func TestViewItemPrefersServerRecord(t *testing.T) {
	_, ctx, queue := newContext(t, `<html><body class="single-product"></body></html>`, models.PageProduct)

	ViewItem(ctx, &models.ProductRecord{ItemID: "SOFA-V", ItemName: "Velvet Sofa", Price: "799.00", ItemOriginalPrice: "799.00"})

	payloads := queue.Payloads()
	if len(payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(payloads))
	}
	ev := payloads[0]
	if ev.Event != models.EventViewItem || ev.Ecommerce.Value != "799.00" {
		t.Errorf("event = %q value = %q", ev.Event, ev.Ecommerce.Value)
	}
	if len(ev.Ecommerce.Items) != 1 || ev.Ecommerce.Items[0].ItemID != "SOFA-V" {
		t.Errorf("unexpected items %+v", ev.Ecommerce.Items)
	}
}

func TestViewItemFallsBackToMarkup(t *testing.T) {
	page := `<html><body class="single-product postid-31">
	<h1 class="product_title">Floor Lamp</h1>
	<div class="summary"><p class="price"><span class="woocommerce-Price-amount"><bdi>$45.00</bdi></span></p></div>
	</body></html>`
	_, ctx, queue := newContext(t, page, models.PageProduct)

	ViewItem(ctx, nil)

	payloads := queue.Payloads()
	if len(payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(payloads))
	}
	items := payloads[0].Ecommerce.Items
	if len(items) != 1 || items[0].ItemID != "31" || items[0].ItemName != "Floor Lamp" {
		t.Errorf("unexpected items %+v", items)
	}
}

const checkoutPage = `
<html><body class="checkout">
<ul class="wc_payment_methods">
  <li>
    <input type="radio" name="payment_method" id="payment_method_cod" value="cod" checked>
    <label for="payment_method_cod">Cash on delivery</label>
  </li>
  <li>
    <input type="radio" name="payment_method" id="payment_method_bacs" value="bacs">
    <label for="payment_method_bacs">Direct bank transfer</label>
  </li>
</ul>
<ul id="shipping_method">
  <li>
    <input type="radio" name="shipping_method[0]" id="shipping_method_0_flat" value="flat_rate:1" checked>
    <label for="shipping_method_0_flat">Flat rate</label>
  </li>
  <li>
    <input type="radio" name="shipping_method[0]" id="shipping_method_0_pickup" value="local_pickup:2">
    <label for="shipping_method_0_pickup">Local pickup</label>
  </li>
</ul>
</body></html>`

func TestPaymentReselectEmitsOnce(t *testing.T) {
	doc, ctx, queue := newContext(t, checkoutPage, models.PageCheckout)
	p := NewPaymentTracker(ctx, testCart())
	p.Bind()

	cod := doc.Find("#payment_method_cod")
	bacs := doc.Find("#payment_method_bacs")

	doc.DispatchChange(cod)
	doc.DispatchChange(cod)
	if got := len(queue.Payloads()); got != 1 {
		t.Fatalf("payloads = %d, want re-select deduplicated to 1", got)
	}

	doc.DispatchChange(bacs)
	doc.DispatchChange(cod)
	p.Stop()
	payloads := queue.Payloads()
	if len(payloads) != 3 {
		t.Fatalf("payloads = %d, want every real switch reported", len(payloads))
	}
	if payloads[0].Ecommerce.PaymentType != "Cash on delivery" || payloads[0].Ecommerce.PaymentMethod != "cod" {
		t.Errorf("payment = %q / %q", payloads[0].Ecommerce.PaymentType, payloads[0].Ecommerce.PaymentMethod)
	}
	if payloads[1].Ecommerce.PaymentMethod != "bacs" {
		t.Errorf("second payment = %q", payloads[1].Ecommerce.PaymentMethod)
	}
	if payloads[0].Ecommerce.Value != "69.97" || len(payloads[0].Ecommerce.Items) != 2 {
		t.Errorf("cart state missing from payload: %+v", payloads[0].Ecommerce)
	}
}

func TestPaymentSettleTracksCheckedInput(t *testing.T) {
	_, ctx, queue := newContext(t, checkoutPage, models.PageCheckout)
	p := NewPaymentTracker(ctx, testCart())

	p.Settle()
	p.Settle()

	payloads := queue.Payloads()
	if len(payloads) != 1 {
		t.Fatalf("payloads = %d, want the pre-checked method once", len(payloads))
	}
	if payloads[0].Ecommerce.PaymentMethod != "cod" {
		t.Errorf("payment_method = %q", payloads[0].Ecommerce.PaymentMethod)
	}
}

func TestShippingSelection(t *testing.T) {
	doc, ctx, queue := newContext(t, checkoutPage, models.PageCheckout)
	s := NewShippingTracker(ctx, testCart())
	s.Bind()

	s.Settle()
	doc.DispatchChange(doc.Find("#shipping_method_0_pickup"))
	s.Stop()

	payloads := queue.Payloads()
	if len(payloads) != 2 {
		t.Fatalf("payloads = %d, want settle + switch", len(payloads))
	}
	if payloads[0].Ecommerce.ShippingTier != "Flat rate" {
		t.Errorf("shipping_tier = %q", payloads[0].Ecommerce.ShippingTier)
	}
	if payloads[1].Ecommerce.ShippingTier != "Local pickup" {
		t.Errorf("second shipping_tier = %q", payloads[1].Ecommerce.ShippingTier)
	}
	for _, ev := range payloads {
		if ev.Event != models.EventAddShippingInfo {
			t.Errorf("event = %q", ev.Event)
		}
	}
}

const cartPage = `
<html><body class="cart">
<table class="shop_table cart">
  <tr class="cart_item">
    <td class="product-remove"><a class="remove" data-product_id="101" href="#">&times;</a></td>
    <td class="product-name">Walnut Desk</td>
    <td class="product-price">
      <del><span class="woocommerce-Price-amount"><bdi>$19.99</bdi></span></del>
      <ins><span class="woocommerce-Price-amount"><bdi>$14.99</bdi></span></ins>
    </td>
    <td class="product-quantity"><input class="qty" type="number" value="2"></td>
  </tr>
</table>
</body></html>`

func TestRemoveFromCart(t *testing.T) {
	doc, ctx, queue := newContext(t, cartPage, models.PageCart)
	sub := BindRemoveFromCart(ctx)
	defer sub.Cancel()

	doc.DispatchClick(doc.Find("a.remove"))

	payloads := queue.Payloads()
	if len(payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(payloads))
	}
	ev := payloads[0]
	if ev.Event != models.EventRemoveFromCart {
		t.Fatalf("event = %q", ev.Event)
	}
	if ev.Ecommerce.Value != "29.98" {
		t.Errorf("value = %q, want sale price times quantity", ev.Ecommerce.Value)
	}
	rec := ev.Ecommerce.Items[0]
	if rec.ItemID != "101" || rec.ItemName != "Walnut Desk" {
		t.Errorf("identity = %q / %q", rec.ItemID, rec.ItemName)
	}
	if !rec.ItemOnSale || rec.Price != "14.99" || rec.ItemOriginalPrice != "19.99" || rec.Discount != "5.00" {
		t.Errorf("unexpected pricing %+v", rec)
	}
	if rec.Quantity != 2 {
		t.Errorf("quantity = %d", rec.Quantity)
	}
}

type memoryMarkers struct {
	marked map[string]bool
}

func (m *memoryMarkers) Tracked(orderID string) (bool, error) { return m.marked[orderID], nil }
func (m *memoryMarkers) Mark(orderID string) error {
	m.marked[orderID] = true
	return nil
}

func TestPurchaseEmitsOncePerOrder(t *testing.T) {
	_, ctx, queue := newContext(t, `<html><body class="order-received"></body></html>`, models.PagePurchase)
	p := NewPurchaseTracker(ctx, &memoryMarkers{marked: map[string]bool{}})

	order := &models.OrderSnapshot{
		OrderID:             "1041",
		Total:               77.96,
		Tax:                 5.99,
		Shipping:            7.00,
		Currency:            "EUR",
		PaymentMethod:       "cod",
		PaymentMethodTitle:  "Cash on delivery",
		ShippingMethodTitle: "Flat rate",
		Coupons:             []string{"SUMMER10"},
		CouponDiscount:      4.50,
		Items:               testCart().Items,
	}

	if err := p.Track(order); err != nil {
		t.Fatal(err)
	}
	if err := p.Track(order); err != nil {
		t.Fatal(err)
	}

	payloads := queue.Payloads()
	if len(payloads) != 1 {
		t.Fatalf("payloads = %d, want the reload suppressed", len(payloads))
	}
	ec := payloads[0].Ecommerce
	if payloads[0].Event != models.EventPurchase || ec.TransactionID != "1041" {
		t.Errorf("event = %q transaction = %q", payloads[0].Event, ec.TransactionID)
	}
	if ec.Value != "77.96" || ec.Tax != "5.99" || ec.Shipping != "7.00" {
		t.Errorf("totals = %q / %q / %q", ec.Value, ec.Tax, ec.Shipping)
	}
	if ec.Coupon != "SUMMER10" || ec.CouponDiscount != "4.50" {
		t.Errorf("coupon = %q discount = %q", ec.Coupon, ec.CouponDiscount)
	}
	if ec.SaleDiscount != "5.00" {
		t.Errorf("sale_discount = %q", ec.SaleDiscount)
	}
	if len(ec.Items) != 2 || ec.Items[0].Index != 1 || ec.Items[1].Index != 2 {
		t.Errorf("unexpected items %+v", ec.Items)
	}
}

func TestPurchaseRequiresOrderID(t *testing.T) {
	_, ctx, queue := newContext(t, `<html><body></body></html>`, models.PagePurchase)
	p := NewPurchaseTracker(ctx, nil)

	if err := p.Track(&models.OrderSnapshot{}); err == nil {
		t.Fatal("expected an error for a missing order id")
	}
	if queue.Len() != 0 {
		t.Error("nothing should be queued without an order id")
	}
}
