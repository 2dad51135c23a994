package extract

import (
	"testing"

	"tracker-base/pkg/dom"
	"tracker-base/pkg/selectors"
)

const listPage = `
<html><body class="archive">
<ul class="products columns-3">
  <li class="product post-101">
    <h2 class="woocommerce-loop-product__title">Walnut Desk</h2>
    <span class="price">
      <del><span class="woocommerce-Price-amount"><bdi>$19.99</bdi></span></del>
      <ins><span class="woocommerce-Price-amount"><bdi>$14.99</bdi></span></ins>
    </span>
    <span class="product-category">Furniture</span>
    <a class="add_to_cart_button" data-product_sku="DESK-W" href="#">Add to cart</a>
  </li>
  <li class="product post-102">
    <h2 class="woocommerce-loop-product__title">Oak Chair</h2>
    <span class="price">
      <span class="woocommerce-Price-amount"><bdi>$49.00</bdi></span>
    </span>
  </li>
  <li class="product post-103">
    <a class="add_to_cart_button" data-ga4-id="LAMP-1" data-ga4-name="Brass Lamp"
       data-ga4-price="29.90" data-ga4-original-price="29.90" data-ga4-on-sale="false"
       data-ga4-category="Lighting" href="#">Add to cart</a>
  </li>
  <li class="product">
    <span class="price"><span class="woocommerce-Price-amount"><bdi>$5.00</bdi></span></span>
  </li>
</ul>
</body></html>`

func newExtractor(t *testing.T, page string) (*dom.Document, *Extractor) {
	t.Helper()
	doc, err := dom.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	return doc, New(doc, selectors.Default(), "Test Shop")
}

func TestExtractSalePair(t *testing.T) {
	doc, ex := newExtractor(t, listPage)

	rec := ex.Extract(doc.Find("li.post-101 h2"))
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.ItemID != "DESK-W" {
		t.Errorf("item_id = %q, want SKU from add-to-cart control", rec.ItemID)
	}
	if rec.ItemName != "Walnut Desk" {
		t.Errorf("item_name = %q", rec.ItemName)
	}
	if !rec.ItemOnSale {
		t.Fatal("expected on-sale record")
	}
	if rec.Price != "14.99" || rec.ItemOriginalPrice != "19.99" {
		t.Errorf("price = %q original = %q", rec.Price, rec.ItemOriginalPrice)
	}
	if rec.Discount != "5.00" {
		t.Errorf("discount = %q, want 5.00", rec.Discount)
	}
	if rec.DiscountPercentage != "25.01" {
		t.Errorf("discount_percentage = %q, want 25.01", rec.DiscountPercentage)
	}
	if rec.ItemCategory != "Furniture" {
		t.Errorf("item_category = %q", rec.ItemCategory)
	}
}

func TestExtractRegularPrice(t *testing.T) {
	doc, ex := newExtractor(t, listPage)

	rec := ex.Extract(doc.Find("li.post-102 h2"))
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.ItemID != "102" {
		t.Errorf("item_id = %q, want numeric id from class", rec.ItemID)
	}
	if rec.ItemOnSale {
		t.Error("regular-priced record marked on sale")
	}
	if rec.Price != "49.00" || rec.ItemOriginalPrice != "49.00" {
		t.Errorf("price = %q original = %q", rec.Price, rec.ItemOriginalPrice)
	}
	if rec.Discount != "" {
		t.Error("regular-priced record must not carry a discount")
	}
}

func TestExtractFastPathDataAttributes(t *testing.T) {
	doc, ex := newExtractor(t, listPage)

	rec := ex.Extract(doc.Find("li.post-103 a.add_to_cart_button"))
	if rec == nil {
		t.Fatal("expected a record from data attributes")
	}
	if rec.ItemID != "LAMP-1" || rec.ItemName != "Brass Lamp" {
		t.Errorf("got id=%q name=%q", rec.ItemID, rec.ItemName)
	}
	if rec.Price != "29.90" || rec.ItemOnSale {
		t.Errorf("price = %q onSale = %v", rec.Price, rec.ItemOnSale)
	}
	if rec.ItemCategory != "Lighting" {
		t.Errorf("item_category = %q", rec.ItemCategory)
	}
}

func TestExtractNoIdentityReturnsNil(t *testing.T) {
	doc, ex := newExtractor(t, listPage)

	// Last item has a price but neither an id-bearing class nor a name.
	if rec := ex.Extract(doc.Find("ul.products li.product").Last().Find(".price")); rec != nil {
		t.Errorf("expected nil for identity-less subtree, got %+v", rec)
	}
}

func TestExtractOutsideAnyContainer(t *testing.T) {
	doc, ex := newExtractor(t, `<html><body><p>plain text</p></body></html>`)
	if rec := ex.Extract(doc.Find("p")); rec != nil {
		t.Errorf("expected nil outside any product item, got %+v", rec)
	}
}

func TestMemoizationAndPruning(t *testing.T) {
	doc, ex := newExtractor(t, listPage)

	el := doc.Find("li.post-101 h2")
	first := ex.Extract(el)
	second := ex.Extract(el)
	if first == nil || second == nil {
		t.Fatal("expected records")
	}
	if first == second {
		t.Error("Extract must return clones, not the cached pointer")
	}
	if ex.CacheSize() != 1 {
		t.Fatalf("cache size = %d, want 1", ex.CacheSize())
	}

	ex.Invalidate(el)
	if ex.CacheSize() != 0 {
		t.Error("Invalidate did not drop the entry")
	}

	ex.Extract(el)
	doc.Remove("li.post-101")
	if ex.CacheSize() != 0 {
		t.Error("removal observation did not prune the side table")
	}
}

const productPage = `
<html><body class="single-product postid-207">
<div class="product">
  <h1 class="product_title">Velvet Sofa</h1>
  <div class="summary">
    <p class="price">
      <del><span class="woocommerce-Price-amount"><bdi>$899.00</bdi></span></del>
      <ins><span class="woocommerce-Price-amount"><bdi>$799.00</bdi></span></ins>
    </p>
    <div class="product_meta">
      <span class="sku">SOFA-V</span>
      <span class="posted_in"><a href="#">Living Room</a></span>
    </div>
  </div>
</div>
</body></html>`

func TestSingleProduct(t *testing.T) {
	_, ex := newExtractor(t, productPage)

	rec := ex.SingleProduct()
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.ItemID != "SOFA-V" || rec.ItemName != "Velvet Sofa" {
		t.Errorf("got id=%q name=%q", rec.ItemID, rec.ItemName)
	}
	if rec.ItemBrand != "Test Shop" {
		t.Errorf("item_brand = %q", rec.ItemBrand)
	}
	if !rec.ItemOnSale || rec.Price != "799.00" || rec.ItemOriginalPrice != "899.00" {
		t.Errorf("price = %q original = %q onSale = %v", rec.Price, rec.ItemOriginalPrice, rec.ItemOnSale)
	}
	if rec.Discount != "100.00" {
		t.Errorf("discount = %q", rec.Discount)
	}
	if rec.ItemCategory != "Living Room" {
		t.Errorf("item_category = %q", rec.ItemCategory)
	}
}
