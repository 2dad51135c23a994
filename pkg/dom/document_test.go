package dom

import (
	"testing"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const page = `
<html><body>
<ul class="products columns-4">
  <li class="product post-11"><h2>Lamp</h2></li>
</ul>
</body></html>`

func TestAppendHTMLNotifiesMutationSubscribers(t *testing.T) {
	doc, err := ParseString(page)
	if err != nil {
		t.Fatal(err)
	}

	var got []*goquery.Selection
	sub := doc.OnMutation(func(added []*goquery.Selection) {
		got = append(got, added...)
	})
	defer sub.Cancel()

	if err := doc.AppendHTML("ul.products", `<li class="product post-12"><h2>Chair</h2></li>`); err != nil {
		t.Fatal(err)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 added selection, got %d", len(got))
	}
	if !got[0].Is("li.product") {
		t.Error("added node should match li.product")
	}
	if doc.Find("ul.products li.product").Length() != 2 {
		t.Error("appended node not attached to tree")
	}
}

func TestAppendHTMLUnknownParent(t *testing.T) {
	doc, _ := ParseString(page)
	if err := doc.AppendHTML(".missing", "<li></li>"); err == nil {
		t.Error("expected error for unknown parent")
	}
}

func TestMutationSubscriptionCancel(t *testing.T) {
	doc, _ := ParseString(page)
	calls := 0
	sub := doc.OnMutation(func([]*goquery.Selection) { calls++ })
	sub.Cancel()
	sub.Cancel() // idempotent

	if err := doc.AppendHTML("ul.products", `<li class="product"></li>`); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Errorf("cancelled subscription fired %d times", calls)
	}
}

func TestRemoveNotifiesRemovalSubscribers(t *testing.T) {
	doc, _ := ParseString(page)
	var removed []*html.Node
	doc.OnRemoval(func(nodes []*html.Node) { removed = append(removed, nodes...) })

	if n := doc.Remove("li.product"); n != 1 {
		t.Fatalf("Remove returned %d", n)
	}
	if len(removed) != 1 {
		t.Fatalf("expected 1 removal notification, got %d", len(removed))
	}
	if doc.Find("li.product").Length() != 0 {
		t.Error("node still attached after Remove")
	}
}

func TestDispatchReachesListeners(t *testing.T) {
	doc, _ := ParseString(page)
	var seen []string
	doc.Listen(EventClick, func(ev Event) {
		if ev.Target.Is("h2") {
			seen = append(seen, "click")
		}
	})

	doc.DispatchClick(doc.Find("h2"))
	doc.DispatchChange(doc.Find("h2")) // no change listener registered

	if len(seen) != 1 {
		t.Errorf("expected 1 click delivery, got %d", len(seen))
	}
}

func TestIntersectionThresholdAndUnobserve(t *testing.T) {
	doc, _ := ParseString(page)
	item := doc.Find("li.product")

	fired := 0
	var obs *Observation
	obs = doc.ObserveIntersection(item, 0.5, func(IntersectionEntry) {
		fired++
		obs.Unobserve()
	})

	doc.SetVisibility(item, 0.3) // below threshold
	doc.SetVisibility(item, 0.7) // fires, then unobserves
	doc.SetVisibility(item, 0.9) // already cancelled

	if fired != 1 {
		t.Errorf("expected exactly one firing, got %d", fired)
	}
}

func TestParseEmptyInputStillYieldsBody(t *testing.T) {
	// The HTML parser synthesizes html/head/body even for empty input.
	doc, err := ParseString("")
	if err != nil {
		t.Fatalf("empty input should still parse: %v", err)
	}
	if doc.Body().Length() != 1 {
		t.Error("expected synthesized body")
	}
}
