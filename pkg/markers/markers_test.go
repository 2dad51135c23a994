package markers

import (
	"path/filepath"
	"testing"
)

func TestMarkAndTracked(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "markers.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	tracked, err := store.Tracked("1041")
	if err != nil {
		t.Fatal(err)
	}
	if tracked {
		t.Fatal("fresh order reported as tracked")
	}

	if err := store.Mark("1041"); err != nil {
		t.Fatal(err)
	}
	if err := store.Mark("1041"); err != nil {
		t.Fatal("re-marking must be a no-op, got", err)
	}

	tracked, err = store.Tracked("1041")
	if err != nil {
		t.Fatal(err)
	}
	if !tracked {
		t.Error("marked order not reported as tracked")
	}

	tracked, err = store.Tracked("9999")
	if err != nil {
		t.Fatal(err)
	}
	if tracked {
		t.Error("unrelated order reported as tracked")
	}
}
