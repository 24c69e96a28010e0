package hatrack

import "testing"

func TestViewReturnsLiveKeysInCreateOrder(t *testing.T) {
	tbl := NewTable()
	defer tbl.Close()

	n := 40
	for i := 0; i < n; i++ {
		tbl.Put(hv(uint64(i)), ptrTo("v"))
	}
	tbl.Remove(hv(5))
	tbl.Remove(hv(17))

	entries, err := tbl.View(true)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(entries) != n-2 {
		t.Fatalf("View length: got %d, want %d", len(entries), n-2)
	}

	for i := 1; i < len(entries); i++ {
		if entries[i].CreateEpoch < entries[i-1].CreateEpoch {
			t.Fatalf("View not sorted by CreateEpoch at index %d: %d before %d",
				i, entries[i-1].CreateEpoch, entries[i].CreateEpoch)
		}
	}
}

func TestViewExcludesRemovedKeys(t *testing.T) {
	tbl := NewTable()
	defer tbl.Close()

	h := hv(1)
	tbl.Put(h, ptrTo("v"))
	tbl.Remove(h)

	entries, err := tbl.View(false)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	for _, e := range entries {
		if e.Hash.Equal(h) {
			t.Fatal("View returned a removed key")
		}
	}
}

func TestViewAfterCloseFails(t *testing.T) {
	tbl := NewTable()
	tbl.Close()

	if _, err := tbl.View(false); err != ErrClosed {
		t.Fatalf("View after Close: got %v, want ErrClosed", err)
	}
}

func TestViewOnEmptyTable(t *testing.T) {
	tbl := NewTable()
	defer tbl.Close()

	entries, err := tbl.View(true)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty snapshot, got %d entries", len(entries))
	}
}

func TestViewAcrossMigration(t *testing.T) {
	tbl := smallTable()
	defer tbl.Close()

	n := 150
	for i := 0; i < n; i++ {
		tbl.Put(hv(uint64(i)), ptrTo("v"))
	}

	entries, err := tbl.View(true)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(entries) != n {
		t.Fatalf("View length across migrations: got %d, want %d", len(entries), n)
	}
}
