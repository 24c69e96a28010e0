package hatrack

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestConcurrentPutGet(t *testing.T) {
	tbl := smallTable()
	defer tbl.Close()

	writers := 16
	perWriter := 200
	var wg sync.WaitGroup

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				tbl.Put(hv(uint64(base*perWriter+i)), ptrTo("v"))
			}
		}(w)
	}
	wg.Wait()

	want := uint64(writers * perWriter)
	if got := tbl.Len(); got != want {
		t.Fatalf("Len: got %d, want %d", got, want)
	}

	for w := 0; w < writers; w++ {
		for i := 0; i < perWriter; i++ {
			if _, found, err := tbl.Get(hv(uint64(w*perWriter + i))); err != nil || !found {
				t.Fatalf("Get(%d,%d): found=%v err=%v", w, i, found, err)
			}
		}
	}
}

func TestConcurrentAddIsExclusive(t *testing.T) {
	tbl := smallTable()
	defer tbl.Close()

	h := hv(42)
	racers := 32
	var successes int32
	var wg sync.WaitGroup

	for r := 0; r < racers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := tbl.Add(h, ptrTo("v")); ok {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("exactly one concurrent Add should succeed for the same key, got %d", successes)
	}
}

func TestConcurrentPutAndMigrationPreservesAllKeys(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSizeLog = 5 // size 32, enough headroom that a flash flood of inserts
	// across goroutines doesn't out-race a single migration round's sizing.
	tbl := NewTableWithConfig(cfg)
	defer tbl.Close()

	n := 500
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			tbl.Put(hv(uint64(i)), ptrTo("v"))
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if _, found, _ := tbl.Get(hv(uint64(i))); !found {
			t.Fatalf("key %d missing after concurrent inserts across migrations", i)
		}
	}
	if got := tbl.Len(); got != uint64(n) {
		t.Fatalf("Len: got %d, want %d", got, n)
	}
}

func TestConcurrentReadersDuringWrites(t *testing.T) {
	tbl := smallTable()
	defer tbl.Close()

	n := 100
	for i := 0; i < n; i++ {
		tbl.Put(hv(uint64(i)), ptrTo("v"))
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	var readErrors int32

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					idx := uint64((seed*7919 + seed) % n)
					if _, _, err := tbl.Get(hv(idx)); err != nil {
						atomic.AddInt32(&readErrors, 1)
					}
				}
			}
		}(r)
	}

	for i := 0; i < 300; i++ {
		tbl.Put(hv(uint64(i%n)), ptrTo("v2"))
	}
	close(done)
	wg.Wait()

	if readErrors != 0 {
		t.Fatalf("got %d read errors during concurrent writes", readErrors)
	}
}

func TestConcurrentRemoveIsExclusive(t *testing.T) {
	tbl := smallTable()
	defer tbl.Close()

	h := hv(7)
	tbl.Put(h, ptrTo("v"))

	racers := 16
	var successes int32
	var wg sync.WaitGroup
	for r := 0; r < racers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, found, _ := tbl.Remove(h); found {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("exactly one concurrent Remove should report found=true, got %d", successes)
	}
}
