package hatrack

import (
	"math/rand"
	"sort"
	"testing"
)

func isSortedByEpoch(a []Entry) bool {
	for i := 1; i < len(a); i++ {
		if a[i].CreateEpoch < a[i-1].CreateEpoch {
			return false
		}
	}
	return true
}

func TestSortEntriesSmallBelowThreshold(t *testing.T) {
	a := []Entry{{CreateEpoch: 5}, {CreateEpoch: 1}, {CreateEpoch: 3}}
	sortEntriesByCreateEpoch(a, 32)
	if !isSortedByEpoch(a) {
		t.Fatalf("not sorted: %+v", a)
	}
}

func TestSortEntriesLargeAboveThreshold(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := make([]Entry, 500)
	for i := range a {
		a[i] = Entry{CreateEpoch: uint64(rng.Intn(1000))}
	}
	sortEntriesByCreateEpoch(a, 32)
	if !isSortedByEpoch(a) {
		t.Fatal("large slice not sorted")
	}
	if !sort.SliceIsSorted(a, func(i, j int) bool { return a[i].CreateEpoch < a[j].CreateEpoch }) {
		t.Fatal("sort.SliceIsSorted disagrees")
	}
}

func TestSortEntriesEmptyAndSingleton(t *testing.T) {
	sortEntriesByCreateEpoch(nil, 32)
	a := []Entry{{CreateEpoch: 1}}
	sortEntriesByCreateEpoch(a, 32)
	if a[0].CreateEpoch != 1 {
		t.Fatal("singleton slice mutated")
	}
}

func TestSortEntriesTwoElements(t *testing.T) {
	a := []Entry{{CreateEpoch: 2}, {CreateEpoch: 1}}
	sortEntriesByCreateEpoch(a, 0)
	if a[0].CreateEpoch != 1 || a[1].CreateEpoch != 2 {
		t.Fatalf("two-element sort failed: %+v", a)
	}
}

func TestSortEntriesDuplicateKeys(t *testing.T) {
	a := make([]Entry, 100)
	for i := range a {
		a[i] = Entry{CreateEpoch: uint64(i % 3)}
	}
	sortEntriesByCreateEpoch(a, 8)
	if !isSortedByEpoch(a) {
		t.Fatal("not sorted with many duplicate keys")
	}
}
