package hatrack

// sortEntriesByCreateEpoch orders entries by CreateEpoch in place. Runs
// span larger than threshold are quicksorted (median-of-three pivot);
// everything at or below threshold, including every quicksort partition
// once it shrinks that far, falls back to insertion sort. sort.Slice
// doesn't expose a tunable crossover point, which is the whole reason
// this is hand-rolled rather than a one-line call to it.
func sortEntriesByCreateEpoch(entries []Entry, threshold int) {
	if threshold < 1 {
		threshold = 1
	}
	quicksortEntries(entries, threshold)
}

func quicksortEntries(a []Entry, threshold int) {
	for len(a) > threshold && len(a) >= 3 {
		p := partitionEntries(a)
		// Recurse into the smaller half, loop over the larger one, to
		// bound stack depth at O(log n) on adversarial input.
		if p < len(a)-p-1 {
			quicksortEntries(a[:p], threshold)
			a = a[p+1:]
		} else {
			quicksortEntries(a[p+1:], threshold)
			a = a[:p]
		}
	}
	insertionSortEntries(a)
}

func partitionEntries(a []Entry) int {
	lo, hi, mid := 0, len(a)-1, len(a)/2
	if a[mid].CreateEpoch < a[lo].CreateEpoch {
		a[mid], a[lo] = a[lo], a[mid]
	}
	if a[hi].CreateEpoch < a[lo].CreateEpoch {
		a[hi], a[lo] = a[lo], a[hi]
	}
	if a[hi].CreateEpoch < a[mid].CreateEpoch {
		a[hi], a[mid] = a[mid], a[hi]
	}
	pivot := a[mid].CreateEpoch
	a[mid], a[hi-1] = a[hi-1], a[mid]

	i, j := lo, hi-1
	for {
		for i++; a[i].CreateEpoch < pivot; i++ {
		}
		for j--; a[j].CreateEpoch > pivot; j-- {
		}
		if i >= j {
			break
		}
		a[i], a[j] = a[j], a[i]
	}
	a[i], a[hi-1] = a[hi-1], a[i]
	return i
}

func insertionSortEntries(a []Entry) {
	for i := 1; i < len(a); i++ {
		v := a[i]
		j := i - 1
		for j >= 0 && a[j].CreateEpoch > v.CreateEpoch {
			a[j+1] = a[j]
			j--
		}
		a[j+1] = v
	}
}
