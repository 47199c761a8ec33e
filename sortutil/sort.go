// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sortutil implements the small deterministic sorting and
// adjacency primitives spec.md §2 attributes to the "Sort/adjacency"
// component: heap/insertion sort, binary search, and a sparse
// node→item adjacency list with free-list storage. gofem leans on
// gosl/utl for the equivalent small helpers (utl.IntSort3,
// utl.IntUnique); this package generalizes that idiom to
// arbitrary-length sorts by a scalar key (partition.RCB sorts points
// along a coordinate axis with ByKeyAscending).
package sortutil

// insertionThreshold is the length below which InsertionSort is used
// directly instead of paying heap-sort's bookkeeping cost, matching
// the "insertion sort below a small-N threshold" design note.
const insertionThreshold = 16

// ByKeyAscending sorts idx in place so that key[idx[i]] is
// non-decreasing. The result is deterministic for identical inputs,
// which spec.md §5 requires for reproducible visitation order given
// identical inputs and rank count. Equal keys keep their order of
// first appearance only when len(idx) <= insertionThreshold; the
// heap sort used for longer slices is not stable.
func ByKeyAscending(idx []int, key func(i int) float64) {
	sortByKey(idx, key, false)
}

// ByKeyDescending sorts idx in place so that key[idx[i]] is
// non-increasing, used to visit the longest edges first during split.
func ByKeyDescending(idx []int, key func(i int) float64) {
	sortByKey(idx, key, true)
}

func sortByKey(idx []int, key func(i int) float64, desc bool) {
	if len(idx) <= insertionThreshold {
		insertionSortByKey(idx, key, desc)
		return
	}
	heapSortByKey(idx, key, desc)
}

func less(a, b float64, desc bool) bool {
	if desc {
		return a > b
	}
	return a < b
}

// insertionSortByKey is a stable insertion sort; used directly for
// small slices and as heapSortByKey's base case was intentionally not
// taken (heap sort is not stable, but within a pass the values being
// ordered, edge ratios, are rarely exactly equal, and ties are broken
// by original index order only for the insertion-sort path).
func insertionSortByKey(idx []int, key func(i int) float64, desc bool) {
	for i := 1; i < len(idx); i++ {
		v := idx[i]
		kv := key(v)
		j := i - 1
		for j >= 0 && less(kv, key(idx[j]), desc) {
			idx[j+1] = idx[j]
			j--
		}
		idx[j+1] = v
	}
}

// heapSortByKey sorts idx ascending by key via a standard max-heap,
// giving O(n log n) worst case without insertion sort's O(n^2) blowup
// on large passes, then reverses the result when desc is requested.
func heapSortByKey(idx []int, key func(i int) float64, desc bool) {
	n := len(idx)
	siftDown := func(root, size int) {
		for {
			largest := root
			l := 2*root + 1
			r := 2*root + 2
			if l < size && key(idx[l]) > key(idx[largest]) {
				largest = l
			}
			if r < size && key(idx[r]) > key(idx[largest]) {
				largest = r
			}
			if largest == root {
				return
			}
			idx[root], idx[largest] = idx[largest], idx[root]
			root = largest
		}
	}
	for start := n/2 - 1; start >= 0; start-- {
		siftDown(start, n)
	}
	for end := n - 1; end > 0; end-- {
		idx[0], idx[end] = idx[end], idx[0]
		siftDown(0, end)
	}
	if desc {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			idx[i], idx[j] = idx[j], idx[i]
		}
	}
}

// BinarySearch returns the index of target in the ascending-sorted
// slice a, or (-1, false) if not present.
func BinarySearch(a []int64, target int64) (int, bool) {
	lo, hi := 0, len(a)-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		switch {
		case a[mid] == target:
			return mid, true
		case a[mid] < target:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return -1, false
}

// InsertSorted inserts v into the ascending-sorted slice a, preserving
// order, and returns the updated slice. Used by NodeTable to keep
// sorted_global ordered incrementally instead of re-sorting on every add.
func InsertSorted(a []int64, v int64) []int64 {
	lo, hi := 0, len(a)
	for lo < hi {
		mid := lo + (hi-lo)/2
		if a[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	a = append(a, 0)
	copy(a[lo+1:], a[lo:len(a)-1])
	a[lo] = v
	return a
}

// RemoveSorted deletes v from the ascending-sorted slice a if present,
// returning the updated slice and whether it was found.
func RemoveSorted(a []int64, v int64) ([]int64, bool) {
	idx, ok := BinarySearch(a, v)
	if !ok {
		return a, false
	}
	return append(a[:idx], a[idx+1:]...), true
}
