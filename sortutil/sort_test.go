// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sortutil

import (
	"math/rand"
	"sort"
	"testing"
)

func TestByKeyAscendingSmall(t *testing.T) {
	vals := []float64{5, 3, 1, 4, 2}
	idx := []int{0, 1, 2, 3, 4}
	ByKeyAscending(idx, func(i int) float64 { return vals[i] })
	want := []int{2, 4, 1, 3, 0}
	for i := range want {
		if idx[i] != want[i] {
			t.Fatalf("ByKeyAscending = %v, want %v", idx, want)
		}
	}
}

func TestByKeyDescendingLarge(t *testing.T) {
	n := 200
	vals := make([]float64, n)
	idx := make([]int, n)
	rng := rand.New(rand.NewSource(1))
	for i := range vals {
		vals[i] = rng.Float64()
		idx[i] = i
	}
	ByKeyDescending(idx, func(i int) float64 { return vals[i] })
	for i := 1; i < n; i++ {
		if vals[idx[i]] > vals[idx[i-1]] {
			t.Fatalf("not descending at %d: %v > %v", i, vals[idx[i]], vals[idx[i-1]])
		}
	}
}

func TestByKeyAscendingLargeMatchesSort(t *testing.T) {
	n := 500
	vals := make([]float64, n)
	idx := make([]int, n)
	rng := rand.New(rand.NewSource(2))
	for i := range vals {
		vals[i] = rng.Float64()
		idx[i] = i
	}
	ByKeyAscending(idx, func(i int) float64 { return vals[i] })
	sorted := append([]float64{}, vals...)
	sort.Float64s(sorted)
	for i, id := range idx {
		if vals[id] != sorted[i] {
			t.Fatalf("mismatch at %d", i)
		}
	}
}

func TestBinarySearch(t *testing.T) {
	a := []int64{1, 3, 5, 7, 9}
	if idx, ok := BinarySearch(a, 5); !ok || idx != 2 {
		t.Fatalf("expected (2,true), got (%d,%v)", idx, ok)
	}
	if _, ok := BinarySearch(a, 6); ok {
		t.Fatalf("6 should not be found")
	}
}

func TestInsertAndRemoveSorted(t *testing.T) {
	var a []int64
	for _, v := range []int64{5, 1, 3, 2, 4} {
		a = InsertSorted(a, v)
	}
	want := []int64{1, 2, 3, 4, 5}
	for i := range want {
		if a[i] != want[i] {
			t.Fatalf("InsertSorted produced %v, want %v", a, want)
		}
	}
	var ok bool
	a, ok = RemoveSorted(a, 3)
	if !ok {
		t.Fatalf("expected removal to succeed")
	}
	if _, ok := BinarySearch(a, 3); ok {
		t.Fatalf("3 should have been removed")
	}
}
