// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sortutil

// Adjacency is a sparse node→item list-of-lists with its own free
// list, the "adjacency list with open hashing" design spec.md §9 calls
// for in place of a flat CSR structure (which would need a full
// rebuild after every mutation). It backs the cell tables'
// node→cell adjacency (spec.md §4.2 ref_adj); the edge index keeps
// its node→edge adjacency in an lvlath graph instead.
//
// Each node has a singly linked list of entries threaded through next;
// first[node] is the head, or -1 if the node has no entries. Removed
// entries are pushed onto freeHead and reused by the next Add, the
// same single-producer/LIFO-consumed discipline spec.md §5 requires
// for in-rank free-list slots.
type Adjacency struct {
	first    []int32
	item     []int32
	next     []int32
	freeHead int32
}

// NewAdjacency creates an Adjacency with room for nodeCapacity nodes.
func NewAdjacency(nodeCapacity int) *Adjacency {
	first := make([]int32, nodeCapacity)
	for i := range first {
		first[i] = -1
	}
	return &Adjacency{first: first, freeHead: -1}
}

// ensureNode grows first[] so that node is addressable.
func (a *Adjacency) ensureNode(node int) {
	for len(a.first) <= node {
		a.first = append(a.first, -1)
	}
}

// Add records that item is adjacent to node. Duplicate (node, item)
// pairs are allowed; callers that need set semantics (cell insertion
// adding exactly one adjacency entry per node) are responsible for not
// calling Add twice for the same occurrence.
func (a *Adjacency) Add(node int, item int32) {
	a.ensureNode(node)
	var slot int32
	if a.freeHead >= 0 {
		slot = a.freeHead
		a.freeHead = a.next[slot]
	} else {
		slot = int32(len(a.item))
		a.item = append(a.item, 0)
		a.next = append(a.next, 0)
	}
	a.item[slot] = item
	a.next[slot] = a.first[node]
	a.first[node] = slot
}

// Remove deletes the first occurrence of item in node's list, pushing
// the freed slot onto the free list. Returns false if not found.
func (a *Adjacency) Remove(node int, item int32) bool {
	if node >= len(a.first) {
		return false
	}
	prev := int32(-1)
	cur := a.first[node]
	for cur >= 0 {
		if a.item[cur] == item {
			if prev < 0 {
				a.first[node] = a.next[cur]
			} else {
				a.next[prev] = a.next[cur]
			}
			a.next[cur] = a.freeHead
			a.freeHead = cur
			return true
		}
		prev = cur
		cur = a.next[cur]
	}
	return false
}

// List returns every item adjacent to node, in most-recently-added
// first order ("give me all cells touching node x" / "all edges of
// node x").
func (a *Adjacency) List(node int) []int32 {
	if node >= len(a.first) {
		return nil
	}
	var out []int32
	for cur := a.first[node]; cur >= 0; cur = a.next[cur] {
		out = append(out, a.item[cur])
	}
	return out
}

// Has reports whether item is adjacent to node.
func (a *Adjacency) Has(node int, item int32) bool {
	if node >= len(a.first) {
		return false
	}
	for cur := a.first[node]; cur >= 0; cur = a.next[cur] {
		if a.item[cur] == item {
			return true
		}
	}
	return false
}

// Clear drops every entry for node without touching other nodes'
// lists; used when a node is removed from the table it indexes.
func (a *Adjacency) Clear(node int) {
	if node >= len(a.first) {
		return
	}
	cur := a.first[node]
	for cur >= 0 {
		n := a.next[cur]
		a.next[cur] = a.freeHead
		a.freeHead = cur
		cur = n
	}
	a.first[node] = -1
}
