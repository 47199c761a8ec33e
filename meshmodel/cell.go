// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meshmodel

import (
	"github.com/cpmech/goref/sortutil"
	"github.com/cpmech/goref/status"
)

// CellTable holds every cell of one Kind, indexed by a local free-list
// slot exactly like NodeTable, plus a node-to-cell adjacency list
// (sortutil.Adjacency) that plays the role inp.Mesh's Part2cells/
// Ctype2cells maps play for the static gofem mesh, but incrementally
// maintained as cells are added/removed rather than rebuilt from a
// JSON-decoded array.
type CellTable struct {
	Kind Kind

	nodes  [][]int // corner node local indices, len==Kind.NodesPerCell()
	global []int64
	owner  []int
	free   []bool

	freeHead int
	localOf  map[int64]int

	// adj maps a node's local index to the cells (by local cell index)
	// that reference it, kept current on Add/Remove.
	adj *sortutil.Adjacency

	// c2e caches each cell's edge-index handles (one per canonical
	// edge of the cell), populated lazily by the edgeidx package so
	// repeated collapse/swap passes don't re-derive it.
	c2e [][]int32

	rank, nranks int
	nextGlobal   int64
}

// NewCellTable allocates an empty table for kind, owned by rank of
// nranks total, sized for nNodeSlots node adjacency entries.
func NewCellTable(kind Kind, rank, nranks, nNodeSlots int) *CellTable {
	return &CellTable{
		Kind:       kind,
		localOf:    make(map[int64]int),
		adj:        sortutil.NewAdjacency(nNodeSlots),
		rank:       rank,
		nranks:     nranks,
		nextGlobal: int64(rank),
	}
}

func (c *CellTable) nextGlobalID() int64 {
	g := c.nextGlobal
	c.nextGlobal += int64(c.nranks)
	return g
}

// Add inserts a cell owned by this rank with the given corner node
// local indices, and returns its local index.
func (c *CellTable) Add(nodeLocals []int) (local int, global int64, err error) {
	if len(nodeLocals) != c.Kind.NodesPerCell() {
		return 0, 0, status.Errf(status.Invalid, "meshmodel.CellTable.Add", "%s cell needs %d nodes, got %d", c.Kind, c.Kind.NodesPerCell(), len(nodeLocals))
	}
	global = c.nextGlobalID()
	local, err = c.addWithGlobal(nodeLocals, global, c.rank)
	return
}

// AddGhost inserts a cell owned by a remote rank, with its global id
// already assigned there.
func (c *CellTable) AddGhost(nodeLocals []int, global int64, owner int) (int, error) {
	if _, dup := c.localOf[global]; dup {
		return 0, status.Errf(status.Invalid, "meshmodel.CellTable.AddGhost", "global id %d already present", global)
	}
	return c.addWithGlobal(nodeLocals, global, owner)
}

func (c *CellTable) addWithGlobal(nodeLocals []int, global int64, owner int) (int, error) {
	local := c.allocSlot()
	cp := make([]int, len(nodeLocals))
	copy(cp, nodeLocals)
	c.nodes[local] = cp
	c.global[local] = global
	c.owner[local] = owner
	c.free[local] = false
	c.c2e[local] = nil
	c.localOf[global] = local
	for _, n := range cp {
		c.adj.Add(n, int32(local))
	}
	return local, nil
}

func (c *CellTable) allocSlot() int {
	for i := c.freeHead; i < len(c.free); i++ {
		if c.free[i] {
			c.freeHead = i + 1
			return i
		}
	}
	c.nodes = append(c.nodes, nil)
	c.global = append(c.global, -1)
	c.owner = append(c.owner, -1)
	c.free = append(c.free, false)
	c.c2e = append(c.c2e, nil)
	c.freeHead = len(c.free)
	return len(c.free) - 1
}

// Remove detaches a cell from its nodes' adjacency lists and frees its
// slot.
func (c *CellTable) Remove(local int) error {
	if local < 0 || local >= len(c.free) || c.free[local] {
		return status.NotFoundf("meshmodel.CellTable.Remove", "no live %s cell at local index %d", c.Kind, local)
	}
	for _, n := range c.nodes[local] {
		c.adj.Remove(n, int32(local))
	}
	delete(c.localOf, c.global[local])
	c.nodes[local] = nil
	c.c2e[local] = nil
	c.free[local] = true
	if local < c.freeHead {
		c.freeHead = local
	}
	return nil
}

// Nodes returns a cell's corner node local indices.
func (c *CellTable) Nodes(local int) []int { return c.nodes[local] }

// Global returns a cell's global id.
func (c *CellTable) Global(local int) int64 { return c.global[local] }

// Owner returns a cell's owning rank.
func (c *CellTable) Owner(local int) int { return c.owner[local] }

// IsGhost reports whether a cell is owned by a different rank.
func (c *CellTable) IsGhost(local int) bool { return c.owner[local] != c.rank }

// Local returns the local index for a cell's global id.
func (c *CellTable) Local(global int64) (int, bool) {
	local, ok := c.localOf[global]
	return local, ok
}

// NLocal returns the number of local slots, live or freed.
func (c *CellTable) NLocal() int { return len(c.free) }

// IsLive reports whether a local slot holds a live cell.
func (c *CellTable) IsLive(local int) bool {
	return local >= 0 && local < len(c.free) && !c.free[local]
}

// CellsAtNode returns the local indices of every live cell referencing
// node.
func (c *CellTable) CellsAtNode(node int) []int32 { return c.adj.List(node) }

// HasNode reports whether a cell references node as one of its corners.
func (c *CellTable) HasNode(local, node int) bool {
	for _, n := range c.nodes[local] {
		if n == node {
			return true
		}
	}
	return false
}

// Edges returns a cell's cached edge-index handles, or nil if not yet
// populated.
func (c *CellTable) Edges(local int) []int32 { return c.c2e[local] }

// SetEdges caches a cell's edge-index handles.
func (c *CellTable) SetEdges(local int, edges []int32) { c.c2e[local] = edges }

// ReplaceNode swaps a cell's reference from oldNode to newNode,
// updating adjacency accordingly (used by collapse to repoint
// surviving cells at the kept node).
func (c *CellTable) ReplaceNode(local, oldNode, newNode int) error {
	found := false
	for i, n := range c.nodes[local] {
		if n == oldNode {
			c.nodes[local][i] = newNode
			found = true
		}
	}
	if !found {
		return status.NotFoundf("meshmodel.CellTable.ReplaceNode", "cell %d does not reference node %d", local, oldNode)
	}
	c.adj.Remove(oldNode, int32(local))
	c.adj.Add(newNode, int32(local))
	c.c2e[local] = nil
	return nil
}
