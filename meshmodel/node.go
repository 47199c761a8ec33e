// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meshmodel

import (
	"sort"

	"github.com/cpmech/goref/metric"
	"github.com/cpmech/goref/sortutil"
	"github.com/cpmech/goref/status"
	"github.com/cpmech/goref/xmpi"
)

// NodeTable holds every node's coordinates and metric tensor, indexed
// by a local free-list slot (mirroring inp.Mesh's dense o.Verts array,
// but with removal/reuse since adapt operators add and drop nodes
// continuously rather than decoding a static JSON file).
type NodeTable struct {
	xyz      [][3]float64
	m        []metric.Tensor
	logM     []metric.Tensor
	global   []int64
	owner    []int
	age      []int
	free     []bool
	freeHead int

	localOf      map[int64]int
	sortedGlobal []int64

	// unused holds every global id freed by Remove since the last
	// SynchronizeGlobals, sorted ascending; NextGlobal recycles from
	// it before minting a fresh id, per spec.md §4.1's "pops from
	// sorted unused; else returns max_global++".
	unused []int64

	rank, nranks int
	nextGlobal   int64

	// Tol is the geometric coincidence tolerance used by callers doing
	// node-merge checks (collapse/split); exposed like inp.Ztol.
	Tol float64
}

// NewNodeTable allocates an empty table owned by rank of nranks total.
func NewNodeTable(rank, nranks int) *NodeTable {
	return &NodeTable{
		localOf:    make(map[int64]int),
		rank:       rank,
		nranks:     nranks,
		nextGlobal: int64(rank),
		Tol:        1e-12,
	}
}

// NextGlobal returns the next global id this rank should hand to a
// freshly created node: it pops the smallest recycled id from the
// unused stack if one is available (spec.md §4.1), else mints a fresh
// one by striding the shared counter by nranks so concurrently-running
// ranks never collide without a synchronization round-trip.
func (t *NodeTable) NextGlobal() int64 {
	if len(t.unused) > 0 {
		g := t.unused[0]
		t.unused = t.unused[1:]
		return g
	}
	g := t.nextGlobal
	t.nextGlobal += int64(t.nranks)
	return g
}

// Add inserts a node owned by this rank at xyz with metric m, reusing a
// freed slot if one is available, and returns its local index.
func (t *NodeTable) Add(xyz [3]float64, m metric.Tensor) (local int, global int64, err error) {
	global = t.NextGlobal()
	local, err = t.addWithGlobal(xyz, m, global, t.rank)
	return
}

// AddGhost inserts a node owned by a remote rank, with a global id
// already assigned there (e.g. received during ghost exchange or
// migration).
func (t *NodeTable) AddGhost(xyz [3]float64, m metric.Tensor, global int64, owner int) (local int, err error) {
	if _, dup := t.localOf[global]; dup {
		return 0, status.Errf(status.Invalid, "meshmodel.AddGhost", "global id %d already present", global)
	}
	return t.addWithGlobal(xyz, m, global, owner)
}

func (t *NodeTable) addWithGlobal(xyz [3]float64, m metric.Tensor, global int64, owner int) (int, error) {
	logm, err := metric.LogM(m)
	if err != nil {
		return 0, status.Errf(status.Invalid, "meshmodel.Add", "metric at node is not SPD: %v", err)
	}
	local := t.allocSlot()
	t.xyz[local] = xyz
	t.m[local] = m
	t.logM[local] = logm
	t.global[local] = global
	t.owner[local] = owner
	t.age[local] = 0
	t.free[local] = false
	t.localOf[global] = local
	t.sortedGlobal = sortutil.InsertSorted(t.sortedGlobal, global)
	return local, nil
}

// allocSlot returns a free slot index, growing the backing arrays if
// none is available — the same singly-linked free list idiom as
// sortutil.Adjacency, applied here to node storage instead of edges.
func (t *NodeTable) allocSlot() int {
	for i := t.freeHead; i < len(t.free); i++ {
		if t.free[i] {
			t.freeHead = i + 1
			return i
		}
	}
	t.xyz = append(t.xyz, [3]float64{})
	t.m = append(t.m, metric.Tensor{})
	t.logM = append(t.logM, metric.Tensor{})
	t.global = append(t.global, -1)
	t.owner = append(t.owner, -1)
	t.age = append(t.age, 0)
	t.free = append(t.free, false)
	t.freeHead = len(t.free)
	return len(t.free) - 1
}

// Remove frees a node's slot. The caller is responsible for having
// already detached every cell that referenced it.
func (t *NodeTable) Remove(local int) error {
	if local < 0 || local >= len(t.free) || t.free[local] {
		return status.NotFoundf("meshmodel.Remove", "no live node at local index %d", local)
	}
	g := t.global[local]
	delete(t.localOf, g)
	if idx, ok := sortutil.BinarySearch(t.sortedGlobal, g); ok {
		t.sortedGlobal, _ = sortutil.RemoveSorted(t.sortedGlobal, t.sortedGlobal[idx])
	}
	if t.owner[local] == t.rank {
		t.unused = sortutil.InsertSorted(t.unused, g)
	}
	t.free[local] = true
	if local < t.freeHead {
		t.freeHead = local
	}
	return nil
}

// Local returns the local index for a global id.
func (t *NodeTable) Local(global int64) (int, bool) {
	local, ok := t.localOf[global]
	return local, ok
}

// Global returns the global id of a local node.
func (t *NodeTable) Global(local int) int64 { return t.global[local] }

// Owner returns the owning rank of a local node.
func (t *NodeTable) Owner(local int) int { return t.owner[local] }

// SetOwner reassigns a local node's owning rank, used by migrate once
// a node's new owner has taken on the canonical copy.
func (t *NodeTable) SetOwner(local, owner int) { t.owner[local] = owner }

// IsGhost reports whether a local node is owned by a different rank.
func (t *NodeTable) IsGhost(local int) bool { return t.owner[local] != t.rank }

// XYZ returns a local node's coordinates.
func (t *NodeTable) XYZ(local int) [3]float64 { return t.xyz[local] }

// SetXYZ updates a local node's coordinates (used by smooth).
func (t *NodeTable) SetXYZ(local int, xyz [3]float64) { t.xyz[local] = xyz }

// Metric returns a local node's metric tensor.
func (t *NodeTable) Metric(local int) metric.Tensor { return t.m[local] }

// LogMetric returns a local node's log-metric tensor, cached so the
// metric kernel's log-Euclidean interpolation never has to call LogM
// per edge evaluation.
func (t *NodeTable) LogMetric(local int) metric.Tensor { return t.logM[local] }

// SetMetric updates both the metric and its cached log, keeping the
// two in sync (required for RatioQuadrature/Interpolate callers that
// read LogMetric directly).
func (t *NodeTable) SetMetric(local int, m metric.Tensor) error {
	logm, err := metric.LogM(m)
	if err != nil {
		return status.Errf(status.Invalid, "meshmodel.SetMetric", "metric is not SPD: %v", err)
	}
	t.m[local] = m
	t.logM[local] = logm
	return nil
}

// Age returns a node's smoother age counter.
func (t *NodeTable) Age(local int) int { return t.age[local] }

// BumpAge increments a node's smoother age counter.
func (t *NodeTable) BumpAge(local int) { t.age[local]++ }

// ResetAge zeroes a node's smoother age counter.
func (t *NodeTable) ResetAge(local int) { t.age[local] = 0 }

// NLocal returns the number of local slots, live or freed.
func (t *NodeTable) NLocal() int { return len(t.free) }

// IsLive reports whether a local slot holds a live node.
func (t *NodeTable) IsLive(local int) bool {
	return local >= 0 && local < len(t.free) && !t.free[local]
}

// SynchronizeNextGlobal reconciles this rank's next-global-id counter
// against every other rank's, so that a migration round that moved
// ownership of high-numbered nodes doesn't cause a later Add to
// collide with an id another rank already minted. Mirrors the
// AllReduceMax use inside xmpi.
func (t *NodeTable) SynchronizeNextGlobal(comm *xmpi.Comm) {
	hi := comm.AllReduceMaxInt(int(t.nextGlobal))
	if int64(hi) > t.nextGlobal {
		t.nextGlobal = int64(hi)
	}
}

// SynchronizeGlobals implements spec.md §4.1's end-of-pass
// renumbering: every rank's freed globals (the "unused" stack) are
// gathered into one collectively-agreed sorted list, and every live
// node's global id is shifted down by however many unused ids preceded
// it, collapsing the numbering dense again. Because this table mints
// fresh ids by striding a shared counter by nranks (rather than a
// single "max_global++" one rank could race on), there is no
// "shift new globals by the count lower ranks minted" step to perform
// separately — striding already keeps concurrently-minted ids
// collision-free, so the only collective work left is eliminating the
// gaps Remove left behind. Two consecutive calls are idempotent: the
// second sees an empty unused stack on every rank and changes nothing.
func (t *NodeTable) SynchronizeGlobals(comm *xmpi.Comm) error {
	n := comm.Size()
	lens := comm.AllGatherInts(len(t.unused))

	var merged []int64
	for root := 0; root < n; root++ {
		buf := make([]float64, lens[root])
		if comm.Rank() == root {
			for i, g := range t.unused {
				buf[i] = float64(g)
			}
		}
		comm.BcastFloats(buf, root)
		for _, v := range buf {
			merged = sortutil.InsertSorted(merged, int64(v))
		}
	}

	for local := 0; local < len(t.free); local++ {
		if !t.IsLive(local) {
			continue
		}
		old := t.global[local]
		shift := int64(sort.Search(len(merged), func(i int) bool { return merged[i] >= old }))
		newG := old - shift
		if newG != old {
			delete(t.localOf, old)
			t.global[local] = newG
			t.localOf[newG] = local
		}
	}

	t.sortedGlobal = t.sortedGlobal[:0]
	maxLive := int64(-1)
	for local := 0; local < len(t.free); local++ {
		if !t.IsLive(local) {
			continue
		}
		t.sortedGlobal = sortutil.InsertSorted(t.sortedGlobal, t.global[local])
		if t.global[local] > maxLive {
			maxLive = t.global[local]
		}
	}

	base := maxLive + 1
	rem := base % int64(t.nranks)
	want := int64(t.rank)
	if rem != want {
		base += (want - rem + int64(t.nranks)) % int64(t.nranks)
	}
	t.nextGlobal = base
	t.unused = nil
	return nil
}

// NodeRecord is one node's full wire record, the unit migrate and
// gather ship between ranks.
type NodeRecord struct {
	Global int64
	XYZ    [3]float64
	M      metric.Tensor
	Owner  int
}

// AddMany is the deduplicated bulk insert spec.md §4.1 names
// ("add_many(globals[])"), used by migrate when it receives a batch
// of nodes that may already exist locally as ghosts: a record whose
// global id is already present is left untouched (the existing copy
// is assumed current or about to be refreshed by GhostReal) rather
// than overwritten, matching spec.md §4.8's "additions are idempotent
// on globals". It returns the local index each record now occupies.
func (t *NodeTable) AddMany(records []NodeRecord) ([]int, error) {
	locals := make([]int, len(records))
	for i, r := range records {
		if local, ok := t.Local(r.Global); ok {
			locals[i] = local
			continue
		}
		local, err := t.addWithGlobal(r.XYZ, r.M, r.Global, r.Owner)
		if err != nil {
			return nil, status.Errf(status.Invalid, "meshmodel.AddMany", "record %d (global %d): %v", i, r.Global, err)
		}
		locals[i] = local
	}
	return locals, nil
}

// Unreferenced reports every local node for which isReferenced
// (typically "does any local cell still reference this node") is
// false — the set migrate's step 4 removes after dropping local cells
// whose nodes all moved away.
func (t *NodeTable) Unreferenced(isReferenced func(local int) bool) []int {
	var out []int
	for local := 0; local < len(t.free); local++ {
		if t.IsLive(local) && !isReferenced(local) {
			out = append(out, local)
		}
	}
	return out
}

// ghostGroups buckets every ghost node's local index by its owner
// rank, in a fixed order so a GhostReal/GhostInt reply can be zipped
// back onto the right local slots.
func (t *NodeTable) ghostGroups() map[int][]int {
	groups := make(map[int][]int)
	for local := 0; local < len(t.free); local++ {
		if t.IsLive(local) && t.IsGhost(local) {
			groups[t.owner[local]] = append(groups[t.owner[local]], local)
		}
	}
	return groups
}

// GhostReal refreshes every ghost node's coordinates and metric from
// its owner, the two-phase all-to-all-v exchange of spec.md §4.1:
// round one asks each owner for the globals this rank holds as
// ghosts, round two has the owner reply with xyz+metric (9 floats per
// node). Non-owned nodes are never written to except through this
// call, per spec.md §3's "writes to metric and coordinates of
// non-owned nodes are forbidden".
func (t *NodeTable) GhostReal(comm *xmpi.Comm) error {
	n := comm.Size()
	groups := t.ghostGroups()

	reqSend := make([]xmpi.Payload, n)
	req := xmpi.Payload{Counts: make([]int, n)}
	for peer := 0; peer < n; peer++ {
		locals := groups[peer]
		req.Counts[peer] = len(locals)
		for _, local := range locals {
			req.Data = append(req.Data, float64(t.global[local]))
		}
	}
	reqSend[comm.Rank()] = req

	asked, err := comm.AllToAllVPerPeer(reqSend)
	if err != nil {
		return status.Errf(status.Failure, "meshmodel.GhostReal", "request round: %v", err)
	}

	replySend := make([]xmpi.Payload, n)
	reply := xmpi.Payload{Counts: make([]int, n)}
	for peer, globals := range asked {
		reply.Counts[peer] = len(globals) * 9
		for _, g := range globals {
			local, ok := t.Local(int64(g))
			if !ok {
				return status.Errf(status.Failure, "meshmodel.GhostReal", "rank %d asked for global %d which this rank does not own", peer, int64(g))
			}
			xyz := t.xyz[local]
			m := t.m[local]
			reply.Data = append(reply.Data, xyz[0], xyz[1], xyz[2], m[0], m[1], m[2], m[3], m[4], m[5])
		}
	}
	replySend[comm.Rank()] = reply

	answers, err := comm.AllToAllVPerPeer(replySend)
	if err != nil {
		return status.Errf(status.Failure, "meshmodel.GhostReal", "reply round: %v", err)
	}

	for peer, locals := range groups {
		data := answers[peer]
		if len(data) != len(locals)*9 {
			return status.Errf(status.Failure, "meshmodel.GhostReal", "rank %d replied with %d floats, expected %d", peer, len(data), len(locals)*9)
		}
		for i, local := range locals {
			off := i * 9
			t.xyz[local] = [3]float64{data[off], data[off+1], data[off+2]}
			m := metric.Tensor{data[off+3], data[off+4], data[off+5], data[off+6], data[off+7], data[off+8]}
			logm, err := metric.LogM(m)
			if err != nil {
				return status.Errf(status.Invalid, "meshmodel.GhostReal", "owner's metric for local %d is not SPD: %v", local, err)
			}
			t.m[local] = m
			t.logM[local] = logm
		}
	}
	return nil
}

// GhostInt refreshes a caller-chosen scalar per ghost node from its
// owner, e.g. the age counter swap bumps on non-local rejection
// (spec.md §4.6); get reads an owned node's value, set writes a
// ghost's refreshed value.
func (t *NodeTable) GhostInt(comm *xmpi.Comm, get func(owned int) int, set func(ghost int, v int)) error {
	n := comm.Size()
	groups := t.ghostGroups()

	reqSend := make([]xmpi.Payload, n)
	req := xmpi.Payload{Counts: make([]int, n)}
	for peer := 0; peer < n; peer++ {
		locals := groups[peer]
		req.Counts[peer] = len(locals)
		for _, local := range locals {
			req.Data = append(req.Data, float64(t.global[local]))
		}
	}
	reqSend[comm.Rank()] = req

	asked, err := comm.AllToAllVPerPeer(reqSend)
	if err != nil {
		return status.Errf(status.Failure, "meshmodel.GhostInt", "request round: %v", err)
	}

	replySend := make([]xmpi.Payload, n)
	reply := xmpi.Payload{Counts: make([]int, n)}
	for peer, globals := range asked {
		reply.Counts[peer] = len(globals)
		for _, g := range globals {
			local, ok := t.Local(int64(g))
			if !ok {
				return status.Errf(status.Failure, "meshmodel.GhostInt", "rank %d asked for global %d which this rank does not own", peer, int64(g))
			}
			reply.Data = append(reply.Data, float64(get(local)))
		}
	}
	replySend[comm.Rank()] = reply

	answers, err := comm.AllToAllVPerPeer(replySend)
	if err != nil {
		return status.Errf(status.Failure, "meshmodel.GhostInt", "reply round: %v", err)
	}

	for peer, locals := range groups {
		data := answers[peer]
		if len(data) != len(locals) {
			return status.Errf(status.Failure, "meshmodel.GhostInt", "rank %d replied with %d values, expected %d", peer, len(data), len(locals))
		}
		for i, local := range locals {
			set(local, int(data[i]))
		}
	}
	return nil
}
