// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command goref-adapt runs the metric-driven tetrahedral mesh adapter
// over a .b8.ugrid/.lb8.ugrid volume mesh and an optional .solb metric
// field, the way gofem's own main.go drives fem.FEM over a .sim input.
package main

import (
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"

	"github.com/cpmech/goref/adapt"
	"github.com/cpmech/goref/edgeidx"
	"github.com/cpmech/goref/gather"
	"github.com/cpmech/goref/meshio"
	"github.com/cpmech/goref/meshmodel"
	"github.com/cpmech/goref/metric"
	"github.com/cpmech/goref/migrate"
	"github.com/cpmech/goref/partition"
	"github.com/cpmech/goref/shard"
	"github.com/cpmech/goref/status"
	"github.com/cpmech/goref/xmpi"
)

func main() {
	xmpi.Start()
	defer xmpi.Stop()

	comm := xmpi.World
	rank, nranks := comm.Rank(), comm.Size()

	inputMesh, _ := io.ArgToFilename(0, "", ".ugrid", true)
	inputMetric := io.ArgToString(1, "")
	outputMesh, _ := io.ArgToFilename(2, "", ".ugrid", false)
	sweeps := io.ArgToInt(3, 10)
	toTets := io.ArgToBool(4, false)
	verbose := io.ArgToBool(5, true)

	if rank == 0 && verbose {
		io.PfWhite("\ngoref-adapt -- metric-driven tetrahedral mesh adaptation\n\n")
		io.Pf("%v\n", io.ArgsTable(
			"input mesh", "inputMesh", inputMesh,
			"input metric field", "inputMetric", inputMetric,
			"output mesh", "outputMesh", outputMesh,
			"max passes", "sweeps", sweeps,
			"shard mixed cells to tets first", "toTets", toTets,
			"show messages", "verbose", verbose,
		))
	}

	if err := run(comm, rank, nranks, inputMesh, inputMetric, outputMesh, sweeps, toTets, verbose); err != nil {
		if rank == 0 {
			io.PfRed("ERROR: %v\n", err)
		}
		return
	}
}

// run performs the whole load/partition/adapt/gather/write pipeline,
// returning any *status.Error encountered instead of panicking, per
// spec.md §7's error-returns-only rule.
func run(comm *xmpi.Comm, rank, nranks int, inputMesh, inputMetric, outputMesh string, sweeps int, toTets, verbose bool) error {
	ug, err := meshio.ReadUgrid(inputMesh)
	if err != nil {
		return status.Errf(status.Failure, "main.run", "reading %q: %v", inputMesh, err)
	}

	var tensors []metric.Tensor
	if inputMetric != "" {
		tensors, err = meshio.ReadSolb(inputMetric)
		if err != nil {
			return status.Errf(status.Failure, "main.run", "reading %q: %v", inputMetric, err)
		}
		if len(tensors) != len(ug.XYZ) {
			return status.Errf(status.Invalid, "main.run", "%q has %d tensors, mesh has %d nodes", inputMetric, len(tensors), len(ug.XYZ))
		}
	}

	g := meshmodel.NewGrid(rank, nranks)
	locals := make([]int, len(ug.XYZ))
	for i, xyz := range ug.XYZ {
		m := metric.Tensor{1, 0, 1, 0, 0, 1}
		if tensors != nil {
			m = tensors[i]
		}
		local, _, addErr := g.Nodes.Add(xyz, m)
		if addErr != nil {
			return status.Errf(status.Failure, "main.run", "adding node %d: %v", i, addErr)
		}
		locals[i] = local
	}
	if err := addCells(g, meshmodel.Tet, ug.TetC2N, locals); err != nil {
		return err
	}
	if err := addCells(g, meshmodel.Pyr, ug.PyrC2N, locals); err != nil {
		return err
	}
	if err := addCells(g, meshmodel.Pri, ug.PriC2N, locals); err != nil {
		return err
	}
	if err := addCells(g, meshmodel.Hex, ug.HexC2N, locals); err != nil {
		return err
	}
	if err := addCells(g, meshmodel.Tri, ug.TriC2N, locals); err != nil {
		return err
	}
	if err := addCells(g, meshmodel.Qua, ug.QuaC2N, locals); err != nil {
		return err
	}

	if nranks > 1 {
		if err := partitionAndMigrate(g, comm, nranks); err != nil {
			return err
		}
		if err := g.Nodes.GhostReal(comm); err != nil {
			return status.Errf(status.Failure, "main.run", "ghost refresh after migration: %v", err)
		}
	}

	if toTets {
		converted, shardErr := shard.ToTets(g)
		if shardErr != nil {
			return status.Errf(status.Failure, "main.run", "sharding mixed cells: %v", shardErr)
		}
		if rank == 0 && verbose {
			io.Pf("sharded to tets: %v\n", converted)
		}
	}

	idx, err := edgeidx.BuildFromGrid(g)
	if err != nil {
		return status.Errf(status.Failure, "main.run", "building edge index: %v", err)
	}

	p := adapt.DefaultParams()
	d := adapt.NewDriver(g, idx, comm, rank, p)
	d.MaxPasses = sweeps
	history, err := d.Run()
	if err != nil {
		return status.Errf(status.Failure, "main.run", "adapt driver: %v", err)
	}
	if rank == 0 && verbose {
		for i, c := range history {
			io.Pf("pass %d: collapsed=%d split=%d swapped=%d smoothed=%d\n", i, c.Collapsed, c.Split, c.Swapped, c.Smoothed)
		}
	}

	mesh, err := gather.Gather(g, comm)
	if err != nil {
		return status.Errf(status.Failure, "main.run", "gather: %v", err)
	}
	if rank != 0 {
		return nil
	}

	out := &meshio.Ugrid{XYZ: mesh.NodeXYZ}
	out.TetC2N = intsToFixed4(mesh.Cells[meshmodel.Tet])
	out.PyrC2N = intsToFixed5(mesh.Cells[meshmodel.Pyr])
	out.PriC2N = intsToFixed6(mesh.Cells[meshmodel.Pri])
	out.HexC2N = intsToFixed8(mesh.Cells[meshmodel.Hex])
	out.TriC2N = intsToFixed3(mesh.Cells[meshmodel.Tri])
	out.QuaC2N = intsToFixed4Qua(mesh.Cells[meshmodel.Qua])
	out.TriFaceID = make([]int, len(out.TriC2N))
	out.QuaFaceID = make([]int, len(out.QuaC2N))
	if err := meshio.WriteUgrid(outputMesh, out); err != nil {
		return status.Errf(status.Failure, "main.run", "writing %q: %v", outputMesh, err)
	}
	if verbose {
		io.Pf("\nwrote %d nodes, %d tets to %q\n", len(out.XYZ), len(out.TetC2N), outputMesh)
	}
	return nil
}

// addCells adds every cell in c2n (indices into the original ugrid
// node order) to g's table for kind, remapped through locals (the
// NodeTable local index each ugrid node was actually assigned).
func addCells(g *meshmodel.Grid, kind meshmodel.Kind, c2n [][]int, locals []int) error {
	if len(c2n) == 0 {
		return nil
	}
	width := kind.NodesPerCell()
	ct := g.Cells(kind)
	for i, corners := range c2n {
		if len(corners) != width {
			return status.Errf(status.Invalid, "main.addCells", "%s cell %d has %d corners, want %d", kind, i, len(corners), width)
		}
		nodes := make([]int, width)
		for j, c := range corners {
			if c < 0 || c >= len(locals) {
				return status.Errf(status.Invalid, "main.addCells", "%s cell %d references out-of-range node %d", kind, i, c)
			}
			nodes[j] = locals[c]
		}
		if _, _, err := ct.Add(nodes); err != nil {
			return status.Errf(status.Failure, "main.addCells", "adding %s cell %d: %v", kind, i, err)
		}
	}
	return nil
}

// partitionAndMigrate computes an RCB partition over this rank's
// currently-owned nodes and migrates ownership to match, spec.md
// §4.8's "Partitioner and migration" component.
func partitionAndMigrate(g *meshmodel.Grid, comm *xmpi.Comm, nranks int) error {
	nt := g.Nodes
	var points []partition.Point
	var globals []int64
	for local := 0; local < nt.NLocal(); local++ {
		if !nt.IsLive(local) || nt.IsGhost(local) {
			continue
		}
		points = append(points, partition.Point{XYZ: nt.XYZ(local), Weight: 1})
		globals = append(globals, nt.Global(local))
	}
	parts := partition.RCB(points, nranks)
	newOwner := make(map[int64]int, len(globals))
	for i, g := range globals {
		newOwner[g] = parts[i]
	}
	if _, err := migrate.Migrate(g, comm, newOwner); err != nil {
		return status.Errf(status.Failure, "main.partitionAndMigrate", "%v", err)
	}
	return nil
}

func intsToFixed3(cells [][]int) [][3]int {
	out := make([][3]int, len(cells))
	for i, c := range cells {
		out[i] = [3]int{c[0], c[1], c[2]}
	}
	return out
}

func intsToFixed4(cells [][]int) [][4]int {
	out := make([][4]int, len(cells))
	for i, c := range cells {
		out[i] = [4]int{c[0], c[1], c[2], c[3]}
	}
	return out
}

func intsToFixed4Qua(cells [][]int) [][4]int { return intsToFixed4(cells) }

func intsToFixed5(cells [][]int) [][5]int {
	out := make([][5]int, len(cells))
	for i, c := range cells {
		out[i] = [5]int{c[0], c[1], c[2], c[3], c[4]}
	}
	return out
}

func intsToFixed6(cells [][]int) [][6]int {
	out := make([][6]int, len(cells))
	for i, c := range cells {
		out[i] = [6]int{c[0], c[1], c[2], c[3], c[4], c[5]}
	}
	return out
}

func intsToFixed8(cells [][]int) [][8]int {
	out := make([][8]int, len(cells))
	for i, c := range cells {
		out[i] = [8]int{c[0], c[1], c[2], c[3], c[4], c[5], c[6], c[7]}
	}
	return out
}

var _ = mpi.IsOn
