// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package meshmodel is the in-memory tetrahedral/mixed-element mesh:
// a node table (coordinates plus the metric tensor field) and one
// cell table per element kind, tied together by a Grid. It plays the
// role inp.Mesh plays for gofem's FE analyses, but keyed by a local
// free-list index rather than a dense JSON-decoded array, since
// adapt operators add and remove nodes/cells constantly.
package meshmodel

// Kind identifies an element topology.
type Kind int

const (
	Tet Kind = iota
	Pyr
	Pri
	Hex
	Tri
	Qua
	Edg
)

// nodesPerKind gives the number of corner nodes for each element kind.
var nodesPerKind = map[Kind]int{
	Tet: 4,
	Pyr: 5,
	Pri: 6,
	Hex: 8,
	Tri: 3,
	Qua: 4,
	Edg: 2,
}

// NodesPerCell returns the number of nodes a cell of this kind has.
func (k Kind) NodesPerCell() int { return nodesPerKind[k] }

// String names the kind for diagnostics, mirroring inp.Cell's "Type"
// string field.
func (k Kind) String() string {
	switch k {
	case Tet:
		return "tet"
	case Pyr:
		return "pyr"
	case Pri:
		return "pri"
	case Hex:
		return "hex"
	case Tri:
		return "tri"
	case Qua:
		return "qua"
	case Edg:
		return "edg"
	}
	return "unknown"
}

// IsVolume reports whether cells of this kind are volume (3D) elements.
func (k Kind) IsVolume() bool {
	return k == Tet || k == Pyr || k == Pri || k == Hex
}

// IsFace reports whether cells of this kind bound a volume element's
// surface (a boundary/surface mesh cell).
func (k Kind) IsFace() bool {
	return k == Tri || k == Qua
}

// cornerEdges gives each kind's canonical corner-index edge pairs, the
// same "which local vertex pairs form an edge of this shape" table
// shp's FaceLocalVerts encodes for element faces.
var cornerEdges = map[Kind][][2]int{
	Tet: {{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}},
	Pyr: {{0, 1}, {1, 2}, {2, 3}, {3, 0}, {0, 4}, {1, 4}, {2, 4}, {3, 4}},
	Pri: {{0, 1}, {1, 2}, {2, 0}, {3, 4}, {4, 5}, {5, 3}, {0, 3}, {1, 4}, {2, 5}},
	Hex: {{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4}, {0, 4}, {1, 5}, {2, 6}, {3, 7}},
	Tri: {{0, 1}, {1, 2}, {2, 0}},
	Qua: {{0, 1}, {1, 2}, {2, 3}, {3, 0}},
	Edg: {{0, 1}},
}

// Edges returns k's canonical corner-index edge pairs.
func (k Kind) Edges() [][2]int { return cornerEdges[k] }
