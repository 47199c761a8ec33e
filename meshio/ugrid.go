// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package meshio implements the bit-exact file formats spec.md §6
// names: AFLR3-style .b8.ugrid/.lb8.ugrid unformatted streams, the
// GMF-keyword-framed .meshb mesh format, and its companion .solb
// metric field. None of the teacher's own I/O (inp/msh.go's
// JSON-decoded inp.Mesh) or the rest of the retrieved pack reads these
// binary scientific-mesh formats, so this package is built directly
// on encoding/binary and bufio rather than adapting a corpus library
// — see DESIGN.md for why no third-party codec could serve here.
package meshio

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/cpmech/goref/status"
)

// Ugrid is the in-memory image of a .b8.ugrid/.lb8.ugrid stream: a
// mixed-element volume mesh plus its boundary triangulation, with
// every node index 0-based (the on-disk format is 1-based).
type Ugrid struct {
	XYZ [][3]float64

	TriC2N    [][3]int
	TriFaceID []int
	QuaC2N    [][4]int
	QuaFaceID []int

	TetC2N [][4]int
	PyrC2N [][5]int
	PriC2N [][6]int
	HexC2N [][8]int
}

// byteOrderFor picks big-endian for ".b8.ugrid" and little-endian for
// ".lb8.ugrid", per spec.md §6 "Endianness per extension".
func byteOrderFor(path string) (binary.ByteOrder, error) {
	switch {
	case strings.HasSuffix(path, ".lb8.ugrid"):
		return binary.LittleEndian, nil
	case strings.HasSuffix(path, ".b8.ugrid"):
		return binary.BigEndian, nil
	}
	return nil, status.Errf(status.Invalid, "meshio.byteOrderFor", "%q is not a .b8.ugrid or .lb8.ugrid path", path)
}

// ReadUgrid decodes a .b8.ugrid/.lb8.ugrid stream per spec.md §6's
// exact layout: a 7xint32 header, nnode coordinate triples, every
// boundary cell's connectivity and faceids, then every volume cell's
// connectivity, in [nnode,ntri,nqua,ntet,npyr,npri,nhex] header order.
func ReadUgrid(path string) (*Ugrid, error) {
	order, err := byteOrderFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, status.Errf(status.NotFound, "meshio.ReadUgrid", "open %q: %v", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var header [7]int32
	if err := binary.Read(r, order, &header); err != nil {
		return nil, status.Errf(status.Invalid, "meshio.ReadUgrid", "reading header: %v", err)
	}
	nnode, ntri, nqua, ntet, npyr, npri, nhex := int(header[0]), int(header[1]), int(header[2]), int(header[3]), int(header[4]), int(header[5]), int(header[6])

	m := &Ugrid{}
	m.XYZ = make([][3]float64, nnode)
	for i := range m.XYZ {
		if err := binary.Read(r, order, &m.XYZ[i]); err != nil {
			return nil, status.Errf(status.Invalid, "meshio.ReadUgrid", "reading node %d coordinates: %v", i, err)
		}
	}

	m.TriC2N, err = readC2N(r, order, ntri, 3)
	if err != nil {
		return nil, status.Errf(status.Invalid, "meshio.ReadUgrid", "reading tri c2n: %v", err)
	}
	m.QuaC2N, err = readC2N(r, order, nqua, 4)
	if err != nil {
		return nil, status.Errf(status.Invalid, "meshio.ReadUgrid", "reading qua c2n: %v", err)
	}
	m.TriFaceID, err = readInts(r, order, ntri)
	if err != nil {
		return nil, status.Errf(status.Invalid, "meshio.ReadUgrid", "reading tri faceids: %v", err)
	}
	m.QuaFaceID, err = readInts(r, order, nqua)
	if err != nil {
		return nil, status.Errf(status.Invalid, "meshio.ReadUgrid", "reading qua faceids: %v", err)
	}

	m.TetC2N, err = readC2N(r, order, ntet, 4)
	if err != nil {
		return nil, status.Errf(status.Invalid, "meshio.ReadUgrid", "reading tet c2n: %v", err)
	}
	m.PyrC2N, err = readC2N(r, order, npyr, 5)
	if err != nil {
		return nil, status.Errf(status.Invalid, "meshio.ReadUgrid", "reading pyr c2n: %v", err)
	}
	m.PriC2N, err = readC2N(r, order, npri, 6)
	if err != nil {
		return nil, status.Errf(status.Invalid, "meshio.ReadUgrid", "reading pri c2n: %v", err)
	}
	m.HexC2N, err = readC2N(r, order, nhex, 8)
	if err != nil {
		return nil, status.Errf(status.Invalid, "meshio.ReadUgrid", "reading hex c2n: %v", err)
	}
	return m, nil
}

// WriteUgrid encodes m to path in the format byteOrderFor(path)
// selects, writing the [nnode,ntri,nqua,ntet,npyr,npri,nhex] header
// spec.md §6 fixes.
func WriteUgrid(path string, m *Ugrid) error {
	order, err := byteOrderFor(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return status.Errf(status.Invalid, "meshio.WriteUgrid", "create %q: %v", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	header := [7]int32{
		int32(len(m.XYZ)), int32(len(m.TriC2N)), int32(len(m.QuaC2N)),
		int32(len(m.TetC2N)), int32(len(m.PyrC2N)), int32(len(m.PriC2N)), int32(len(m.HexC2N)),
	}
	if err := binary.Write(w, order, header); err != nil {
		return status.Errf(status.Invalid, "meshio.WriteUgrid", "writing header: %v", err)
	}
	for _, xyz := range m.XYZ {
		if err := binary.Write(w, order, xyz); err != nil {
			return status.Errf(status.Invalid, "meshio.WriteUgrid", "writing node coordinates: %v", err)
		}
	}
	if err := writeC2N(w, order, m.TriC2N); err != nil {
		return status.Errf(status.Invalid, "meshio.WriteUgrid", "writing tri c2n: %v", err)
	}
	if err := writeC2N(w, order, m.QuaC2N); err != nil {
		return status.Errf(status.Invalid, "meshio.WriteUgrid", "writing qua c2n: %v", err)
	}
	if err := writeInts(w, order, m.TriFaceID); err != nil {
		return status.Errf(status.Invalid, "meshio.WriteUgrid", "writing tri faceids: %v", err)
	}
	if err := writeInts(w, order, m.QuaFaceID); err != nil {
		return status.Errf(status.Invalid, "meshio.WriteUgrid", "writing qua faceids: %v", err)
	}
	if err := writeC2N(w, order, m.TetC2N); err != nil {
		return status.Errf(status.Invalid, "meshio.WriteUgrid", "writing tet c2n: %v", err)
	}
	if err := writeC2N(w, order, m.PyrC2N); err != nil {
		return status.Errf(status.Invalid, "meshio.WriteUgrid", "writing pyr c2n: %v", err)
	}
	if err := writeC2N(w, order, m.PriC2N); err != nil {
		return status.Errf(status.Invalid, "meshio.WriteUgrid", "writing pri c2n: %v", err)
	}
	if err := writeC2N(w, order, m.HexC2N); err != nil {
		return status.Errf(status.Invalid, "meshio.WriteUgrid", "writing hex c2n: %v", err)
	}
	return w.Flush()
}

// readC2N reads n cells of width corner indices each, converting the
// on-disk 1-based indices to 0-based.
func readC2N(r io.Reader, order binary.ByteOrder, n, width int) ([][]int, error) {
	if n == 0 {
		return nil, nil
	}
	out := make([][]int, n)
	buf := make([]int32, width)
	for i := 0; i < n; i++ {
		if err := binary.Read(r, order, &buf); err != nil {
			return nil, err
		}
		row := make([]int, width)
		for j, v := range buf {
			row[j] = int(v) - 1
		}
		out[i] = row
	}
	return out, nil
}

// writeC2N writes cells' 0-based corner indices back out as 1-based
// int32s.
func writeC2N(w io.Writer, order binary.ByteOrder, cells [][]int) error {
	for _, cell := range cells {
		buf := make([]int32, len(cell))
		for j, v := range cell {
			buf[j] = int32(v + 1)
		}
		if err := binary.Write(w, order, buf); err != nil {
			return err
		}
	}
	return nil
}

func readInts(r io.Reader, order binary.ByteOrder, n int) ([]int, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]int32, n)
	if err := binary.Read(r, order, &buf); err != nil {
		return nil, err
	}
	out := make([]int, n)
	for i, v := range buf {
		out[i] = int(v)
	}
	return out, nil
}

func writeInts(w io.Writer, order binary.ByteOrder, vals []int) error {
	buf := make([]int32, len(vals))
	for i, v := range vals {
		buf[i] = int32(v)
	}
	return binary.Write(w, order, buf)
}
