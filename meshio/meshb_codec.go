// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meshio

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/cpmech/goref/status"
)

// writeKeyword writes a keyword's code, its next-keyword file offset
// (32 or 64 bits per version), and its already-encoded payload.
func writeKeyword(w io.Writer, version int, kwd int32, nextPos int64, payload []byte) error {
	if err := binary.Write(w, binary.LittleEndian, kwd); err != nil {
		return err
	}
	if err := writePos(w, version, nextPos); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readKeyword reads a keyword's code and next-keyword offset. The
// offset is not used for seeking (this reader is purely sequential)
// but is validated implicitly by the caller consuming exactly the
// bytes the payload's own counts describe.
func readKeyword(r io.Reader, version int) (kwd int32, nextPos int64, err error) {
	if err = binary.Read(r, binary.LittleEndian, &kwd); err != nil {
		return 0, 0, err
	}
	nextPos, err = readPos(r, version)
	return kwd, nextPos, err
}

func writePos(w io.Writer, version int, pos int64) error {
	if version == 2 {
		return binary.Write(w, binary.LittleEndian, int32(pos))
	}
	return binary.Write(w, binary.LittleEndian, pos)
}

func readPos(r io.Reader, version int) (int64, error) {
	if version == 2 {
		var v int32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		return int64(v), nil
	}
	var v int64
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func encodeCount(version int, n int) []byte {
	var buf bytes.Buffer
	writePos(&buf, version, int64(n))
	return buf.Bytes()
}

func readCount(r io.Reader, version int) (int, error) {
	n, err := readPos(r, version)
	if err != nil {
		return 0, status.Errf(status.Invalid, "meshio.readCount", "%v", err)
	}
	return int(n), nil
}

func encodeInt32(v int32) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, v)
	return buf.Bytes()
}

func encodeVertices(m *Meshb) []byte {
	var buf bytes.Buffer
	writePos(&buf, m.Version, int64(len(m.XYZ)))
	for i, xyz := range m.XYZ {
		binary.Write(&buf, binary.LittleEndian, xyz)
		ref := int32(0)
		if i < len(m.VertexRef) {
			ref = m.VertexRef[i]
		}
		binary.Write(&buf, binary.LittleEndian, ref)
	}
	return buf.Bytes()
}

func decodeVertices(r io.Reader, m *Meshb) error {
	n, err := readCount(r, m.Version)
	if err != nil {
		return err
	}
	m.XYZ = make([][3]float64, n)
	m.VertexRef = make([]int32, n)
	for i := 0; i < n; i++ {
		if err := binary.Read(r, binary.LittleEndian, &m.XYZ[i]); err != nil {
			return status.Errf(status.Invalid, "meshio.decodeVertices", "reading vertex %d: %v", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &m.VertexRef[i]); err != nil {
			return status.Errf(status.Invalid, "meshio.decodeVertices", "reading vertex %d ref: %v", i, err)
		}
	}
	return nil
}

func encodeEdges(m *Meshb) []byte {
	var buf bytes.Buffer
	writePos(&buf, m.Version, int64(len(m.Edges)))
	for i, e := range m.Edges {
		binary.Write(&buf, binary.LittleEndian, [2]int32{int32(e[0] + 1), int32(e[1] + 1)})
		ref := int32(0)
		if i < len(m.EdgeRef) {
			ref = m.EdgeRef[i]
		}
		binary.Write(&buf, binary.LittleEndian, ref)
	}
	return buf.Bytes()
}

func decodeEdges(r io.Reader, m *Meshb) error {
	n, err := readCount(r, m.Version)
	if err != nil {
		return err
	}
	m.Edges = make([][2]int, n)
	m.EdgeRef = make([]int32, n)
	for i := 0; i < n; i++ {
		var idx [2]int32
		if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
			return status.Errf(status.Invalid, "meshio.decodeEdges", "reading edge %d: %v", i, err)
		}
		m.Edges[i] = [2]int{int(idx[0]) - 1, int(idx[1]) - 1}
		if err := binary.Read(r, binary.LittleEndian, &m.EdgeRef[i]); err != nil {
			return status.Errf(status.Invalid, "meshio.decodeEdges", "reading edge %d ref: %v", i, err)
		}
	}
	return nil
}

func encodeTriangles(m *Meshb) []byte {
	var buf bytes.Buffer
	writePos(&buf, m.Version, int64(len(m.Triangles)))
	for i, t := range m.Triangles {
		binary.Write(&buf, binary.LittleEndian, [3]int32{int32(t[0] + 1), int32(t[1] + 1), int32(t[2] + 1)})
		ref := int32(0)
		if i < len(m.TriangleRef) {
			ref = m.TriangleRef[i]
		}
		binary.Write(&buf, binary.LittleEndian, ref)
	}
	return buf.Bytes()
}

func decodeTriangles(r io.Reader, m *Meshb) error {
	n, err := readCount(r, m.Version)
	if err != nil {
		return err
	}
	m.Triangles = make([][3]int, n)
	m.TriangleRef = make([]int32, n)
	for i := 0; i < n; i++ {
		var idx [3]int32
		if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
			return status.Errf(status.Invalid, "meshio.decodeTriangles", "reading triangle %d: %v", i, err)
		}
		m.Triangles[i] = [3]int{int(idx[0]) - 1, int(idx[1]) - 1, int(idx[2]) - 1}
		if err := binary.Read(r, binary.LittleEndian, &m.TriangleRef[i]); err != nil {
			return status.Errf(status.Invalid, "meshio.decodeTriangles", "reading triangle %d ref: %v", i, err)
		}
	}
	return nil
}

func encodeTetrahedra(m *Meshb) []byte {
	var buf bytes.Buffer
	writePos(&buf, m.Version, int64(len(m.Tetrahedra)))
	for i, t := range m.Tetrahedra {
		binary.Write(&buf, binary.LittleEndian, [4]int32{int32(t[0] + 1), int32(t[1] + 1), int32(t[2] + 1), int32(t[3] + 1)})
		ref := int32(0)
		if i < len(m.TetrahedronRef) {
			ref = m.TetrahedronRef[i]
		}
		binary.Write(&buf, binary.LittleEndian, ref)
	}
	return buf.Bytes()
}

func decodeTetrahedra(r io.Reader, m *Meshb) error {
	n, err := readCount(r, m.Version)
	if err != nil {
		return err
	}
	m.Tetrahedra = make([][4]int, n)
	m.TetrahedronRef = make([]int32, n)
	for i := 0; i < n; i++ {
		var idx [4]int32
		if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
			return status.Errf(status.Invalid, "meshio.decodeTetrahedra", "reading tet %d: %v", i, err)
		}
		m.Tetrahedra[i] = [4]int{int(idx[0]) - 1, int(idx[1]) - 1, int(idx[2]) - 1, int(idx[3]) - 1}
		if err := binary.Read(r, binary.LittleEndian, &m.TetrahedronRef[i]); err != nil {
			return status.Errf(status.Invalid, "meshio.decodeTetrahedra", "reading tet %d ref: %v", i, err)
		}
	}
	return nil
}

func encodeVerticesOnGeom(version int, pairs [][2]int) []byte {
	var buf bytes.Buffer
	writePos(&buf, version, int64(len(pairs)))
	for _, p := range pairs {
		binary.Write(&buf, binary.LittleEndian, [2]int32{int32(p[0] + 1), int32(p[1])})
	}
	return buf.Bytes()
}

func decodeVerticesOnGeom(r io.Reader, version int) ([][2]int, error) {
	n, err := readCount(r, version)
	if err != nil {
		return nil, err
	}
	pairs := make([][2]int, n)
	for i := 0; i < n; i++ {
		var p [2]int32
		if err := binary.Read(r, binary.LittleEndian, &p); err != nil {
			return nil, status.Errf(status.Invalid, "meshio.decodeVerticesOnGeom", "reading entry %d: %v", i, err)
		}
		pairs[i] = [2]int{int(p[0]) - 1, int(p[1])}
	}
	return pairs, nil
}
