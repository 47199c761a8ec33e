// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meshio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"os"

	"github.com/cpmech/goref/metric"
	"github.com/cpmech/goref/status"
)

// solFieldTypeSymmetric marks a GmfSolAtVertices field as a symmetric
// 3x3 tensor (6 independent components), the only field type .solb
// carries for this system.
const solFieldTypeSymmetric = 3

// ReadSolb decodes a .solb metric field: one metric.Tensor per vertex,
// in the m11,m12,m22,m13,m23,m33 component order spec.md §6 fixes
// (metric.Tensor is already packed in exactly this order, so decoding
// is a straight read into the array).
func ReadSolb(path string) ([]metric.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, status.Errf(status.NotFound, "meshio.ReadSolb", "open %q: %v", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var sig, version int32
	if err := binary.Read(r, binary.LittleEndian, &sig); err != nil {
		return nil, status.Errf(status.Invalid, "meshio.ReadSolb", "reading signature: %v", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, status.Errf(status.Invalid, "meshio.ReadSolb", "reading version: %v", err)
	}
	if version != 2 && version != 3 {
		return nil, status.Errf(status.Invalid, "meshio.ReadSolb", "unsupported version %d", version)
	}

	for {
		kwd, _, err := readKeyword(r, int(version))
		if err != nil {
			return nil, status.Errf(status.Invalid, "meshio.ReadSolb", "reading keyword: %v", err)
		}
		switch kwd {
		case kwdEnd:
			return nil, status.Errf(status.Invalid, "meshio.ReadSolb", "%q has no SolAtVertices block", path)
		case kwdDimension:
			var dim int32
			if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
				return nil, status.Errf(status.Invalid, "meshio.ReadSolb", "reading dimension: %v", err)
			}
		case kwdByteFlow:
			if _, err := readCount(r, int(version)); err != nil {
				return nil, err
			}
		case kwdSolAtVertices:
			return decodeSolAtVertices(r, int(version))
		default:
			return nil, status.Errf(status.Implement, "meshio.ReadSolb", "unexpected keyword %d before SolAtVertices", kwd)
		}
	}
}

func decodeSolAtVertices(r *bufio.Reader, version int) ([]metric.Tensor, error) {
	n, err := readCount(r, version)
	if err != nil {
		return nil, err
	}
	var typeCount, fieldType int32
	if err := binary.Read(r, binary.LittleEndian, &typeCount); err != nil {
		return nil, status.Errf(status.Invalid, "meshio.decodeSolAtVertices", "reading type count: %v", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &fieldType); err != nil {
		return nil, status.Errf(status.Invalid, "meshio.decodeSolAtVertices", "reading field type: %v", err)
	}
	if fieldType != solFieldTypeSymmetric {
		return nil, status.Errf(status.Invalid, "meshio.decodeSolAtVertices", "field type %d is not a symmetric tensor", fieldType)
	}
	out := make([]metric.Tensor, n)
	for i := 0; i < n; i++ {
		if err := binary.Read(r, binary.LittleEndian, &out[i]); err != nil {
			return nil, status.Errf(status.Invalid, "meshio.decodeSolAtVertices", "reading tensor %d: %v", i, err)
		}
	}
	return out, nil
}

// WriteSolb encodes tensors as a .solb GmfSolAtVertices stream.
func WriteSolb(path string, version int, tensors []metric.Tensor) error {
	if version != 2 && version != 3 {
		return status.Errf(status.Invalid, "meshio.WriteSolb", "version must be 2 or 3, got %d", version)
	}
	payload := encodeSolAtVertices(version, tensors)
	blocks := []meshbBlock{{kwdSolAtVertices, payload}}

	f, err := os.Create(path)
	if err != nil {
		return status.Errf(status.Invalid, "meshio.WriteSolb", "create %q: %v", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if err := binary.Write(w, binary.LittleEndian, int32(1)); err != nil {
		return status.Errf(status.Invalid, "meshio.WriteSolb", "writing signature: %v", err)
	}
	if err := binary.Write(w, binary.LittleEndian, int32(version)); err != nil {
		return status.Errf(status.Invalid, "meshio.WriteSolb", "writing version: %v", err)
	}

	posSize := int64(4)
	if version == 3 {
		posSize = 8
	}
	offset := int64(8)
	for _, b := range blocks {
		offset += 4 + posSize + int64(len(b.payload))
	}
	endPos := offset

	pos := int64(8)
	for _, b := range blocks {
		pos += 4 + posSize + int64(len(b.payload))
		if err := writeKeyword(w, version, b.kwd, pos, b.payload); err != nil {
			return status.Errf(status.Invalid, "meshio.WriteSolb", "writing SolAtVertices: %v", err)
		}
	}
	if err := writeKeyword(w, version, kwdEnd, endPos, nil); err != nil {
		return status.Errf(status.Invalid, "meshio.WriteSolb", "writing end keyword: %v", err)
	}
	return w.Flush()
}

func encodeSolAtVertices(version int, tensors []metric.Tensor) []byte {
	var buf bytes.Buffer
	writePos(&buf, version, int64(len(tensors)))
	binary.Write(&buf, binary.LittleEndian, int32(1))
	binary.Write(&buf, binary.LittleEndian, int32(solFieldTypeSymmetric))
	for _, t := range tensors {
		binary.Write(&buf, binary.LittleEndian, t)
	}
	return buf.Bytes()
}
