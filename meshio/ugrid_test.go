// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meshio

import (
	"path/filepath"
	"reflect"
	"testing"
)

func sampleUgrid() *Ugrid {
	return &Ugrid{
		XYZ: [][3]float64{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		},
		TriC2N:    [][3]int{{0, 1, 2}},
		TriFaceID: []int{1},
		TetC2N:    [][4]int{{0, 1, 2, 3}},
	}
}

func TestUgridRoundTripLittleEndian(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.lb8.ugrid")
	want := sampleUgrid()
	if err := WriteUgrid(path, want); err != nil {
		t.Fatalf("WriteUgrid: %v", err)
	}
	got, err := ReadUgrid(path)
	if err != nil {
		t.Fatalf("ReadUgrid: %v", err)
	}
	if !reflect.DeepEqual(want.XYZ, got.XYZ) {
		t.Fatalf("XYZ mismatch: want %v got %v", want.XYZ, got.XYZ)
	}
	if !reflect.DeepEqual(want.TetC2N, got.TetC2N) {
		t.Fatalf("TetC2N mismatch: want %v got %v", want.TetC2N, got.TetC2N)
	}
	if !reflect.DeepEqual(want.TriC2N, got.TriC2N) {
		t.Fatalf("TriC2N mismatch: want %v got %v", want.TriC2N, got.TriC2N)
	}
	if !reflect.DeepEqual(want.TriFaceID, got.TriFaceID) {
		t.Fatalf("TriFaceID mismatch: want %v got %v", want.TriFaceID, got.TriFaceID)
	}
}

func TestUgridRoundTripBigEndian(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.b8.ugrid")
	want := sampleUgrid()
	if err := WriteUgrid(path, want); err != nil {
		t.Fatalf("WriteUgrid: %v", err)
	}
	got, err := ReadUgrid(path)
	if err != nil {
		t.Fatalf("ReadUgrid: %v", err)
	}
	if !reflect.DeepEqual(want.TetC2N, got.TetC2N) {
		t.Fatalf("TetC2N mismatch: want %v got %v", want.TetC2N, got.TetC2N)
	}
}

func TestUgridRejectsUnknownExtension(t *testing.T) {
	if _, err := ReadUgrid("mesh.xyz"); err == nil {
		t.Fatalf("expected an error for an unrecognized extension")
	}
}
