// hmm-mapper: locus classification of immune-receptor sequencing reads.
// Copyright (c) 2024 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/stela2502/hmm-mapper/blob/master/LICENSE.txt>.

package loci

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		identifier string
		locus      Locus
		segment    Segment
		ok         bool
	}{
		{"M99641|IGHV1-18*01|Homo sapiens|F|V-REGION|", IGH, V, true},
		{"X97051|IGHD1-1*01|Homo sapiens|F|D-REGION|", IGH, D, true},
		{"J00256|IGHJ4*02|Homo sapiens|F|J-REGION|", IGH, J, true},
		{"IGKV1-5*01", IGK, V, true},
		{"IGLJ1*01", IGL, J, true},
		{"X02885|TRAJ61*01|Homo sapiens", TRA, J, true},
		{"TRAV14/DV4*01", TRA, V, true},
		{"TRBD2*01", TRB, D, true},
		{"TRDD3*01", TRD, D, true},
		{"TRGJP1*01", TRG, J, true},
		{"IGHD*01 constant", 0, 0, false},
		{"IGKD1", 0, 0, false},
		{"some other gene", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, test := range tests {
		locus, segment, ok := Classify(test.identifier)
		if ok != test.ok {
			t.Errorf("Classify(%q) ok = %v, want %v", test.identifier, ok, test.ok)
			continue
		}
		if ok && (locus != test.locus || segment != test.segment) {
			t.Errorf("Classify(%q) = %v %v, want %v %v", test.identifier, locus, segment, test.locus, test.segment)
		}
	}
}

func TestSegmentStartOffset(t *testing.T) {
	var lm LengthMatrix
	lm.Observe(IGH, V, 10)
	lm.Observe(IGH, V, 7)
	lm.Observe(IGH, D, 5)
	lm.Observe(IGH, J, 8)
	lm.Observe(IGK, V, 12)
	lm.Observe(IGK, J, 4)

	if got := lm.Get(IGH, V); got != 10 {
		t.Errorf("Observe keeps %v, want 10", got)
	}
	if got := SegmentStartOffset(IGH, V, &lm); got != 0 {
		t.Errorf("IGH V offset %v, want 0", got)
	}
	if got := SegmentStartOffset(IGH, D, &lm); got != 10 {
		t.Errorf("IGH D offset %v, want 10", got)
	}
	if got := SegmentStartOffset(IGH, J, &lm); got != 15 {
		t.Errorf("IGH J offset %v, want 15", got)
	}
	if got := SegmentStartOffset(IGK, J, &lm); got != 12 {
		t.Errorf("IGK J offset %v, want 12", got)
	}
	if got := Length(IGH, &lm); got != 23 {
		t.Errorf("IGH length %v, want 23", got)
	}
	if got := Length(IGK, &lm); got != 16 {
		t.Errorf("IGK length %v, want 16", got)
	}
}

func TestLightChainHasNoD(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("SegmentStartOffset for a light chain D segment did not panic")
		}
	}()
	var lm LengthMatrix
	SegmentStartOffset(IGL, D, &lm)
}

func TestHasSufficientData(t *testing.T) {
	var lm LengthMatrix
	lm.Observe(IGH, V, 10)
	lm.Observe(IGH, D, 5)
	lm.Observe(IGH, J, 8)
	lm.Observe(IGL, V, 9)
	if !HasSufficientData(IGH, &lm) {
		t.Error("IGH with V, D and J should have sufficient data")
	}
	if HasSufficientData(IGL, &lm) {
		t.Error("IGL with only V should not have sufficient data")
	}
	lm.Observe(IGL, J, 3)
	if !HasSufficientData(IGL, &lm) {
		t.Error("IGL with V and J should have sufficient data")
	}
	if HasSufficientData(TRB, &lm) {
		t.Error("TRB without data should not have sufficient data")
	}
}

func TestStructure(t *testing.T) {
	for _, l := range All() {
		n := len(l.Segments())
		if l.Heavy() && n != 3 || !l.Heavy() && n != 2 {
			t.Errorf("%v has %v segments", l, n)
		}
	}
	if IGH.Name() != "IGH-VDJ" || IGK.Name() != "IGK-VDJ" || TRG.String() != "TRG" {
		t.Error("unexpected locus names")
	}
}
