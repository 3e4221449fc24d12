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

package model

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stela2502/hmm-mapper/loci"
	"github.com/stela2502/hmm-mapper/ppm"
)

type reference struct {
	header, seq string
}

var testReferences = []reference{
	{"M99641|IGHV1-18*01|Homo sapiens|F|V-REGION", "ACGTTGCAAGTCAGGT"},
	{"X97051|IGHD1-1*01|Homo sapiens|F|D-REGION", "GGTACTAC"},
	{"J00256|IGHJ4*02|Homo sapiens|F|J-REGION", "TGGGGCCAGGGAAC"},
	{"L36092|TRBV2*01|Homo sapiens|F|V-REGION", "TTCAGAGCCGATTACA"},
	{"X02987|TRBD1*01|Homo sapiens|F|D-REGION", "GGGACAGGG"},
	{"K02545|TRBJ2-7*01|Homo sapiens|F|J-REGION", "CTCCTACGAGCAGTAC"},
	{"Z73653|IGLV1-36*01|Homo sapiens|F|V-REGION", "CAGTCTGCCCTGACT"},
	{"unrelated record", "ACGT"},
}

func testModel(t testing.TB) *Model {
	b := NewBuilder()
	for _, r := range testReferences {
		b.Add(r.header, []byte(r.seq))
	}
	return b.Model(DefaultConfig())
}

func TestBuilderAdd(t *testing.T) {
	b := NewBuilder()
	if !b.Add("IGHV3-23*01", []byte("ACGTACGT")) {
		t.Error("IGHV record was not added")
	}
	if b.Add("no locus here", []byte("ACGT")) {
		t.Error("unclassified record was added")
	}
	b.Add("IGHV3-30*02", []byte("ACG"))
	if got := b.Lengths().Get(loci.IGH, loci.V); got != 8 {
		t.Errorf("IGH V max length %v, want 8", got)
	}
}

func TestInsufficientLocusExcluded(t *testing.T) {
	b := NewBuilder()
	b.Add("IGHV1", []byte(strings.Repeat("A", 10)))
	b.Add("IGHD1-1", []byte(strings.Repeat("C", 5)))
	b.Add("IGHJ1", []byte(strings.Repeat("G", 8)))
	b.Add("IGLV1", []byte(strings.Repeat("T", 12)))
	if loci.HasSufficientData(loci.IGL, b.Lengths()) {
		t.Error("IGL with only a V segment has sufficient data")
	}
	m := b.Model(DefaultConfig())
	if m.NofLoci() != 1 || m.Loci()[0] != loci.IGH {
		t.Fatalf("modeled loci %v, want only IGH", m.Loci())
	}
	if m.Positions() != 23 {
		t.Errorf("%v positions, want 23", m.Positions())
	}
	if *m.Names()[0] != "IGH-VDJ" {
		t.Errorf("name %v", *m.Names()[0])
	}
	// D starts after V, J after D.
	if m.Matrix(0).At(10)[ppm.C] < 0.99 || m.Matrix(0).At(15)[ppm.G] < 0.99 {
		t.Error("segments were not laid out in V, D, J order")
	}
}

func TestModel(t *testing.T) {
	m := testModel(t)
	if m.NofLoci() != 2 {
		t.Fatalf("%v loci modeled, want 2", m.NofLoci())
	}
	if m.Loci()[0] != loci.IGH || m.Loci()[1] != loci.TRB {
		t.Errorf("modeled loci %v", m.Loci())
	}
	if m.Positions() != 41 {
		t.Errorf("%v positions, want 41", m.Positions())
	}
	for i := 0; i < m.NofLoci(); i++ {
		matrix := m.Matrix(i)
		if matrix.Len() != m.Positions() {
			t.Errorf("matrix %v has %v positions", i, matrix.Len())
		}
		for pos := 0; pos < matrix.Len(); pos++ {
			var sum float64
			for _, p := range matrix.At(pos) {
				if p == 0 {
					t.Fatalf("zero probability in matrix %v at %v", i, pos)
				}
				sum += p
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("matrix %v position %v sums to %v", i, pos, sum)
			}
		}
	}
	a, _ := ppm.Expand('A')
	if p := m.Emission(0, 0, a); p < 0.99 {
		t.Errorf("IGH emission of A at 0 is %v", p)
	}
	if p := m.Emission(40, 0, a); math.Abs(p-0.2) > 1e-9 {
		t.Errorf("padded IGH emission is %v, want 0.2", p)
	}
	if math.Abs(m.LogEmission(0, 0, a)-math.Log(m.Emission(0, 0, a))) > 1e-12 {
		t.Error("log emission does not match emission")
	}
	if len(m.EmissionRow(3)) != m.NofLoci()*NofMasks {
		t.Error("emission row has the wrong length")
	}
}

func TestTransitionMatrix(t *testing.T) {
	for k := 1; k <= 7; k++ {
		tm := TransitionMatrix(k, DefaultTransition)
		for i, row := range tm {
			var sum float64
			for j, p := range row {
				sum += p
				if i != j && p != DefaultTransition {
					t.Errorf("k=%v off-diagonal %v", k, p)
				}
			}
			if math.Abs(sum-1) > 1e-12 {
				t.Errorf("k=%v row %v sums to %v", k, i, sum)
			}
		}
	}
	m := testModel(t)
	if m.Transition(0, 1) != DefaultTransition || math.Abs(m.Transition(1, 1)-0.999) > 1e-12 {
		t.Error("model transitions are wrong")
	}
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := testModel(t).Summary(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "IGH-VDJ") || !strings.Contains(out, "TRB-VDJ") || strings.Contains(out, "IGL-VDJ") {
		t.Errorf("unexpected summary:\n%v", out)
	}
}
