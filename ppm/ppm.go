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

// Package ppm builds position probability matrices from reference
// sequences: per-position nucleotide counts are accumulated first, and
// then turned into smoothed probability vectors.
package ppm

import (
	"log"

	"github.com/stela2502/hmm-mapper/loci"
	"gonum.org/v1/gonum/floats"
)

// DefaultFloor is the probability that replaces zero counts.
const DefaultFloor = 1e-4

type (
	// A CountVector holds the counts of the slots at one position.
	CountVector [NofSlots]int

	// Counts accumulates the counts of one locus, one vector per
	// position of the locus axis.
	Counts struct {
		Locus     loci.Locus
		Positions []CountVector
	}

	// A Vector is a probability distribution over the slots.
	Vector [NofSlots]float64

	// A Matrix is a position probability matrix. It is not modified
	// after Finalize returns it.
	Matrix []Vector
)

// NewCounts allocates counts for a locus axis of the given length.
func NewCounts(locus loci.Locus, positions int) *Counts {
	return &Counts{
		Locus:     locus,
		Positions: make([]CountVector, positions),
	}
}

// Len returns the number of positions.
func (c *Counts) Len() int {
	return len(c.Positions)
}

// Accumulate adds one count per compatible canonical base for every base
// in seq, starting at startOffset. It returns false without touching the
// counts if locus is not the locus of c. Consumption stops at the first
// byte that is not an IUPAC code.
//
// A sequence that does not fit the axis means the axis was sized from
// different data than what is accumulated, and Accumulate panics.
func (c *Counts) Accumulate(locus loci.Locus, startOffset int, seq []byte) bool {
	if locus != c.Locus {
		return false
	}
	if end := startOffset + len(seq); end > len(c.Positions) {
		log.Panicf("counts for %v were not initialized correctly - %v positions, but a sequence ends at %v", c.Locus, len(c.Positions), end)
	}
	for pos, base := range seq {
		mask, ok := Expand(base)
		if !ok {
			break
		}
		counts := &c.Positions[startOffset+pos]
		for slot := A; slot <= T; slot++ {
			if mask.Has(slot) {
				counts[slot]++
			}
		}
	}
	return true
}

// Finalize converts counts into probabilities. Zero counts are first
// replaced by floor, and then every vector is normalized to sum to 1.
func Finalize(c *Counts, floor float64) Matrix {
	return FinalizePadded(c, floor, c.Len())
}

// FinalizePadded is Finalize for an axis of the given number of
// positions. Positions beyond the counts are treated as all-zero counts.
func FinalizePadded(c *Counts, floor float64, positions int) Matrix {
	if floor <= 0 {
		log.Panicf("invalid floor probability %v", floor)
	}
	if positions < c.Len() {
		log.Panicf("cannot finalize %v counts into %v positions", c.Len(), positions)
	}
	m := make(Matrix, positions)
	for pos := range m {
		var counts CountVector
		if pos < c.Len() {
			counts = c.Positions[pos]
		}
		v := m[pos][:]
		for slot, n := range counts {
			if n == 0 {
				v[slot] = floor
			} else {
				v[slot] = float64(n)
			}
		}
		floats.Scale(1/floats.Sum(v), v)
	}
	return m
}

// Len returns the number of positions.
func (m Matrix) Len() int {
	return len(m)
}

// At returns the probability vector at pos.
func (m Matrix) At(pos int) *Vector {
	return &m[pos]
}

// Match returns the mean probability of the canonical bases in mask.
func (v *Vector) Match(mask Mask) float64 {
	var sum float64
	var n int
	for slot := A; slot <= T; slot++ {
		if mask.Has(slot) {
			sum += v[slot]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
