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

// Package scoring classifies a single read against a scoring model.
//
// A read passes through three steps. SelectStarts finds the start
// offsets on the position axis where the read plausibly aligns.
// ScoreStart computes, in log-space, the best path likelihood per locus
// for one start offset. Collapse reduces the likelihoods of all starts to
// one relative likelihood per locus.
package scoring

import (
	"math"

	"github.com/bits-and-blooms/bitset"
	"gonum.org/v1/gonum/floats"

	"github.com/stela2502/hmm-mapper/model"
	"github.com/stela2502/hmm-mapper/ppm"
	"github.com/stela2502/hmm-mapper/utils"
)

// DefaultThreshold is the minimum average per-base match probability of
// a start offset.
const DefaultThreshold = 0.3

func masks(seq []byte) ([]ppm.Mask, bool) {
	result := make([]ppm.Mask, len(seq))
	for i, base := range seq {
		mask, ok := ppm.Expand(base)
		if !ok {
			return nil, false
		}
		result[i] = mask
	}
	return result, true
}

func startScore(m *model.Model, read []ppm.Mask, start int) (float64, bool) {
	k := m.NofLoci()
	sums := make([]float64, k)
	for p, mask := range read {
		row := m.EmissionRow(start + p)
		if len(row) != k*model.NofMasks {
			return 0, false
		}
		for i := range sums {
			sums[i] += row[i*model.NofMasks+int(mask)]
		}
	}
	return floats.Max(sums) / float64(len(read)), true
}

// SelectStarts returns the start offsets at which the read reaches an
// average per-base match probability of at least threshold for some
// locus. A read containing a byte that is not an IUPAC code has no valid
// start offsets.
func SelectStarts(m *model.Model, seq []byte, threshold float64) *bitset.BitSet {
	last := m.Positions() - len(seq)
	if len(seq) == 0 || m.NofLoci() == 0 || last < 0 {
		return bitset.New(0)
	}
	starts := bitset.New(uint(last + 1))
	read, ok := masks(seq)
	if !ok {
		return starts
	}
	for t := 0; t <= last; t++ {
		if score, ok := startScore(m, read, t); ok && score >= threshold {
			starts.Set(uint(t))
		}
	}
	return starts
}

// ScoreStart returns, for every modeled locus, the log-likelihood of the
// best path that aligns the read at the given start offset and ends in
// that locus. Paths may switch locus between consecutive positions at
// the cost of the transition probability.
//
// The read must consist of IUPAC codes only, and fit the position axis
// at the start offset.
func ScoreStart(m *model.Model, seq []byte, start int) []float64 {
	read, ok := masks(seq)
	if !ok || len(read) == 0 {
		return nil
	}
	return scoreStart(m, read, start)
}

func scoreStart(m *model.Model, read []ppm.Mask, start int) []float64 {
	k := m.NofLoci()
	prev := make([]float64, k)
	next := make([]float64, k)
	for j := range prev {
		prev[j] = m.LogEmission(start, j, read[0])
	}
	for p := 1; p < len(read); p++ {
		pos := start + p
		for j := range next {
			best := math.Inf(-1)
			for i, ll := range prev {
				if v := ll + m.LogTransition(i, j); v > best {
					best = v
				}
			}
			next[j] = best + m.LogEmission(pos, j, read[p])
		}
		prev, next = next, prev
	}
	return prev
}

// Collapse converts the log-likelihoods of all start offsets of a read
// into relative likelihoods, and keeps the maximum per locus. The
// log-likelihoods are rebased to their overall maximum before they are
// exponentiated, so the best start and locus score exactly 1, and all
// scores lie in (0, 1].
func Collapse(m *model.Model, perStart [][]float64) utils.SmallMap {
	if len(perStart) == 0 {
		return nil
	}
	best := math.Inf(-1)
	for _, lls := range perStart {
		if top := floats.Max(lls); top > best {
			best = top
		}
	}
	names := m.Names()
	scores := make(utils.SmallMap, 0, len(names))
	for _, lls := range perStart {
		for i, ll := range lls {
			score := math.Exp(ll - best)
			if score < math.SmallestNonzeroFloat64 {
				score = math.SmallestNonzeroFloat64
			}
			scores.Max(names[i], score)
		}
	}
	return scores
}

// Score runs the complete scoring of a read. It returns false if the
// read has no start offset above threshold, in which case the read is
// not classified.
func Score(m *model.Model, seq []byte, threshold float64) (utils.SmallMap, bool) {
	starts := SelectStarts(m, seq, threshold)
	if starts.None() {
		return nil, false
	}
	read, _ := masks(seq)
	perStart := make([][]float64, 0, starts.Count())
	for t, ok := starts.NextSet(0); ok; t, ok = starts.NextSet(t + 1) {
		perStart = append(perStart, scoreStart(m, read, int(t)))
	}
	return Collapse(m, perStart), true
}
