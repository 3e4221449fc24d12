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

// Package model turns a reference gene database into the read-only
// scoring model: one position probability matrix per locus with enough
// data, on a position axis shared by all loci, plus a fixed transition
// matrix between loci.
package model

import (
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"github.com/stela2502/hmm-mapper/loci"
	"github.com/stela2502/hmm-mapper/ppm"
	"github.com/stela2502/hmm-mapper/utils"
)

// DefaultTransition is the probability of switching from one locus to
// another between two consecutive read positions.
const DefaultTransition = 1e-3

// NofMasks is the number of distinct IUPAC masks.
const NofMasks = 16

// Config holds the constants used for building a model.
type Config struct {
	// Floor replaces zero counts before normalization.
	Floor float64
	// Transition is the off-diagonal entry of the transition matrix.
	Transition float64
}

// DefaultConfig returns the default model constants.
func DefaultConfig() Config {
	return Config{
		Floor:      ppm.DefaultFloor,
		Transition: DefaultTransition,
	}
}

type record struct {
	locus   loci.Locus
	segment loci.Segment
	seq     []byte
}

// A Builder collects reference records for a model.
type Builder struct {
	lengths loci.LengthMatrix
	records []record
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add classifies a reference record by its header. Records that belong
// to a known locus and segment are kept for the model, and their length
// is recorded. Add returns false for all other records, which are
// ignored.
func (b *Builder) Add(header string, seq []byte) bool {
	locus, segment, ok := loci.Classify(header)
	if !ok {
		return false
	}
	b.lengths.Observe(locus, segment, len(seq))
	b.records = append(b.records, record{
		locus:   locus,
		segment: segment,
		seq:     append([]byte(nil), seq...),
	})
	return true
}

// Lengths returns the length matrix of the records added so far.
func (b *Builder) Lengths() *loci.LengthMatrix {
	return &b.lengths
}

// Model builds the scoring model from the records added so far. The
// records are released afterwards; the Builder must not be used again.
func (b *Builder) Model(cfg Config) *Model {
	var (
		modeled []loci.Locus
		counts  []*ppm.Counts
		names   []string
	)
	for _, l := range loci.All() {
		if loci.HasSufficientData(l, &b.lengths) {
			modeled = append(modeled, l)
			counts = append(counts, ppm.NewCounts(l, loci.Length(l, &b.lengths)))
			names = append(names, l.Name())
		}
	}
	log.Printf("Found these loci that can be modeled: [%v]\n", strings.Join(names, " "))

	for _, r := range b.records {
		if !loci.HasSufficientData(r.locus, &b.lengths) {
			continue
		}
		offset := loci.SegmentStartOffset(r.locus, r.segment, &b.lengths)
		for _, c := range counts {
			c.Accumulate(r.locus, offset, r.seq)
		}
	}
	b.records = nil

	positions := 0
	for _, c := range counts {
		if c.Len() > positions {
			positions = c.Len()
		}
	}
	matrices := make([]ppm.Matrix, len(counts))
	for i, c := range counts {
		matrices[i] = ppm.FinalizePadded(c, cfg.Floor, positions)
	}
	return newModel(modeled, b.lengths, matrices, positions, cfg.Transition)
}

// Model is the immutable scoring model. It is safe to use a Model from
// multiple goroutines.
type Model struct {
	loci          []loci.Locus
	names         []utils.Symbol
	lengths       loci.LengthMatrix
	matrices      []ppm.Matrix
	positions     int
	transition    []float64
	logTransition []float64
	emission      []float64
	logEmission   []float64
}

// TransitionMatrix returns a k x k matrix with off on the off-diagonal
// entries, and rows that sum to 1.
func TransitionMatrix(k int, off float64) [][]float64 {
	if k > 1 && (off < 0 || float64(k-1)*off >= 1) {
		log.Panicf("invalid transition probability %v for %v loci", off, k)
	}
	m := make([][]float64, k)
	for i := range m {
		m[i] = make([]float64, k)
		for j := range m[i] {
			if i == j {
				m[i][j] = 1 - float64(k-1)*off
			} else {
				m[i][j] = off
			}
		}
	}
	return m
}

func newModel(modeled []loci.Locus, lengths loci.LengthMatrix, matrices []ppm.Matrix, positions int, off float64) *Model {
	k := len(modeled)
	if len(matrices) != k {
		log.Panicf("%v matrices for %v loci", len(matrices), k)
	}
	m := &Model{
		loci:      modeled,
		names:     make([]utils.Symbol, k),
		lengths:   lengths,
		matrices:  matrices,
		positions: positions,
	}
	for i, l := range modeled {
		m.names[i] = utils.Intern(l.Name())
		if matrices[i].Len() != positions {
			log.Panicf("matrix of %v has %v positions instead of %v", l, matrices[i].Len(), positions)
		}
	}
	m.transition = make([]float64, 0, k*k)
	m.logTransition = make([]float64, 0, k*k)
	for _, row := range TransitionMatrix(k, off) {
		for _, p := range row {
			m.transition = append(m.transition, p)
			m.logTransition = append(m.logTransition, math.Log(p))
		}
	}
	m.emission = make([]float64, positions*k*NofMasks)
	m.logEmission = make([]float64, len(m.emission))
	for pos := 0; pos < positions; pos++ {
		for i, matrix := range matrices {
			v := matrix.At(pos)
			index := (pos*k + i) * NofMasks
			for mask := ppm.Mask(1); mask < NofMasks; mask++ {
				p := v.Match(mask)
				m.emission[index+int(mask)] = p
				m.logEmission[index+int(mask)] = math.Log(p)
			}
		}
	}
	return m
}

// NofLoci returns the number of modeled loci.
func (m *Model) NofLoci() int {
	return len(m.loci)
}

// Loci returns the modeled loci in catalog order.
func (m *Model) Loci() []loci.Locus {
	return m.loci
}

// Names returns the interned display names of the modeled loci.
func (m *Model) Names() []utils.Symbol {
	return m.names
}

// Positions returns the length of the position axis shared by all loci.
func (m *Model) Positions() int {
	return m.positions
}

// Matrix returns the probability matrix of the i-th modeled locus.
func (m *Model) Matrix(i int) ppm.Matrix {
	return m.matrices[i]
}

// Transition returns the probability of switching from locus i to j.
func (m *Model) Transition(i, j int) float64 {
	return m.transition[i*len(m.loci)+j]
}

// LogTransition returns the natural logarithm of Transition(i, j).
func (m *Model) LogTransition(i, j int) float64 {
	return m.logTransition[i*len(m.loci)+j]
}

// Emission returns the mean probability of the bases in mask at pos for
// the i-th modeled locus.
func (m *Model) Emission(pos, i int, mask ppm.Mask) float64 {
	return m.emission[(pos*len(m.loci)+i)*NofMasks+int(mask)]
}

// LogEmission returns the natural logarithm of Emission(pos, i, mask).
func (m *Model) LogEmission(pos, i int, mask ppm.Mask) float64 {
	return m.logEmission[(pos*len(m.loci)+i)*NofMasks+int(mask)]
}

// EmissionRow returns the emission probabilities of all loci at pos,
// NofMasks entries per locus.
func (m *Model) EmissionRow(pos int) []float64 {
	k := len(m.loci)
	return m.emission[pos*k*NofMasks : (pos+1)*k*NofMasks]
}

// Summary writes a table of the modeled loci and their segment lengths.
func (m *Model) Summary(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%-8s %6s %6s %6s %10s\n", "locus", "V", "D", "J", "positions"); err != nil {
		return err
	}
	for i, l := range m.loci {
		d := "-"
		if l.Heavy() {
			d = fmt.Sprint(m.lengths.Get(l, loci.D))
		}
		if _, err := fmt.Fprintf(w, "%-8s %6d %6s %6d %10d\n", *m.names[i],
			m.lengths.Get(l, loci.V), d, m.lengths.Get(l, loci.J), loci.Length(l, &m.lengths)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "shared position axis: %d\n", m.positions)
	return err
}
