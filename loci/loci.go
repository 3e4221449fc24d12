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

// Package loci enumerates the immune-receptor loci that hmm-mapper can
// recognize, and keeps track of where the V, D and J segments of each
// locus are laid out on its position axis.
package loci

import (
	"log"
	"strings"
)

// A Locus is one of the immune-receptor gene loci.
type Locus int

// The closed set of loci. The values are stable ids.
const (
	IGH Locus = iota
	IGL
	IGK
	TRA
	TRB
	TRG
	TRD
)

// NofLoci is the number of loci in the catalog.
const NofLoci = 7

// A Segment is a V, D, or J sub-region of a locus.
type Segment int

// Segments, in their order on the position axis.
const (
	V Segment = iota
	D
	J
)

// NofSegments is the number of segment kinds.
const NofSegments = 3

var (
	locusStrings = [NofLoci]string{"IGH", "IGL", "IGK", "TRA", "TRB", "TRG", "TRD"}
	locusNames   = [NofLoci]string{"IGH-VDJ", "IGL-VDJ", "IGK-VDJ", "TRA-VDJ", "TRB-VDJ", "TRG-VDJ", "TRD-VDJ"}
	locusHeavy   = [NofLoci]bool{true, false, false, false, true, false, true}

	heavySegments = []Segment{V, D, J}
	lightSegments = []Segment{V, J}
)

// All returns all loci in catalog order.
func All() []Locus {
	return []Locus{IGH, IGL, IGK, TRA, TRB, TRG, TRD}
}

func (l Locus) check() {
	if l < 0 || l >= NofLoci {
		log.Panicf("invalid locus %d", int(l))
	}
}

// String returns the short locus token, for example "IGH".
func (l Locus) String() string {
	l.check()
	return locusStrings[l]
}

// Name returns the display name of the locus, for example "IGH-VDJ".
func (l Locus) Name() string {
	l.check()
	return locusNames[l]
}

// Heavy reports whether the locus has heavy-chain structure (V, D and J
// segments). Light-chain loci only have V and J segments.
func (l Locus) Heavy() bool {
	l.check()
	return locusHeavy[l]
}

// Segments returns the segments of the locus in axis order.
func (l Locus) Segments() []Segment {
	if l.Heavy() {
		return heavySegments
	}
	return lightSegments
}

// String returns "V", "D" or "J".
func (s Segment) String() string {
	switch s {
	case V:
		return "V"
	case D:
		return "D"
	case J:
		return "J"
	default:
		log.Panicf("invalid segment %d", int(s))
		return ""
	}
}

type pattern struct {
	token   string
	locus   Locus
	segment Segment
}

var patterns []pattern

func init() {
	for _, l := range All() {
		for _, s := range l.Segments() {
			patterns = append(patterns, pattern{
				token:   l.String() + s.String(),
				locus:   l,
				segment: s,
			})
		}
	}
}

func containsToken(identifier string, p pattern) bool {
	if p.segment != D {
		return strings.Contains(identifier, p.token)
	}
	// IGHD on its own names the delta constant gene, so a D segment
	// token needs a gene number after it.
	for s := identifier; ; {
		i := strings.Index(s, p.token)
		if i < 0 {
			return false
		}
		s = s[i+len(p.token):]
		if len(s) > 0 && s[0] >= '0' && s[0] <= '9' {
			return true
		}
	}
}

// Classify determines the locus and segment of a reference record from
// its identifier. It returns false if the identifier names none of the
// known locus/segment combinations.
func Classify(identifier string) (Locus, Segment, bool) {
	for _, p := range patterns {
		if containsToken(identifier, p) {
			return p.locus, p.segment, true
		}
	}
	return 0, 0, false
}

// A LengthMatrix records the maximum observed sequence length per locus
// and segment.
type LengthMatrix [NofLoci][NofSegments]int

// Observe records a sequence of the given length for a locus and segment.
func (lm *LengthMatrix) Observe(locus Locus, segment Segment, length int) {
	if length > lm[locus][segment] {
		lm[locus][segment] = length
	}
}

// Get returns the maximum observed length for a locus and segment.
func (lm *LengthMatrix) Get(locus Locus, segment Segment) int {
	return lm[locus][segment]
}

// SegmentStartOffset returns the position on the locus axis at which the
// counts for the given segment start. Segments are laid out contiguously
// in V, D, J order. Asking for the D segment of a light-chain locus is a
// programming error.
func SegmentStartOffset(locus Locus, segment Segment, lm *LengthMatrix) int {
	row := &lm[locus]
	if locus.Heavy() {
		switch segment {
		case V:
			return 0
		case D:
			return row[V]
		case J:
			return row[V] + row[D]
		}
	} else {
		switch segment {
		case V:
			return 0
		case D:
			log.Panicf("light chain locus %v has no D segment", locus)
		case J:
			return row[V]
		}
	}
	log.Panicf("invalid segment %d", int(segment))
	return -1
}

// HasSufficientData reports whether every required segment of the locus
// has been observed at least once.
func HasSufficientData(locus Locus, lm *LengthMatrix) bool {
	for _, s := range locus.Segments() {
		if lm[locus][s] == 0 {
			return false
		}
	}
	return true
}

// Length returns the number of positions on the axis of the locus, which
// is the sum of the maximum lengths of its segments.
func Length(locus Locus, lm *LengthMatrix) (length int) {
	for _, s := range locus.Segments() {
		length += lm[locus][s]
	}
	return length
}
