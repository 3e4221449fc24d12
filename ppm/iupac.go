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

package ppm

// Slots of a probability vector.
const (
	A = iota
	C
	G
	T
	Other

	// NofSlots is the length of count and probability vectors.
	NofSlots
)

// A Mask is a set of canonical bases, bit i standing for slot i.
type Mask uint8

// AnyBase is the mask of N and gap symbols.
const AnyBase Mask = 1<<A | 1<<C | 1<<G | 1<<T

var iupacMask [256]Mask

func init() {
	set := func(c byte, m Mask) {
		iupacMask[c] = m
		if c >= 'A' && c <= 'Z' {
			iupacMask[c+'a'-'A'] = m
		}
	}
	set('A', 1<<A)
	set('C', 1<<C)
	set('G', 1<<G)
	set('T', 1<<T)
	set('U', 1<<T)
	set('R', 1<<A|1<<G)
	set('Y', 1<<C|1<<T)
	set('S', 1<<C|1<<G)
	set('W', 1<<A|1<<T)
	set('K', 1<<G|1<<T)
	set('M', 1<<A|1<<C)
	set('B', 1<<C|1<<G|1<<T)
	set('D', 1<<A|1<<G|1<<T)
	set('H', 1<<A|1<<C|1<<T)
	set('V', 1<<A|1<<C|1<<G)
	set('N', AnyBase)
	set('-', AnyBase)
	set('.', AnyBase)
}

// Expand returns the canonical bases an IUPAC code stands for. The
// second result is false for bytes that are not IUPAC codes.
func Expand(base byte) (Mask, bool) {
	m := iupacMask[base]
	return m, m != 0
}

// Has reports whether the mask contains the given slot.
func (m Mask) Has(slot int) bool {
	return m&(1<<uint(slot)) != 0
}

// Len returns the number of canonical bases in the mask.
func (m Mask) Len() (n int) {
	for slot := A; slot <= T; slot++ {
		if m.Has(slot) {
			n++
		}
	}
	return n
}

// FirstInvalid returns the index of the first byte in seq that is not an
// IUPAC code, or -1.
func FirstInvalid(seq []byte) int {
	for i, b := range seq {
		if iupacMask[b] == 0 {
			return i
		}
	}
	return -1
}
