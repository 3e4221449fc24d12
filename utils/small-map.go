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

package utils

import "strconv"

// SmallMapEntry is an entry in a SmallMap.
type SmallMapEntry struct {
	Key   Symbol
	Value float64
}

// A SmallMap maps symbols to scores, similar to Go's built-in maps. A
// SmallMap can be more efficient in terms of memory and runtime
// performance than a native map if it has only few entries, as is the
// case for per-locus scores. Entries keep their insertion order.
type SmallMap []SmallMapEntry

// Get returns the first entry in the SmallMap that has the same key
// as the given key.
//
// It returns the found value and true if the key was found, otherwise
// 0 and false.
func (m SmallMap) Get(key Symbol) (float64, bool) {
	for _, entry := range m {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return 0, false
}

// Set associates the given value with the given key.
//
// It does so by either setting the value of the first entry that has
// the same key as the given key, or else by appending a new key/value
// pair to the end of the SmallMap if no entry already has that key.
func (m *SmallMap) Set(key Symbol, value float64) {
	for index := range *m {
		if (*m)[index].Key == key {
			(*m)[index].Value = value
			return
		}
	}
	*m = append(*m, SmallMapEntry{key, value})
}

// Max associates the given value with the given key if there is no
// entry for the key yet, or if the value is larger than the current
// one.
func (m *SmallMap) Max(key Symbol, value float64) {
	for index := range *m {
		if (*m)[index].Key == key {
			if value > (*m)[index].Value {
				(*m)[index].Value = value
			}
			return
		}
	}
	*m = append(*m, SmallMapEntry{key, value})
}

// Best returns the entry with the largest value. Ties go to the
// earlier entry. It returns false for an empty SmallMap.
func (m SmallMap) Best() (SmallMapEntry, bool) {
	if len(m) == 0 {
		return SmallMapEntry{}, false
	}
	best := m[0]
	for _, entry := range m[1:] {
		if entry.Value > best.Value {
			best = entry
		}
	}
	return best, true
}

// Format appends the entries as space-separated key:value pairs to out.
func (m SmallMap) Format(out []byte) []byte {
	for i, entry := range m {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, *entry.Key...)
		out = append(out, ':')
		out = strconv.AppendFloat(out, entry.Value, 'g', 6, 64)
	}
	return out
}
