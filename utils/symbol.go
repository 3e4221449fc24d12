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

import (
	"github.com/exascience/pargo/sync"

	"github.com/stela2502/hmm-mapper/internal"
)

// A Symbol is an interned string. Equal names always intern to the same
// pointer, so score maps compare keys with == instead of by content.
type Symbol *string

type symbolKey string

func (k symbolKey) Hash() uint64 {
	return internal.StringHash(string(k))
}

var symbols = sync.NewMap(16)

// Intern returns the Symbol for s, and *Intern(s) == s. Concurrent
// calls are safe.
func Intern(s string) Symbol {
	sym, _ := symbols.LoadOrStore(symbolKey(s), Symbol(&s))
	return sym.(Symbol)
}
