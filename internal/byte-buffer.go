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

package internal

import "sync"

const recordBufferSize = 64 * 1024

var recordBuffers = sync.Pool{New: func() interface{} {
	return make([]byte, 0, recordBufferSize)
}}

// ReserveByteBuffer returns an empty byte slice from a pool. Workers
// format the output records of a sub-chunk into it.
func ReserveByteBuffer() []byte {
	return recordBuffers.Get().([]byte)[:0]
}

// ReleaseByteBuffer returns buf to the pool. The caller must not use
// buf afterwards.
func ReleaseByteBuffer(buf []byte) {
	recordBuffers.Put(buf)
}
