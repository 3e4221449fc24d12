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
	"bufio"
	"compress/gzip"
	"io"

	"github.com/stela2502/hmm-mapper/utils/bgzf"
)

// HandleBGZF checks if the given reader produces a gzip stream by
// looking at its initial bytes. Gzip and BGZF streams are decompressed,
// everything else is returned unchanged. The result must be closed,
// which does not close buf's underlying reader.
func HandleBGZF(buf *bufio.Reader) (io.ReadCloser, error) {
	ok, err := bgzf.IsGzip(buf)
	switch {
	case err == io.EOF:
		return io.NopCloser(buf), nil
	case err != nil:
		return nil, err
	case !ok:
		return io.NopCloser(buf), nil
	}
	// a BGZF file is a sequence of gzip members
	return gzip.NewReader(buf)
}
