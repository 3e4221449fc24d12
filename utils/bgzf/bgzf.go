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

// Package bgzf writes blocked gzip (BGZF) files. Each block is a
// complete gzip member carrying its own compressed size, so blocks can be
// compressed independently. A Writer compresses blocks in parallel with
// a pargo pipeline, and writes them in order.
package bgzf

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/exascience/pargo/pipeline"
)

const (
	// maxBlockInput keeps every compressed block, including its
	// header and trailer, below 64 KiB.
	maxBlockInput = 0xff00

	// offset of BSIZE in the extra field of a block header
	bsizeOffset = 16
)

// eofMarker is the empty block that terminates a BGZF file.
var eofMarker = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00,
	0x00, 0xff, 0x06, 0x00, 0x42, 0x43, 0x02, 0x00,
	0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// IsGzip determines if the given reader produces a gzip stream by
// peeking at the two magic bytes. BGZF files are gzip streams. It
// returns io.EOF for empty input.
func IsGzip(buf *bufio.Reader) (bool, error) {
	magic, err := buf.Peek(2)
	if len(magic) == 0 && err != nil {
		return false, err
	}
	return len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b, nil
}

type blockSource struct {
	blocks <-chan []byte
	data   []byte
}

func (*blockSource) Err() error {
	return nil
}

func (*blockSource) Prepare(_ context.Context) (size int) {
	return -1
}

func (src *blockSource) Fetch(_ int) (fetched int) {
	block, ok := <-src.blocks
	if !ok {
		src.data = nil
		return 0
	}
	src.data = block
	return 1
}

func (src *blockSource) Data() interface{} {
	return src.data
}

// Writer is an io.WriteCloser that produces a BGZF file. Close must be
// called to flush the last block and to write the end-of-file marker.
type Writer struct {
	w          io.Writer
	level      int
	compressor sync.Pool
	block      []byte
	blocks     chan []byte
	p          pipeline.Pipeline
	done       chan struct{}
	closed     bool
}

// NewWriter returns a Writer that compresses to w with the given gzip
// compression level.
func NewWriter(w io.Writer, level int) (*Writer, error) {
	if _, err := gzip.NewWriterLevel(io.Discard, level); err != nil {
		return nil, err
	}
	bw := &Writer{
		w:      w,
		level:  level,
		block:  make([]byte, 0, maxBlockInput),
		blocks: make(chan []byte, 1),
		done:   make(chan struct{}),
	}
	bw.p.Source(&blockSource{blocks: bw.blocks})
	bw.p.SetVariableBatchSize(1, 1)
	bw.p.Add(
		pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
			compressed, err := bw.compress(data.([]byte))
			if err != nil {
				bw.p.SetErr(fmt.Errorf("%v, while compressing a bgzf block", err))
			}
			return compressed
		})),
		pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
			if _, err := bw.w.Write(data.([]byte)); err != nil {
				bw.p.SetErr(err)
			}
			return nil
		})),
	)
	go func() {
		defer close(bw.done)
		bw.p.Run()
	}()
	return bw, nil
}

func (bw *Writer) compress(block []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(block)/2 + len(eofMarker))
	var zw *gzip.Writer
	if pooled := bw.compressor.Get(); pooled != nil {
		zw = pooled.(*gzip.Writer)
		zw.Reset(&buf)
	} else {
		var err error
		if zw, err = gzip.NewWriterLevel(&buf, bw.level); err != nil {
			return nil, err
		}
	}
	defer bw.compressor.Put(zw)
	zw.Extra = []byte{'B', 'C', 2, 0, 0, 0}
	if _, err := zw.Write(block); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	compressed := buf.Bytes()
	binary.LittleEndian.PutUint16(compressed[bsizeOffset:], uint16(len(compressed)-1))
	return compressed, nil
}

func (bw *Writer) send(block []byte) error {
	select {
	case bw.blocks <- block:
		return nil
	case <-bw.done:
		if err := bw.p.Err(); err != nil {
			return err
		}
		return errors.New("bgzf writer stopped")
	}
}

// Write implements the corresponding method of io.Writer.
func (bw *Writer) Write(p []byte) (n int, err error) {
	if bw.closed {
		return 0, errors.New("write to closed bgzf writer")
	}
	for len(p) > 0 {
		k := maxBlockInput - len(bw.block)
		if k > len(p) {
			k = len(p)
		}
		bw.block = append(bw.block, p[:k]...)
		p = p[k:]
		n += k
		if len(bw.block) == maxBlockInput {
			if err = bw.send(bw.block); err != nil {
				return n, err
			}
			bw.block = make([]byte, 0, maxBlockInput)
		}
	}
	return n, nil
}

// Close implements the corresponding method of io.Closer. It does not
// close the underlying writer.
func (bw *Writer) Close() (err error) {
	if bw.closed {
		return nil
	}
	bw.closed = true
	if len(bw.block) > 0 {
		err = bw.send(bw.block)
		bw.block = nil
	}
	close(bw.blocks)
	<-bw.done
	if err == nil {
		err = bw.p.Err()
	}
	if err == nil {
		_, err = bw.w.Write(eofMarker)
	}
	return err
}
