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

// Package mapper runs the classification of a stream of query reads in
// chunks, and formats the classified reads as annotated FASTA records.
package mapper

import (
	"fmt"
	"io"
	"log"

	"github.com/exascience/pargo/parallel"
	"github.com/exascience/pargo/pipeline"

	"github.com/stela2502/hmm-mapper/fasta"
	"github.com/stela2502/hmm-mapper/internal"
	"github.com/stela2502/hmm-mapper/model"
	"github.com/stela2502/hmm-mapper/scoring"
	"github.com/stela2502/hmm-mapper/utils"
)

const (
	DefaultChunkSize    = 10000
	DefaultSubChunkSize = 500
)

// Config holds the parameters of a mapping run.
type Config struct {
	// ChunkSize is the number of reads per pipeline batch.
	ChunkSize int
	// SubChunkSize is the number of reads a single worker scores
	// sequentially within a chunk.
	SubChunkSize int
	// Threshold is the minimum per-position average emission
	// probability for a start offset to be retained.
	Threshold float64
	// Progress, if not nil, is called after each chunk is written with
	// the number of reads in that chunk.
	Progress func(reads int)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    DefaultChunkSize,
		SubChunkSize: DefaultSubChunkSize,
		Threshold:    scoring.DefaultThreshold,
	}
}

// Stats are the totals of a mapping run.
type Stats struct {
	Reads, Hits int
}

// A Chunk is the result of scoring a batch of reads: the formatted
// output records of all classified reads, in input order.
type Chunk struct {
	Records     []byte
	Reads, Hits int
}

// FormatRecord appends a classified read to dst as
//
//	>id NAME:score NAME:score ...
//	seq
func FormatRecord(dst, id, seq []byte, scores utils.SmallMap) []byte {
	dst = append(dst, '>')
	dst = append(dst, id...)
	dst = append(dst, ' ')
	dst = scores.Format(dst)
	dst = append(dst, '\n')
	dst = append(dst, seq...)
	return append(dst, '\n')
}

// ScoreChunk classifies a batch of reads. Sub-chunks of
// cfg.SubChunkSize reads are scored in parallel, and their records are
// concatenated in sub-chunk order.
func ScoreChunk(m *model.Model, reads []fasta.Read, cfg Config) Chunk {
	subChunkSize := cfg.SubChunkSize
	if subChunkSize <= 0 {
		subChunkSize = DefaultSubChunkSize
	}
	nofSubChunks := (len(reads) + subChunkSize - 1) / subChunkSize
	buffers := make([][]byte, nofSubChunks)
	hits := make([]int, nofSubChunks)
	parallel.Range(0, nofSubChunks, nofSubChunks, func(low, high int) {
		for sub := low; sub < high; sub++ {
			buf := internal.ReserveByteBuffer()
			end := (sub + 1) * subChunkSize
			if end > len(reads) {
				end = len(reads)
			}
			for _, read := range reads[sub*subChunkSize : end] {
				scores, ok := scoring.Score(m, read.Seq, cfg.Threshold)
				if !ok {
					continue
				}
				buf = FormatRecord(buf, read.ID, read.Seq, scores)
				hits[sub]++
			}
			buffers[sub] = buf
		}
	})
	chunk := Chunk{Reads: len(reads)}
	size := 0
	for _, buf := range buffers {
		size += len(buf)
	}
	chunk.Records = make([]byte, 0, size)
	for sub, buf := range buffers {
		chunk.Records = append(chunk.Records, buf...)
		chunk.Hits += hits[sub]
		internal.ReleaseByteBuffer(buf)
	}
	return chunk
}

// Run classifies all reads produced by source, which must yield slices
// of fasta.Read, and writes the records of the classified reads to out
// in input order.
func Run(m *model.Model, source pipeline.Source, out io.Writer, cfg Config) (stats Stats, err error) {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	var p pipeline.Pipeline
	p.Source(source)
	p.SetVariableBatchSize(chunkSize, chunkSize)
	p.Add(
		pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
			return ScoreChunk(m, data.([]fasta.Read), cfg)
		})),
		pipeline.StrictOrd(pipeline.Receive(func(seqNo int, data interface{}) interface{} {
			chunk := data.(Chunk)
			if _, err := out.Write(chunk.Records); err != nil {
				p.SetErr(fmt.Errorf("%v, while writing classified reads to output", err))
				return data
			}
			stats.Reads += chunk.Reads
			stats.Hits += chunk.Hits
			log.Printf("Chunk %v: %v of %v reads classified.\n", seqNo, chunk.Hits, chunk.Reads)
			if cfg.Progress != nil {
				cfg.Progress(chunk.Reads)
			}
			return data
		})),
	)
	p.Run()
	return stats, p.Err()
}
