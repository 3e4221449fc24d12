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

package fasta

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/shenwei356/bio/seq"

	"github.com/stela2502/hmm-mapper/utils"
)

// A Read is a query read.
type Read struct {
	ID, Seq []byte
}

// maxConsecutiveErrors bounds the number of malformed records in a row
// before a ReadSource gives up on its input.
const maxConsecutiveErrors = 100

// recordScanner frames FASTA and FASTQ records line by line, with one
// line of lookahead. A malformed record is reported once, and scanning
// resumes at the next header line.
type recordScanner struct {
	scanner *bufio.Scanner
	line    []byte
	peeked  bool
	lineNo  int
}

func newRecordScanner(r io.Reader) *recordScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	return &recordScanner{scanner: scanner}
}

// peek returns the current line without consuming it. The line is
// only valid until consume is called.
func (s *recordScanner) peek() ([]byte, bool) {
	if !s.peeked {
		if !s.scanner.Scan() {
			return nil, false
		}
		s.line = bytes.TrimRight(s.scanner.Bytes(), "\r")
		s.lineNo++
		s.peeked = true
	}
	return s.line, true
}

func (s *recordScanner) consume() {
	s.peeked = false
}

func isHeader(line []byte) bool {
	return len(line) > 0 && (line[0] == '>' || line[0] == '@')
}

// next returns the next record. It returns io.EOF at the end of the
// input, and a non-nil error with the name of a malformed record.
func (s *recordScanner) next() (name, sequence []byte, err error) {
	line, ok := s.peek()
	for ok && len(bytes.TrimSpace(line)) == 0 {
		s.consume()
		line, ok = s.peek()
	}
	if !ok {
		if err := s.scanner.Err(); err != nil {
			return nil, nil, err
		}
		return nil, nil, io.EOF
	}
	if !isHeader(line) {
		start := s.lineNo
		for ok && !isHeader(line) {
			s.consume()
			line, ok = s.peek()
		}
		return nil, nil, fmt.Errorf("expected a record header in line %v", start)
	}
	fastq := line[0] == '@'
	name = append(name, bytes.TrimSpace(line[1:])...)
	s.consume()

	for line, ok = s.peek(); ok; line, ok = s.peek() {
		if len(line) > 0 && (line[0] == '>' || fastq && (line[0] == '@' || line[0] == '+')) {
			break
		}
		sequence = append(sequence, bytes.TrimSpace(line)...)
		s.consume()
	}
	if !fastq {
		return name, sequence, nil
	}

	if !ok || line[0] != '+' {
		return name, nil, fmt.Errorf("record %s has no quality separator", name)
	}
	s.consume()
	// A line starting with '@' is quality data only if it completes the
	// quality string, otherwise it is the header of the next record.
	quality := 0
	for quality < len(sequence) {
		line, ok = s.peek()
		if !ok {
			break
		}
		n := len(bytes.TrimSpace(line))
		if len(line) > 0 && line[0] == '@' && quality+n != len(sequence) {
			break
		}
		quality += n
		s.consume()
	}
	if quality != len(sequence) {
		return name, nil, fmt.Errorf("record %s has %v bases but %v quality values", name, len(sequence), quality)
	}
	return name, sequence, nil
}

// ReadSource reads query reads from a FASTA or FASTQ file, which may be
// compressed. It implements the pargo pipeline.Source interface, and
// produces slices of Read values.
//
// Malformed and empty records are logged and skipped.
type ReadSource struct {
	file     *os.File
	input    io.ReadCloser
	records  *recordScanner
	alphabet *seq.Alphabet
	data     []Read
	err      error
	done     bool
	skipped  int
}

// OpenReads opens a FASTA or FASTQ file. The name "-" stands for
// standard input.
func OpenReads(filename string) (*ReadSource, error) {
	file := os.Stdin
	if filename != "-" {
		var err error
		if file, err = os.Open(filename); err != nil {
			return nil, err
		}
	}
	input, err := utils.HandleBGZF(bufio.NewReader(file))
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%v, while opening reads file %v", err, filename)
	}
	return &ReadSource{
		file:     file,
		input:    input,
		records:  newRecordScanner(input),
		alphabet: seq.Unlimit,
	}, nil
}

// Close closes the underlying file.
func (src *ReadSource) Close() error {
	err := src.input.Close()
	if src.file == os.Stdin {
		return err
	}
	if nerr := src.file.Close(); err == nil {
		err = nerr
	}
	return err
}

// Skipped returns the number of records that were skipped so far.
func (src *ReadSource) Skipped() int {
	return src.skipped
}

// Err implements the method of the pipeline.Source interface.
func (src *ReadSource) Err() error {
	return src.err
}

// Prepare implements the method of the pipeline.Source interface.
func (*ReadSource) Prepare(_ context.Context) (size int) {
	return -1
}

// Fetch implements the method of the pipeline.Source interface.
func (src *ReadSource) Fetch(size int) (fetched int) {
	src.data = nil
	if src.done {
		return 0
	}
	reads := make([]Read, 0, size)
	errors := 0
	for len(reads) < size {
		name, sequence, err := src.records.next()
		if err == io.EOF {
			src.done = true
			break
		}
		if err == nil {
			var s *seq.Seq
			if s, err = seq.NewSeq(src.alphabet, sequence); err == nil {
				sequence = s.Seq
			}
		}
		if err != nil {
			if src.records.scanner.Err() != nil {
				src.err = err
				src.done = true
				break
			}
			errors++
			src.skipped++
			log.Printf("Skipping malformed record: %v.\n", err)
			if errors >= maxConsecutiveErrors {
				src.err = fmt.Errorf("%v consecutive malformed records, last error: %v", errors, err)
				src.done = true
				break
			}
			continue
		}
		errors = 0
		if len(sequence) == 0 {
			src.skipped++
			log.Printf("Skipping record %s without sequence.\n", name)
			continue
		}
		reads = append(reads, Read{ID: name, Seq: sequence})
	}
	src.data = reads
	return len(reads)
}

// Data implements the method of the pipeline.Source interface.
func (src *ReadSource) Data() interface{} {
	return src.data
}
