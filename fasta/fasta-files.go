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

// Package fasta provides the sequence readers of hmm-mapper: a
// streaming reader for reference gene databases in FASTA format, and a
// pargo pipeline source for query reads in FASTA or FASTQ format. Both
// accept compressed input.
package fasta

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/stela2502/hmm-mapper/utils"
)

const maxLineLength = 64 * 1024 * 1024

// ScanFasta sequentially parses FASTA records from r, and calls f for
// each record with its header line (without the leading '>') and its
// sequence. The sequence is only valid during the call.
func ScanFasta(r io.Reader, f func(header string, seq []byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	var (
		header    string
		seq       []byte
		inRecord  bool
		lineCount int
	)
	for scanner.Scan() {
		lineCount++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		if b[0] == '>' {
			if inRecord {
				f(header, seq)
			}
			header = string(bytes.TrimSpace(b[1:]))
			seq = seq[:0]
			inRecord = true
			continue
		}
		if !inRecord {
			return fmt.Errorf("invalid fasta file - sequence data before the first header in line %v", lineCount)
		}
		seq = append(seq, b...)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if inRecord {
		f(header, seq)
	}
	return nil
}

// ScanFastaFile is ScanFasta on a file. Gzip and BGZF compressed files
// are decompressed on the fly.
func ScanFastaFile(filename string, f func(header string, seq []byte)) (err error) {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := file.Close(); err == nil {
			err = nerr
		}
	}()
	r, err := utils.HandleBGZF(bufio.NewReader(file))
	if err != nil {
		return fmt.Errorf("%v, while opening fasta file %v", err, filename)
	}
	defer func() {
		if nerr := r.Close(); err == nil {
			err = nerr
		}
	}()
	if err = ScanFasta(r, f); err != nil {
		return fmt.Errorf("%v, while reading fasta file %v", err, filename)
	}
	return nil
}
