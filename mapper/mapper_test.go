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

package mapper

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stela2502/hmm-mapper/fasta"
	"github.com/stela2502/hmm-mapper/model"
	"github.com/stela2502/hmm-mapper/utils"
)

const (
	ighV = "ACGTTGCAAGTCAGGT"
	trbJ = "CTCCTACGAGCAGTAC"
)

func testModel() *model.Model {
	b := model.NewBuilder()
	b.Add("IGHV1-18*01", []byte(ighV))
	b.Add("IGHD1-1*01", []byte("GGTACTAC"))
	b.Add("IGHJ4*02", []byte("TGGGGCCAGGGAAC"))
	b.Add("TRBV2*01", []byte("TTCAGAGCCGATTACA"))
	b.Add("TRBD1*01", []byte("GGGACAGGG"))
	b.Add("TRBJ2-7*01", []byte(trbJ))
	return b.Model(model.DefaultConfig())
}

func writeReads(t *testing.T) string {
	rnd := rand.New(rand.NewSource(7))
	var text strings.Builder
	for i := 0; i < 237; i++ {
		var seq string
		switch i % 4 {
		case 0:
			seq = ighV
		case 1:
			seq = trbJ
		case 2:
			seq = "XXXXXXXXXXXXXXXXXXXX"
		default:
			b := make([]byte, 20+rnd.Intn(30))
			for j := range b {
				b[j] = "ACGTN"[rnd.Intn(5)]
			}
			seq = string(b)
		}
		text.WriteString(">read")
		text.WriteString(strings.Repeat("x", i%3))
		text.WriteByte(byte('a' + i%26))
		text.WriteByte('\n')
		text.WriteString(seq)
		text.WriteByte('\n')
	}
	filename := filepath.Join(t.TempDir(), "reads.fa")
	if err := os.WriteFile(filename, []byte(text.String()), 0666); err != nil {
		t.Fatal(err)
	}
	return filename
}

func run(t *testing.T, m *model.Model, filename string, cfg Config) ([]byte, Stats) {
	src, err := fasta.OpenReads(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	var out bytes.Buffer
	stats, err := Run(m, src, &out, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return out.Bytes(), stats
}

func TestChunkSizesDoNotMatter(t *testing.T) {
	m := testModel()
	filename := writeReads(t)
	reference, referenceStats := run(t, m, filename, DefaultConfig())
	if referenceStats.Reads != 237 {
		t.Errorf("%v reads processed, want 237", referenceStats.Reads)
	}
	// every IGH V and TRB J copy is classified, the X reads never are
	if referenceStats.Hits < 119 || referenceStats.Hits > 178 {
		t.Errorf("%v hits", referenceStats.Hits)
	}
	if n := bytes.Count(reference, []byte{'>'}); n != referenceStats.Hits {
		t.Errorf("%v records for %v hits", n, referenceStats.Hits)
	}
	if bytes.Contains(reference, []byte("XXXX")) {
		t.Error("unclassifiable read in output")
	}
	for _, sizes := range [][2]int{{1, 1}, {7, 3}, {50, 500}, {100, 9}, {1000, 1}} {
		cfg := DefaultConfig()
		cfg.ChunkSize, cfg.SubChunkSize = sizes[0], sizes[1]
		var progress int
		cfg.Progress = func(reads int) { progress += reads }
		out, stats := run(t, m, filename, cfg)
		if stats != referenceStats {
			t.Errorf("chunk sizes %v: stats %v, want %v", sizes, stats, referenceStats)
		}
		if progress != 237 {
			t.Errorf("chunk sizes %v: progress reported %v reads", sizes, progress)
		}
		if !bytes.Equal(out, reference) {
			t.Errorf("chunk sizes %v: output differs", sizes)
		}
	}
}

func TestScoreChunk(t *testing.T) {
	m := testModel()
	reads := []fasta.Read{
		{ID: []byte("r1"), Seq: []byte(trbJ)},
		{ID: []byte("r2"), Seq: []byte("NNXNN")},
		{ID: []byte("r3"), Seq: []byte(ighV)},
	}
	cfg := DefaultConfig()
	cfg.SubChunkSize = 1
	chunk := ScoreChunk(m, reads, cfg)
	if chunk.Reads != 3 || chunk.Hits != 2 {
		t.Errorf("reads %v, hits %v", chunk.Reads, chunk.Hits)
	}
	lines := strings.Split(strings.TrimSuffix(string(chunk.Records), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("%v lines, want 4", len(lines))
	}
	if !strings.HasPrefix(lines[0], ">r1 ") || lines[1] != trbJ {
		t.Errorf("first record %q %q", lines[0], lines[1])
	}
	if !strings.HasPrefix(lines[2], ">r3 ") || lines[3] != ighV {
		t.Errorf("second record %q %q", lines[2], lines[3])
	}
	if !strings.Contains(lines[0], "TRB-VDJ:1") || !strings.Contains(lines[2], "IGH-VDJ:1") {
		t.Errorf("best loci missing in %q and %q", lines[0], lines[2])
	}
	if empty := ScoreChunk(m, nil, cfg); empty.Reads != 0 || len(empty.Records) != 0 {
		t.Errorf("empty chunk %v", empty)
	}
}

func TestFormatRecord(t *testing.T) {
	var scores utils.SmallMap
	scores.Set(utils.Intern("IGH-VDJ"), 1)
	scores.Set(utils.Intern("TRB-VDJ"), 0.25)
	scores.Set(utils.Intern("IGL-VDJ"), 1.2345678e-7)
	got := string(FormatRecord([]byte("prefix\n"), []byte("read1 lane=2"), []byte("ACGT"), scores))
	want := "prefix\n>read1 lane=2 IGH-VDJ:1 TRB-VDJ:0.25 IGL-VDJ:1.23457e-07\nACGT\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
