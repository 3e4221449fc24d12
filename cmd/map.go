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

package cmd

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"

	"github.com/stela2502/hmm-mapper/fasta"
	"github.com/stela2502/hmm-mapper/mapper"
	"github.com/stela2502/hmm-mapper/model"
	"github.com/stela2502/hmm-mapper/scoring"
	"github.com/stela2502/hmm-mapper/utils/bgzf"
)

// MapHelp is the help string for this command.
const MapHelp = "\nmap parameters:\n" +
	"hmm-mapper map reference-fasta reads-file output-fasta\n" +
	"[--floor f]\n" +
	"[--threshold t]\n" +
	"[--transition p]\n" +
	"[--chunk-size nr]\n" +
	"[--sub-chunk-size nr]\n" +
	"[--nr-of-threads nr]\n" +
	"[--log-path path]\n" +
	"[--timed]\n" +
	"[--progress]\n"

// errNoLoci is returned when none of the seven loci has enough
// reference segments to build a matrix from.
var errNoLoci = errors.New("no locus in the reference database has enough segments to be modeled")

func buildModel(reference string, cfg model.Config) (*model.Model, error) {
	builder := model.NewBuilder()
	nofRecords, nofSegments := 0, 0
	if err := fasta.ScanFastaFile(reference, func(header string, seq []byte) {
		nofRecords++
		if builder.Add(header, seq) {
			nofSegments++
		}
	}); err != nil {
		return nil, err
	}
	log.Printf("Read %v reference records, %v of which are locus segments.\n",
		humanize.Comma(int64(nofRecords)), humanize.Comma(int64(nofSegments)))
	m := builder.Model(cfg)
	if m.NofLoci() == 0 {
		return nil, errNoLoci
	}
	return m, nil
}

// Map implements the hmm-mapper map command.
func Map() error {
	var (
		floor, threshold, transition float64
		chunkSize, subChunkSize      int
		nrOfThreads                  int
		logPath                      string
		timed, progress              bool
	)

	var flags flag.FlagSet

	flags.Float64Var(&floor, "floor", model.DefaultConfig().Floor, "minimum probability of a matrix cell before normalization")
	flags.Float64Var(&threshold, "threshold", scoring.DefaultThreshold, "minimum average emission probability of a start offset")
	flags.Float64Var(&transition, "transition", model.DefaultTransition, "probability of switching loci between positions")
	flags.IntVar(&chunkSize, "chunk-size", mapper.DefaultChunkSize, "number of reads per chunk")
	flags.IntVar(&subChunkSize, "sub-chunk-size", mapper.DefaultSubChunkSize, "number of reads per worker task")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.BoolVar(&progress, "progress", false, "show a progress bar")

	parseFlags(&flags, 5, MapHelp)

	reference := getFilename(os.Args[2], MapHelp)
	reads := getFilename(os.Args[3], MapHelp)
	output := getFilename(os.Args[4], MapHelp)

	setLogOutput(logPath)

	// sanity checks

	sanityChecksFailed := !checkExist("", reference)
	if !checkExist("", reads) {
		sanityChecksFailed = true
	}
	if !checkCreate("", output) {
		sanityChecksFailed = true
	}
	if !checkProbability("--floor", floor) {
		sanityChecksFailed = true
	}
	if !checkProbability("--threshold", threshold) {
		sanityChecksFailed = true
	}
	if !checkTransition(transition) {
		sanityChecksFailed = true
	}
	if chunkSize <= 0 {
		sanityChecksFailed = true
		log.Println("Error: Invalid chunk-size: ", chunkSize)
	}
	if subChunkSize <= 0 {
		sanityChecksFailed = true
		log.Println("Error: Invalid sub-chunk-size: ", subChunkSize)
	}
	if nrOfThreads < 0 {
		sanityChecksFailed = true
		log.Println("Error: Invalid nr-of-threads: ", nrOfThreads)
	}
	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, MapHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " map ", reference, " ", reads, " ", output)
	fmt.Fprint(&command, " --floor ", floor)
	fmt.Fprint(&command, " --threshold ", threshold)
	fmt.Fprint(&command, " --transition ", transition)
	fmt.Fprint(&command, " --chunk-size ", chunkSize)
	fmt.Fprint(&command, " --sub-chunk-size ", subChunkSize)
	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
		fmt.Fprint(&command, " --nr-of-threads ", nrOfThreads)
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}
	if timed {
		fmt.Fprint(&command, " --timed")
	}
	if progress {
		fmt.Fprint(&command, " --progress")
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	var m *model.Model
	err := timedRun(timed, "Building the locus model.", func() (err error) {
		m, err = buildModel(reference, model.Config{Floor: floor, Transition: transition})
		return err
	})
	if err != nil {
		return err
	}

	cfg := mapper.Config{
		ChunkSize:    chunkSize,
		SubChunkSize: subChunkSize,
		Threshold:    threshold,
	}
	var bar *pb.ProgressBar
	if progress {
		bar = pb.ProgressBarTemplate(`{{counters . }} reads {{speed . "%s reads/s"}} {{etime . }}`).Start64(0)
		cfg.Progress = func(n int) { bar.Add(n) }
	}

	var stats mapper.Stats
	err = timedRun(timed, "Classifying reads.", func() (err error) {
		stats, err = mapReads(m, reads, output, cfg)
		return err
	})
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	percentage := 0.0
	if stats.Reads > 0 {
		percentage = 100 * float64(stats.Hits) / float64(stats.Reads)
	}
	log.Printf("Classified %v of %v reads (%.2f%%).\n",
		humanize.Comma(int64(stats.Hits)), humanize.Comma(int64(stats.Reads)), percentage)
	return nil
}

func mapReads(m *model.Model, reads, output string, cfg mapper.Config) (stats mapper.Stats, err error) {
	src, err := fasta.OpenReads(reads)
	if err != nil {
		return stats, fmt.Errorf("%v, while opening reads file %v", err, reads)
	}
	defer func() {
		if nerr := src.Close(); err == nil {
			err = nerr
		}
	}()

	pathname, err := filepath.Abs(output)
	if err != nil {
		return stats, err
	}
	if err = os.MkdirAll(filepath.Dir(pathname), 0700); err != nil {
		return stats, err
	}
	file, err := os.Create(pathname)
	if err != nil {
		return stats, err
	}
	defer func() {
		if nerr := file.Close(); err == nil {
			err = nerr
		}
	}()

	if strings.HasSuffix(output, ".gz") {
		var out *bgzf.Writer
		if out, err = bgzf.NewWriter(file, gzip.DefaultCompression); err != nil {
			return stats, err
		}
		defer func() {
			if nerr := out.Close(); err == nil {
				err = nerr
			}
		}()
		stats, err = mapper.Run(m, src, out, cfg)
	} else {
		out := bufio.NewWriter(file)
		defer func() {
			if nerr := out.Flush(); err == nil {
				err = nerr
			}
		}()
		stats, err = mapper.Run(m, src, out, cfg)
	}
	if err == nil && src.Skipped() > 0 {
		log.Printf("Skipped %v malformed or empty read records.\n", humanize.Comma(int64(src.Skipped())))
	}
	return stats, err
}
