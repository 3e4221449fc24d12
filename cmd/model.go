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
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/stela2502/hmm-mapper/model"
)

// ModelHelp is the help string for this command.
const ModelHelp = "\nmodel parameters:\n" +
	"hmm-mapper model reference-fasta\n" +
	"[--floor f]\n" +
	"[--transition p]\n" +
	"[--log-path path]\n"

// Model implements the hmm-mapper model command. It builds the locus
// model from a reference database and prints which loci can be modeled.
func Model() error {
	var (
		floor, transition float64
		logPath           string
	)

	var flags flag.FlagSet

	flags.Float64Var(&floor, "floor", model.DefaultConfig().Floor, "minimum probability of a matrix cell before normalization")
	flags.Float64Var(&transition, "transition", model.DefaultTransition, "probability of switching loci between positions")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(&flags, 3, ModelHelp)

	reference := getFilename(os.Args[2], ModelHelp)

	setLogOutput(logPath)

	if !checkModelOptions(reference, floor, transition) {
		fmt.Fprint(os.Stderr, ModelHelp)
		os.Exit(1)
	}

	log.Println("Executing command:\n", os.Args[0], "model", reference, "--floor", floor, "--transition", transition)

	m, err := buildModel(reference, model.Config{Floor: floor, Transition: transition})
	if err != nil {
		return err
	}
	return m.Summary(os.Stdout)
}

// checkModelOptions runs all sanity checks of the model command, and
// logs every failure.
func checkModelOptions(reference string, floor, transition float64) bool {
	sanityChecksFailed := !checkExist("", reference)
	if !checkProbability("--floor", floor) {
		sanityChecksFailed = true
	}
	if !checkTransition(transition) {
		sanityChecksFailed = true
	}
	return !sanityChecksFailed
}
