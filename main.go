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

// hmm-mapper classifies immune-receptor sequencing reads by the locus
// they most likely originate from (IGH, IGK, IGL, TRA, TRB, TRG, TRD),
// using position probability matrices built from a reference database
// of V, D, and J gene segments.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/stela2502/hmm-mapper/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: map, model")
	fmt.Fprint(os.Stderr, "\n", cmd.MapHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.ModelHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, cmd.HelpMessage)
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "map":
		err = cmd.Map()
	case "model":
		err = cmd.Model()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	default:
		log.Printf("Unknown command %v.\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
