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
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/stela2502/hmm-mapper/internal"
	"github.com/stela2502/hmm-mapper/loci"
	"github.com/stela2502/hmm-mapper/utils"
)

// ProgramMessage is the first line printed when the hmm-mapper binary
// is called.
var ProgramMessage string

func init() {
	ProgramMessage = fmt.Sprint(
		"\n", utils.ProgramName, " version ", utils.ProgramVersion,
		" compiled with ", runtime.Version(), " - see ", utils.ProgramURL, " for more information.\n",
	)
}

// HelpMessage is printed to show the --help flag
const HelpMessage = "Print command details:\n" +
	"[--help]\n"

// runID identifies this invocation in log file names and log output.
var runID = uuid.New()

func getFilename(s, help string) string {
	switch s {
	case "-h", "--h", "-help", "--help":
		fmt.Fprint(os.Stderr, help)
		os.Exit(0)
	default:
		if strings.HasPrefix(s, "-") {
			log.Println("Filename(s) in command line missing.")
			fmt.Fprint(os.Stderr, help)
			os.Exit(1)
		}
	}
	return s
}

func parseFlags(flags *flag.FlagSet, requiredArgs int, help string) {
	if len(os.Args) < requiredArgs {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
	flags.SetOutput(io.Discard)
	if err := flags.Parse(os.Args[requiredArgs:]); err != nil {
		x := 0
		if err != flag.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			x = 1
		}
		fmt.Fprint(os.Stderr, help)
		os.Exit(x)
	}
	if flags.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Cannot parse remaining parameters:", flags.Args())
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
}

func logCheckFile(parameter, format string, v ...interface{}) {
	if parameter != "" {
		log.Printf(format+" for command line parameter %v.\n", append(v, parameter)...)
	} else {
		log.Printf(format+".\n", v...)
	}
}

func checkFilename(parameter, filename string) bool {
	switch {
	case filename == "":
		logCheckFile(parameter, "Error: Missing filename")
	case filename[0] == '-':
		logCheckFile(parameter, "Error: Missing filename before %v", filename)
	default:
		return true
	}
	return false
}

func checkExist(parameter, filename string) bool {
	if !checkFilename(parameter, filename) {
		return false
	}
	_, err := os.Stat(filename)
	switch {
	case err == nil:
		return true
	case os.IsNotExist(err):
		logCheckFile(parameter, "Error: File %v does not exist", filename)
	case os.IsPermission(err):
		logCheckFile(parameter, "Error: No permission to read file %v", filename)
	default:
		logCheckFile(parameter, "Error %v when trying to access file %v", err, filename)
	}
	return false
}

func checkCreate(parameter, filename string) bool {
	if !checkFilename(parameter, filename) {
		return false
	}
	if _, err := os.Stat(filename); err == nil {
		// left behind by an earlier run, and overwritten by this one
		return true
	}
	err := os.MkdirAll(filepath.Dir(filename), 0700)
	if err == nil {
		err = os.WriteFile(filename, nil, 0666)
	}
	switch {
	case err == nil:
		_ = os.Remove(filename)
		return true
	case os.IsPermission(err):
		logCheckFile(parameter, "Error: No permission to create file %v", filename)
	default:
		logCheckFile(parameter, "Error %v when trying to create file %v", err, filename)
	}
	return false
}

func checkProbability(parameter string, value float64) bool {
	if value < 0 || value > 1 {
		logCheckFile(parameter, "Error: Invalid probability %v", value)
		return false
	}
	return true
}

// checkTransition ensures that the switch probability leaves a positive
// probability to stay in the same locus, even when all loci are modeled.
func checkTransition(transition float64) bool {
	if transition < 0 || float64(loci.NofLoci-1)*transition >= 1 {
		logCheckFile("--transition", "Error: Invalid probability %v", transition)
		return false
	}
	return true
}

func createLogFilename() string {
	t := time.Now()
	return fmt.Sprintf("logs/hmm-mapper/hmm-mapper-%d-%02d-%02d-%02d-%02d-%02d-%v.log",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), runID)
}

func setLogOutput(path string) {
	if path == "" {
		return
	}
	fullPath := filepath.Join(path, createLogFilename())
	internal.MkdirAll(filepath.Dir(fullPath), 0700)
	f := internal.FileCreate(fullPath)
	fmt.Fprintln(f, ProgramMessage)

	orgStderr, err := unix.Dup(2)
	if err != nil {
		log.Panic(err)
	}
	ferr := os.NewFile(uintptr(orgStderr), "/dev/stderr")
	if err := unix.Dup2(int(f.Fd()), 2); err != nil {
		log.Panic(err)
	}

	log.SetOutput(io.MultiWriter(f, ferr))
	log.Println("Created log file at", fullPath)
	log.Println("Run id:", runID)
	log.Println("Command line:", os.Args)
}

func timedRun(timed bool, msg string, f func() error) error {
	if timed {
		log.Println(msg)
		start := time.Now()
		defer func() {
			log.Println("Elapsed time: ", time.Since(start))
		}()
	}
	return f()
}
