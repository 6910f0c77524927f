// elMap: building alignment job plans for sequencing pipelines.
// Copyright (c) 2021 imec vzw.

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
// <https://github.com/ExaScience/elmap/blob/master/LICENSE.txt>.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/exascience/elmap/internal"
	"github.com/exascience/elmap/utils"
)

// ProgramMessage is the first line printed when the elmap binary is
// called.
var ProgramMessage = fmt.Sprint(
	"\n", utils.ProgramName, " version ", utils.ProgramVersion,
	" compiled with ", runtime.Version(),
	" - see ", utils.ProgramURL, " for more information.\n",
)

// HelpMessage is printed to show the --help flag
const HelpMessage = "Print command details:\n" +
	"[--help]\n"

func isHelp(s string) bool {
	switch s {
	case "-h", "--h", "-help", "--help":
		return true
	}
	return false
}

// usage prints help and ends the program with the given exit code.
func usage(help string, code int, v ...interface{}) {
	if len(v) > 0 {
		fmt.Fprintln(os.Stderr, v...)
	}
	fmt.Fprint(os.Stderr, help)
	os.Exit(code)
}

func getFilename(s, help string) string {
	if isHelp(s) {
		usage(help, 0)
	}
	if strings.HasPrefix(s, "-") {
		usage(help, 1, "Filename(s) in command line missing.")
	}
	return s
}

// getFilenames returns the arguments from first up to the first flag.
func getFilenames(first int, help string) []string {
	var names []string
	for _, arg := range os.Args[first:] {
		if strings.HasPrefix(arg, "-") && !isHelp(arg) {
			break
		}
		names = append(names, getFilename(arg, help))
	}
	return names
}

// parseFlags parses the arguments following the positional ones.
func parseFlags(flags *flag.FlagSet, positional int, help string) {
	if len(os.Args) < positional {
		usage(help, 1, "Incorrect number of parameters.")
	}
	flags.SetOutput(ioutil.Discard)
	if err := flags.Parse(os.Args[positional:]); err == flag.ErrHelp {
		usage(help, 0)
	} else if err != nil {
		usage(help, 1, err)
	}
	if flags.NArg() > 0 {
		usage(help, 1, "Cannot parse remaining parameters:", flags.Args())
	}
}

func logPathProblem(parameter, format string, v ...interface{}) {
	if parameter != "" {
		format += " for command line parameter " + parameter
	}
	log.Printf(format+".\n", v...)
}

func checkFilename(parameter, filename string) bool {
	switch {
	case filename == "":
		logPathProblem(parameter, "Error: Missing filename")
		return false
	case filename[0] == '-':
		logPathProblem(parameter, "Error: Missing filename before %v", filename)
		return false
	}
	return true
}

// checkReadable reports whether filename exists and can be read.
func checkReadable(parameter, filename string) bool {
	if !checkFilename(parameter, filename) {
		return false
	}
	switch err := unix.Access(filename, unix.R_OK); {
	case err == nil:
		return true
	case errors.Is(err, unix.ENOENT):
		logPathProblem(parameter, "Error: File %v does not exist", filename)
	case errors.Is(err, unix.EACCES):
		logPathProblem(parameter, "Error: No permission to read file %v", filename)
	default:
		logPathProblem(parameter, "Error %v when trying to access file %v", err, filename)
	}
	return false
}

// checkWritable reports whether filename can be written, either
// because it is a writable file or because the closest existing
// directory on its path is writable. Nothing is created.
func checkWritable(parameter, filename string) bool {
	if !checkFilename(parameter, filename) {
		return false
	}
	path := filename
	for {
		err := unix.Access(path, unix.W_OK)
		if err == nil {
			return true
		}
		if !errors.Is(err, unix.ENOENT) {
			logPathProblem(parameter, "Error: No permission to create file %v", filename)
			return false
		}
		parent := filepath.Dir(path)
		if parent == path {
			logPathProblem(parameter, "Error: Cannot create file %v", filename)
			return false
		}
		path = parent
	}
}

func checkThreads(nrOfThreads int) bool {
	if nrOfThreads < 0 {
		log.Println("Error: Invalid nr-of-threads: ", nrOfThreads)
		return false
	}
	return true
}

// logFilename names the log file of one run of command.
func logFilename(command string, t time.Time) string {
	return filepath.Join("logs", utils.ProgramName, fmt.Sprintf("%v-%v-%v.log", utils.ProgramName, command, t.Format("2006-01-02-15-04-05.000000000-MST")))
}

// setLogOutput duplicates the log and stderr into a new log file below
// path, or below $HOME if path is empty.
func setLogOutput(path, command string) {
	if path == "" {
		path = os.Getenv("HOME")
	}
	fullPath := filepath.Join(path, logFilename(command, time.Now()))
	internal.MkdirAll(filepath.Dir(fullPath), 0700)
	f := internal.FileCreate(fullPath)
	fmt.Fprintln(f, ProgramMessage)

	orgStderr, err := unix.Dup(2)
	if err != nil {
		log.Panic(err)
	}
	if err := unix.Dup2(int(f.Fd()), 2); err != nil {
		log.Panic(err)
	}
	log.SetOutput(io.MultiWriter(f, os.NewFile(uintptr(orgStderr), "/dev/stderr")))
	log.Println("Created log file at", fullPath)
	log.Println("Command line:", os.Args)
}

// timedRun runs f for command, logging the elapsed time when timed is
// set, and writing a cpu profile to <profile>-<command>.prof when a
// profile prefix is given.
func timedRun(timed bool, profile, command string, f func() error) error {
	if profile != "" {
		file := internal.FileCreate(profile + "-" + command + ".prof")
		defer internal.Close(file)
		if err := pprof.StartCPUProfile(file); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}
	if timed {
		log.Printf("Running %v.\n", command)
		start := time.Now()
		defer func() {
			log.Println("Elapsed time: ", time.Since(start))
		}()
	}
	return f()
}
