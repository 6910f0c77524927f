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

// elMap builds alignment job plans for sequencing pipelines.
//
// Given the raw read files of a sample and a configured alignment
// strategy, elMap produces the shell text that normalizes the reads,
// runs the aligner, sorts and indexes the result, and removes all
// intermediate files, with checkpoint barriers between the phases.
// The plan is meant to be executed by an external job engine, or as a
// bash script.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/exascience/elmap/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: build, batch, classify, strategies")
	fmt.Fprint(os.Stderr, "\n", cmd.BuildHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.BatchHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.ClassifyHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.StrategiesHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprintln(os.Stderr, cmd.HelpMessage)
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "build":
		err = cmd.Build()
	case "batch":
		err = cmd.Batch()
	case "classify":
		err = cmd.Classify()
	case "strategies":
		err = cmd.Strategies()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	default:
		log.Println("Unknown command:", os.Args[1])
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
