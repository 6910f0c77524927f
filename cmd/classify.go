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
	"fmt"
	"io"
	"os"

	"github.com/exascience/elmap/mapping"
	"github.com/exascience/elmap/reads"
)

// ClassifyHelp is the help string for this command.
const ClassifyHelp = "\nclassify parameters:\n" +
	"elmap classify input-file [input-file ...]\n"

// Classify implements the elmap classify command. It prints the format
// and layout of every input file.
func Classify() error {
	if len(os.Args) < 3 {
		usage(ClassifyHelp, 1, "Incorrect number of parameters.")
	}
	paths := getFilenames(2, ClassifyHelp)
	if len(paths) < len(os.Args)-2 {
		usage(ClassifyHelp, 1, "Cannot parse remaining parameters:", os.Args[2+len(paths):])
	}
	return classify(os.Stdout, &reads.Classifier{}, paths)
}

func classify(w io.Writer, c *reads.Classifier, paths []string) error {
	for _, path := range paths {
		in, err := c.Classify(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", path, in.Format, in.Layout, in.Layout.Arity())
	}
	return nil
}

// StrategiesHelp is the help string for this command.
const StrategiesHelp = "\nstrategies parameters:\n" +
	"elmap strategies\n"

// Strategies implements the elmap strategies command. It prints the
// names of the available alignment strategies.
func Strategies() error {
	for _, name := range mapping.Names() {
		fmt.Println(name)
	}
	return nil
}
