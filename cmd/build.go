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
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/exascience/elmap/internal"
	"github.com/exascience/elmap/mapping"
	"github.com/exascience/elmap/plan"
)

// BuildHelp is the help string for this command.
const BuildHelp = "\nbuild parameters:\n" +
	"elmap build artifact input-file [input-file ...]\n" +
	"[--config file.toml | file.yaml]\n" +
	"[--strategy name]\n" +
	"[--set key=value]\n" +
	"[--tmpdir path]\n" +
	"[--script file]\n" +
	"[--timed]\n" +
	"[--profile file]\n" +
	"[--log-path path]\n"

// Build implements the elmap build command.
func Build() error {
	var (
		configFile, strategy, tmpdir, script, profile, logPath string
		timed                                                  bool
	)
	overrides := make(settingsFlag)

	var flags flag.FlagSet

	flags.StringVar(&configFile, "config", "", "TOML or YAML configuration file")
	flags.StringVar(&strategy, "strategy", "", "alignment strategy, overrides the configuration")
	flags.Var(overrides, "set", "override a configuration key, as key=value")
	flags.StringVar(&tmpdir, "tmpdir", "", "directory for job workspaces")
	flags.StringVar(&script, "script", "", "write the plan as a bash script to this file")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a cpu profile")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	if len(os.Args) < 4 {
		usage(BuildHelp, 1, "Incorrect number of parameters.")
	}

	artifact := getFilename(os.Args[2], BuildHelp)
	inputs := getFilenames(3, BuildHelp)

	parseFlags(&flags, 3+len(inputs), BuildHelp)

	setLogOutput(logPath, "build")

	// sanity checks

	var sanityChecksFailed bool

	if len(inputs) == 0 {
		log.Println("Error: No input files given.")
		sanityChecksFailed = true
	}
	if configFile != "" && !checkReadable("--config", configFile) {
		sanityChecksFailed = true
	}
	if script != "" && !checkWritable("--script", script) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		usage(BuildHelp, 1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " build ", artifact, " ", strings.Join(inputs, " "))
	if configFile != "" {
		fmt.Fprint(&command, " --config ", configFile)
	}
	if strategy != "" {
		fmt.Fprint(&command, " --strategy ", strategy)
	}
	if len(overrides) > 0 {
		fmt.Fprint(&command, " ", overrides.String())
	}
	if tmpdir != "" {
		fmt.Fprint(&command, " --tmpdir ", tmpdir)
	}
	if script != "" {
		fmt.Fprint(&command, " --script ", script)
	}
	if timed {
		fmt.Fprint(&command, " --timed")
	}
	if profile != "" {
		fmt.Fprint(&command, " --profile ", profile)
	}
	fmt.Fprint(&command, " --log-path ", logPath)

	// executing command

	log.Println("Executing command:\n", command.String())

	settings, err := resolveSettings(configFile, overrides, strategy, tmpdir)
	if err != nil {
		return err
	}
	s, err := mapping.New(settings["strategy"], settings)
	if err != nil {
		return err
	}

	var p *plan.Plan
	err = timedRun(timed, profile, "build", func() (err error) {
		p, err = plan.NewAssembler(settings["tmpdir"]).Build(s, inputs, artifact)
		return err
	})
	if err != nil {
		return err
	}
	for _, note := range p.Notes() {
		log.Println(note)
	}
	log.Println("Declared outputs:", strings.Join(p.Outputs(), " "))

	if script == "" {
		fmt.Println(p.Text())
		return nil
	}
	return internal.WriteFile(script, []byte(p.Script()), 0755)
}
