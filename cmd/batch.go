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
	"path/filepath"
	"runtime"
	"strings"

	"github.com/exascience/elmap/internal"
	"github.com/exascience/elmap/mapping"
	"github.com/exascience/elmap/plan"
	"github.com/exascience/elmap/reads"
)

// BatchHelp is the help string for this command.
const BatchHelp = "\nbatch parameters:\n" +
	"elmap batch /path/to/input/ /path/to/output/\n" +
	"[--config file.toml | file.yaml]\n" +
	"[--strategy name]\n" +
	"[--set key=value]\n" +
	"[--tmpdir path]\n" +
	"[--nr-of-threads nr]\n" +
	"[--timed]\n" +
	"[--profile file]\n" +
	"[--log-path path]\n"

// OutputsTable is the name of the file listing the outputs of a batch.
const OutputsTable = "outputs.tsv"

// Batch implements the elmap batch command.
func Batch() error {
	var (
		configFile, strategy, tmpdir, profile, logPath string
		nrOfThreads                                    int
		timed                                          bool
	)
	overrides := make(settingsFlag)

	var flags flag.FlagSet

	flags.StringVar(&configFile, "config", "", "TOML or YAML configuration file")
	flags.StringVar(&strategy, "strategy", "", "alignment strategy, overrides the configuration")
	flags.Var(overrides, "set", "override a configuration key, as key=value")
	flags.StringVar(&tmpdir, "tmpdir", "", "directory for job workspaces")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a cpu profile")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	if len(os.Args) < 4 {
		usage(BatchHelp, 1, "Incorrect number of parameters.")
	}

	input := getFilename(os.Args[2], BatchHelp)
	output := getFilename(os.Args[3], BatchHelp)

	parseFlags(&flags, 4, BatchHelp)

	setLogOutput(logPath, "batch")

	// sanity checks

	var sanityChecksFailed bool

	if !checkReadable("", input) {
		sanityChecksFailed = true
	}
	if configFile != "" && !checkReadable("--config", configFile) {
		sanityChecksFailed = true
	}
	if filepath.Dir(output) != filepath.Clean(output) {
		log.Printf("Given output path is not a path: %v.\n", output)
		sanityChecksFailed = true
	}
	if !checkThreads(nrOfThreads) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		usage(BatchHelp, 1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " batch ", input, " ", output)
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
	if nrOfThreads > 0 {
		runtime.GOMAXPROCS(nrOfThreads)
		fmt.Fprint(&command, " --nr-of-threads ", nrOfThreads)
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

	fullInput, err := internal.FullPathname(input)
	if err != nil {
		return err
	}
	fullOutput, err := internal.FullPathname(output)
	if err != nil {
		return err
	}
	files, err := internal.Directory(fullInput)
	if err != nil {
		return err
	}
	samples := collectSamples(fullInput, fullOutput, files, s.Extension())
	if len(samples) == 0 {
		return fmt.Errorf("%w: no read files in %v", reads.ErrEmptyInput, input)
	}
	log.Printf("Building plans for %v samples.\n", len(samples))

	var plans []*plan.Plan
	err = timedRun(timed, profile, "batch", func() (err error) {
		plans, err = plan.NewAssembler(settings["tmpdir"]).BuildAll(s, samples)
		return err
	})
	if err != nil {
		return err
	}
	return writeBatch(fullOutput, samples, plans)
}

// collectSamples groups the read files in dir by track name. The
// artifact of each sample is placed in output.
func collectSamples(dir, output string, files []string, extension string) []plan.Sample {
	var samples []plan.Sample
	index := make(map[string]int)
	for _, f := range files {
		if !reads.Recognized(f) {
			continue
		}
		track := reads.Track(f)
		i, ok := index[track]
		if !ok {
			i = len(samples)
			index[track] = i
			samples = append(samples, plan.Sample{Artifact: filepath.Join(output, track+extension)})
		}
		samples[i].Inputs = append(samples[i].Inputs, filepath.Join(dir, f))
	}
	return samples
}

// writeBatch writes one script per sample, and a table of the scripts
// and their outputs.
func writeBatch(output string, samples []plan.Sample, plans []*plan.Plan) error {
	var table bytes.Buffer
	fmt.Fprintln(&table, "sample\tscript\toutputs")
	for i, p := range plans {
		track := reads.Track(samples[i].Artifact)
		script := filepath.Join(output, track+".sh")
		if err := internal.WriteFile(script, []byte(p.Script()), 0755); err != nil {
			return err
		}
		for _, note := range p.Notes() {
			log.Println(note)
		}
		fmt.Fprintf(&table, "%v\t%v\t%v\n", track, script, strings.Join(p.Outputs(), ","))
	}
	return internal.WriteFile(filepath.Join(output, OutputsTable), table.Bytes(), 0644)
}
