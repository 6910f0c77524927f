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

package reads

import (
	"os/exec"

	"github.com/exascience/elmap/shell"
)

// Tools names the executables used for format conversion.
type Tools struct {
	Seqtk       string
	Solid2Fastq string
	FastqDump   string
}

// DefaultTools returns the conventional executable names.
func DefaultTools() Tools {
	return Tools{Seqtk: "seqtk", Solid2Fastq: "solid2fastq", FastqDump: "fastq-dump"}
}

// seqtk seq rewrites quality scores to the sanger encoding.
type seqtkSeq struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}seqtk{{end}}{{split}}seq"`
	Offset int    `buildarg:"{{if .}}-Q{{.}}{{end}}"`
	Shift  bool   `buildarg:"{{if .}}-V{{end}}"`
	Input  string `buildarg:"{{.}}"`
}

func (s seqtkSeq) BuildCommand() (*exec.Cmd, error) {
	return shell.Command(s, s.Input)
}

// solid2fastq merges a csfasta file and its quality file into FASTQ.
type solid2fastq struct {
	Cmd     string `buildarg:"{{if .}}{{.}}{{else}}solid2fastq{{end}}"`
	Reads   string `buildarg:"{{.}}"`
	Quality string `buildarg:"{{.}}"`
}

func (s solid2fastq) BuildCommand() (*exec.Cmd, error) {
	return shell.Command(s, s.Reads, s.Quality)
}

// fastq-dump extracts reads from an archived read container.
type fastqDump struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}fastq-dump{{end}}"`
	Split  bool   `buildarg:"{{if .}}--split-3{{end}}"`
	Gzip   bool   `buildarg:"{{if .}}--gzip{{end}}"`
	OutDir string `buildarg:"{{if .}}--outdir{{split}}{{.}}{{end}}"`
	Input  string `buildarg:"{{.}}"`
}

func (f fastqDump) BuildCommand() (*exec.Cmd, error) {
	return shell.Command(f, f.Input)
}

// exportFilter turns tab-separated export records into FASTQ, dropping
// reads that failed the instrument's quality control. QC-flagged reads
// whose quality field holds a colon-separated triple are kept.
const exportFilter = `awk -F'\t' '$11 != "QC" || $10 ~ /[0-9]+:[0-9]+:[0-9]+/ ` +
	`{if ($1 != "") {name = sprintf("%s_%s:%s:%s:%s:%s", $1, $2, $3, $4, $5, $6)} ` +
	`else {name = sprintf("%s:%s:%s:%s:%s", $1, $3, $4, $5, $6)} ` +
	`printf("@%s\n%s\n+\n%s\n", name, $9, $10)}'`
