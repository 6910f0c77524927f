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

package mapping

import (
	"os/exec"

	"github.com/exascience/elmap/reads"
	"github.com/exascience/elmap/shell"
)

type hisatCommand struct {
	Cmd        string   `buildarg:"{{if .}}{{.}}{{else}}hisat2{{end}}"`
	Threads    int      `buildarg:"{{if .}}--threads{{split}}{{.}}{{end}}"`
	Strandness string   `buildarg:"{{if .}}--rna-strandness{{split}}{{.}}{{end}}"`
	Options    []string `buildarg:"{{range $i, $o := .}}{{if $i}}{{split}}{{end}}{{$o}}{{end}}"`
	Index      string   `buildarg:"{{if .}}-x{{split}}{{.}}{{end}}"`
	Unpaired   string   `buildarg:"{{if .}}-U{{split}}{{.}}{{end}}"`
	Mate1      string   `buildarg:"{{if .}}-1{{split}}{{.}}{{end}}"`
	Mate2      string   `buildarg:"{{if .}}-2{{split}}{{.}}{{end}}"`
	Known      string   `buildarg:"{{if .}}--known-splicesite-infile{{split}}{{.}}{{end}}"`
	Novel      string   `buildarg:"{{if .}}--novel-splicesite-outfile{{split}}{{.}}{{end}}"`
	Output     string   `buildarg:"{{if .}}-S{{split}}{{.}}{{end}}"`
}

func (h hisatCommand) BuildCommand() (*exec.Cmd, error) {
	return shell.Command(h, h.Index, h.Output, h.Unpaired+h.Mate1)
}

// hisat maps RNA reads with HISAT2, optionally guided by known splice
// sites, and reports the novel splice sites it finds.
type hisat struct {
	cfg         Config
	libraryType string
	known       string
}

// NewHisat returns the strategy for HISAT2, which maps single-end and
// paired-end reads.
func NewHisat(cfg Config) (*Mapper, error) {
	h := &hisat{cfg: cfg, libraryType: cfg.Param("library_type", ""), known: cfg.Param("junctions", "")}
	return &Mapper{
		name:        cfg.Name,
		config:      cfg,
		align:       map[int]AlignFunc{1: h.align, 2: h.align},
		postprocess: sortSAM(newSorter(cfg, "NH")),
		auxiliary: func(artifact string) []string {
			return []string{artifact + ".bai", novelJunctions(artifact)}
		},
	}, nil
}

func novelJunctions(artifact string) string {
	return artifact + "_novel_junctions"
}

func (h *hisat) align(job *Job, rs *reads.ReadSet) (string, error) {
	var f shell.Fragment
	scratch := job.useScratch(&f, "hisat")
	cmd := hisatCommand{
		Cmd:        h.cfg.Executable,
		Threads:    h.cfg.Threads,
		Strandness: h.libraryType,
		Options:    h.cfg.Options,
		Index:      h.cfg.Index,
		Known:      h.known,
		Novel:      novelJunctions(job.Artifact),
		Output:     samOutput(job, scratch),
	}
	if rs.Arity() == 1 {
		cmd.Unpaired = groupInputs(rs, 0)
	} else {
		cmd.Mate1 = groupInputs(rs, 0)
		cmd.Mate2 = groupInputs(rs, 1)
	}
	if err := f.Run(cmd, "2>>", shell.Quote(job.Artifact+".log")); err != nil {
		return "", err
	}
	return f.String(), nil
}
