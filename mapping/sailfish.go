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
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/exascience/elmap/reads"
	"github.com/exascience/elmap/shell"
)

type sailfishQuant struct {
	Cmd      string   `buildarg:"{{if .}}{{.}}{{else}}sailfish{{end}}{{split}}quant"`
	Index    string   `buildarg:"{{if .}}-i{{split}}{{.}}{{end}}"`
	Library  string   `buildarg:"{{if .}}-l{{split}}{{.}}{{end}}"`
	Unpaired string   `buildarg:"{{if .}}-r{{split}}{{.}}{{end}}"`
	Mate1    string   `buildarg:"{{if .}}-1{{split}}{{.}}{{end}}"`
	Mate2    string   `buildarg:"{{if .}}-2{{split}}{{.}}{{end}}"`
	Output   string   `buildarg:"{{if .}}-o{{split}}{{.}}{{end}}"`
	Force    bool     `buildarg:"{{if .}}-f{{end}}"`
	Threads  int      `buildarg:"{{if .}}--threads{{split}}{{.}}{{end}}"`
	Options  []string `buildarg:"{{range $i, $o := .}}{{if $i}}{{split}}{{end}}{{$o}}{{end}}"`
}

func (s sailfishQuant) BuildCommand() (*exec.Cmd, error) {
	return shell.Command(s, s.Index, s.Library, s.Output, s.Unpaired+s.Mate1)
}

var (
	singleStrands = map[string]string{"sense": "S", "antisense": "A", "unknown": "U"}
	pairedStrands = map[string]string{"sense": "SA", "antisense": "AS", "unknown": "U"}
	orientations  = map[string]string{"towards": "><", "away": "<>", "same": ">>"}
)

// sailfish quantifies transcript abundance without producing
// alignments. Its artifact is the abundance table.
type sailfish struct {
	cfg            Config
	single, paired string
}

// NewSailfish returns the strategy for Sailfish, which quantifies
// single-end and paired-end reads. sailfish_strand is one of sense,
// antisense or unknown; sailfish_orient one of towards, away or same.
func NewSailfish(cfg Config) (*Mapper, error) {
	strand := cfg.Param("strand", "unknown")
	orient := cfg.Param("orient", "towards")
	if _, ok := singleStrands[strand]; !ok {
		return nil, fmt.Errorf("%w: unknown %v_strand %q", ErrConfig, cfg.Name, strand)
	}
	if _, ok := orientations[orient]; !ok {
		return nil, fmt.Errorf("%w: unknown %v_orient %q", ErrConfig, cfg.Name, orient)
	}
	s := &sailfish{
		cfg:    cfg,
		single: "T=SE:S=" + singleStrands[strand],
		paired: "T=PE:O=" + orientations[orient] + ":S=" + pairedStrands[strand],
	}
	return &Mapper{
		name:        cfg.Name,
		config:      cfg,
		extension:   ".sf",
		align:       map[int]AlignFunc{1: s.align, 2: s.align},
		postprocess: s.postprocess,
	}, nil
}

func (s *sailfish) align(job *Job, rs *reads.ReadSet) (string, error) {
	var f shell.Fragment
	scratch := job.useScratch(&f, "sailfish")
	cmd := sailfishQuant{
		Cmd:     s.cfg.Executable,
		Index:   s.cfg.Index,
		Output:  scratch,
		Force:   true,
		Threads: s.cfg.Threads,
		Options: s.cfg.Options,
	}
	if rs.Arity() == 1 {
		cmd.Library = s.single
		cmd.Unpaired = shell.Unzip(rs.Column(0)...)
	} else {
		cmd.Library = s.paired
		cmd.Mate1 = shell.Unzip(rs.Column(0)...)
		cmd.Mate2 = shell.Unzip(rs.Column(1)...)
	}
	if err := f.Run(cmd, "2>>", shell.Quote(job.Artifact+".log")); err != nil {
		return "", err
	}
	return f.String(), nil
}

// postprocess turns the commented column header of the quantification
// table into a plain one, and moves the table to the artifact.
func (s *sailfish) postprocess(job *Job) (string, error) {
	scratch, err := job.Scratch()
	if err != nil {
		return "", err
	}
	quant := shell.Quote(filepath.Join(scratch, "quant.sf"))
	var f shell.Fragment
	f.Addf("sed -i 's/^# Transcript/Transcript/' %v", quant)
	f.Addf("mv %v %v", quant, shell.Quote(job.Artifact))
	return f.String(), nil
}
