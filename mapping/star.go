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
	"strconv"

	"github.com/exascience/elmap/reads"
	"github.com/exascience/elmap/shell"
)

type starCommand struct {
	Cmd          string   `buildarg:"{{if .}}{{.}}{{else}}STAR{{end}}{{split}}--runMode{{split}}alignReads"`
	Threads      int      `buildarg:"{{if .}}--runThreadN{{split}}{{.}}{{end}}"`
	GenomeDir    string   `buildarg:"{{if .}}--genomeDir{{split}}{{.}}{{end}}"`
	ReadFiles    []string `buildarg:"--readFilesCommand{{split}}zcat{{split}}--readFilesIn{{range .}}{{split}}{{.}}{{end}}"`
	Prefix       string   `buildarg:"{{if .}}--outFileNamePrefix{{split}}{{.}}/{{end}}"`
	Std          bool     `buildarg:"{{if .}}--outStd{{split}}SAM{{split}}--outSAMunmapped{{split}}Within{{end}}"`
	SjdbOverhang int      `buildarg:"{{if .}}--sjdbOverhang{{split}}{{.}}{{end}}"`
	Options      []string `buildarg:"{{range $i, $o := .}}{{if $i}}{{split}}{{end}}{{$o}}{{end}}"`
}

func (s starCommand) BuildCommand() (*exec.Cmd, error) {
	if len(s.ReadFiles) == 0 {
		return nil, fmt.Errorf("%w for STAR", shell.ErrMissingArgument)
	}
	return shell.Command(s, s.GenomeDir, s.Prefix)
}

// star maps RNA reads and reports the splice junctions it finds.
type star struct {
	cfg    Config
	sorter sorter

	// overhang is the configured sjdbOverhang; auto derives it from
	// the read length.
	overhang string
}

// NewSTAR returns the strategy for STAR, which maps single-end and
// paired-end reads. Setting star_sjdb_overhang to auto sets the
// junction overhang to the read length minus one.
func NewSTAR(cfg Config) (*Mapper, error) {
	s := &star{cfg: cfg, sorter: newSorter(cfg, "NH"), overhang: cfg.Param("sjdb_overhang", "")}
	m := &Mapper{
		name:        cfg.Name,
		config:      cfg,
		align:       map[int]AlignFunc{1: s.align, 2: s.align},
		postprocess: s.postprocess,
		auxiliary: func(artifact string) []string {
			return []string{artifact + ".bai", artifact + ".junctions"}
		},
	}
	switch s.overhang {
	case "":
	case "auto":
		m.prepare = s.readLength
	default:
		if n, err := strconv.Atoi(s.overhang); err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %v_sjdb_overhang must be a positive number or auto, got %q", ErrConfig, cfg.Name, s.overhang)
		}
	}
	return m, nil
}

// readLength inspects the first read of the original inputs. Converted
// files do not exist yet when the plan is built.
func (s *star) readLength(job *Job, rs *reads.ReadSet) error {
	path := rs.Groups()[0][0]
	if job.Workspace.Contains(path) {
		return fmt.Errorf("%w: cannot derive %v_sjdb_overhang from %v, which is converted during the job", ErrConfig, s.cfg.Name, job.Inputs[0])
	}
	n, err := job.inspector().ReadLength(path)
	if err != nil {
		return err
	}
	if n < 2 {
		return fmt.Errorf("%w: read length %v of %v is too short for %v_sjdb_overhang", ErrConfig, n, path, s.cfg.Name)
	}
	job.readLength = n
	return nil
}

func (s *star) align(job *Job, rs *reads.ReadSet) (string, error) {
	var f shell.Fragment
	scratch := job.useScratch(&f, "star")
	cmd := starCommand{
		Cmd:       s.cfg.Executable,
		Threads:   s.cfg.Threads,
		GenomeDir: s.cfg.Index,
		Prefix:    scratch,
		Std:       true,
		Options:   s.cfg.Options,
	}
	for i := 0; i < rs.Arity(); i++ {
		cmd.ReadFiles = append(cmd.ReadFiles, groupInputs(rs, i))
	}
	switch s.overhang {
	case "":
	case "auto":
		if job.readLength == 0 {
			return "", fmt.Errorf("%w: read length of %v is unknown", ErrConfig, job.Artifact)
		}
		cmd.SjdbOverhang = job.readLength - 1
	default:
		cmd.SjdbOverhang, _ = strconv.Atoi(s.overhang)
	}
	if err := f.Run(cmd, ">", shell.Quote(samOutput(job, scratch)), "2>", shell.Quote(job.Artifact+".log")); err != nil {
		return "", err
	}
	return f.String(), nil
}

func (s *star) postprocess(job *Job) (string, error) {
	scratch, err := job.Scratch()
	if err != nil {
		return "", err
	}
	var f shell.Fragment
	f.Addf("cp %v %v", shell.Quote(filepath.Join(scratch, "SJ.out.tab")), shell.Quote(job.Artifact+".junctions"))
	f.Addf("cp %v %v", shell.Quote(filepath.Join(scratch, "Log.final.out")), shell.Quote(job.Artifact+".final.log"))
	if err := s.sorter.sort(&f, samOutput(job, scratch), job.Artifact); err != nil {
		return "", err
	}
	return f.String(), nil
}
