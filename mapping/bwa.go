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

type bwaAln struct {
	Cmd     string   `buildarg:"{{if .}}{{.}}{{else}}bwa{{end}}{{split}}aln"`
	Options []string `buildarg:"{{range $i, $o := .}}{{if $i}}{{split}}{{end}}{{$o}}{{end}}"`
	Threads int      `buildarg:"{{if .}}-t{{split}}{{.}}{{end}}"`
	Index   string   `buildarg:"{{.}}"`
	Reads   string   `buildarg:"{{.}}"`
}

func (b bwaAln) BuildCommand() (*exec.Cmd, error) {
	return shell.Command(b, b.Index, b.Reads)
}

type bwaSamse struct {
	Cmd   string `buildarg:"{{if .}}{{.}}{{else}}bwa{{end}}{{split}}samse"`
	Index string `buildarg:"{{.}}"`
	SAI   string `buildarg:"{{.}}"`
	Reads string `buildarg:"{{.}}"`
}

func (b bwaSamse) BuildCommand() (*exec.Cmd, error) {
	return shell.Command(b, b.Index, b.SAI, b.Reads)
}

type bwaSampe struct {
	Cmd     string   `buildarg:"{{if .}}{{.}}{{else}}bwa{{end}}{{split}}sampe"`
	Options []string `buildarg:"{{range $i, $o := .}}{{if $i}}{{split}}{{end}}{{$o}}{{end}}"`
	Index   string   `buildarg:"{{.}}"`
	SAI1    string   `buildarg:"{{.}}"`
	SAI2    string   `buildarg:"{{.}}"`
	Reads1  string   `buildarg:"{{.}}"`
	Reads2  string   `buildarg:"{{.}}"`
}

func (b bwaSampe) BuildCommand() (*exec.Cmd, error) {
	return shell.Command(b, b.Index, b.SAI1, b.SAI2, b.Reads1, b.Reads2)
}

type bwaMem struct {
	Cmd     string   `buildarg:"{{if .}}{{.}}{{else}}bwa{{end}}{{split}}mem"`
	Options []string `buildarg:"{{range $i, $o := .}}{{if $i}}{{split}}{{end}}{{$o}}{{end}}"`
	Threads int      `buildarg:"{{if .}}-t{{split}}{{.}}{{end}}"`
	Index   string   `buildarg:"{{.}}"`
	Reads1  string   `buildarg:"{{.}}"`
	Reads2  string   `buildarg:"{{if .}}{{.}}{{end}}"`
}

func (b bwaMem) BuildCommand() (*exec.Cmd, error) {
	return shell.Command(b, b.Index, b.Reads1)
}

// bwa maps short reads with the aln algorithm: every mate is aligned on
// its own, and the results are merged with samse or sampe.
type bwa struct {
	cfg          Config
	sampeOptions []string
}

// NewBWA returns the strategy for bwa aln, which maps single-end and
// paired-end reads.
func NewBWA(cfg Config) (*Mapper, error) {
	sampeOptions, err := shell.SplitOptions(cfg.Param("sampe_options", ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %v_sampe_options: %v", ErrConfig, cfg.Name, err)
	}
	b := &bwa{cfg: cfg, sampeOptions: sampeOptions}
	return bwaMapper(cfg, map[int]AlignFunc{1: b.single, 2: b.paired}), nil
}

// NewBWAMEM returns the strategy for bwa mem. It shares postprocessing
// with bwa aln.
func NewBWAMEM(cfg Config) (*Mapper, error) {
	b := &bwa{cfg: cfg}
	return bwaMapper(cfg, map[int]AlignFunc{1: b.mem, 2: b.mem}), nil
}

func bwaMapper(cfg Config, align map[int]AlignFunc) *Mapper {
	return &Mapper{
		name:        cfg.Name,
		config:      cfg,
		align:       align,
		postprocess: sortSAM(newSorter(cfg, "X0")),
		auxiliary:   indexSidecar,
	}
}

func indexSidecar(artifact string) []string {
	return []string{artifact + ".bai"}
}

// samOutput is the raw alignment file of the job in its scratch directory.
func samOutput(job *Job, scratch string) string {
	return filepath.Join(scratch, job.Track()+".sam")
}

// sortSAM sorts and indexes the raw alignments left by the align phase.
func sortSAM(s sorter) PhaseFunc {
	return func(job *Job) (string, error) {
		scratch, err := job.Scratch()
		if err != nil {
			return "", err
		}
		var f shell.Fragment
		if err := s.sort(&f, samOutput(job, scratch), job.Artifact); err != nil {
			return "", err
		}
		return f.String(), nil
	}
}

// redirect sends the output of a bwa command to out and its messages
// to the log of the artifact.
func (b *bwa) redirect(job *Job, out string) []string {
	return []string{">", shell.Quote(out), "2>>", shell.Quote(job.Artifact + ".bwa.log")}
}

func (b *bwa) single(job *Job, rs *reads.ReadSet) (string, error) {
	var f shell.Fragment
	scratch := job.useScratch(&f, "bwa")
	sai := filepath.Join(scratch, job.Track()+".sai")
	in := streamInputs(rs, 0)
	aln := bwaAln{Cmd: b.cfg.Executable, Options: b.cfg.Options, Threads: b.cfg.Threads, Index: b.cfg.Index, Reads: in}
	if err := f.Run(aln, b.redirect(job, sai)...); err != nil {
		return "", err
	}
	f.Checkpoint()
	samse := bwaSamse{Cmd: b.cfg.Executable, Index: b.cfg.Index, SAI: sai, Reads: in}
	if err := f.Run(samse, b.redirect(job, samOutput(job, scratch))...); err != nil {
		return "", err
	}
	return f.String(), nil
}

func (b *bwa) paired(job *Job, rs *reads.ReadSet) (string, error) {
	var f shell.Fragment
	scratch := job.useScratch(&f, "bwa")
	var sais, ins [2]string
	for i := range sais {
		sais[i] = filepath.Join(scratch, job.Track()+"."+strconv.Itoa(i+1)+".sai")
		ins[i] = streamInputs(rs, i)
		aln := bwaAln{Cmd: b.cfg.Executable, Options: b.cfg.Options, Threads: b.cfg.Threads, Index: b.cfg.Index, Reads: ins[i]}
		if err := f.Run(aln, b.redirect(job, sais[i])...); err != nil {
			return "", err
		}
		f.Checkpoint()
	}
	sampe := bwaSampe{
		Cmd:     b.cfg.Executable,
		Options: b.sampeOptions,
		Index:   b.cfg.Index,
		SAI1:    sais[0],
		SAI2:    sais[1],
		Reads1:  ins[0],
		Reads2:  ins[1],
	}
	if err := f.Run(sampe, b.redirect(job, samOutput(job, scratch))...); err != nil {
		return "", err
	}
	return f.String(), nil
}

func (b *bwa) mem(job *Job, rs *reads.ReadSet) (string, error) {
	var f shell.Fragment
	scratch := job.useScratch(&f, "bwa")
	mem := bwaMem{Cmd: b.cfg.Executable, Options: b.cfg.Options, Threads: b.cfg.Threads, Index: b.cfg.Index, Reads1: streamInputs(rs, 0)}
	if rs.Arity() == 2 {
		mem.Reads2 = streamInputs(rs, 1)
	}
	if err := f.Run(mem, b.redirect(job, samOutput(job, scratch))...); err != nil {
		return "", err
	}
	return f.String(), nil
}
