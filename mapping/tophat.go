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
	"strings"

	"github.com/exascience/elmap/reads"
	"github.com/exascience/elmap/shell"
)

type tophatCommand struct {
	Cmd           string   `buildarg:"{{.}}"`
	OutputDir     string   `buildarg:"{{if .}}--output-dir{{split}}{{.}}{{end}}"`
	MateInnerDist int      `buildarg:"{{if .}}--mate-inner-dist{{split}}{{.}}{{end}}"`
	Threads       int      `buildarg:"{{if .}}--num-threads{{split}}{{.}}{{end}}"`
	LibraryType   string   `buildarg:"{{if .}}--library-type{{split}}{{.}}{{end}}"`
	ColourSpace   bool     `buildarg:"{{if .}}--quals{{split}}--integer-quals{{split}}--color{{end}}"`
	Options       []string `buildarg:"{{range $i, $o := .}}{{if $i}}{{split}}{{end}}{{$o}}{{end}}"`
	Index         string   `buildarg:"{{.}}"`
	Reads         []string `buildarg:"{{range $i, $o := .}}{{if $i}}{{split}}{{end}}{{$o}}{{end}}"`
}

func (t tophatCommand) BuildCommand() (*exec.Cmd, error) {
	if len(t.Reads) == 0 {
		return nil, fmt.Errorf("%w for %v", shell.ErrMissingArgument, t.Cmd)
	}
	return shell.Command(t, t.Cmd, t.OutputDir, t.Index)
}

// tophat maps RNA reads across splice junctions. It reads colour-space
// files directly, against an index with a _cs suffix.
type tophat struct {
	cfg           Config
	executable    string
	libraryType   string
	mateInnerDist int
	sorter        sorter
}

// NewTophat returns the strategy for TopHat. It maps single-end,
// paired-end and colour-space reads, with or without mates.
func NewTophat(cfg Config) (*Mapper, error) {
	return newTophat(cfg, "tophat")
}

// NewTophat2 returns the strategy for TopHat2, configured by its own
// tophat2_ keys.
func NewTophat2(cfg Config) (*Mapper, error) {
	return newTophat(cfg, "tophat2")
}

func newTophat(cfg Config, executable string) (*Mapper, error) {
	t := &tophat{
		cfg:         cfg,
		executable:  cfg.executable(executable),
		libraryType: cfg.Param("library_type", "fr-unstranded"),
		sorter:      newSorter(cfg, "NH"),
	}
	var err error
	if t.mateInnerDist, err = cfg.IntParam("mate_inner_dist", 50); err != nil {
		return nil, err
	}
	return &Mapper{
		name:                cfg.Name,
		config:              cfg,
		preserveColourspace: true,
		align:               map[int]AlignFunc{1: t.align, 2: t.align, 4: t.align},
		postprocess:         t.postprocess,
		auxiliary: func(artifact string) []string {
			return []string{artifact + ".bai", junctions(artifact)}
		},
	}, nil
}

func junctions(artifact string) string {
	return strings.TrimSuffix(artifact, ".bam") + ".junctions.bed.gz"
}

// align passes every column of the read set as a comma-separated list.
// Two colour-space files are reads and qualities of single-end reads;
// everything else with two or four files is paired.
func (t *tophat) align(job *Job, rs *reads.ReadSet) (string, error) {
	var f shell.Fragment
	scratch := job.useScratch(&f, "tophat")
	colour := rs.Encoding() == reads.EncodingColourSpace
	cmd := tophatCommand{
		Cmd:         t.executable,
		OutputDir:   scratch,
		Threads:     t.cfg.Threads,
		LibraryType: t.libraryType,
		ColourSpace: colour,
		Options:     t.cfg.Options,
		Index:       t.cfg.Index,
	}
	if colour {
		cmd.Index += "_cs"
	}
	if rs.Arity() == 4 || (rs.Arity() == 2 && !colour) {
		cmd.MateInnerDist = t.mateInnerDist
	}
	for i := 0; i < rs.Arity(); i++ {
		cmd.Reads = append(cmd.Reads, groupInputs(rs, i))
	}
	if err := f.Run(cmd, ">>", shell.Quote(job.Artifact+".log"), "2>&1"); err != nil {
		return "", err
	}
	return f.String(), nil
}

func (t *tophat) postprocess(job *Job) (string, error) {
	scratch, err := job.Scratch()
	if err != nil {
		return "", err
	}
	var f shell.Fragment
	f.Addf("gzip < %v > %v", shell.Quote(filepath.Join(scratch, "junctions.bed")), shell.Quote(junctions(job.Artifact)))
	f.Addf("mv %v %v", shell.Quote(filepath.Join(scratch, "logs")), shell.Quote(job.Artifact+".logs"))
	hits := filepath.Join(scratch, "accepted_hits.bam")
	if t.sorter.filtered() {
		err = t.sorter.sort(&f, hits, job.Artifact)
	} else {
		f.Addf("mv %v %v", shell.Quote(hits), shell.Quote(job.Artifact))
		err = t.sorter.index(&f, job.Artifact)
	}
	if err != nil {
		return "", err
	}
	return f.String(), nil
}
