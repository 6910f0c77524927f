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
	"path/filepath"
	"sort"
	"strings"

	"github.com/exascience/elmap/reads"
	"github.com/exascience/elmap/shell"
	"github.com/exascience/elmap/workspace"
)

// Strategy builds the command fragments that map the reads of one job.
//
// Each phase returns a fragment of terminated statements, or the empty
// string. State recorded by one phase, such as the directory the
// aligner writes into, is kept in the Job and is only visible to later
// phases of the same job.
type Strategy interface {
	Name() string

	// Arities returns the numbers of files per group the strategy maps.
	Arities() []int

	// Extension is the file extension of the primary artifact.
	Extension() string

	Preprocess(job *Job) (string, *reads.ReadSet, error)
	Align(job *Job, rs *reads.ReadSet) (string, error)
	Postprocess(job *Job) (string, error)
	Cleanup(job *Job) (string, error)

	// Outputs returns the primary artifact, followed by the auxiliary
	// files the strategy produces next to it.
	Outputs(artifact string) []string
}

// Job is the state of building the plan of one sample.
type Job struct {
	Inputs    []string
	Artifact  string
	Workspace *workspace.Workspace

	// Lookup and Inspector are used by the normalizer. Nil means the
	// file system.
	Lookup    reads.Lookup
	Inspector reads.Inspector

	scratch    string
	readLength int
}

// NewJob returns a job for mapping inputs into artifact, using ws for
// intermediate files.
func NewJob(inputs []string, artifact string, ws *workspace.Workspace) *Job {
	return &Job{
		Inputs:    append([]string(nil), inputs...),
		Artifact:  artifact,
		Workspace: ws,
	}
}

// Track returns the artifact name without directory and extension.
func (job *Job) Track() string {
	base := filepath.Base(job.Artifact)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// useScratch reserves a directory in the workspace for the aligner,
// adds the statement that creates it to f, and returns it.
func (job *Job) useScratch(f *shell.Fragment, name string) string {
	job.scratch = job.Workspace.Path(name)
	f.Add("mkdir -p " + shell.Quote(job.scratch))
	return job.scratch
}

// Scratch returns the directory the align phase writes into.
func (job *Job) Scratch() (string, error) {
	if job.scratch == "" {
		return "", fmt.Errorf("%w for %v", ErrNotAligned, job.Artifact)
	}
	return job.scratch, nil
}

func (job *Job) inspector() reads.Inspector {
	if job.Inspector == nil {
		return reads.FileInspector{}
	}
	return job.Inspector
}

// An AlignFunc builds the align fragment for read sets of one arity.
type AlignFunc func(job *Job, rs *reads.ReadSet) (string, error)

// A PhaseFunc builds a fragment that only depends on the job.
type PhaseFunc func(job *Job) (string, error)

// Mapper is the Strategy shared by all aligners. Variants differ in
// their align functions, their postprocess step and their declared
// outputs.
type Mapper struct {
	name      string
	config    Config
	extension string

	// preserveColourspace is set for aligners that read colour-space
	// files directly.
	preserveColourspace bool

	align       map[int]AlignFunc
	prepare     func(job *Job, rs *reads.ReadSet) error
	postprocess PhaseFunc
	auxiliary   func(artifact string) []string
}

// Name implements Strategy.
func (m *Mapper) Name() string {
	return m.name
}

// Config returns the configuration the mapper was created with.
func (m *Mapper) Config() Config {
	return m.config
}

// Arities implements Strategy.
func (m *Mapper) Arities() []int {
	arities := make([]int, 0, len(m.align))
	for arity := range m.align {
		arities = append(arities, arity)
	}
	sort.Ints(arities)
	return arities
}

// Extension implements Strategy.
func (m *Mapper) Extension() string {
	if m.extension == "" {
		return ".bam"
	}
	return m.extension
}

// Preprocess normalizes the inputs of the job and emits the statements
// that create the workspace and convert the inputs into it.
func (m *Mapper) Preprocess(job *Job) (string, *reads.ReadSet, error) {
	normalizer := reads.NewNormalizer(reads.Options{
		PreserveColourspace: m.preserveColourspace,
		ConvertQuality:      m.config.ConvertQuality,
		Tools:               m.config.Tools,
		Lookup:              job.Lookup,
		Inspector:           job.Inspector,
	})
	rs, err := normalizer.Normalize(job.Inputs, job.Workspace)
	if err != nil {
		return "", nil, err
	}
	if m.prepare != nil {
		if err := m.prepare(job, rs); err != nil {
			return "", nil, err
		}
	}
	var f shell.Fragment
	f.Add(job.Workspace.Create())
	f.Append(rs.Statements()...)
	return f.String(), rs, nil
}

// Align dispatches on the arity of rs.
func (m *Mapper) Align(job *Job, rs *reads.ReadSet) (string, error) {
	if rs == nil {
		return "", fmt.Errorf("%w: no reads for %v", reads.ErrEmptyInput, m.name)
	}
	align, ok := m.align[rs.Arity()]
	if !ok {
		return "", fmt.Errorf("%w: %v maps groups of %v files, got %v", ErrUnsupportedArity, m.name, m.Arities(), rs.Arity())
	}
	return align(job, rs)
}

// Postprocess implements Strategy.
func (m *Mapper) Postprocess(job *Job) (string, error) {
	if m.postprocess == nil {
		return "", nil
	}
	return m.postprocess(job)
}

// Cleanup removes the workspace of the job.
func (m *Mapper) Cleanup(job *Job) (string, error) {
	return job.Workspace.Remove(), nil
}

// Outputs implements Strategy.
func (m *Mapper) Outputs(artifact string) []string {
	outputs := []string{artifact}
	if m.auxiliary != nil {
		outputs = append(outputs, m.auxiliary(artifact)...)
	}
	return outputs
}

// groupInputs returns the i-th file of every group, joined by commas.
func groupInputs(rs *reads.ReadSet, i int) string {
	return strings.Join(rs.Column(i), ",")
}

// streamInputs returns the i-th file of every group as a single
// stream. A single file is passed by name.
func streamInputs(rs *reads.ReadSet, i int) string {
	column := rs.Column(i)
	if len(column) == 1 {
		return column[0]
	}
	return shell.Unzip(column...)
}
