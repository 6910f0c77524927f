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

package plan

import (
	"fmt"

	"github.com/exascience/pargo/parallel"

	"github.com/exascience/elmap/mapping"
	"github.com/exascience/elmap/reads"
	"github.com/exascience/elmap/shell"
	"github.com/exascience/elmap/workspace"
)

// Assembler builds plans. Its fields are only read, so one assembler
// may build plans concurrently.
type Assembler struct {
	Workspaces *workspace.Manager

	// Lookup and Inspector are passed to the strategy. Nil means the
	// file system.
	Lookup    reads.Lookup
	Inspector reads.Inspector
}

// NewAssembler returns an assembler that allocates workspaces below tmpdir.
func NewAssembler(tmpdir string) *Assembler {
	return &Assembler{Workspaces: workspace.NewManager(tmpdir)}
}

// Build runs the phases of s over inputs in order, and returns the plan
// that produces artifact.
func (a *Assembler) Build(s mapping.Strategy, inputs []string, artifact string) (*Plan, error) {
	if len(inputs) == 0 {
		return nil, reads.ErrEmptyInput
	}
	ws := a.Workspaces.Allocate(reads.Track(artifact))
	job := mapping.NewJob(inputs, artifact, ws)
	job.Lookup = a.Lookup
	job.Inspector = a.Inspector

	plan := &Plan{workspace: ws}
	add := func(phase Phase, fragment string) error {
		if fragment == "" {
			return nil
		}
		if err := shell.Validate(fragment); err != nil {
			return fmt.Errorf("%w: %v %v phase: %v", ErrMalformedFragment, s.Name(), phase, err)
		}
		plan.steps = append(plan.steps, Step{Phase: phase, Fragment: fragment})
		return nil
	}

	fragment, rs, err := s.Preprocess(job)
	if err != nil {
		return nil, err
	}
	if err := add(Preprocess, fragment); err != nil {
		return nil, err
	}
	if rs != nil {
		plan.notes = rs.Notes()
	}
	if fragment, err = s.Align(job, rs); err != nil {
		return nil, err
	}
	if err := add(Align, fragment); err != nil {
		return nil, err
	}
	if fragment, err = s.Postprocess(job); err != nil {
		return nil, err
	}
	if err := add(Postprocess, fragment); err != nil {
		return nil, err
	}
	if fragment, err = s.Cleanup(job); err != nil {
		return nil, err
	}
	if fragment == "" {
		return nil, fmt.Errorf("%w: %v cleanup phase is empty", ErrMalformedFragment, s.Name())
	}
	if err := add(Cleanup, fragment); err != nil {
		return nil, err
	}

	plan.outputs = s.Outputs(artifact)
	return plan, nil
}

// Sample is the input of one plan in a batch.
type Sample struct {
	Inputs   []string
	Artifact string
}

// BuildAll builds the plans of independent samples in parallel. The
// plans are returned in sample order. If any build fails, the first
// error in sample order is returned.
func (a *Assembler) BuildAll(s mapping.Strategy, samples []Sample) ([]*Plan, error) {
	if len(samples) == 0 {
		return nil, reads.ErrEmptyInput
	}
	plans := make([]*Plan, len(samples))
	errs := make([]error, len(samples))
	parallel.Range(0, len(samples), 0, func(low, high int) {
		for i := low; i < high; i++ {
			plans[i], errs[i] = a.Build(s, samples[i].Inputs, samples[i].Artifact)
		}
	})
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("%v: %w", samples[i].Artifact, err)
		}
	}
	return plans, nil
}
