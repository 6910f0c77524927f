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

// Package plan assembles the command fragments of an alignment strategy
// into an execution plan.
//
// A plan is text for an external job engine: the non-empty fragments of
// the preprocess, align, postprocess and cleanup phases, in that order,
// separated by checkpoint barriers. The engine must not run a phase when
// the previous one failed. Building a plan never touches the file system
// or starts a process, so a failed build has no side effects.
package plan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/exascience/elmap/shell"
	"github.com/exascience/elmap/workspace"
)

// ErrMalformedFragment is returned when a strategy produces a fragment
// that does not end in the statement terminator, or whose quoting is
// unbalanced.
var ErrMalformedFragment = errors.New("malformed fragment")

// Phase identifies one of the four phases of a plan.
type Phase int

// The phases, in execution order.
const (
	Preprocess Phase = iota
	Align
	Postprocess
	Cleanup
)

func (p Phase) String() string {
	switch p {
	case Preprocess:
		return "preprocess"
	case Align:
		return "align"
	case Postprocess:
		return "postprocess"
	case Cleanup:
		return "cleanup"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Step is a non-empty fragment of one phase.
type Step struct {
	Phase    Phase
	Fragment string
}

// Plan is the immutable result of a build.
type Plan struct {
	steps     []Step
	outputs   []string
	notes     []string
	workspace *workspace.Workspace
}

// Steps returns the non-empty phases in execution order. The last one
// is always the cleanup phase.
func (p *Plan) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

// Outputs returns the primary artifact followed by the auxiliary files
// the plan produces.
func (p *Plan) Outputs() []string {
	return append([]string(nil), p.outputs...)
}

// Notes returns what was assumed about the inputs while building.
func (p *Plan) Notes() []string {
	return append([]string(nil), p.notes...)
}

// Workspace returns the private temporary directory of the plan.
func (p *Plan) Workspace() *workspace.Workspace {
	return p.workspace
}

// Text joins the steps with checkpoint barriers.
func (p *Plan) Text() string {
	fragments := make([]string, len(p.steps))
	for i, s := range p.steps {
		fragments[i] = s.Fragment
	}
	return strings.Join(fragments, " "+shell.Checkpoint+" ")
}

// scriptPrelude defines the checkpoint barrier for bash. A pipeline
// fails when any of its commands fails.
const scriptPrelude = `#!/usr/bin/env bash
set -o pipefail
checkpoint() { if [ $? -ne 0 ]; then exit 1; fi; }
`

// Script renders the plan as a bash script that can run without a job
// engine. Each statement goes on its own line.
func (p *Plan) Script() string {
	var b strings.Builder
	b.WriteString(scriptPrelude)
	for i, s := range p.steps {
		if i > 0 {
			b.WriteString(shell.Checkpoint)
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "# %v\n%v\n", s.Phase, s.Fragment)
	}
	return b.String()
}
