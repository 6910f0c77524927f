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
	"strings"

	"github.com/exascience/elmap/shell"
)

type samtoolsView struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}samtools{{end}}{{split}}view"`
	Header bool   `buildarg:"{{if .}}-h{{end}}"`
	Input  string `buildarg:"{{.}}"`
}

func (s samtoolsView) BuildCommand() (*exec.Cmd, error) {
	return shell.Command(s, s.Input)
}

type samtoolsSort struct {
	Cmd     string `buildarg:"{{if .}}{{.}}{{else}}samtools{{end}}{{split}}sort"`
	Threads int    `buildarg:"{{if .}}-@{{split}}{{.}}{{end}}"`
	Output  string `buildarg:"{{if .}}-o{{split}}{{.}}{{end}}"`
	Input   string `buildarg:"{{.}}"`
}

func (s samtoolsSort) BuildCommand() (*exec.Cmd, error) {
	return shell.Command(s, s.Output, s.Input)
}

type samtoolsIndex struct {
	Cmd   string `buildarg:"{{if .}}{{.}}{{else}}samtools{{end}}{{split}}index"`
	Input string `buildarg:"{{.}}"`
}

func (s samtoolsIndex) BuildCommand() (*exec.Cmd, error) {
	return shell.Command(s, s.Input)
}

// uniqueFilter keeps header lines and alignments whose tag says they
// have exactly one best hit.
func uniqueFilter(tag string) string {
	return fmt.Sprintf(`awk '/^@/ || /\t%v:i:1(\t|$)/'`, tag)
}

// stripFilter replaces the sequence and quality columns of every
// alignment by '*'.
const stripFilter = `awk 'BEGIN {OFS = "\t"} /^@/ {print; next} {$10 = "*"; $11 = "*"; print}'`

// sorter turns raw alignments into a sorted and indexed artifact.
type sorter struct {
	samtools string
	threads  int

	// uniqueTag is the SAM tag counting best hits. Empty disables the
	// non-unique filter.
	uniqueTag string
	strip     bool
}

func newSorter(cfg Config, uniqueTag string) sorter {
	s := sorter{samtools: cfg.Samtools, threads: cfg.Threads, strip: cfg.StripSequence}
	if cfg.RemoveNonUnique {
		s.uniqueTag = uniqueTag
	}
	return s
}

func (s sorter) filtered() bool {
	return s.uniqueTag != "" || s.strip
}

// sort appends the statements that sort input into artifact and index it.
func (s sorter) sort(f *shell.Fragment, input, artifact string) error {
	log := shell.Quote(artifact + ".log")
	cmd := samtoolsSort{Cmd: s.samtools, Threads: s.threads, Output: artifact, Input: input}
	if !s.filtered() {
		if err := f.Run(cmd, "2>>", log); err != nil {
			return err
		}
	} else {
		view, err := shell.Render(samtoolsView{Cmd: s.samtools, Header: true, Input: input})
		if err != nil {
			return err
		}
		pipeline := []string{view}
		if s.uniqueTag != "" {
			pipeline = append(pipeline, "|", uniqueFilter(s.uniqueTag))
		}
		if s.strip {
			pipeline = append(pipeline, "|", stripFilter)
		}
		cmd.Input = "-"
		line, err := shell.Render(cmd)
		if err != nil {
			return err
		}
		pipeline = append(pipeline, "|", line, "2>>", log)
		f.Add(strings.Join(pipeline, " "))
	}
	return s.index(f, artifact)
}

func (s sorter) index(f *shell.Fragment, artifact string) error {
	return f.Run(samtoolsIndex{Cmd: s.samtools, Input: artifact})
}

