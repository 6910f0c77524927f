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
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/exascience/elmap/mapping"
	"github.com/exascience/elmap/reads"
	"github.com/exascience/elmap/shell"
	"github.com/exascience/elmap/workspace"
)

type fakeLookup map[string]bool

func (l fakeLookup) Exists(path string) bool { return l[path] }

func newTestAssembler() *Assembler {
	return &Assembler{Workspaces: workspace.NewManager("/scratch"), Lookup: fakeLookup{}}
}

func newBWA(t *testing.T) mapping.Strategy {
	t.Helper()
	s, err := mapping.New("bwa", map[string]string{"genome": "hg38", "bwa_index": "/idx/{genome}"})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestBuildPairedEnd(t *testing.T) {
	p, err := newTestAssembler().Build(newBWA(t), []string{"sample.fastq.1.gz", "sample.fastq.2.gz"}, "sample.bam")
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Outputs(); !reflect.DeepEqual(got, []string{"sample.bam", "sample.bam.bai"}) {
		t.Errorf("outputs = %v", got)
	}
	steps := p.Steps()
	var phases []Phase
	for _, s := range steps {
		phases = append(phases, s.Phase)
		if !shell.Terminated(s.Fragment) {
			t.Errorf("%v fragment not terminated: %q", s.Phase, s.Fragment)
		}
	}
	if !reflect.DeepEqual(phases, []Phase{Preprocess, Align, Postprocess, Cleanup}) {
		t.Errorf("phases = %v", phases)
	}
	last := steps[len(steps)-1].Fragment
	if want := "rm -rf " + p.Workspace().Dir + ";"; last != want {
		t.Errorf("last fragment = %q, want %q", last, want)
	}
	text := p.Text()
	if !strings.HasSuffix(text, " checkpoint; "+last) {
		t.Errorf("plan does not end with cleanup: %q", text)
	}
	if got := strings.Count(text, " checkpoint; "); got < 3 {
		t.Errorf("%d barriers in %q", got, text)
	}
	if !strings.HasPrefix(p.Workspace().Dir, "/scratch/sample-") {
		t.Errorf("workspace = %v", p.Workspace().Dir)
	}
}

func TestBuildErrors(t *testing.T) {
	a := newTestAssembler()
	s := newBWA(t)
	for _, c := range []struct {
		inputs []string
		err    error
	}{
		{nil, reads.ErrEmptyInput},
		{[]string{"sample.unknownext"}, reads.ErrUnsupportedFormat},
		{[]string{"sample.fastq.2.gz"}, reads.ErrMissingMate},
		{[]string{"a.fastq.gz", "b.fastq.1.gz", "b.fastq.2.gz"}, reads.ErrArityMismatch},
	} {
		p, err := a.Build(s, c.inputs, "sample.bam")
		if !errors.Is(err, c.err) || p != nil {
			t.Errorf("Build(%v) = %v, %v, want %v", c.inputs, p, err, c.err)
		}
	}
}

func TestBuildUnsupportedArity(t *testing.T) {
	s, err := mapping.New("hisat", map[string]string{"hisat_index": "/idx/hg38"})
	if err != nil {
		t.Fatal(err)
	}
	a := newTestAssembler()
	a.Lookup = fakeLookup{"p.csfasta.F5.gz": true, "p.qual.F3.gz": true, "p.qual.F5.gz": true}
	// hisat does not read colour-space, so the reads are converted to pairs
	if _, err := a.Build(s, []string{"p.csfasta.F3.gz"}, "p.bam"); err != nil {
		t.Error(err)
	}

	fake := &fakeStrategy{arity: 1}
	if _, err := a.Build(fake, []string{"a.fastq.1.gz", "a.fastq.2.gz"}, "a.bam"); !errors.Is(err, mapping.ErrUnsupportedArity) {
		t.Errorf("got %v, want ErrUnsupportedArity", err)
	}
}

// fakeStrategy returns fixed fragments.
type fakeStrategy struct {
	arity       int
	align, post string
	cleanup     string
}

func (f *fakeStrategy) Name() string      { return "fake" }
func (f *fakeStrategy) Arities() []int    { return []int{f.arity} }
func (f *fakeStrategy) Extension() string { return ".out" }

func (f *fakeStrategy) Preprocess(job *mapping.Job) (string, *reads.ReadSet, error) {
	n := reads.NewNormalizer(reads.Options{Lookup: job.Lookup})
	rs, err := n.Normalize(job.Inputs, job.Workspace)
	return "", rs, err
}

func (f *fakeStrategy) Align(job *mapping.Job, rs *reads.ReadSet) (string, error) {
	if rs.Arity() != f.arity {
		return "", mapping.ErrUnsupportedArity
	}
	return f.align, nil
}

func (f *fakeStrategy) Postprocess(*mapping.Job) (string, error) { return f.post, nil }
func (f *fakeStrategy) Cleanup(*mapping.Job) (string, error)     { return f.cleanup, nil }
func (f *fakeStrategy) Outputs(artifact string) []string         { return []string{artifact, artifact + ".log"} }

func TestBuildDropsEmptyFragments(t *testing.T) {
	fake := &fakeStrategy{arity: 1, align: "align a.fastq.gz;", cleanup: "rm -rf x;"}
	p, err := newTestAssembler().Build(fake, []string{"a.fastq.gz"}, "a.out")
	if err != nil {
		t.Fatal(err)
	}
	if want := "align a.fastq.gz; checkpoint; rm -rf x;"; p.Text() != want {
		t.Errorf("text = %q, want %q", p.Text(), want)
	}
	if got := p.Outputs(); !reflect.DeepEqual(got, []string{"a.out", "a.out.log"}) {
		t.Errorf("outputs = %v", got)
	}
}

func TestBuildMalformedFragment(t *testing.T) {
	for _, fake := range []*fakeStrategy{
		{arity: 1, align: "align a.fastq.gz", cleanup: "rm -rf x;"},
		{arity: 1, align: "align;", post: "echo 'unbalanced;", cleanup: "rm -rf x;"},
		{arity: 1, align: "align;"},
		{arity: 1, align: "align;", cleanup: "rm -rf x"},
	} {
		if _, err := newTestAssembler().Build(fake, []string{"a.fastq.gz"}, "a.out"); !errors.Is(err, ErrMalformedFragment) {
			t.Errorf("%+v: got %v, want ErrMalformedFragment", fake, err)
		}
	}
}

func TestScript(t *testing.T) {
	fake := &fakeStrategy{arity: 1, align: "align a.fastq.gz;", post: "sort; index;", cleanup: "rm -rf x;"}
	p, err := newTestAssembler().Build(fake, []string{"a.fastq.gz"}, "a.out")
	if err != nil {
		t.Fatal(err)
	}
	want := scriptPrelude +
		"# align\nalign a.fastq.gz;\ncheckpoint;\n" +
		"# postprocess\nsort; index;\ncheckpoint;\n" +
		"# cleanup\nrm -rf x;\n"
	if got := p.Script(); got != want {
		t.Errorf("script = %q, want %q", got, want)
	}
}

func TestScriptStopsOnFailedPipeline(t *testing.T) {
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not available")
	}
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	fake := &fakeStrategy{arity: 1, align: "false | true;", post: "touch " + shell.Quote(marker) + ";", cleanup: "true;"}
	p, err := newTestAssembler().Build(fake, []string{"a.fastq.gz"}, "a.out")
	if err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "plan.sh")
	if err := os.WriteFile(script, []byte(p.Script()), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := exec.Command(bash, script).Run(); err == nil {
		t.Error("script succeeded after a failed pipeline")
	}
	if _, err := os.Stat(marker); err == nil {
		t.Error("postprocess ran after a failed align phase")
	}
}

func TestBuildNotesSRALayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SRR9.sra")
	if err := os.WriteFile(path, []byte("NCBI.sra\x00 LIBRARY_LAYOUT PAIRED"), 0o644); err != nil {
		t.Fatal(err)
	}
	fake := &fakeStrategy{arity: 2, align: "align;", cleanup: "rm -rf x;"}
	p, err := newTestAssembler().Build(fake, []string{path}, "a.out")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{path + ": assuming paired-end layout"}; !reflect.DeepEqual(p.Notes(), want) {
		t.Errorf("notes = %q, want %q", p.Notes(), want)
	}
}

func TestBuildAll(t *testing.T) {
	a := newTestAssembler()
	s := newBWA(t)
	var samples []Sample
	for _, name := range []string{"s1", "s2", "s3", "s4", "s5"} {
		samples = append(samples, Sample{Inputs: []string{name + ".fastq.gz"}, Artifact: "out/" + name + ".bam"})
	}
	plans, err := a.BuildAll(s, samples)
	if err != nil {
		t.Fatal(err)
	}
	dirs := make(map[string]bool)
	for i, p := range plans {
		if p.Outputs()[0] != samples[i].Artifact {
			t.Errorf("plan %d produces %v", i, p.Outputs())
		}
		dirs[p.Workspace().Dir] = true
	}
	if len(dirs) != len(samples) {
		t.Errorf("workspaces shared between plans: %v", dirs)
	}

	samples[2].Inputs = []string{"s3.fastq.2.gz"}
	if _, err := a.BuildAll(s, samples); !errors.Is(err, reads.ErrMissingMate) {
		t.Errorf("got %v, want ErrMissingMate", err)
	}
	if _, err := a.BuildAll(s, nil); !errors.Is(err, reads.ErrEmptyInput) {
		t.Errorf("got %v, want ErrEmptyInput", err)
	}
}
