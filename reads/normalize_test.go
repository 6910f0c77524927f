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

package reads

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/exascience/elmap/workspace"
)

type fakeLookup map[string]bool

func (l fakeLookup) Exists(path string) bool { return l[path] }

type fakeInspector struct {
	qualities map[string]Quality
	paired    map[string]bool
}

func (i fakeInspector) Quality(path string) (Quality, error) {
	if q, ok := i.qualities[path]; ok {
		return q, nil
	}
	return Sanger, nil
}

func (i fakeInspector) PeekSRA(path string) (Layout, error) {
	if i.paired[path] {
		return PairedEnd, nil
	}
	return SingleEnd, nil
}

func (i fakeInspector) ReadLength(path string) (int, error) {
	return 100, nil
}

func newTestNormalizer(opts Options, files ...string) *Normalizer {
	lookup := make(fakeLookup)
	for _, f := range files {
		lookup[f] = true
	}
	opts.Lookup = lookup
	if opts.Inspector == nil {
		opts.Inspector = fakeInspector{}
	}
	return NewNormalizer(opts)
}

var testWorkspace = &workspace.Workspace{Dir: "/scratch/job"}

func TestNormalizePaired(t *testing.T) {
	n := newTestNormalizer(Options{})
	for _, paths := range [][]string{
		{"sample.fastq.1.gz", "sample.fastq.2.gz"},
		{"sample.fastq.2.gz", "sample.fastq.1.gz"},
	} {
		rs, err := n.Normalize(paths, testWorkspace)
		if err != nil {
			t.Fatal(err)
		}
		want := []FileGroup{{"sample.fastq.1.gz", "sample.fastq.2.gz"}}
		if !reflect.DeepEqual(rs.Groups(), want) {
			t.Errorf("groups = %v, want %v", rs.Groups(), want)
		}
		if rs.Arity() != 2 || rs.Encoding() != EncodingFastq || len(rs.Statements()) != 0 {
			t.Errorf("unexpected read set %+v", rs)
		}
	}
}

func TestNormalizeMateFoundOnDisk(t *testing.T) {
	n := newTestNormalizer(Options{}, "/data/s.fastq.1.gz")
	rs, err := n.Normalize([]string{"/data/s.fastq.2.gz"}, testWorkspace)
	if err != nil {
		t.Fatal(err)
	}
	if got := rs.Groups()[0]; !reflect.DeepEqual(got, FileGroup{"/data/s.fastq.1.gz", "/data/s.fastq.2.gz"}) {
		t.Errorf("group = %v", got)
	}
}

func TestNormalizeMissingMate(t *testing.T) {
	n := newTestNormalizer(Options{})
	for _, paths := range [][]string{
		{"sample.fastq.2.gz"},
		{"sample.fastq.1.gz"},
		{"sample.csfasta.gz"},
		{"sample.qual.gz"},
		{"sample.csfasta.F3.gz", "sample.csfasta.F5.gz"},
	} {
		if _, err := n.Normalize(paths, testWorkspace); !errors.Is(err, ErrMissingMate) {
			t.Errorf("Normalize(%v) = %v, want ErrMissingMate", paths, err)
		}
	}
}

func TestNormalizeArityMismatch(t *testing.T) {
	n := newTestNormalizer(Options{})
	_, err := n.Normalize([]string{"a.fastq.gz", "b.fastq.1.gz", "b.fastq.2.gz"}, testWorkspace)
	if !errors.Is(err, ErrArityMismatch) {
		t.Errorf("mixed arities gave %v, want ErrArityMismatch", err)
	}
}

func TestNormalizeEncodingMismatch(t *testing.T) {
	n := newTestNormalizer(Options{PreserveColourspace: true}, "c.qual.gz")
	_, err := n.Normalize([]string{"c.csfasta.gz", "b.fastq.1.gz", "b.fastq.2.gz"}, testWorkspace)
	if !errors.Is(err, ErrEncodingMismatch) {
		t.Errorf("mixed encodings gave %v, want ErrEncodingMismatch", err)
	}
}

func TestNormalizeEmptyAndUnsupported(t *testing.T) {
	n := newTestNormalizer(Options{})
	if _, err := n.Normalize(nil, testWorkspace); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("no inputs gave %v", err)
	}
	if _, err := n.Normalize([]string{"a.fastq.gz", "sample.unknownext"}, testWorkspace); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("unknown suffix gave %v", err)
	}
}

func TestNormalizeSingleEndGroups(t *testing.T) {
	n := newTestNormalizer(Options{})
	rs, err := n.Normalize([]string{"a.fastq.gz", "b.fastq.gz", "a.fastq.gz"}, testWorkspace)
	if err != nil {
		t.Fatal(err)
	}
	if rs.Len() != 2 || rs.Arity() != 1 {
		t.Errorf("groups = %v", rs.Groups())
	}
	if got := rs.Column(0); !reflect.DeepEqual(got, []string{"a.fastq.gz", "b.fastq.gz"}) {
		t.Errorf("column = %v", got)
	}
}

func TestNormalizeColourSpace(t *testing.T) {
	converted, err := newTestNormalizer(Options{}, "c.qual.gz").Normalize([]string{"c.csfasta.gz"}, testWorkspace)
	if err != nil {
		t.Fatal(err)
	}
	if got := converted.Groups(); !reflect.DeepEqual(got, []FileGroup{{"/scratch/job/c.fastq.gz"}}) {
		t.Errorf("converted groups = %v", got)
	}
	stmts := strings.Join(converted.Statements(), " ")
	for _, want := range []string{"solid2fastq", "<(zcat c.csfasta.gz)", "<(zcat c.qual.gz)", "> /scratch/job/c.fastq.gz;"} {
		if !strings.Contains(stmts, want) {
			t.Errorf("statements %q lack %q", stmts, want)
		}
	}

	preserved, err := newTestNormalizer(Options{PreserveColourspace: true}).Normalize([]string{"c.qual.gz", "c.csfasta.gz"}, testWorkspace)
	if err != nil {
		t.Fatal(err)
	}
	if got := preserved.Groups(); !reflect.DeepEqual(got, []FileGroup{{"c.csfasta.gz", "c.qual.gz"}}) {
		t.Errorf("preserved groups = %v", got)
	}
	if preserved.Encoding() != EncodingColourSpace || len(preserved.Statements()) != 0 {
		t.Errorf("preserved read set converted: %v", preserved.Statements())
	}
}

func TestNormalizeColourSpacePaired(t *testing.T) {
	files := []string{"p.csfasta.F5.gz", "p.qual.F3.gz", "p.qual.F5.gz"}
	rs, err := newTestNormalizer(Options{PreserveColourspace: true}, files...).Normalize([]string{"p.csfasta.F3.gz"}, testWorkspace)
	if err != nil {
		t.Fatal(err)
	}
	want := FileGroup{"p.csfasta.F3.gz", "p.csfasta.F5.gz", "p.qual.F3.gz", "p.qual.F5.gz"}
	if rs.Arity() != 4 || !reflect.DeepEqual(rs.Groups()[0], want) {
		t.Errorf("groups = %v", rs.Groups())
	}

	rs, err = newTestNormalizer(Options{}, files...).Normalize([]string{"p.csfasta.F3.gz"}, testWorkspace)
	if err != nil {
		t.Fatal(err)
	}
	want = FileGroup{"/scratch/job/p.1.fastq.gz", "/scratch/job/p.2.fastq.gz"}
	if rs.Arity() != 2 || !reflect.DeepEqual(rs.Groups()[0], want) {
		t.Errorf("converted groups = %v", rs.Groups())
	}
}

func TestNormalizeQualityConversion(t *testing.T) {
	inspector := fakeInspector{qualities: map[string]Quality{"old.fastq.1.gz": Phred64, "older.fastq.gz": Solexa}}
	n := newTestNormalizer(Options{ConvertQuality: true, Inspector: inspector})

	rs, err := n.Normalize([]string{"old.fastq.1.gz", "old.fastq.2.gz"}, testWorkspace)
	if err != nil {
		t.Fatal(err)
	}
	want := FileGroup{"/scratch/job/old.1.fastq.gz", "/scratch/job/old.2.fastq.gz"}
	if !reflect.DeepEqual(rs.Groups()[0], want) {
		t.Errorf("groups = %v, want %v", rs.Groups(), want)
	}
	stmts := strings.Join(rs.Statements(), " ")
	if strings.Count(stmts, "seqtk seq -Q64 -V") != 2 {
		t.Errorf("expected two conversions in %q", stmts)
	}
	if len(rs.Notes()) == 0 {
		t.Error("quality guess not noted")
	}

	rs, err = n.Normalize([]string{"new.fastq.gz"}, testWorkspace)
	if err != nil {
		t.Fatal(err)
	}
	if rs.Groups()[0][0] != "new.fastq.gz" || len(rs.Statements()) != 0 {
		t.Errorf("sanger input converted: %v", rs.Statements())
	}

	noConvert := newTestNormalizer(Options{Inspector: inspector})
	rs, err = noConvert.Normalize([]string{"older.fastq.gz"}, testWorkspace)
	if err != nil {
		t.Fatal(err)
	}
	if rs.Groups()[0][0] != "older.fastq.gz" {
		t.Error("input converted without request")
	}
}

func TestNormalizeSRA(t *testing.T) {
	inspector := fakeInspector{paired: map[string]bool{"/data/SRR2.sra": true}}
	n := newTestNormalizer(Options{Inspector: inspector})
	rs, err := n.Normalize([]string{"/data/SRR2.sra"}, testWorkspace)
	if err != nil {
		t.Fatal(err)
	}
	want := FileGroup{"/scratch/job/sra-SRR2/SRR2_1.fastq.gz", "/scratch/job/sra-SRR2/SRR2_2.fastq.gz"}
	if !reflect.DeepEqual(rs.Groups()[0], want) {
		t.Errorf("groups = %v, want %v", rs.Groups(), want)
	}
	stmts := strings.Join(rs.Statements(), " ")
	if !strings.Contains(stmts, "mkdir -p /scratch/job/sra-SRR2; fastq-dump --split-3 --gzip --outdir /scratch/job/sra-SRR2 /data/SRR2.sra;") {
		t.Errorf("unexpected extraction %q", stmts)
	}
	if notes := rs.Notes(); len(notes) != 1 || notes[0] != "/data/SRR2.sra: assuming paired-end layout" {
		t.Errorf("notes = %q", notes)
	}

	rs, err = n.Normalize([]string{"/data/SRR1.sra"}, testWorkspace)
	if err != nil {
		t.Fatal(err)
	}
	if rs.Arity() != 1 || rs.Groups()[0][0] != "/scratch/job/sra-SRR1/SRR1.fastq.gz" {
		t.Errorf("groups = %v", rs.Groups())
	}
	if notes := rs.Notes(); len(notes) != 1 || notes[0] != "/data/SRR1.sra: assuming single-end layout" {
		t.Errorf("notes = %q", notes)
	}
}

func TestNormalizeSRAAndExportSameTrack(t *testing.T) {
	n := newTestNormalizer(Options{})
	rs, err := n.Normalize([]string{"in/x.sra", "in/x.export.txt.gz", "other/x.sra"}, testWorkspace)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool)
	for _, g := range rs.Groups() {
		for _, f := range g {
			if seen[f] {
				t.Errorf("%v produced twice in %v", f, rs.Groups())
			}
			seen[f] = true
		}
	}
	want := []FileGroup{{"/scratch/job/sra-x/x.fastq.gz"}, {"/scratch/job/x.fastq.gz"}, {"/scratch/job/sra-x-1/x.fastq.gz"}}
	if !reflect.DeepEqual(rs.Groups(), want) {
		t.Errorf("groups = %v, want %v", rs.Groups(), want)
	}
}

func TestNormalizeExport(t *testing.T) {
	n := newTestNormalizer(Options{})
	rs, err := n.Normalize([]string{"lane.export.txt.gz", "lane2/lane.export.txt.gz"}, testWorkspace)
	if err != nil {
		t.Fatal(err)
	}
	want := []FileGroup{{"/scratch/job/lane.fastq.gz"}, {"/scratch/job/lane-1.fastq.gz"}}
	if !reflect.DeepEqual(rs.Groups(), want) {
		t.Errorf("groups = %v, want %v", rs.Groups(), want)
	}
	stmts := strings.Join(rs.Statements(), " ")
	if !strings.HasPrefix(stmts, "gunzip < lane.export.txt.gz | awk") || !strings.HasSuffix(stmts, ";") {
		t.Errorf("unexpected conversion %q", stmts)
	}
	if !strings.Contains(stmts, `$11 != "QC" || $10 ~ /[0-9]+:[0-9]+:[0-9]+/`) {
		t.Errorf("conversion drops every QC-flagged read: %q", stmts)
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	m := workspace.NewManager("/scratch")
	n := newTestNormalizer(Options{}, "c.qual.gz")
	paths := []string{"c.csfasta.gz"}
	var structures [][]FileGroup
	for i := 0; i < 2; i++ {
		ws := m.Allocate("c")
		rs, err := n.Normalize(paths, ws)
		if err != nil {
			t.Fatal(err)
		}
		groups := rs.Groups()
		for _, g := range groups {
			for j, f := range g {
				g[j] = strings.TrimPrefix(f, ws.Dir)
			}
		}
		structures = append(structures, groups)
	}
	if !reflect.DeepEqual(structures[0], structures[1]) {
		t.Errorf("normalize not repeatable: %v vs %v", structures[0], structures[1])
	}
}

func TestNewReadSet(t *testing.T) {
	if _, err := NewReadSet([]FileGroup{{"a", "b", "c"}}, EncodingFastq); !errors.Is(err, ErrArityMismatch) {
		t.Errorf("arity 3 accepted: %v", err)
	}
	if _, err := NewReadSet(nil, EncodingFastq); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("empty read set accepted: %v", err)
	}
	groups := []FileGroup{{"a", "b"}}
	rs, err := NewReadSet(groups, EncodingFastq)
	if err != nil {
		t.Fatal(err)
	}
	groups[0][0] = "changed"
	rs.Groups()[0][1] = "changed"
	if !reflect.DeepEqual(rs.Groups(), []FileGroup{{"a", "b"}}) {
		t.Errorf("read set mutated: %v", rs.Groups())
	}
}
