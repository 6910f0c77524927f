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
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/bits-and-blooms/bitset"

	"github.com/exascience/elmap/shell"
	"github.com/exascience/elmap/workspace"
)

// Options control normalization.
type Options struct {
	// PreserveColourspace keeps colour-space reads and their quality
	// files as they are, for strategies that map them directly.
	PreserveColourspace bool

	// ConvertQuality rescales non-sanger FASTQ qualities.
	ConvertQuality bool

	Tools     Tools
	Lookup    Lookup
	Inspector Inspector
}

// Normalizer produces canonical read sets.
type Normalizer struct {
	opts       Options
	classifier Classifier
}

// NewNormalizer returns a normalizer. Missing tools, lookup and
// inspector are replaced by their defaults.
func NewNormalizer(opts Options) *Normalizer {
	defaults := DefaultTools()
	if opts.Tools.Seqtk == "" {
		opts.Tools.Seqtk = defaults.Seqtk
	}
	if opts.Tools.Solid2Fastq == "" {
		opts.Tools.Solid2Fastq = defaults.Solid2Fastq
	}
	if opts.Tools.FastqDump == "" {
		opts.Tools.FastqDump = defaults.FastqDump
	}
	if opts.Lookup == nil {
		opts.Lookup = OSLookup{}
	}
	if opts.Inspector == nil {
		opts.Inspector = FileInspector{}
	}
	return &Normalizer{opts: opts, classifier: Classifier{Inspector: opts.Inspector}}
}

// normalization is the state of one Normalize call.
type normalization struct {
	opts      *Options
	ws        *workspace.Workspace
	listed    map[string]int
	consumed  *bitset.BitSet
	names     map[string]int
	groups    []FileGroup
	encodings []Encoding
	fragment  shell.Fragment
	notes     []string
}

// Normalize classifies paths, groups mates, and returns the canonical
// read set. Converted files are placed in ws.
func (n *Normalizer) Normalize(paths []string, ws *workspace.Workspace) (*ReadSet, error) {
	if len(paths) == 0 {
		return nil, ErrEmptyInput
	}
	inputs := make([]Input, len(paths))
	for i, path := range paths {
		in, err := n.classifier.Classify(path)
		if err != nil {
			return nil, err
		}
		inputs[i] = in
	}

	st := &normalization{
		opts:     &n.opts,
		ws:       ws,
		listed:   make(map[string]int, len(paths)),
		consumed: bitset.New(uint(len(paths))),
		names:    make(map[string]int),
	}
	for i, path := range paths {
		if _, ok := st.listed[path]; !ok {
			st.listed[path] = i
		}
	}

	for i, in := range inputs {
		if st.consumed.Test(uint(i)) || st.listed[in.Path] != i {
			continue
		}
		st.consumed.Set(uint(i))
		var err error
		switch in.Format {
		case FormatFastq:
			err = st.fastq(in)
		case FormatFastqPaired:
			err = st.fastqPaired(in)
		case FormatColourSpace:
			err = st.colourSpace(in)
		case FormatColourSpacePaired:
			err = st.colourSpacePaired(in)
		case FormatQuality:
			err = st.orphanQuality(in)
		case FormatSRA:
			err = st.sra(in)
		case FormatExport:
			err = st.export(in)
		default:
			err = fmt.Errorf("%w: %v", ErrUnsupportedFormat, in.Path)
		}
		if err != nil {
			return nil, err
		}
	}

	if len(st.groups) == 0 {
		return nil, ErrEmptyInput
	}
	for i, e := range st.encodings {
		if e != st.encodings[0] {
			return nil, fmt.Errorf("%w: %v is %v, %v is %v", ErrEncodingMismatch, st.groups[0], st.encodings[0], st.groups[i], e)
		}
	}
	rs, err := NewReadSet(st.groups, st.encodings[0])
	if err != nil {
		return nil, err
	}
	if st.fragment.Len() > 0 {
		rs.statements = []string{st.fragment.String()}
	}
	rs.notes = st.notes
	return rs, nil
}

func (st *normalization) add(encoding Encoding, files ...string) {
	st.groups = append(st.groups, FileGroup(files))
	st.encodings = append(st.encodings, encoding)
}

func (st *normalization) exists(path string) bool {
	if _, ok := st.listed[path]; ok {
		return true
	}
	return st.opts.Lookup.Exists(path)
}

// claim marks a listed sibling as handled by the current group.
func (st *normalization) claim(path string) {
	if i, ok := st.listed[path]; ok {
		st.consumed.Set(uint(i))
	}
}

func (st *normalization) require(path, of string) error {
	if !st.exists(path) {
		return fmt.Errorf("%w: cannot find %v for %v", ErrMissingMate, path, of)
	}
	st.claim(path)
	return nil
}

// output returns a unique file name in the workspace.
func (st *normalization) output(track, suffix string) string {
	name := track + suffix
	if k := st.names[name]; k > 0 {
		name = track + "-" + strconv.Itoa(k) + suffix
	}
	st.names[track+suffix]++
	return st.ws.Path(name)
}

func (st *normalization) guessQuality(path string) (Quality, error) {
	q, err := st.opts.Inspector.Quality(path)
	if err != nil {
		return QualityUnknown, err
	}
	st.notes = append(st.notes, fmt.Sprintf("%v: assuming quality score format %v", path, q))
	return q, nil
}

func needsRescaling(q Quality) bool {
	return q == Solexa || q == Phred64
}

func (st *normalization) rescale(in, out string, q Quality) error {
	return st.fragment.Run(seqtkSeq{
		Cmd:    st.opts.Tools.Seqtk,
		Offset: q.Offset(),
		Shift:  true,
		Input:  in,
	}, "| gzip >", shell.Quote(out))
}

func (st *normalization) fastq(in Input) error {
	if !st.opts.ConvertQuality {
		st.add(EncodingFastq, in.Path)
		return nil
	}
	q, err := st.guessQuality(in.Path)
	if err != nil {
		return err
	}
	if !needsRescaling(q) {
		st.add(EncodingFastq, in.Path)
		return nil
	}
	out := st.output(Track(in.Path), ".fastq.gz")
	if err := st.rescale(in.Path, out, q); err != nil {
		return err
	}
	st.add(EncodingFastq, out)
	return nil
}

func (st *normalization) fastqPaired(in Input) error {
	base := stem(in.Path, ".fastq.1.gz")
	if in.Mate == SecondMate {
		base = stem(in.Path, ".fastq.2.gz")
	}
	first, second := base+".fastq.1.gz", base+".fastq.2.gz"
	if in.Mate == SecondMate {
		if _, ok := st.listed[first]; ok {
			return nil
		}
		if err := st.require(first, in.Path); err != nil {
			return err
		}
	} else if err := st.require(second, in.Path); err != nil {
		return err
	}

	if st.opts.ConvertQuality {
		q, err := st.guessQuality(first)
		if err != nil {
			return err
		}
		if needsRescaling(q) {
			track := Track(first)
			out1 := st.output(track, ".1.fastq.gz")
			out2 := st.output(track, ".2.fastq.gz")
			if err := st.rescale(first, out1, q); err != nil {
				return err
			}
			if err := st.rescale(second, out2, q); err != nil {
				return err
			}
			st.add(EncodingFastq, out1, out2)
			return nil
		}
	}
	st.add(EncodingFastq, first, second)
	return nil
}

func (st *normalization) solid(reads, quality, out string) error {
	return st.fragment.Run(solid2fastq{
		Cmd:     st.opts.Tools.Solid2Fastq,
		Reads:   shell.Unzip(reads),
		Quality: shell.Unzip(quality),
	}, "| gzip >", shell.Quote(out))
}

func (st *normalization) colourSpace(in Input) error {
	quality := stem(in.Path, ".csfasta.gz") + ".qual.gz"
	if err := st.require(quality, in.Path); err != nil {
		return err
	}
	if st.opts.PreserveColourspace {
		st.add(EncodingColourSpace, in.Path, quality)
		return nil
	}
	out := st.output(Track(in.Path), ".fastq.gz")
	if err := st.solid(in.Path, quality, out); err != nil {
		return err
	}
	st.add(EncodingFastq, out)
	return nil
}

func (st *normalization) colourSpacePaired(in Input) error {
	suffix := ".csfasta.F3.gz"
	if in.Mate == SecondMate {
		suffix = ".csfasta.F5.gz"
	}
	base := stem(in.Path, suffix)
	// reads first, then qualities, in F3, F5 order
	files := []string{base + ".csfasta.F3.gz", base + ".csfasta.F5.gz", base + ".qual.F3.gz", base + ".qual.F5.gz"}
	if in.Mate == SecondMate {
		if _, ok := st.listed[files[0]]; ok {
			return nil
		}
	}
	for _, f := range files {
		if f == in.Path {
			continue
		}
		if err := st.require(f, in.Path); err != nil {
			return err
		}
	}
	if st.opts.PreserveColourspace {
		st.add(EncodingColourSpace, files...)
		return nil
	}
	track := Track(files[0])
	out1 := st.output(track, ".1.fastq.gz")
	out2 := st.output(track, ".2.fastq.gz")
	if err := st.solid(files[0], files[2], out1); err != nil {
		return err
	}
	if err := st.solid(files[1], files[3], out2); err != nil {
		return err
	}
	st.add(EncodingFastq, out1, out2)
	return nil
}

// orphanQuality handles a quality file that was listed before, or
// without, its reads.
func (st *normalization) orphanQuality(in Input) error {
	var partners []string
	if in.Layout == QualityPairedEnd {
		suffix := ".qual.F3.gz"
		if in.Mate == SecondMate {
			suffix = ".qual.F5.gz"
		}
		base := stem(in.Path, suffix)
		partners = []string{base + ".csfasta.F3.gz", base + ".csfasta.F5.gz"}
	} else {
		partners = []string{stem(in.Path, ".qual.gz") + ".csfasta.gz"}
	}
	for _, p := range partners {
		if _, ok := st.listed[p]; ok {
			return nil
		}
	}
	return fmt.Errorf("%w: quality file %v given without %v", ErrMissingMate, in.Path, partners[0])
}

// sra extracts an archived read container into its own directory, so
// that extracted files cannot collide with other converted inputs.
func (st *normalization) sra(in Input) error {
	accession := Track(in.Path)
	dir := st.output("sra-"+accession, "")
	st.fragment.Add("mkdir -p " + shell.Quote(dir))
	if err := st.fragment.Run(fastqDump{
		Cmd:    st.opts.Tools.FastqDump,
		Split:  true,
		Gzip:   true,
		OutDir: dir,
		Input:  in.Path,
	}); err != nil {
		return err
	}
	st.notes = append(st.notes, fmt.Sprintf("%v: assuming %v layout", in.Path, in.Layout))
	if in.Layout == PairedEnd {
		st.add(EncodingFastq, filepath.Join(dir, accession+"_1.fastq.gz"), filepath.Join(dir, accession+"_2.fastq.gz"))
	} else {
		st.add(EncodingFastq, filepath.Join(dir, accession+".fastq.gz"))
	}
	return nil
}

func (st *normalization) export(in Input) error {
	out := st.output(Track(in.Path), ".fastq.gz")
	st.fragment.Addf("gunzip < %v | %v | gzip > %v", shell.Quote(in.Path), exportFilter, shell.Quote(out))
	st.add(EncodingFastq, out)
	return nil
}
