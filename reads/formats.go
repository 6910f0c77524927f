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
	"fmt"
	"path/filepath"
	"strings"
)

// Errors reported while classifying and normalizing inputs.
var (
	ErrUnsupportedFormat = errors.New("unsupported read file format")
	ErrMissingMate       = errors.New("missing mate file")
	ErrArityMismatch     = errors.New("read groups differ in number of files")
	ErrEncodingMismatch  = errors.New("read groups differ in encoding")
	ErrEmptyInput        = errors.New("no input files")
)

// Format is the format tag of a read file.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatFastq
	FormatFastqPaired
	FormatColourSpace
	FormatColourSpacePaired
	FormatQuality
	FormatSRA
	FormatExport
)

func (f Format) String() string {
	switch f {
	case FormatFastq:
		return "fastq"
	case FormatFastqPaired:
		return "fastq-paired"
	case FormatColourSpace:
		return "csfasta"
	case FormatColourSpacePaired:
		return "csfasta-paired"
	case FormatQuality:
		return "qual"
	case FormatSRA:
		return "sra"
	case FormatExport:
		return "export"
	default:
		return "unknown"
	}
}

// Layout is the mate relationship inferred for a read file.
type Layout int

// Layouts.
const (
	SingleEnd Layout = iota
	PairedEnd
	// QualityPaired is colour-space single-end: reads plus quality file.
	QualityPaired
	// QualityPairedEnd is colour-space paired-end: two read files plus two quality files.
	QualityPairedEnd
)

func (l Layout) String() string {
	switch l {
	case SingleEnd:
		return "single-end"
	case PairedEnd:
		return "paired-end"
	case QualityPaired:
		return "quality-paired"
	case QualityPairedEnd:
		return "quality-paired-end"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// Arity is the number of source files of one sequencing unit in this layout.
func (l Layout) Arity() int {
	switch l {
	case PairedEnd, QualityPaired:
		return 2
	case QualityPairedEnd:
		return 4
	default:
		return 1
	}
}

// Mate is the position of a file within its pair.
type Mate int

// Mates.
const (
	NoMate Mate = iota
	FirstMate
	SecondMate
)

// Input is a classified read file.
type Input struct {
	Path   string
	Format Format
	Layout Layout
	Mate   Mate
}

type suffixRule struct {
	suffix string
	format Format
	layout Layout
	mate   Mate
}

// Longer suffixes come first, so that .fastq.1.gz is never mistaken
// for something shorter.
var suffixRules = []suffixRule{
	{".csfasta.F3.gz", FormatColourSpacePaired, QualityPairedEnd, FirstMate},
	{".csfasta.F5.gz", FormatColourSpacePaired, QualityPairedEnd, SecondMate},
	{".qual.F3.gz", FormatQuality, QualityPairedEnd, FirstMate},
	{".qual.F5.gz", FormatQuality, QualityPairedEnd, SecondMate},
	{".export.txt.gz", FormatExport, SingleEnd, NoMate},
	{".fastq.1.gz", FormatFastqPaired, PairedEnd, FirstMate},
	{".fastq.2.gz", FormatFastqPaired, PairedEnd, SecondMate},
	{".csfasta.gz", FormatColourSpace, QualityPaired, NoMate},
	{".qual.gz", FormatQuality, QualityPaired, NoMate},
	{".fastq.gz", FormatFastq, SingleEnd, NoMate},
	{".sra", FormatSRA, SingleEnd, NoMate},
}

func matchSuffix(path string) (suffixRule, bool) {
	for _, r := range suffixRules {
		if strings.HasSuffix(path, r.suffix) && len(path) > len(r.suffix) {
			return r, true
		}
	}
	return suffixRule{}, false
}

// Recognized reports whether path has one of the read file suffixes.
func Recognized(path string) bool {
	_, ok := matchSuffix(path)
	return ok
}

// Track returns the base name of path without its read file suffix.
func Track(path string) string {
	base := filepath.Base(path)
	if r, ok := matchSuffix(base); ok {
		return strings.TrimSuffix(base, r.suffix)
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// stem returns path without suffix, directory included.
func stem(path, suffix string) string {
	return strings.TrimSuffix(path, suffix)
}

// Classifier assigns format tags to read files.
type Classifier struct {
	// Inspector decides the layout of archived read containers.
	// A nil Inspector means FileInspector.
	Inspector Inspector
}

// Classify returns the format and inferred layout of path. Only
// archived read containers are opened, for a bounded read-ahead.
func (c *Classifier) Classify(path string) (Input, error) {
	r, ok := matchSuffix(path)
	if !ok {
		return Input{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, path)
	}
	in := Input{Path: path, Format: r.format, Layout: r.layout, Mate: r.mate}
	if r.format == FormatSRA {
		inspector := c.Inspector
		if inspector == nil {
			inspector = FileInspector{}
		}
		layout, err := inspector.PeekSRA(path)
		if err != nil {
			return Input{}, err
		}
		in.Layout = layout
	}
	return in, nil
}
