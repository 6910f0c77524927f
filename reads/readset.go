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

import "fmt"

// A FileGroup is one sequencing unit: 1, 2 or 4 files sharing the same
// read identifiers and encoding.
type FileGroup []string

// Encoding of the files in a read set.
type Encoding int

// Encodings. EncodingFastq, gzip compressed FASTQ with sanger
// qualities, is canonical. EncodingColourSpace is only produced for
// strategies that map colour-space reads directly.
const (
	EncodingFastq Encoding = iota
	EncodingColourSpace
)

func (e Encoding) String() string {
	if e == EncodingColourSpace {
		return "colour-space"
	}
	return "fastq.gz"
}

// ReadSet is the canonical, immutable set of file groups of one job.
type ReadSet struct {
	groups     []FileGroup
	encoding   Encoding
	statements []string
	notes      []string
}

// NewReadSet checks that all groups have the same arity, one of 1, 2
// or 4, and returns the read set.
func NewReadSet(groups []FileGroup, encoding Encoding) (*ReadSet, error) {
	if len(groups) == 0 {
		return nil, ErrEmptyInput
	}
	arity := len(groups[0])
	for _, g := range groups {
		if len(g) != arity {
			return nil, fmt.Errorf("%w: %v has %d files, %v has %d", ErrArityMismatch, groups[0], arity, g, len(g))
		}
	}
	switch arity {
	case 1, 2, 4:
	default:
		return nil, fmt.Errorf("%w: %d files per group", ErrArityMismatch, arity)
	}
	rs := &ReadSet{encoding: encoding}
	for _, g := range groups {
		rs.groups = append(rs.groups, append(FileGroup(nil), g...))
	}
	return rs, nil
}

// Arity returns the number of files per group.
func (rs *ReadSet) Arity() int {
	return len(rs.groups[0])
}

// Len returns the number of groups.
func (rs *ReadSet) Len() int {
	return len(rs.groups)
}

// Encoding returns the encoding shared by all groups.
func (rs *ReadSet) Encoding() Encoding {
	return rs.encoding
}

// Groups returns a copy of the file groups.
func (rs *ReadSet) Groups() []FileGroup {
	groups := make([]FileGroup, len(rs.groups))
	for i, g := range rs.groups {
		groups[i] = append(FileGroup(nil), g...)
	}
	return groups
}

// Column returns the i-th file of every group, in group order.
func (rs *ReadSet) Column(i int) []string {
	column := make([]string, len(rs.groups))
	for j, g := range rs.groups {
		column[j] = g[i]
	}
	return column
}

// Statements returns the conversion statements that produce the files
// of the read set. They must run before any file is read.
func (rs *ReadSet) Statements() []string {
	return append([]string(nil), rs.statements...)
}

// Notes returns what the normalizer assumed about its inputs, for logging.
func (rs *ReadSet) Notes() []string {
	return append([]string(nil), rs.notes...)
}
