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
	"bytes"
	"fmt"
	"io"

	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"
	"golang.org/x/sys/unix"
)

// Quality is the quality score encoding of a FASTQ file.
type Quality int

// Quality encodings. Sanger is the canonical target.
const (
	QualityUnknown Quality = iota
	Sanger
	Solexa
	Phred64
)

func (q Quality) String() string {
	switch q {
	case Sanger:
		return "sanger"
	case Solexa:
		return "solexa"
	case Phred64:
		return "phred64"
	default:
		return "unknown"
	}
}

// Offset is the ASCII offset of the encoding.
func (q Quality) Offset() int {
	switch q {
	case Solexa, Phred64:
		return 64
	default:
		return 33
	}
}

const (
	// number of records inspected when guessing the quality encoding
	qualityRecords = 1000

	// read-ahead for archived read containers
	sraPeekSize = 64 << 10
)

// quality characters of sanger encoded reads
var sangerRange = [2]byte{33, 74}

var (
	sraMagic     = []byte("NCBI.sra")
	pairedMarker = []byte("PAIRED")
)

// Inspector looks into read files where the suffix is not enough.
type Inspector interface {
	// Quality guesses the quality encoding of a FASTQ file.
	Quality(path string) (Quality, error)
	// PeekSRA decides whether an archived read container holds
	// single-end or paired-end reads.
	PeekSRA(path string) (Layout, error)
	// ReadLength returns the length of the first read of a FASTQ file.
	ReadLength(path string) (int, error)
}

// FileInspector inspects files on disk.
type FileInspector struct{}

// Quality implements Inspector.
func (FileInspector) Quality(path string) (Quality, error) {
	return GuessQuality(path, qualityRecords)
}

// PeekSRA implements Inspector.
func (FileInspector) PeekSRA(path string) (Layout, error) {
	return PeekSRA(path)
}

// ReadLength implements Inspector.
func (FileInspector) ReadLength(path string) (int, error) {
	return ReadLength(path)
}

// GuessQuality looks at the quality strings of at most n records of a
// (possibly compressed) FASTQ file. Data whose quality characters all
// fall in the sanger range is sanger. Otherwise the smallest character
// decides: below ';' is still sanger, '@' and above is phred64, and
// anything in between is solexa.
func GuessQuality(path string, n int) (Quality, error) {
	reader, err := fastx.NewDefaultReader(path)
	if err != nil {
		return QualityUnknown, err
	}
	defer reader.Close()
	min, max := byte(0xff), byte(0)
	for i := 0; i < n; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return QualityUnknown, fmt.Errorf("%v: %w", path, err)
		}
		for _, q := range record.Seq.Qual {
			if q < min {
				min = q
			}
			if q > max {
				max = q
			}
		}
	}
	switch {
	case min == 0xff:
		return QualityUnknown, nil
	case min >= sangerRange[0] && max <= sangerRange[1]:
		return Sanger, nil
	case min < ';':
		return Sanger, nil
	case min >= '@':
		return Phred64, nil
	default:
		return Solexa, nil
	}
}

// ReadLength returns the length of the first read in a FASTQ file.
func ReadLength(path string) (int, error) {
	reader, err := fastx.NewDefaultReader(path)
	if err != nil {
		return 0, err
	}
	defer reader.Close()
	record, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("%v: %w", path, err)
	}
	return len(record.Seq.Seq), nil
}

// PeekSRA reads the first sraPeekSize bytes of an archived read
// container. The container metadata records the library layout; a
// PAIRED layout within the read-ahead means paired-end reads.
func PeekSRA(path string) (Layout, error) {
	r, err := xopen.Ropen(path)
	if err != nil {
		return SingleEnd, err
	}
	defer r.Close()
	head := make([]byte, sraPeekSize)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return SingleEnd, err
	}
	head = head[:n]
	if !bytes.HasPrefix(head, sraMagic) {
		return SingleEnd, fmt.Errorf("%w: %v is not an SRA container", ErrUnsupportedFormat, path)
	}
	if bytes.Contains(head, pairedMarker) {
		return PairedEnd, nil
	}
	return SingleEnd, nil
}

// Lookup finds sibling files, such as mates and quality files.
type Lookup interface {
	Exists(path string) bool
}

// OSLookup checks the file system for readable files.
type OSLookup struct{}

// Exists implements Lookup.
func (OSLookup) Exists(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}
