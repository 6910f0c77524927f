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

// Package reads turns the sequencing read files given for a sample into
// a canonical read set.
//
// Input files are classified by their suffix:
//
//	*.fastq.gz                          single-end reads
//	*.fastq.1.gz, *.fastq.2.gz          paired-end reads, mates found by substituting 1 and 2
//	*.csfasta.gz + *.qual.gz            colour-space single-end reads with their quality file
//	*.csfasta.F3.gz, *.csfasta.F5.gz    colour-space paired-end reads, with *.qual.F3.gz and *.qual.F5.gz
//	*.sra                               archived read container, single or paired by inspection
//	*.export.txt.gz                     tabular read export, single-end
//
// The normalizer groups mates, records the statements that convert
// groups into gzip compressed FASTQ where needed, and checks that all
// groups of a sample have the same arity (1, 2 or 4 files) and encoding.
// Conversion statements are recorded, never executed.
package reads
