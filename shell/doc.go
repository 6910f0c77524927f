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

// Package shell builds the command text handed to the job engine.
//
// A fragment is a sequence of statements, each ending in the statement
// terminator ";". Fragments are opaque to elMap beyond that: external
// tools are rendered from structs carrying buildarg tags (see
// github.com/biogo/external), and inline filters such as awk programs
// are kept as literal text. Validate checks the structural
// well-formedness of a fragment so that fragments can be concatenated
// safely.
package shell
