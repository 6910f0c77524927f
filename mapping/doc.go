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

// Package mapping implements alignment strategies.
//
// A strategy turns the raw read files of one sample into four command
// fragments: preprocess, align, postprocess and cleanup. All strategies
// share one Mapper implementation. A variant only contributes its align
// functions, one per supported arity, and its postprocess step. Every
// command line is fully resolved when it is built; the resulting text
// contains no placeholders.
package mapping
