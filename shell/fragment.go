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

package shell

import (
	"fmt"
	"strings"

	"github.com/biogo/external"
)

// A Fragment accumulates terminated statements.
// The zero value is an empty fragment, ready to use.
type Fragment struct {
	statements []string
}

// Add appends a statement, adding the terminator if it is missing.
// Blank statements are ignored.
func (f *Fragment) Add(statement string) {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return
	}
	if !strings.HasSuffix(statement, Terminator) {
		statement += Terminator
	}
	f.statements = append(f.statements, statement)
}

// Addf appends a formatted statement.
func (f *Fragment) Addf(format string, args ...interface{}) {
	f.Add(fmt.Sprintf(format, args...))
}

// Append adds each of the given statements in order.
func (f *Fragment) Append(statements ...string) {
	for _, s := range statements {
		f.Add(s)
	}
}

// Run appends the rendered command line of cb, followed by the given
// redirections or pipeline continuations.
func (f *Fragment) Run(cb external.CommandBuilder, tail ...string) error {
	line, err := Render(cb)
	if err != nil {
		return err
	}
	if len(tail) > 0 {
		line += " " + strings.Join(tail, " ")
	}
	f.Add(line)
	return nil
}

// Checkpoint appends a barrier inside the fragment.
func (f *Fragment) Checkpoint() {
	f.statements = append(f.statements, Checkpoint)
}

// Len returns the number of statements, barriers included.
func (f *Fragment) Len() int {
	return len(f.statements)
}

// String joins the statements into one fragment.
func (f *Fragment) String() string {
	return strings.Join(f.statements, " ")
}
