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
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"text/template"

	"github.com/biogo/external"
	"github.com/google/shlex"
	"github.com/kballard/go-shellquote"
)

const (
	// Terminator ends every statement of a fragment.
	Terminator = ";"

	// Checkpoint is the barrier statement between phases. The engine
	// must not continue past a checkpoint if the preceding statement
	// exited with a failure.
	Checkpoint = "checkpoint" + Terminator
)

// ErrMissingArgument is returned when a tool invocation lacks a required argument.
var ErrMissingArgument = errors.New("missing required argument")

var safeWord = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// Quote returns s in a form that the shell reads back as a single word.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if safeWord.MatchString(s) {
		return s
	}
	return "'" + strings.Replace(s, "'", `'\''`, -1) + "'"
}

func isSubstitution(s string) bool {
	return strings.HasPrefix(s, "<(") && strings.HasSuffix(s, ")")
}

// Unzip returns a process substitution that streams the decompressed
// concatenation of paths.
func Unzip(paths ...string) string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = Quote(p)
	}
	return "<(zcat " + strings.Join(quoted, " ") + ")"
}

// Funcs are the template functions available in buildarg tags in
// addition to the ones provided by github.com/biogo/external.
var Funcs = template.FuncMap{
	"commas": func(s []string) string { return strings.Join(s, ",") },
}

// Command builds an exec.Cmd from the buildarg tags of cb. The
// required values must all be non-empty.
func Command(cb external.CommandBuilder, required ...string) (*exec.Cmd, error) {
	for _, r := range required {
		if r == "" {
			return nil, fmt.Errorf("%w for %T", ErrMissingArgument, cb)
		}
	}
	cl, err := external.Build(cb, Funcs)
	if err != nil {
		return nil, err
	}
	args := cl[:0]
	for _, arg := range cl {
		if arg != "" {
			args = append(args, arg)
		}
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty command line for %T", ErrMissingArgument, cb)
	}
	return exec.Command(args[0], args[1:]...), nil
}

// Render returns the command line of cb as shell text. Every argument
// is quoted, except for process substitutions produced by Unzip.
func Render(cb external.CommandBuilder) (string, error) {
	cmd, err := cb.BuildCommand()
	if err != nil {
		return "", err
	}
	words := make([]string, len(cmd.Args))
	for i, arg := range cmd.Args {
		if isSubstitution(arg) {
			words[i] = arg
		} else {
			words[i] = Quote(arg)
		}
	}
	return strings.Join(words, " "), nil
}

// SplitOptions lexes a free-form option string into the arguments the
// shell would pass for it. Backslashes inside double quotes are kept,
// so Render reproduces the words the user wrote.
func SplitOptions(options string) ([]string, error) {
	if strings.TrimSpace(options) == "" {
		return nil, nil
	}
	return shellquote.Split(options)
}

// Terminated reports whether a non-empty fragment ends in the statement terminator.
func Terminated(fragment string) bool {
	return strings.HasSuffix(strings.TrimSpace(fragment), Terminator)
}

// Validate checks that fragment ends in the statement terminator and
// that its quoting is balanced.
func Validate(fragment string) error {
	if !Terminated(fragment) {
		return fmt.Errorf("fragment does not end in %q: %.60q", Terminator, fragment)
	}
	if _, err := shlex.Split(fragment); err != nil {
		return fmt.Errorf("fragment cannot be lexed: %v", err)
	}
	return nil
}
