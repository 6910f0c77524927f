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

// Package workspace hands out private temporary directories for jobs.
//
// Allocating a workspace does not touch the file system. Creation and
// removal are statements that become part of the job's plan, so a
// failed plan construction leaves nothing behind.
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/exascience/elmap/shell"
)

// Manager allocates workspaces below Root.
type Manager struct {
	Root string
}

// NewManager returns a manager for root. An empty root means the
// system temporary directory.
func NewManager(root string) *Manager {
	if root == "" {
		root = os.TempDir()
	}
	return &Manager{Root: root}
}

// Workspace is the private temporary directory of a single job.
type Workspace struct {
	Dir string
}

// Allocate returns a fresh workspace whose name starts with prefix.
// Names are never reused across jobs.
func (m *Manager) Allocate(prefix string) *Workspace {
	prefix = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, prefix)
	name := uuid.New().String()
	if prefix != "" {
		name = prefix + "-" + name
	}
	return &Workspace{Dir: filepath.Join(m.Root, name)}
}

// Path returns a path inside the workspace.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.Dir}, elem...)...)
}

// Contains reports whether path lies inside the workspace.
func (w *Workspace) Contains(path string) bool {
	rel, err := filepath.Rel(w.Dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Create returns the statement that creates the workspace, and the
// given subdirectories inside it.
func (w *Workspace) Create(subdirs ...string) string {
	dirs := []string{shell.Quote(w.Dir)}
	for _, s := range subdirs {
		dirs = append(dirs, shell.Quote(w.Path(s)))
	}
	return "mkdir -p " + strings.Join(dirs, " ") + shell.Terminator
}

// Remove returns the statement that removes the workspace and
// everything in it.
func (w *Workspace) Remove() string {
	return "rm -rf " + shell.Quote(w.Dir) + shell.Terminator
}
