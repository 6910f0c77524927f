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
package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCheckReadable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !checkReadable("--config", path) {
		t.Errorf("%v not readable", path)
	}
	for _, bad := range []string{"", "--strategy", filepath.Join(dir, "missing.toml")} {
		if checkReadable("--config", bad) {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestCheckWritable(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "plan.sh")
	if !checkWritable("--script", nested) {
		t.Errorf("%v not writable", nested)
	}
	if _, err := os.Stat(filepath.Join(dir, "a")); !errors.Is(err, os.ErrNotExist) {
		t.Error("checking created directories")
	}
	if checkWritable("--script", "-x") {
		t.Error("flag accepted as filename")
	}
}

func TestLogFilename(t *testing.T) {
	when := time.Date(2024, 3, 5, 7, 9, 11, 13, time.UTC)
	got := logFilename("build", when)
	want := filepath.Join("logs", "elmap", "elmap-build-2024-03-05-07-09-11.000000013-UTC.log")
	if got != want {
		t.Errorf("logFilename = %v, want %v", got, want)
	}
}

func TestTimedRun(t *testing.T) {
	failure := errors.New("build failed")
	if err := timedRun(false, "", "build", func() error { return failure }); err != failure {
		t.Errorf("timedRun returned %v", err)
	}
	prefix := filepath.Join(t.TempDir(), "cpu")
	ran := false
	if err := timedRun(true, prefix, "batch", func() error { ran = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("function not run")
	}
	info, err := os.Stat(prefix + "-batch.prof")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(info.Name(), ".prof") {
		t.Errorf("unexpected profile %v", info.Name())
	}
}
