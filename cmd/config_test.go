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
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestLoadSettingsTOML(t *testing.T) {
	filename := writeConfig(t, "elmap.toml", `
strategy = "bwa"
genome = "hg38"
convert_quality = true

[bwa]
index = "/idx/{genome}"
threads = 8
options = ["-l", "32"]
`)
	settings, err := loadSettings(filename)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"strategy":        "bwa",
		"genome":          "hg38",
		"convert_quality": "true",
		"bwa_index":       "/idx/{genome}",
		"bwa_threads":     "8",
		"bwa_options":     "-l 32",
	}
	if !reflect.DeepEqual(settings, want) {
		t.Errorf("settings = %v, want %v", settings, want)
	}
}

func TestLoadSettingsYAML(t *testing.T) {
	filename := writeConfig(t, "elmap.yml", `
strategy: star
star:
  index: /idx/star
  sjdb_overhang: auto
tool_samtools: /opt/samtools
`)
	settings, err := loadSettings(filename)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"strategy":           "star",
		"star_index":         "/idx/star",
		"star_sjdb_overhang": "auto",
		"tool_samtools":      "/opt/samtools",
	}
	if !reflect.DeepEqual(settings, want) {
		t.Errorf("settings = %v, want %v", settings, want)
	}
}

func TestLoadSettingsErrors(t *testing.T) {
	if _, err := loadSettings(writeConfig(t, "elmap.ini", "strategy=bwa")); err == nil {
		t.Error("unknown configuration format accepted")
	}
	if _, err := loadSettings(writeConfig(t, "elmap.toml", "strategy = ")); err == nil {
		t.Error("invalid TOML accepted")
	}
	if _, err := loadSettings(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
	settings, err := loadSettings("")
	if err != nil || len(settings) != 0 {
		t.Errorf("no file gave %v, %v", settings, err)
	}
}

func TestSettingsFlag(t *testing.T) {
	overrides := make(settingsFlag)
	var flags flag.FlagSet
	flags.Var(overrides, "set", "")
	if err := flags.Parse([]string{"--set", "bwa_threads=4", "--set", "genome = mm10"}); err != nil {
		t.Fatal(err)
	}
	if want := (settingsFlag{"bwa_threads": "4", "genome": "mm10"}); !reflect.DeepEqual(overrides, want) {
		t.Errorf("overrides = %v", overrides)
	}
	if got := overrides.String(); got != "--set bwa_threads=4 --set genome=mm10" {
		t.Errorf("String = %q", got)
	}
	if err := overrides.Set("novalue"); err == nil {
		t.Error("setting without = accepted")
	}
}

func TestResolveSettings(t *testing.T) {
	filename := writeConfig(t, "elmap.toml", "strategy = \"bwa\"\nbwa_threads = 2\n")
	settings, err := resolveSettings(filename, settingsFlag{"bwa_threads": "4"}, "hisat", "/scratch")
	if err != nil {
		t.Fatal(err)
	}
	if settings["strategy"] != "hisat" || settings["bwa_threads"] != "4" || settings["tmpdir"] != "/scratch" {
		t.Errorf("settings = %v", settings)
	}
	if _, err := resolveSettings("", settingsFlag{}, "", ""); err == nil {
		t.Error("missing strategy accepted")
	}
}
