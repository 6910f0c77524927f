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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// settingsFlag collects repeated --set key=value flags.
type settingsFlag map[string]string

func (s settingsFlag) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "--set %v=%v", k, s[k])
	}
	return b.String()
}

func (s settingsFlag) Set(value string) error {
	i := strings.IndexByte(value, '=')
	if i <= 0 {
		return fmt.Errorf("invalid setting %q, expected key=value", value)
	}
	s[strings.TrimSpace(value[:i])] = strings.TrimSpace(value[i+1:])
	return nil
}

// loadSettings reads a TOML or YAML configuration file into a flat
// mapping. Nested tables contribute keys joined by underscores, so
// that [bwa] threads = 4 is the same as bwa_threads = 4. Lists are
// joined by spaces.
func loadSettings(filename string) (map[string]string, error) {
	settings := make(map[string]string)
	if filename == "" {
		return settings, nil
	}
	var raw map[string]interface{}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		if _, err := toml.DecodeFile(filename, &raw); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%v: %w", filename, err)
		}
	default:
		return nil, fmt.Errorf("%v: configuration files must be .toml, .yaml or .yml", filename)
	}
	flatten("", raw, settings)
	return settings, nil
}

func flatten(prefix string, value interface{}, settings map[string]string) {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, sub := range v {
			if prefix != "" {
				key = prefix + "_" + key
			}
			flatten(key, sub, settings)
		}
	case []interface{}:
		words := make([]string, len(v))
		for i, w := range v {
			words[i] = fmt.Sprint(w)
		}
		settings[prefix] = strings.Join(words, " ")
	case nil:
		settings[prefix] = ""
	default:
		settings[prefix] = fmt.Sprint(v)
	}
}

// resolveSettings loads the configuration file, applies the overrides,
// and sets the strategy and workspace root when they are given.
func resolveSettings(filename string, overrides settingsFlag, strategy, tmpdir string) (map[string]string, error) {
	settings, err := loadSettings(filename)
	if err != nil {
		return nil, err
	}
	for k, v := range overrides {
		settings[k] = v
	}
	if strategy != "" {
		settings["strategy"] = strategy
	}
	if tmpdir != "" {
		settings["tmpdir"] = tmpdir
	}
	if settings["strategy"] == "" {
		return nil, fmt.Errorf("no strategy configured, use --strategy or the strategy key")
	}
	return settings, nil
}
