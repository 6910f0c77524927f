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

package mapping

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/exascience/elmap/reads"
	"github.com/exascience/elmap/shell"
)

var (
	// ErrUnsupportedArity is returned when a strategy cannot map read
	// sets with the given number of files per group.
	ErrUnsupportedArity = errors.New("unsupported arity")

	// ErrUnknownStrategy is returned for strategy names that are not registered.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrConfig is returned for missing or invalid configuration values.
	ErrConfig = errors.New("invalid configuration")

	// ErrNotAligned is returned when a phase that depends on the align
	// phase of the same job is built before it.
	ErrNotAligned = errors.New("align phase has not been built")
)

var placeholder = regexp.MustCompile(`\{([A-Za-z0-9_]*)\}`)

// Config is the configuration of one strategy. It is created once with
// NewConfig and not changed afterwards.
type Config struct {
	// Name is the strategy name, and the prefix of its configuration keys.
	Name string

	// Executable overrides the default executable of the strategy.
	Executable string

	// Index is the resolved path or prefix of the alignment index.
	Index string

	Threads int

	// Options are appended to the aligner invocation.
	Options []string

	RemoveNonUnique bool
	StripSequence   bool
	ConvertQuality  bool

	Tools    reads.Tools
	Samtools string

	params map[string]string
}

// NewConfig extracts the configuration of the named strategy from a
// flat key/value mapping. Keys of the strategy are prefixed with its
// name and an underscore. Placeholders of the form {key} are replaced by
// the value of key; a placeholder that cannot be resolved is an error.
func NewConfig(name string, settings map[string]string) (Config, error) {
	cfg := Config{Name: name, params: make(map[string]string)}
	prefix := name + "_"
	for key, value := range settings {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		resolved, err := resolve(value, settings)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %v: %v", ErrConfig, key, err)
		}
		cfg.params[strings.TrimPrefix(key, prefix)] = resolved
	}

	cfg.Executable = cfg.params["executable"]
	cfg.Index = cfg.params["index"]
	if cfg.Index == "" {
		return Config{}, fmt.Errorf("%w: %v_index is not set", ErrConfig, name)
	}

	var err error
	if cfg.Threads, err = cfg.IntParam("threads", 1); err != nil {
		return Config{}, err
	}
	if cfg.Threads < 1 {
		return Config{}, fmt.Errorf("%w: %v_threads must be positive, got %v", ErrConfig, name, cfg.Threads)
	}
	if cfg.Options, err = shell.SplitOptions(cfg.params["options"]); err != nil {
		return Config{}, fmt.Errorf("%w: %v_options: %v", ErrConfig, name, err)
	}
	if cfg.RemoveNonUnique, err = cfg.BoolParam("remove_non_unique"); err != nil {
		return Config{}, err
	}
	if cfg.StripSequence, err = cfg.BoolParam("strip_sequence"); err != nil {
		return Config{}, err
	}
	if cfg.ConvertQuality, err = parseBool("convert_quality", settings["convert_quality"]); err != nil {
		return Config{}, err
	}

	cfg.Tools = reads.DefaultTools()
	if s := settings["tool_seqtk"]; s != "" {
		cfg.Tools.Seqtk = s
	}
	if s := settings["tool_solid2fastq"]; s != "" {
		cfg.Tools.Solid2Fastq = s
	}
	if s := settings["tool_fastq_dump"]; s != "" {
		cfg.Tools.FastqDump = s
	}
	cfg.Samtools = "samtools"
	if s := settings["tool_samtools"]; s != "" {
		cfg.Samtools = s
	}
	return cfg, nil
}

func resolve(value string, settings map[string]string) (string, error) {
	var missing []string
	for i := 0; i < 8 && placeholder.MatchString(value); i++ {
		value = placeholder.ReplaceAllStringFunc(value, func(m string) string {
			key := m[1 : len(m)-1]
			if v, ok := settings[key]; ok && v != "" {
				return v
			}
			missing = append(missing, m)
			return m
		})
		if len(missing) > 0 {
			return "", fmt.Errorf("unresolved %v", strings.Join(missing, ", "))
		}
	}
	if placeholder.MatchString(value) {
		return "", fmt.Errorf("placeholders nested too deeply in %q", value)
	}
	return value, nil
}

func parseBool(key, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %v: %v", ErrConfig, key, err)
	}
	return b, nil
}

// Param returns the strategy-specific value of key, or def if it is not set.
func (cfg Config) Param(key, def string) string {
	if v, ok := cfg.params[key]; ok && v != "" {
		return v
	}
	return def
}

// IntParam returns the strategy-specific integer value of key, or def
// if it is not set.
func (cfg Config) IntParam(key string, def int) (int, error) {
	v := cfg.params[key]
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v_%v: %v", ErrConfig, cfg.Name, key, err)
	}
	return i, nil
}

// BoolParam returns the strategy-specific boolean value of key, false
// if it is not set.
func (cfg Config) BoolParam(key string) (bool, error) {
	return parseBool(cfg.Name+"_"+key, cfg.params[key])
}

func (cfg Config) executable(def string) string {
	if cfg.Executable != "" {
		return cfg.Executable
	}
	return def
}
