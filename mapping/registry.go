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
	"fmt"
	"sort"
)

// A Constructor creates a strategy from its configuration.
type Constructor func(cfg Config) (*Mapper, error)

var registry = map[string]Constructor{
	"bwa":      NewBWA,
	"bwamem":   NewBWAMEM,
	"tophat":   NewTophat,
	"tophat2":  NewTophat2,
	"star":     NewSTAR,
	"hisat":    NewHisat,
	"sailfish": NewSailfish,
}

// New returns the named strategy, configured from settings.
func New(name string, settings map[string]string) (Strategy, error) {
	constructor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q, available are %v", ErrUnknownStrategy, name, Names())
	}
	cfg, err := NewConfig(name, settings)
	if err != nil {
		return nil, err
	}
	m, err := constructor(cfg)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Names returns the registered strategy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
