// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package instrument models the camera side of an ingest: which formatter
// should later read a raw dataset, keyed by instrument and detector.
package instrument

import (
	"fmt"
	"sort"
	"sync"
)

// Instrument describes one camera known to the repository.
type Instrument interface {
	// Name returns the instrument name as it appears in observation
	// headers and catalog identities.
	Name() string

	// RawFormatter returns the formatter name stored with a raw dataset
	// so readers know how to open the file later. Detector-dependent
	// formatters are common on cameras with mixed sensor types.
	RawFormatter(detector int) string
}

// Registry maps instrument names to factories. Each ingest driver is handed
// its own Registry; there is no process-wide instance, so independent
// drivers stay independent.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]func() Instrument
}

// NewRegistry returns an empty instrument registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]func() Instrument)}
}

// Register adds an instrument factory. Re-registering a name replaces the
// previous factory.
func (r *Registry) Register(name string, factory func() Instrument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Lookup instantiates the named instrument.
func (r *Registry) Lookup(name string) (Instrument, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("instrument %q is not registered", name)
	}
	return factory(), nil
}

// Names returns the registered instrument names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Simple is an Instrument with a single formatter for every detector.
// Configuration-defined instruments use it; cameras with per-detector
// formatters implement Instrument directly.
type Simple struct {
	InstrumentName string
	Formatter      string
}

// Name implements Instrument.
func (s Simple) Name() string { return s.InstrumentName }

// RawFormatter implements Instrument.
func (s Simple) RawFormatter(int) string { return s.Formatter }
