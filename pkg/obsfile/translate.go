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

package obsfile

import (
	"errors"
	"fmt"
)

// ErrTranslation marks headers that cannot be interpreted as an
// observation. Callers treat it like any other per-file failure.
var ErrTranslation = errors.New("header translation failed")

// ObservationInfo is the identifying metadata of one observation, derived
// from a file's headers. VisitID and PhysicalFilter are nil when the
// observation has no visit or no filter (darks, biases).
type ObservationInfo struct {
	Instrument     string
	ExposureID     int64
	DetectorNum    int
	VisitID        *int64
	PhysicalFilter *string

	// Descriptive fields carried onto exposure and visit catalog entries.
	DateObs         string
	ExposureTimeSec float64
}

// Translator turns a raw header block into an ObservationInfo.
type Translator interface {
	Translate(h Header) (*ObservationInfo, error)
}

// Standard header cards recognized by the default translator.
const (
	CardInstrument = "INSTRUME"
	CardExposureID = "EXPID"
	CardDetector   = "DETECTOR"
	CardVisit      = "VISIT"
	CardFilter     = "FILTER"
	CardDateObs    = "DATE-OBS"
	CardExpTime    = "EXPTIME"
)

// HeaderTranslator is the default Translator. It understands the common
// card vocabulary above; instrument-specific translators can replace it
// when a facility uses different conventions.
type HeaderTranslator struct{}

// NewHeaderTranslator returns the default translator.
func NewHeaderTranslator() *HeaderTranslator {
	return &HeaderTranslator{}
}

// Translate extracts the observation identity from the header. INSTRUME,
// EXPID and DETECTOR are mandatory; VISIT and FILTER are optional.
func (tr *HeaderTranslator) Translate(h Header) (*ObservationInfo, error) {
	instrument, ok := h.String(CardInstrument)
	if !ok || instrument == "" {
		return nil, fmt.Errorf("%w: missing or invalid %s card", ErrTranslation, CardInstrument)
	}
	exposure, ok := h.Int64(CardExposureID)
	if !ok {
		return nil, fmt.Errorf("%w: missing or invalid %s card", ErrTranslation, CardExposureID)
	}
	detector, ok := h.Int64(CardDetector)
	if !ok {
		return nil, fmt.Errorf("%w: missing or invalid %s card", ErrTranslation, CardDetector)
	}

	info := &ObservationInfo{
		Instrument:  instrument,
		ExposureID:  exposure,
		DetectorNum: int(detector),
	}

	if visit, ok := h.Int64(CardVisit); ok {
		info.VisitID = &visit
	} else if h.Has(CardVisit) {
		return nil, fmt.Errorf("%w: invalid %s card", ErrTranslation, CardVisit)
	}
	if filter, ok := h.String(CardFilter); ok && filter != "" {
		info.PhysicalFilter = &filter
	}
	if dateObs, ok := h.String(CardDateObs); ok {
		info.DateObs = dateObs
	}
	if expTime, ok := h.Float64(CardExpTime); ok {
		info.ExposureTimeSec = expTime
	}
	return info, nil
}
