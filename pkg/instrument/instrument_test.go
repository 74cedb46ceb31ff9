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

package instrument

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register("TestCam", func() Instrument {
		return Simple{InstrumentName: "TestCam", Formatter: "RawExposureFormatter"}
	})

	inst, err := reg.Lookup("TestCam")
	require.NoError(t, err)
	assert.Equal(t, "TestCam", inst.Name())
	assert.Equal(t, "RawExposureFormatter", inst.RawFormatter(3))

	_, err = reg.Lookup("Unknown")
	assert.Error(t, err)
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Zeta", func() Instrument { return Simple{InstrumentName: "Zeta"} })
	reg.Register("Alpha", func() Instrument { return Simple{InstrumentName: "Alpha"} })

	assert.Equal(t, []string{"Alpha", "Zeta"}, reg.Names())
}
