// go-nci
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nci.
//
// go-nci is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nci is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nci; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		expected    bool
	}{
		{name: "nil ignore list", devicePath: "/dev/ttyACM0", ignorePaths: nil, expected: false},
		{name: "empty device path", devicePath: "", ignorePaths: []string{"/dev/ttyACM0"}, expected: false},
		{name: "uart exact match", devicePath: "/dev/ttyACM0", ignorePaths: []string{"/dev/ttyACM0"}, expected: true},
		{name: "windows port case", devicePath: "com4", ignorePaths: []string{"COM4"}, expected: true},
		{name: "kernel node", devicePath: "/dev/nxpnfc", ignorePaths: []string{"/dev/pn544", "/dev/nxpnfc"}, expected: true},
		{name: "kernel node not listed", devicePath: "/dev/pn5xx_i2c", ignorePaths: []string{"/dev/nxpnfc"}, expected: false},
		{name: "i2c bus and address", devicePath: "/dev/i2c-1:0x28", ignorePaths: []string{"/dev/i2c-1:0x28"}, expected: true},
		{name: "i2c other address", devicePath: "/dev/i2c-1:0x29", ignorePaths: []string{"/dev/i2c-1:0x28"}, expected: false},
		{name: "relative components", devicePath: "/dev/../dev/spidev0.0", ignorePaths: []string{"/dev/spidev0.0"}, expected: true},
		{name: "blank entries skipped", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"", "/dev/ttyUSB0"}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}

func TestDefaultOptionsIgnoreNothing(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	assert.Nil(t, opts.IgnorePaths)
	assert.Equal(t, DefaultBlocklist(), opts.Blocklist)
}
