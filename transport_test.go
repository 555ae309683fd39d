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

package nci

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/ZaparooProject/go-nci/internal/testing"
)

// TestTransportWithRetry_NewTransportWithRetry tests the creation of TransportWithRetry wrapper
func TestTransportWithRetry_NewTransportWithRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		config   *RetryConfig
		expected *RetryConfig
		name     string
	}{
		{
			name:     "Default config when nil provided",
			config:   nil,
			expected: DefaultRetryConfig(),
		},
		{
			name:     "Custom config preserved",
			config:   &RetryConfig{MaxRetries: 3, RetryDelay: time.Microsecond},
			expected: &RetryConfig{MaxRetries: 3, RetryDelay: time.Microsecond},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mockTransport := NewVirtualTransport(testutil.NewVirtualController())
			wrapper := NewTransportWithRetry(mockTransport, tt.config)

			assert.NotNil(t, wrapper)
			assert.Equal(t, Transport(mockTransport), wrapper.Unwrap())
			assert.Equal(t, tt.expected, wrapper.config)
		})
	}
}

// TestTransportWithRetry_Transmit tests the retry logic in Transmit
func TestTransportWithRetry_Transmit(t *testing.T) {
	t.Parallel()

	frm := testutil.Cmd(gidCore, 0x01, 0x00, 0x00)
	fault := errors.New("bus fault")

	tests := []struct {
		setup     func(*testutil.VirtualController)
		config    *RetryConfig
		name      string
		wantSent  int
		wantError bool
	}{
		{
			name:     "first attempt succeeds",
			setup:    func(c *testutil.VirtualController) { c.Expect(frm) },
			config:   &RetryConfig{MaxRetries: 1, RetryDelay: time.Microsecond},
			wantSent: 1,
		},
		{
			name: "second attempt succeeds",
			setup: func(c *testutil.VirtualController) {
				c.ExpectError(frm, fault).Expect(frm)
			},
			config:   &RetryConfig{MaxRetries: 1, RetryDelay: time.Microsecond},
			wantSent: 1,
		},
		{
			name: "retries exhausted",
			setup: func(c *testutil.VirtualController) {
				c.ExpectError(frm, fault).ExpectError(frm, fault)
			},
			config:    &RetryConfig{MaxRetries: 1, RetryDelay: time.Microsecond},
			wantError: true,
		},
		{
			name:      "no retries configured",
			setup:     func(c *testutil.VirtualController) { c.ExpectError(frm, fault).Expect(frm) },
			config:    &RetryConfig{MaxRetries: 0},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := testutil.NewVirtualController()
			tt.setup(c)
			wrapper := NewTransportWithRetry(NewVirtualTransport(c), tt.config)

			err := wrapper.Transmit(frm)
			if tt.wantError {
				require.ErrorIs(t, err, ErrTransportWrite)
				require.ErrorIs(t, err, fault)
				assert.True(t, IsRetryable(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, c.Sent(), tt.wantSent)
		})
	}
}

// TestTransportWithRetry_SetRetryConfig tests dynamic retry configuration
func TestTransportWithRetry_SetRetryConfig(t *testing.T) {
	t.Parallel()

	wrapper := NewTransportWithRetry(NewVirtualTransport(testutil.NewVirtualController()), DefaultRetryConfig())
	initialConfig := wrapper.config

	newConfig := &RetryConfig{MaxRetries: 4, RetryDelay: time.Millisecond}
	wrapper.SetRetryConfig(newConfig)
	assert.Equal(t, newConfig, wrapper.config)
	assert.NotEqual(t, initialConfig, wrapper.config)

	wrapper.SetRetryConfig(nil)
	assert.Equal(t, newConfig, wrapper.config)
}

// TestTransportWithRetry_Close tests resource cleanup
func TestTransportWithRetry_Close(t *testing.T) {
	t.Parallel()

	wrapper := NewTransportWithRetry(NewVirtualTransport(testutil.NewVirtualController()), DefaultRetryConfig())
	assert.True(t, wrapper.IsConnected())
	assert.Equal(t, TransportMock, wrapper.Type())

	require.NoError(t, wrapper.Close())
	assert.False(t, wrapper.IsConnected())
}
