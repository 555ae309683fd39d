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
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/ZaparooProject/go-nci/internal/testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, 100*time.Millisecond, cfg.PollTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.PresenceInterval)
	assert.Equal(t, NCIVersion20, cfg.ExpectedVersion)
	assert.Equal(t, 1, cfg.RetryConfig.MaxRetries)
	assert.Equal(t, []ModeTech{
		ModeTechPassiveNFCA, ModeTechPassiveNFCB, ModeTechPassiveNFCF, ModeTechPassiveISO15693,
	}, cfg.Technologies)
	assert.Len(t, cfg.Parameters, 5)
	assert.Zero(t, cfg.MaxPresenceChecks)
}

func TestOptionsValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		opt  Option
		name string
	}{
		{name: "zero timeout", opt: WithTimeout(0)},
		{name: "negative poll timeout", opt: WithPollTimeout(-time.Second)},
		{name: "nil retry config", opt: WithRetryConfig(nil)},
		{name: "negative retry delay", opt: WithRetryDelay(-1)},
		{name: "zero ready interval", opt: WithReadyPollInterval(0)},
		{name: "negative presence interval", opt: WithPresenceInterval(-1)},
		{name: "negative max checks", opt: WithMaxPresenceChecks(-1)},
		{name: "no technologies", opt: WithTechnologies()},
		{name: "empty parameter set", opt: WithParameters(ParameterSet{})},
		{name: "nil logger", opt: WithLogger(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(NewVirtualTransport(testutil.NewVirtualController()), tt.opt)
			require.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestWithRetryDelayDoesNotShareDefaults(t *testing.T) {
	t.Parallel()

	s, err := New(NewVirtualTransport(testutil.NewVirtualController()), WithRetryDelay(50*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, s.config.RetryConfig.RetryDelay)
	assert.Equal(t, 10*time.Millisecond, DefaultRetryConfig().RetryDelay)
}

func TestEncodeParameterSet(t *testing.T) {
	t.Parallel()

	payload, err := encodeParameterSet(ParameterSet{
		{ID: ParamTotalDuration, Value: []byte{0xFE, 0x01}},
		{ID: ParamClockSelect, Value: []byte{0x08}},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x00, 0x02, 0xFE, 0x01, 0xA0, 0x03, 0x01, 0x08}, payload)

	_, err = encodeParameterSet(ParameterSet{{ID: 0x01, Value: make([]byte, 256)}})
	require.ErrorIs(t, err, ErrInvalidParameter)

	big := ParameterSet{{ID: 0xA00D, Value: bytes.Repeat([]byte{0x01}, 200)}, {ID: 0xA00D, Value: bytes.Repeat([]byte{0x01}, 60)}}
	_, err = encodeParameterSet(big)
	require.ErrorIs(t, err, ErrFrameTooLarge)
}
