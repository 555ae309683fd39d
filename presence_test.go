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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/ZaparooProject/go-nci/internal/testing"
)

func isCmd(frm []byte, gid, oid byte) bool {
	return bytes.HasPrefix(frm, testutil.CmdPrefix(gid, oid))
}

func TestCheckPresenceUntilRemoved(t *testing.T) {
	t.Parallel()

	sensf := []byte{0x01, 0x01, 0x2E, 0x3D, 0x4C, 0x5B, 0x6A, 0x79, 0x88, 0x00, 0xF1, 0x00, 0x00, 0x00, 0x01, 0x43, 0x00, 0x88}
	nfcf := testutil.Activation(0x01, 0x03, 0x02, append([]byte{0x01, byte(len(sensf))}, sensf...), nil)
	mifare := testutil.NFCAActivation(0x80, 0x80, testutil.TestMIFAREUID, 0x08, nil)

	tests := []struct {
		// handler answers probe n (0-based); present for the first two probes
		handler    func(frm []byte, n int) [][]byte
		name       string
		activation []byte
	}{
		{
			name:       "T1T",
			activation: testutil.NFCAActivation(0x01, 0x01, []byte{0x11, 0x22, 0x33, 0x44}, 0x00, nil),
			handler: func(frm []byte, n int) [][]byte {
				if !bytes.Equal(frm, testutil.Data(0, 0x78, 0, 0, 0, 0, 0, 0)) || n >= 2 {
					return nil
				}
				return [][]byte{testutil.Data(0, 0x11, 0x48, 0x11, 0x22, 0x33, 0x44, 0x00)}
			},
		},
		{
			name:       "T2T",
			activation: t2tActivation(),
			handler: func(frm []byte, n int) [][]byte {
				if !bytes.Equal(frm, testutil.Data(0, 0x30, 0x00)) {
					return nil
				}
				if n >= 2 {
					return [][]byte{testutil.Ntf(gidCore, 0x08, 0xB2, 0x00)}
				}
				return [][]byte{testutil.Data(0, make([]byte, 17)...)}
			},
		},
		{
			name:       "T3T",
			activation: nfcf,
			handler: func(frm []byte, n int) [][]byte {
				if !bytes.Equal(frm, testutil.Cmd(gidRF, 0x08, 0xFF, 0xFF, 0x01, 0x01)) {
					return nil
				}
				if n >= 2 {
					return [][]byte{testutil.OK(gidRF, 0x08), testutil.Ntf(gidRF, 0x08, 0xB2, 0x00)}
				}
				return [][]byte{testutil.OK(gidRF, 0x08), testutil.Ntf(gidRF, 0x08, 0x00, 0x01, 0x12)}
			},
		},
		{
			name:       "ISO-DEP",
			activation: isoDEPActivation(),
			handler: func(frm []byte, n int) [][]byte {
				if !bytes.Equal(frm, testutil.Cmd(gidProp, 0x11)) {
					return nil
				}
				if n >= 2 {
					return [][]byte{testutil.OK(gidProp, 0x11), testutil.Ntf(gidProp, 0x11, 0x00)}
				}
				return [][]byte{testutil.OK(gidProp, 0x11), testutil.Ntf(gidProp, 0x11, 0x01)}
			},
		},
		{
			name:       "T5T",
			activation: testutil.NFCVActivation(testutil.TestISO15693ID),
			handler: func(frm []byte, n int) [][]byte {
				want := testutil.Data(0, 0x26, 0x01, 0x40, 0x78, 0x56, 0x34, 0x12, 0x50, 0x01, 0x04, 0xE0)
				if !bytes.Equal(frm, want) {
					return nil
				}
				if n >= 2 {
					return [][]byte{testutil.Data(0, 0x00, 0x00)}
				}
				return [][]byte{testutil.Data(0, 0x00, 0x00, 0x78, 0x56, 0x34, 0x12, 0x50, 0x01, 0x04, 0xE0, 0x01)}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := testutil.NewVirtualController()
			s := newTestSession(t, c)
			activate(t, c, s, tt.activation)

			probes := 0
			c.SetHandler(func(frm []byte) [][]byte {
				replies := tt.handler(frm, probes)
				probes++
				return replies
			})

			require.NoError(t, s.CheckPresence(context.Background()))
			assert.Equal(t, 3, probes)
			assert.Nil(t, s.Target())
			assert.Equal(t, StateDeactivated, s.State())
			require.NoError(t, c.Verify())
		})
	}

	t.Run("MIFARE", func(t *testing.T) {
		t.Parallel()
		c := testutil.NewVirtualController()
		s := newTestSession(t, c)
		activate(t, c, s, mifare)

		selects := 0
		c.SetHandler(func(frm []byte) [][]byte {
			switch {
			case bytes.Equal(frm, testutil.Cmd(gidRF, 0x06, 0x01)):
				return [][]byte{testutil.OK(gidRF, 0x06), testutil.Ntf(gidRF, 0x06, 0x01, 0x00)}
			case bytes.Equal(frm, testutil.Cmd(gidRF, 0x04, 0x01, 0x80, 0x80)):
				selects++
				if selects > 2 {
					return [][]byte{testutil.OK(gidRF, 0x04)}
				}
				return [][]byte{testutil.OK(gidRF, 0x04), mifare}
			default:
				return nil
			}
		})

		require.NoError(t, s.CheckPresence(context.Background()))
		assert.Equal(t, 3, selects)
		assert.Nil(t, s.Target())
		require.NoError(t, c.Verify())
	})
}

func TestCheckPresenceMaxChecks(t *testing.T) {
	t.Parallel()

	c := testutil.NewVirtualController()
	s := newTestSession(t, c, WithMaxPresenceChecks(3))
	activate(t, c, s, t2tActivation())

	tag := testutil.NewVirtualNTAG213(nil)
	c.SetHandler(tag.Handle)

	err := s.CheckPresence(context.Background())
	require.ErrorIs(t, err, ErrTargetStillPresent)
	assert.Len(t, c.Sent(), 4) // discover + three reads
	assert.Equal(t, StateActivated, s.State())
}

func TestCheckPresenceCancelled(t *testing.T) {
	t.Parallel()

	c := testutil.NewVirtualController()
	s := newTestSession(t, c)
	activate(t, c, s, t2tActivation())
	c.SetHandler(testutil.NewVirtualNTAG213(nil).Handle)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := s.CheckPresence(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateActivated, s.State())
}

func TestCheckPresenceErrors(t *testing.T) {
	t.Parallel()

	t.Run("not activated", func(t *testing.T) {
		t.Parallel()
		s := newTestSession(t, testutil.NewVirtualController())
		require.ErrorIs(t, s.CheckPresence(context.Background()), ErrNotActivated)
		_, err := s.ProbePresence(context.Background())
		require.ErrorIs(t, err, ErrNotActivated)
	})

	t.Run("unsupported protocol", func(t *testing.T) {
		t.Parallel()
		c := testutil.NewVirtualController()
		s := newTestSession(t, c)
		activate(t, c, s, testutil.NFCAActivation(0x03, 0x05, []byte{0x01, 0x02, 0x03, 0x04}, 0x40, nil))
		require.ErrorIs(t, s.CheckPresence(context.Background()), ErrUnsupportedProtocol)
	})

	t.Run("transport failure propagates", func(t *testing.T) {
		t.Parallel()
		c := testutil.NewVirtualController()
		s := newTestSession(t, c)
		activate(t, c, s, t2tActivation())
		c.ExpectError(testutil.DataPrefix(0), errors.New("spi fault")).
			ExpectError(testutil.DataPrefix(0), errors.New("spi fault"))

		err := s.CheckPresence(context.Background())
		require.ErrorIs(t, err, ErrTransportWrite)
	})
}

func TestProbePresence(t *testing.T) {
	t.Parallel()

	c := testutil.NewVirtualController()
	s := newTestSession(t, c)
	activate(t, c, s, t2tActivation())
	tag := testutil.NewVirtualNTAG213(nil)
	c.SetHandler(tag.Handle)

	present, err := s.ProbePresence(context.Background())
	require.NoError(t, err)
	assert.True(t, present)

	tag.Remove()
	present, err = s.ProbePresence(context.Background())
	require.NoError(t, err)
	assert.False(t, present)
	assert.Equal(t, StateActivated, s.State(), "a single probe does not discard the target")
}

func TestProbePresenceMIFARERemoved(t *testing.T) {
	t.Parallel()

	c := testutil.NewVirtualController()
	s := newTestSession(t, c)
	activate(t, c, s, testutil.NFCAActivation(0x80, 0x80, testutil.TestMIFAREUID, 0x08, nil))

	c.SetHandler(func(frm []byte) [][]byte {
		switch {
		case bytes.Equal(frm, testutil.Cmd(gidRF, 0x06, 0x01)):
			return [][]byte{testutil.OK(gidRF, 0x06), testutil.Ntf(gidRF, 0x06, 0x01, 0x00)}
		case bytes.Equal(frm, testutil.Cmd(gidRF, 0x04, 0x01, 0x80, 0x80)):
			// reselect accepted but no activation follows
			return [][]byte{testutil.OK(gidRF, 0x04)}
		default:
			return nil
		}
	})

	var present bool
	var err error
	require.NotPanics(t, func() {
		present, err = s.ProbePresence(context.Background())
	})
	require.NoError(t, err)
	assert.False(t, present)
	assert.Nil(t, s.Target())
	assert.Equal(t, StateDeactivated, s.State())
}
