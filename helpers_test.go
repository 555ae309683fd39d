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
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	testutil "github.com/ZaparooProject/go-nci/internal/testing"
)

const (
	gidCore = testutil.GIDCore
	gidRF   = testutil.GIDRF
	gidProp = testutil.GIDProprietary
)

func newTestSession(t *testing.T, c *testutil.VirtualController, opts ...Option) *Session {
	t.Helper()
	base := []Option{
		WithTimeout(100 * time.Millisecond),
		WithPollTimeout(30 * time.Millisecond),
		WithRetryDelay(time.Millisecond),
		WithPresenceInterval(time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	s, err := New(NewVirtualTransport(c), append(base, opts...)...)
	require.NoError(t, err)
	return s
}

// activate runs discovery until the given activation notification arrives
func activate(t *testing.T, c *testutil.VirtualController, s *Session, activation []byte) *RemoteTarget {
	t.Helper()
	c.Expect(testutil.CmdPrefix(gidRF, 0x03), testutil.OK(gidRF, 0x03))
	require.NoError(t, s.StartDiscovery(context.Background()))

	c.Inject(activation)
	target, err := s.WaitForTarget(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateActivated, s.State())
	return target
}

func t2tActivation() []byte {
	return testutil.NFCAActivation(0x01, 0x02, testutil.TestNTAG213UID, 0x00, nil)
}

func isoDEPActivation() []byte {
	return testutil.NFCAActivation(0x02, 0x04, testutil.TestISODEPUID, 0x20, []byte{0x05, 0x78, 0x80, 0x70, 0x02})
}
