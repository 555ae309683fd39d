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

package uart

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	nci "github.com/ZaparooProject/go-nci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// pipePort feeds reads from a pipe and records writes
type pipePort struct {
	r       *io.PipeReader
	w       *io.PipeWriter
	written bytes.Buffer
	mu      sync.Mutex
}

func newPipePort() *pipePort {
	r, w := io.Pipe()
	return &pipePort{r: r, w: w}
}

func (p *pipePort) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if err != nil {
		return n, io.EOF
	}
	return n, nil
}

func (p *pipePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *pipePort) Close() error {
	return p.r.Close()
}

func (*pipePort) SetReadTimeout(time.Duration) error {
	return nil
}

func (p *pipePort) sent() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.written.Bytes())
}

// feed blocks until the reader has consumed data
func (p *pipePort) feed(t *testing.T, data []byte) {
	t.Helper()
	_, err := p.w.Write(data)
	require.NoError(t, err)
}

func TestTransportCreation(t *testing.T) {
	t.Parallel()

	p := newPipePort()
	tr, err := newTransport(p, "/dev/ttyUSB0")
	require.NoError(t, err)
	defer func() { require.NoError(t, tr.Close()) }()

	assert.Equal(t, "/dev/ttyUSB0", tr.portName)
	assert.Equal(t, nci.TransportUART, tr.Type())
	assert.True(t, tr.IsConnected())

	ready, err := tr.Ready()
	require.NoError(t, err)
	assert.False(t, ready)
}

func TestUninitializedTransport(t *testing.T) {
	t.Parallel()

	tr := &Transport{portName: "/dev/ttyUSB0"}
	assert.False(t, tr.IsConnected())
	require.NoError(t, tr.Close())
	require.ErrorIs(t, tr.Transmit([]byte{0x20, 0x00, 0x00}), nci.ErrTransportClosed)
}

func TestTransmit(t *testing.T) {
	t.Parallel()

	p := newPipePort()
	tr, err := newTransport(p, "/dev/ttyUSB0")
	require.NoError(t, err)
	defer func() { require.NoError(t, tr.Close()) }()

	require.NoError(t, tr.Transmit([]byte{0x20, 0x00, 0x01, 0x01}))
	assert.Equal(t, []byte{0x20, 0x00, 0x01, 0x01}, p.sent())
}

func TestReceiveBuffersAcrossChunks(t *testing.T) {
	t.Parallel()

	p := newPipePort()
	tr, err := newTransport(p, "/dev/ttyUSB0")
	require.NoError(t, err)
	defer func() { require.NoError(t, tr.Close()) }()

	p.feed(t, []byte{0x40, 0x00})
	p.feed(t, []byte{0x01, 0x00})

	require.Eventually(t, func() bool {
		ready, readyErr := tr.Ready()
		return readyErr == nil && ready
	}, time.Second, time.Millisecond)

	hdr := make([]byte, 3)
	require.NoError(t, tr.Receive(hdr))
	assert.Equal(t, []byte{0x40, 0x00, 0x01}, hdr)

	payload := make([]byte, 1)
	require.NoError(t, tr.Receive(payload))
	assert.Equal(t, []byte{0x00}, payload)
}

func TestReceiveWaitsForRemainder(t *testing.T) {
	t.Parallel()

	p := newPipePort()
	tr, err := newTransport(p, "/dev/ttyUSB0", WithReadTimeout(time.Second))
	require.NoError(t, err)
	defer func() { require.NoError(t, tr.Close()) }()

	go func() {
		_, _ = p.w.Write([]byte{0x60, 0x07})
		time.Sleep(10 * time.Millisecond)
		_, _ = p.w.Write([]byte{0x01, 0xE0})
	}()

	buf := make([]byte, 4)
	require.NoError(t, tr.Receive(buf))
	assert.Equal(t, []byte{0x60, 0x07, 0x01, 0xE0}, buf)
}

func TestReceiveTimeout(t *testing.T) {
	t.Parallel()

	p := newPipePort()
	tr, err := newTransport(p, "/dev/ttyUSB0", WithReadTimeout(20*time.Millisecond))
	require.NoError(t, err)
	defer func() { require.NoError(t, tr.Close()) }()

	err = tr.Receive(make([]byte, 3))
	require.ErrorIs(t, err, nci.ErrTimeout)
	assert.True(t, nci.IsTimeout(err))
}

func TestReceiveAfterPortEOF(t *testing.T) {
	t.Parallel()

	p := newPipePort()
	tr, err := newTransport(p, "/dev/ttyUSB0")
	require.NoError(t, err)
	defer func() { require.NoError(t, tr.Close()) }()

	require.NoError(t, p.w.Close())

	require.Eventually(t, func() bool {
		_, readyErr := tr.Ready()
		return readyErr != nil
	}, time.Second, time.Millisecond)
	require.ErrorIs(t, tr.Receive(make([]byte, 3)), nci.ErrTransportClosed)
}

func TestCloseStopsReader(t *testing.T) {
	t.Parallel()

	p := newPipePort()
	tr, err := newTransport(p, "/dev/ttyUSB0")
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.False(t, tr.IsConnected())
	require.ErrorIs(t, tr.Receive(make([]byte, 3)), nci.ErrTransportClosed)
}

func TestOptionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opt  Option
	}{
		{name: "zero baud", opt: WithBaudRate(0)},
		{name: "negative timeout", opt: WithReadTimeout(-time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := newTransport(newPipePort(), "/dev/ttyUSB0", tt.opt)
			require.ErrorIs(t, err, nci.ErrInvalidParameter)
		})
	}
}
