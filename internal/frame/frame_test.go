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

package frame

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sliceReader(data []byte) func([]byte) error {
	off := 0
	return func(p []byte) error {
		if off+len(p) > len(data) {
			return errors.New("short read")
		}
		copy(p, data[off:off+len(p)])
		off += len(p)
		return nil
	}
}

func TestControlHeader(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mt     byte
		gid    byte
		oid    byte
		pbf    bool
		wantB0 byte
		wantB1 byte
	}{
		{name: "core reset command", mt: MessageTypeCommand, gid: 0x00, oid: 0x00, wantB0: 0x20, wantB1: 0x00},
		{name: "rf discover response", mt: MessageTypeResponse, gid: 0x01, oid: 0x03, wantB0: 0x41, wantB1: 0x03},
		{name: "proprietary notification", mt: MessageTypeNotification, gid: 0x0F, oid: 0x11, wantB0: 0x6F, wantB1: 0x11},
		{name: "segmented command", mt: MessageTypeCommand, gid: 0x00, oid: 0x02, pbf: true, wantB0: 0x30, wantB1: 0x02},
		{name: "oid masked to 6 bits", mt: MessageTypeCommand, gid: 0x01, oid: 0xC4, wantB0: 0x21, wantB1: 0x04},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b0, b1 := ControlHeader(tt.mt, tt.gid, tt.oid, tt.pbf)
			assert.Equal(t, tt.wantB0, b0)
			assert.Equal(t, tt.wantB1, b1)
			assert.Equal(t, tt.mt, MessageType(b0))
		})
	}
}

func TestBuildRejectsOversizedPayload(t *testing.T) {
	t.Parallel()
	buf := make([]byte, MaxFrameSize+10)

	_, err := Build(buf, 0x00, 0x00, make([]byte, MaxPayloadLength+1))
	require.ErrorIs(t, err, ErrTooLarge)

	frm, err := Build(buf, 0x00, 0x00, make([]byte, MaxPayloadLength))
	require.NoError(t, err)
	assert.Len(t, frm, MaxFrameSize)
	assert.Equal(t, byte(MaxPayloadLength), frm[2])
}

func TestReadFrame(t *testing.T) {
	t.Parallel()

	t.Run("header then payload", func(t *testing.T) {
		t.Parallel()
		buf := make([]byte, MaxFrameSize)
		frm, err := ReadFrame(sliceReader([]byte{0x40, 0x00, 0x01, 0x00, 0xEE}), buf)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x40, 0x00, 0x01, 0x00}, frm)
	})

	t.Run("empty payload", func(t *testing.T) {
		t.Parallel()
		buf := make([]byte, MaxFrameSize)
		frm, err := ReadFrame(sliceReader([]byte{0x4F, 0x02, 0x00}), buf)
		require.NoError(t, err)
		assert.Len(t, frm, HeaderSize)
	})

	t.Run("declared length overflows buffer", func(t *testing.T) {
		t.Parallel()
		reads := 0
		read := func(p []byte) error {
			reads++
			copy(p, []byte{0x00, 0x00, 0x20})
			return nil
		}
		_, err := ReadFrame(read, make([]byte, 16))
		require.ErrorIs(t, err, ErrTooLarge)
		assert.Equal(t, 1, reads, "payload must not be read")
	})

	t.Run("short payload read", func(t *testing.T) {
		t.Parallel()
		buf := make([]byte, MaxFrameSize)
		_, err := ReadFrame(sliceReader([]byte{0x00, 0x00, 0x05, 0x01}), buf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read payload")
	})
}

func TestBufferPool(t *testing.T) {
	t.Parallel()
	buf := GetBuffer(10)
	assert.Len(t, buf, 10)
	buf[0] = 0xAA
	PutBuffer(buf)

	again := GetBuffer(10)
	assert.Equal(t, byte(0x00), again[0])
	PutBuffer(again)

	big := GetBuffer(MaxFrameSize * 2)
	assert.Len(t, big, MaxFrameSize*2)
}
