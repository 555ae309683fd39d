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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	full := bytes.Repeat([]byte{0xA5}, 255)
	tests := []struct {
		pkt  Packet
		name string
	}{
		{name: "core reset command", pkt: Command(GroupCore, OpCoreReset, 0x01)},
		{name: "empty command", pkt: Command(GroupProprietary, OpPropAct)},
		{
			name: "response",
			pkt:  &ControlPacket{Type: MessageTypeResponse, GID: GroupRF, OID: OpRFDiscover, Payload: []byte{0x00}},
		},
		{
			name: "segmented notification",
			pkt: &ControlPacket{
				Type: MessageTypeNotification, GID: GroupRF, OID: OpRFIntfActivated,
				Segmented: true, Payload: full,
			},
		},
		{name: "data packet", pkt: &DataPacket{ConnID: 0, Payload: []byte{0x30, 0x00}}},
		{name: "data packet max connection", pkt: &DataPacket{ConnID: 15, Payload: full}},
		{name: "empty data packet", pkt: &DataPacket{ConnID: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			frm, err := Encode(tt.pkt)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(frm), 258)

			got, err := Decode(frm)
			require.NoError(t, err)
			assert.Equal(t, tt.pkt, got)
		})
	}
}

func TestEncodeWireFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pkt  Packet
		name string
		want []byte
	}{
		{
			name: "discover select",
			pkt:  Command(GroupRF, OpRFDiscoverSelect, 0x01, byte(ProtocolMIFARE), byte(InterfaceTagCmd)),
			want: []byte{0x21, 0x04, 0x03, 0x01, 0x80, 0x80},
		},
		{
			name: "core reset",
			pkt:  Command(GroupCore, OpCoreReset, coreResetKeepConfig),
			want: []byte{0x20, 0x00, 0x01, 0x01},
		},
		{
			name: "proprietary presence check",
			pkt:  Command(GroupProprietary, OpPropISODEPPresence),
			want: []byte{0x2F, 0x11, 0x00},
		},
		{
			name: "segmented response",
			pkt:  &ControlPacket{Type: MessageTypeResponse, GID: GroupCore, OID: OpCoreInit, Segmented: true},
			want: []byte{0x50, 0x01, 0x00},
		},
		{
			name: "data",
			pkt:  &DataPacket{ConnID: 2, Payload: []byte{0x30, 0x04}},
			want: []byte{0x02, 0x00, 0x02, 0x30, 0x04},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Encode(tt.pkt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 256)
	for _, pkt := range []Packet{
		Command(GroupCore, OpCoreSetConfig, payload...),
		&DataPacket{Payload: payload},
	} {
		frm, err := Encode(pkt)
		require.ErrorIs(t, err, ErrFrameTooLarge)
		assert.Nil(t, frm)
	}
}

func TestEncodeRejectsInvalidPackets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pkt     Packet
		wantErr error
		name    string
	}{
		{name: "nil", pkt: nil, wantErr: ErrInvalidParameter},
		{name: "undefined opcode", pkt: Command(GroupCore, 0x3F), wantErr: ErrUnknownMessage},
		{
			name:    "notification only message sent as command",
			pkt:     Command(GroupRF, OpRFIntfActivated),
			wantErr: ErrUnknownMessage,
		},
		{
			name:    "data type on control packet",
			pkt:     &ControlPacket{Type: MessageTypeData, GID: GroupCore, OID: OpCoreReset},
			wantErr: ErrUnknownMessage,
		},
		{name: "connection id too large", pkt: &DataPacket{ConnID: 16}, wantErr: ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Encode(tt.pkt)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		frame   []byte
	}{
		{name: "short header", frame: []byte{0x40, 0x00}, wantErr: ErrDecode},
		{name: "length larger than frame", frame: []byte{0x40, 0x00, 0x02, 0x00}, wantErr: ErrDecode},
		{name: "length smaller than frame", frame: []byte{0x40, 0x00, 0x00, 0x00}, wantErr: ErrDecode},
		{name: "data RFU byte set", frame: []byte{0x00, 0x01, 0x00}, wantErr: ErrDecode},
		{name: "data reserved bits set", frame: []byte{0x10, 0x00, 0x00}, wantErr: ErrDecode},
		{name: "opcode reserved bits set", frame: []byte{0x40, 0x40, 0x00}, wantErr: ErrDecode},
		{name: "undefined group", frame: []byte{0x45, 0x00, 0x00}, wantErr: ErrUnknownMessage},
		{name: "init has no notification", frame: []byte{0x60, 0x01, 0x00}, wantErr: ErrUnknownMessage},
		{name: "reserved message type", frame: []byte{0x80, 0x00, 0x00}, wantErr: ErrUnknownMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pkt, err := Decode(tt.frame)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, pkt)
		})
	}
}

func TestDecodeDoesNotAliasInput(t *testing.T) {
	t.Parallel()

	frm := []byte{0x00, 0x00, 0x02, 0xAA, 0xBB}
	pkt, err := Decode(frm)
	require.NoError(t, err)
	frm[3] = 0x00

	data, ok := pkt.(*DataPacket)
	require.True(t, ok)
	assert.Equal(t, []byte{0xAA, 0xBB}, data.Payload)
}

func TestDecodeEmptyPayloadIsNil(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pkt  Packet
		want Packet
		name string
	}{
		{
			name: "command",
			pkt:  &ControlPacket{Type: MessageTypeCommand, GID: GroupCore, OID: OpCoreReset, Payload: []byte{}},
			want: &ControlPacket{Type: MessageTypeCommand, GID: GroupCore, OID: OpCoreReset},
		},
		{
			name: "data",
			pkt:  &DataPacket{ConnID: 2, Payload: []byte{}},
			want: &DataPacket{ConnID: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			frm, err := Encode(tt.pkt)
			require.NoError(t, err)

			got, err := Decode(frm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := Encode(got)
			require.NoError(t, err)
			assert.Equal(t, frm, again)
		})
	}
}

func TestControlPacketStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StatusOK, (&ControlPacket{Payload: []byte{0x00, 0x01}}).Status())
	assert.Equal(t, StatusSemanticError, (&ControlPacket{Payload: []byte{0x06}}).Status())
	assert.Equal(t, StatusSyntaxError, (&ControlPacket{}).Status())
}

func TestInterfaceFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		protocol RFProtocol
		want     RFInterface
	}{
		{ProtocolMIFARE, InterfaceTagCmd},
		{ProtocolISODEP, InterfaceISODEP},
		{ProtocolNFCDEP, InterfaceNFCDEP},
		{ProtocolT1T, InterfaceFrame},
		{ProtocolT2T, InterfaceFrame},
		{ProtocolT3T, InterfaceFrame},
		{ProtocolT5T, InterfaceFrame},
		{ProtocolUndetermined, InterfaceFrame},
		{RFProtocol(0x7F), InterfaceFrame},
	}

	for _, tt := range tests {
		t.Run(tt.protocol.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, InterfaceFor(tt.protocol))
		})
	}
}
