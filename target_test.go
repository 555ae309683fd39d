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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/ZaparooProject/go-nci/internal/testing"
)

func TestParseTechInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want    TechInfo
		name    string
		params  []byte
		act     []byte
		mode    ModeTech
		wantUID []byte
	}{
		{
			name:    "NFC-A",
			mode:    ModeTechPassiveNFCA,
			params:  testutil.NFCAParams([]byte{0x04, 0xA1, 0xB2, 0xC3}, 0x08),
			want:    NFCAInfo{SensRes: [2]byte{0x44, 0x00}, NFCID: []byte{0x04, 0xA1, 0xB2, 0xC3}, SelRes: []byte{0x08}},
			wantUID: []byte{0x04, 0xA1, 0xB2, 0xC3},
		},
		{
			name:   "NFC-A with RATS",
			mode:   ModeTechPassiveNFCA,
			params: testutil.NFCAParams([]byte{0x08, 0x01, 0x02, 0x03}, 0x20),
			act:    []byte{0x03, 0x05, 0x78, 0x80},
			want: NFCAInfo{
				SensRes: [2]byte{0x44, 0x00}, NFCID: []byte{0x08, 0x01, 0x02, 0x03},
				SelRes: []byte{0x20}, RATS: []byte{0x05, 0x78, 0x80},
			},
			wantUID: []byte{0x08, 0x01, 0x02, 0x03},
		},
		{
			name:    "NFC-B",
			mode:    ModeTechPassiveNFCB,
			params:  []byte{0x0B, 0x50, 0x11, 0x22, 0x33, 0x44, 0x00, 0x00, 0x00, 0x00, 0x81, 0x71},
			act:     []byte{0x01, 0x00},
			want:    NFCBInfo{SensRes: []byte{0x50, 0x11, 0x22, 0x33, 0x44, 0x00, 0x00, 0x00, 0x00, 0x81, 0x71}, AttribRes: []byte{0x00}},
			wantUID: []byte{0x11, 0x22, 0x33, 0x44},
		},
		{
			name:    "NFC-F",
			mode:    ModeTechPassiveNFCF,
			params:  []byte{0x01, 0x09, 0x01, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
			want:    NFCFInfo{Bitrate: 0x01, SensRes: []byte{0x01, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}},
			wantUID: []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		},
		{
			name:    "ISO15693",
			mode:    ModeTechPassiveISO15693,
			params:  testutil.NFCVParams(testutil.TestISO15693ID),
			want:    NFCVInfo{ID: testutil.TestISO15693ID},
			wantUID: testutil.TestISO15693ID[:],
		},
		{
			name:   "listen mode kept raw",
			mode:   ModeTechPassiveNFCA | ModeTechListenFlag,
			params: []byte{0x01},
			want:   RawTechInfo{Mode: ModeTechPassiveNFCA | ModeTechListenFlag, Params: []byte{0x01}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			info, err := parseTechInfo(tt.mode, tt.params, tt.act)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info)
			assert.Equal(t, tt.mode, info.ModeTech())

			target := &RemoteTarget{Info: info}
			assert.Equal(t, tt.mode, target.ModeTech())
			assert.Equal(t, tt.wantUID, target.UID())
		})
	}
}

func TestParseTechInfoTruncated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params []byte
		mode   ModeTech
	}{
		{name: "NFC-A empty", mode: ModeTechPassiveNFCA, params: nil},
		{name: "NFC-A NFCID overrun", mode: ModeTechPassiveNFCA, params: []byte{0x44, 0x00, 0x07, 0x01}},
		{name: "NFC-A SEL_RES overrun", mode: ModeTechPassiveNFCA, params: []byte{0x44, 0x00, 0x01, 0x01, 0x02}},
		{name: "NFC-B overrun", mode: ModeTechPassiveNFCB, params: []byte{0x0B, 0x50}},
		{name: "NFC-F overrun", mode: ModeTechPassiveNFCF, params: []byte{0x01, 0x12, 0x01}},
		{name: "ISO15693 short", mode: ModeTechPassiveISO15693, params: []byte{0x00, 0x00, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseTechInfo(tt.mode, tt.params, nil)
			require.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestParseActivation(t *testing.T) {
	t.Parallel()

	frm := testutil.NFCVActivation(testutil.TestISO15693ID)
	target, err := parseActivation(frm[3:])
	require.NoError(t, err)
	assert.Equal(t, ProtocolT5T, target.Protocol)
	assert.Equal(t, InterfaceFrame, target.Interface)
	assert.Equal(t, ModeTechPassiveISO15693, target.ModeTech())
	assert.Equal(t, byte(0x01), target.DiscoveryID)

	_, err = parseActivation([]byte{0x01, 0x01, 0x02, 0x00, 0xFF, 0x01})
	require.ErrorIs(t, err, ErrDecode)
	_, err = parseActivation([]byte{0x01, 0x01, 0x02, 0x00, 0xFF, 0x01, 0x09, 0x44})
	require.ErrorIs(t, err, ErrDecode)
}

func TestParseDiscover(t *testing.T) {
	t.Parallel()

	frm := testutil.Discover(0x02, 0x04, testutil.TestISODEPUID, 0x02)
	d, err := parseDiscover(frm[3:])
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), d.id)
	assert.Equal(t, ProtocolISODEP, d.protocol)
	assert.Equal(t, ModeTechPassiveNFCA, d.mode)
	assert.True(t, d.moreToCome())

	_, err = parseDiscover([]byte{0x01, 0x02, 0x00, 0x05, 0x00})
	require.ErrorIs(t, err, ErrDecode)
}

func TestRemoteTargetUndetermined(t *testing.T) {
	t.Parallel()

	var target *RemoteTarget
	assert.Equal(t, ModeTechUndetermined, target.ModeTech())
	assert.Nil(t, target.UID())
	assert.Equal(t, "<none>", target.String())
	assert.Equal(t, ModeTechUndetermined, (&RemoteTarget{}).ModeTech())
}

func TestRemoteTargetEqual(t *testing.T) {
	t.Parallel()

	a := &RemoteTarget{Protocol: ProtocolT2T, Info: NFCAInfo{NFCID: []byte{0x01, 0x02}}}
	b := &RemoteTarget{Protocol: ProtocolT2T, Info: NFCAInfo{NFCID: []byte{0x01, 0x02}}, MoreTags: true}
	c := &RemoteTarget{Protocol: ProtocolT2T, Info: NFCAInfo{NFCID: []byte{0x01, 0x03}}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}
