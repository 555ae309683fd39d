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

package testing

// NCI header message types, already shifted into bits [7:5]
const (
	mtCommand      = 0x20
	mtResponse     = 0x40
	mtNotification = 0x60
)

// Group identifiers
const (
	GIDCore        = 0x00
	GIDRF          = 0x01
	GIDProprietary = 0x0F
)

// Frame builds a raw frame from two header bytes and a payload
func Frame(b0, b1 byte, payload ...byte) []byte {
	frm := make([]byte, 0, 3+len(payload))
	frm = append(frm, b0, b1, byte(len(payload)))
	return append(frm, payload...)
}

// Cmd builds a command frame
func Cmd(gid, oid byte, payload ...byte) []byte {
	return Frame(mtCommand|gid, oid, payload...)
}

// Rsp builds a response frame
func Rsp(gid, oid byte, payload ...byte) []byte {
	return Frame(mtResponse|gid, oid, payload...)
}

// Ntf builds a notification frame
func Ntf(gid, oid byte, payload ...byte) []byte {
	return Frame(mtNotification|gid, oid, payload...)
}

// OK builds a response frame carrying only status OK
func OK(gid, oid byte) []byte {
	return Rsp(gid, oid, 0x00)
}

// Data builds a data packet frame
func Data(conn byte, payload ...byte) []byte {
	return Frame(conn&0x0F, 0x00, payload...)
}

// ResetNotification builds an NCI 2.0 CORE_RESET_NTF reporting version and
// the given firmware triplet.
func ResetNotification(version byte, fw [3]byte) []byte {
	return Ntf(GIDCore, 0x00,
		0x02,    // trigger: CORE_RESET_CMD received
		0x01,    // configuration kept
		version, // NCI version
		0x04,    // manufacturer: NXP
		0x04,    // manufacturer info length
		0x51,    // hardware version
		fw[0], fw[1], fw[2],
	)
}

// InitResponse builds an NCI 2.0 CORE_INIT_RSP
func InitResponse() []byte {
	return Rsp(GIDCore, 0x01,
		0x00,                   // status
		0x1A, 0x7E, 0x06, 0x00, // features
		0x02,       // max logical connections
		0xD0, 0x02, // max routing table size
		0xFF,       // max control packet payload
		0xFF,       // max data packet payload (static HCI)
		0x01,       // credits
		0x00, 0x00, // max NFC-V frame size
		0x00, // number of interfaces
	)
}

// NFCAParams builds NFC-A poll parameters
func NFCAParams(uid []byte, sak byte) []byte {
	params := []byte{0x44, 0x00, byte(len(uid))}
	params = append(params, uid...)
	return append(params, 0x01, sak)
}

// NFCVParams builds ISO15693 poll parameters; uid is most significant byte
// first as printed on the tag.
func NFCVParams(uid [8]byte) []byte {
	params := []byte{0x00, 0x00}
	for i := 7; i >= 0; i-- {
		params = append(params, uid[i])
	}
	return params
}

// Activation builds an RF_INTF_ACTIVATED_NTF frame
func Activation(intf, protocol, mode byte, params, act []byte) []byte {
	payload := []byte{0x01, intf, protocol, mode, 0xFF, 0x01, byte(len(params))}
	payload = append(payload, params...)
	payload = append(payload, mode, 0x00, 0x00, byte(len(act)))
	payload = append(payload, act...)
	return Ntf(GIDRF, 0x05, payload...)
}

// NFCAActivation builds an activation for an NFC-A target. rats is only
// included when non-nil.
func NFCAActivation(intf, protocol byte, uid []byte, sak byte, rats []byte) []byte {
	var act []byte
	if rats != nil {
		act = append([]byte{byte(len(rats))}, rats...)
	}
	return Activation(intf, protocol, 0x00, NFCAParams(uid, sak), act)
}

// NFCVActivation builds an activation for an ISO15693 target
func NFCVActivation(uid [8]byte) []byte {
	return Activation(0x01, 0x06, 0x06, NFCVParams(uid), nil)
}

// Discover builds an RF_DISCOVER_NTF for an NFC-A candidate. kind is 0x02
// when more notifications follow and 0x00 for the last one.
func Discover(id, protocol byte, uid []byte, kind byte) []byte {
	params := NFCAParams(uid, 0x00)
	payload := []byte{id, protocol, 0x00, byte(len(params))}
	payload = append(payload, params...)
	payload = append(payload, kind)
	return Ntf(GIDRF, 0x03, payload...)
}

// Common test UIDs
var (
	TestNTAG213UID = []byte{0x04, 0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC}
	TestMIFAREUID  = []byte{0x12, 0x34, 0x56, 0x78}
	TestISODEPUID  = []byte{0x08, 0x11, 0x22, 0x33}
	TestISO15693ID = [8]byte{0xE0, 0x04, 0x01, 0x50, 0x12, 0x34, 0x56, 0x78}
)

// CmdPrefix matches any command frame with the given group and opcode
func CmdPrefix(gid, oid byte) []byte {
	return []byte{mtCommand | gid, oid}
}

// DataPrefix matches any data frame on conn
func DataPrefix(conn byte) []byte {
	return []byte{conn & 0x0F, 0x00}
}
