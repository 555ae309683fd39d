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

// Package frame provides the NCI wire framing shared by the packet codec and
// the transports: header bit layout, size limits and frame reads.
package frame

// Header layout
const (
	HeaderSize = 3 // MT/PBF/GID (or ConnID), OID (or RFU), payload length

	MaxPayloadLength = 255
	MaxFrameSize     = HeaderSize + MaxPayloadLength
)

// Byte 0 bit fields
const (
	MessageTypeShift = 5
	MessageTypeMask  = 0x07
	PBFBit           = 0x10
	GroupIDMask      = 0x0F
	ConnIDMask       = 0x0F
)

// Byte 1 bit fields
const (
	OpcodeIDMask = 0x3F
)

// Message type values carried in bits [7:5] of byte 0
const (
	MessageTypeData         = 0x00
	MessageTypeCommand      = 0x01
	MessageTypeResponse     = 0x02
	MessageTypeNotification = 0x03
)
