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
	"fmt"
)

var (
	// ErrTooLarge is returned when a frame would not fit in MaxFrameSize bytes.
	ErrTooLarge = errors.New("frame exceeds maximum size")
	// ErrShortFrame is returned when fewer than HeaderSize bytes are available.
	ErrShortFrame = errors.New("frame shorter than header")
)

// MessageType extracts the message type bits from the first header byte
func MessageType(b0 byte) byte {
	return (b0 >> MessageTypeShift) & MessageTypeMask
}

// ControlHeader builds the first two header bytes of a control packet
func ControlHeader(mt, gid, oid byte, pbf bool) (b0, b1 byte) {
	b0 = (mt&MessageTypeMask)<<MessageTypeShift | gid&GroupIDMask
	if pbf {
		b0 |= PBFBit
	}
	return b0, oid & OpcodeIDMask
}

// DataHeader builds the first two header bytes of a data packet
func DataHeader(connID byte) (b0, b1 byte) {
	return connID & ConnIDMask, 0x00
}

// Build writes header and payload into buf and returns the frame slice.
// The payload is never truncated: oversized payloads return ErrTooLarge.
func Build(buf []byte, b0, b1 byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, fmt.Errorf("%w: payload %d bytes (max %d)", ErrTooLarge, len(payload), MaxPayloadLength)
	}
	total := HeaderSize + len(payload)
	if len(buf) < total {
		return nil, fmt.Errorf("%w: buffer %d bytes, frame %d bytes", ErrTooLarge, len(buf), total)
	}
	buf[0] = b0
	buf[1] = b1
	buf[2] = byte(len(payload))
	copy(buf[HeaderSize:], payload)
	return buf[:total], nil
}

// ReadFrame reads exactly HeaderSize bytes to learn the declared payload
// length, then reads exactly that many bytes into buf. A declared length that
// does not fit in buf is rejected before the payload read is attempted.
func ReadFrame(read func(p []byte) error, buf []byte) ([]byte, error) {
	if len(buf) < HeaderSize {
		return nil, ErrShortFrame
	}
	if err := read(buf[:HeaderSize]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	n := int(buf[2])
	total := HeaderSize + n
	if total > len(buf) || total > MaxFrameSize {
		return nil, fmt.Errorf("%w: declared payload %d bytes", ErrTooLarge, n)
	}
	if n > 0 {
		if err := read(buf[HeaderSize:total]); err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
	}
	return buf[:total], nil
}
