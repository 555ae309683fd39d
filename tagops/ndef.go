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

package tagops

import (
	"context"
	"encoding/binary"
	"fmt"

	nci "github.com/ZaparooProject/go-nci"
	"github.com/hsanjuan/go-ndef"
)

// TLV block types found in a Type 2 data area
const (
	tlvNull       = 0x00
	tlvNDEF       = 0x03
	tlvTerminator = 0xFE
)

var (
	t4tNDEFApp  = []byte{0xD2, 0x76, 0x00, 0x00, 0x85, 0x01, 0x01}
	t4tCCFile   = []byte{0xE1, 0x03}
	t4tStatusOK = []byte{0x90, 0x00}
)

// ReadNDEF reads and decodes the NDEF message stored on the tag
func (t *TagOperations) ReadNDEF(ctx context.Context) (*ndef.Message, error) {
	var (
		raw []byte
		err error
	)
	switch t.tagType {
	case TagTypeNTAG:
		raw, err = t.readT2TNDEF(ctx)
	case TagTypeType4:
		raw, err = t.readT4TNDEF(ctx)
	case TagTypeUnknown, TagTypeMIFARE:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTag, t.tagType)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTag, t.tagType)
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrNoNDEF
	}

	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("decode NDEF message: %w", err)
	}
	return msg, nil
}

// WriteNDEF encodes msg as an NDEF TLV and writes it to a Type 2 tag
func (t *TagOperations) WriteNDEF(ctx context.Context, msg *ndef.Message) error {
	if t.tagType != TagTypeNTAG {
		return fmt.Errorf("%w: %s", ErrUnsupportedTag, t.tagType)
	}
	raw, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("encode NDEF message: %w", err)
	}
	if t.dataSize == 0 {
		if err := t.readCapabilityContainer(ctx); err != nil {
			return err
		}
	}

	tlv := encodeNDEFTLV(raw)
	if len(tlv) > t.dataSize {
		return fmt.Errorf("%w: %d bytes, capacity %d", ErrNDEFTooLarge, len(tlv), t.dataSize)
	}
	for off := 0; off < len(tlv); off += T2TPageSize {
		page := make([]byte, T2TPageSize)
		copy(page, tlv[off:])
		if err := t.WritePage(ctx, uint8(t2tUserStart+off/T2TPageSize), page); err != nil {
			return err
		}
	}
	return nil
}

func (t *TagOperations) readT2TNDEF(ctx context.Context) ([]byte, error) {
	if err := t.readCapabilityContainer(ctx); err != nil {
		return nil, err
	}

	area := make([]byte, 0, t.dataSize)
	for page := t2tUserStart; len(area) < t.dataSize; page += 4 {
		data, err := t.ReadPages(ctx, uint8(page))
		if err != nil {
			return nil, err
		}
		area = append(area, data...)
		if msg, done, err := parseNDEFTLV(area); done || err != nil {
			return msg, err
		}
	}
	return nil, fmt.Errorf("%w: no terminator in data area", ErrNoNDEF)
}

// encodeNDEFTLV wraps raw in an NDEF TLV followed by a terminator
func encodeNDEFTLV(raw []byte) []byte {
	tlv := []byte{tlvNDEF}
	if len(raw) < 0xFF {
		tlv = append(tlv, byte(len(raw)))
	} else {
		tlv = append(tlv, 0xFF, byte(len(raw)>>8), byte(len(raw)))
	}
	tlv = append(tlv, raw...)
	return append(tlv, tlvTerminator)
}

// parseNDEFTLV walks the TLV blocks in buf. done is false while more data
// is needed to reach the NDEF value.
func parseNDEFTLV(buf []byte) (msg []byte, done bool, err error) {
	for i := 0; i < len(buf); {
		switch buf[i] {
		case tlvNull:
			i++
			continue
		case tlvTerminator:
			return nil, true, ErrNoNDEF
		}

		typ := buf[i]
		if i+1 >= len(buf) {
			return nil, false, nil
		}
		length, hdr := int(buf[i+1]), 2
		if length == 0xFF {
			if i+3 >= len(buf) {
				return nil, false, nil
			}
			length, hdr = int(binary.BigEndian.Uint16(buf[i+2:])), 4
		}
		start := i + hdr
		if start+length > len(buf) {
			return nil, false, nil
		}
		if typ == tlvNDEF {
			if length == 0 {
				return nil, true, ErrNoNDEF
			}
			return buf[start : start+length], true, nil
		}
		i = start + length
	}
	return nil, false, nil
}

func (t *TagOperations) readT4TNDEF(ctx context.Context) ([]byte, error) {
	if _, err := t.apdu(ctx, selectByName(t4tNDEFApp)); err != nil {
		return nil, fmt.Errorf("select NDEF application: %w", err)
	}
	if _, err := t.apdu(ctx, selectByID(t4tCCFile)); err != nil {
		return nil, fmt.Errorf("select capability container: %w", err)
	}
	cc, err := t.apdu(ctx, readBinary(0, 15))
	if err != nil {
		return nil, fmt.Errorf("read capability container: %w", err)
	}
	if len(cc) < 15 || cc[7] != 0x04 {
		return nil, fmt.Errorf("%w: no NDEF file control TLV", ErrNoNDEF)
	}
	maxRead := int(binary.BigEndian.Uint16(cc[3:5]))
	fileID := cc[9:11]

	if _, err := t.apdu(ctx, selectByID(fileID)); err != nil {
		return nil, fmt.Errorf("select NDEF file: %w", err)
	}
	nlen, err := t.apdu(ctx, readBinary(0, 2))
	if err != nil {
		return nil, fmt.Errorf("read NDEF length: %w", err)
	}
	if len(nlen) < 2 {
		return nil, fmt.Errorf("%w: short NLEN", nci.ErrDecode)
	}
	size := int(binary.BigEndian.Uint16(nlen))

	chunk := min(maxRead, 0xFF)
	if chunk <= 0 {
		chunk = 0xFF
	}
	out := make([]byte, 0, size)
	for off := 2; len(out) < size; {
		n := min(chunk, size-len(out))
		data, err := t.apdu(ctx, readBinary(off, n))
		if err != nil {
			return nil, fmt.Errorf("read NDEF file at %d: %w", off, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: empty READ BINARY response", nci.ErrDecode)
		}
		out = append(out, data...)
		off += len(data)
	}
	return out, nil
}

// apdu sends a command APDU and strips a 90 00 status word
func (t *TagOperations) apdu(ctx context.Context, cmd []byte) ([]byte, error) {
	rsp, err := t.exchange(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if len(rsp) < 2 {
		return nil, fmt.Errorf("%w: short APDU response", nci.ErrDecode)
	}
	sw := rsp[len(rsp)-2:]
	if sw[0] != t4tStatusOK[0] || sw[1] != t4tStatusOK[1] {
		return nil, fmt.Errorf("%w: SW %02X%02X", ErrTagStatus, sw[0], sw[1])
	}
	return rsp[:len(rsp)-2], nil
}

func selectByName(name []byte) []byte {
	cmd := []byte{0x00, 0xA4, 0x04, 0x00, byte(len(name))}
	cmd = append(cmd, name...)
	return append(cmd, 0x00)
}

func selectByID(id []byte) []byte {
	cmd := []byte{0x00, 0xA4, 0x00, 0x0C, byte(len(id))}
	return append(cmd, id...)
}

func readBinary(offset, length int) []byte {
	return []byte{0x00, 0xB0, byte(offset >> 8), byte(offset), byte(length)}
}
