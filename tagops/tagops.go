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

// Package tagops provides tag-level operations on top of an activated
// NCI target: Type 2 page access and NDEF exchange for Type 2 and Type 4
// tags.
package tagops

import (
	"context"
	"errors"
	"fmt"

	nci "github.com/ZaparooProject/go-nci"
)

// TagType represents the family of an activated tag
type TagType int

const (
	// TagTypeUnknown is a tag this package cannot drive
	TagTypeUnknown TagType = iota
	// TagTypeNTAG is an NFC Forum Type 2 tag (NTAG, MIFARE Ultralight)
	TagTypeNTAG
	// TagTypeMIFARE is a MIFARE Classic tag behind the proprietary interface
	TagTypeMIFARE
	// TagTypeType4 is an ISO-DEP tag carrying the NDEF application
	TagTypeType4
)

// Tag operation errors
var (
	ErrNoTag          = errors.New("no tag detected")
	ErrUnsupportedTag = errors.New("unsupported tag type")
	ErrNoNDEF         = errors.New("no NDEF message on tag")
	ErrNAK            = errors.New("tag returned NAK")
	ErrTagStatus      = errors.New("tag returned error status")
	ErrNDEFTooLarge   = errors.New("NDEF message exceeds tag capacity")
)

const (
	t2tRead  = 0x30
	t2tWrite = 0xA2
	t2tACK   = 0x0A

	// T2TPageSize is the size of one Type 2 tag page
	T2TPageSize = 4
	// t2tUserStart is the first page of the NDEF data area
	t2tUserStart = 4
)

// TagOperations drives one activated target through a session
type TagOperations struct {
	session    *nci.Session
	tag        *nci.RemoteTarget
	tagType    TagType
	totalPages int
	dataSize   int
}

// New creates tag operations for an activated target
func New(session *nci.Session, target *nci.RemoteTarget) *TagOperations {
	return &TagOperations{
		session: session,
		tag:     target,
		tagType: DetectTagType(target),
	}
}

// TagType returns the detected tag family
func (t *TagOperations) TagType() TagType {
	return t.tagType
}

// Target returns the underlying remote target
func (t *TagOperations) Target() *nci.RemoteTarget {
	return t.tag
}

// DetectTagType classifies a target by its RF protocol
func DetectTagType(target *nci.RemoteTarget) TagType {
	if target == nil {
		return TagTypeUnknown
	}
	switch target.Protocol {
	case nci.ProtocolT2T:
		return TagTypeNTAG
	case nci.ProtocolMIFARE:
		return TagTypeMIFARE
	case nci.ProtocolISODEP:
		return TagTypeType4
	default:
		return TagTypeUnknown
	}
}

// exchange sends one tag command. On the frame interface the controller
// appends a status byte to every received frame, which is checked and
// removed here.
func (t *TagOperations) exchange(ctx context.Context, cmd []byte) ([]byte, error) {
	if t.tag == nil {
		return nil, ErrNoTag
	}
	rsp, err := t.session.Transceive(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if t.tag.Interface != nci.InterfaceFrame {
		return rsp, nil
	}
	if len(rsp) == 0 {
		return nil, fmt.Errorf("%w: empty frame", nci.ErrDecode)
	}
	if status := rsp[len(rsp)-1]; status != 0x00 {
		return nil, fmt.Errorf("%w: 0x%02X", ErrTagStatus, status)
	}
	return rsp[:len(rsp)-1], nil
}

// ReadPages reads four consecutive pages (16 bytes) starting at page
func (t *TagOperations) ReadPages(ctx context.Context, page uint8) ([]byte, error) {
	if t.tagType != TagTypeNTAG {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTag, t.tagType)
	}
	data, err := t.exchange(ctx, []byte{t2tRead, page})
	if err != nil {
		return nil, fmt.Errorf("read page %d: %w", page, err)
	}
	if len(data) == 1 {
		return nil, fmt.Errorf("read page %d: %w (0x%X)", page, ErrNAK, data[0])
	}
	if len(data) != 4*T2TPageSize {
		return nil, fmt.Errorf("read page %d: %w: got %d bytes", page, nci.ErrDecode, len(data))
	}
	return data, nil
}

// WritePage writes one 4-byte page
func (t *TagOperations) WritePage(ctx context.Context, page uint8, data []byte) error {
	if t.tagType != TagTypeNTAG {
		return fmt.Errorf("%w: %s", ErrUnsupportedTag, t.tagType)
	}
	if len(data) != T2TPageSize {
		return fmt.Errorf("%w: page data must be %d bytes, got %d",
			nci.ErrInvalidParameter, T2TPageSize, len(data))
	}
	cmd := append([]byte{t2tWrite, page}, data...)
	rsp, err := t.exchange(ctx, cmd)
	if err != nil {
		return fmt.Errorf("write page %d: %w", page, err)
	}
	if len(rsp) != 1 || rsp[0]&0x0F != t2tACK {
		return fmt.Errorf("write page %d: %w (% X)", page, ErrNAK, rsp)
	}
	return nil
}

// readCapabilityContainer loads the Type 2 CC from page 3 and records the
// data area size it announces
func (t *TagOperations) readCapabilityContainer(ctx context.Context) error {
	data, err := t.ReadPages(ctx, 3)
	if err != nil {
		return err
	}
	cc := data[:T2TPageSize]
	if cc[0] != 0xE1 {
		return fmt.Errorf("%w: capability container magic 0x%02X", ErrNoNDEF, cc[0])
	}
	t.dataSize = int(cc[2]) * 8
	t.totalPages = totalPagesForDataSize(t.dataSize)
	return nil
}

// totalPagesForDataSize maps the CC data area size to the NTAG memory map
func totalPagesForDataSize(size int) int {
	switch size {
	case 144: // NTAG213
		return 45
	case 496: // NTAG215
		return 135
	case 872: // NTAG216
		return 231
	default:
		return t2tUserStart + size/T2TPageSize
	}
}
