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
	"bytes"
	"context"
	"fmt"

	nci "github.com/ZaparooProject/go-nci"
)

const (
	unknownTagName    = "Unknown"
	ntagTypeName      = "NTAG"
	mifareClassicName = "MIFARE Classic"
	type4Name         = "Type 4"
)

// TagInfo contains detailed information about a detected tag
type TagInfo struct {
	// String fields (24 bytes each on 64-bit)
	TypeName   string
	NTAGType   string
	MIFAREType string

	// Slice field (24 bytes on 64-bit)
	UID []byte

	// Integer fields
	Type        TagType
	Protocol    nci.RFProtocol
	TotalPages  int
	UserMemory  int
	Sectors     int
	TotalMemory int
}

// GetTagInfo returns detailed information about the currently detected tag.
// For Type 2 tags the capability container is read to size the memory.
func (t *TagOperations) GetTagInfo(ctx context.Context) (*TagInfo, error) {
	if t.tag == nil {
		return nil, ErrNoTag
	}

	info := &TagInfo{
		Type:     t.tagType,
		Protocol: t.tag.Protocol,
		UID:      t.tag.UID(),
	}

	switch t.tagType {
	case TagTypeNTAG:
		info.TypeName = ntagTypeName
		if t.totalPages == 0 {
			if err := t.readCapabilityContainer(ctx); err != nil {
				return nil, err
			}
		}
		info.TotalPages = t.totalPages
		info.UserMemory = t.dataSize

		switch t.totalPages {
		case 45:
			info.NTAGType = "NTAG213"
		case 135:
			info.NTAGType = "NTAG215"
		case 231:
			info.NTAGType = "NTAG216"
		default:
			info.NTAGType = fmt.Sprintf("NTAG (unknown, %d pages)", t.totalPages)
		}

	case TagTypeMIFARE:
		info.TypeName = mifareClassicName
		// SAK 0x18 marks a 4K card, anything else is treated as 1K
		if mifareSAK(t.tag) == 0x18 {
			info.MIFAREType = "MIFARE Classic 4K"
			info.Sectors = 40
			info.TotalMemory = 4096
		} else {
			info.MIFAREType = "MIFARE Classic 1K"
			info.Sectors = 16
			info.TotalMemory = 1024
		}

	case TagTypeType4:
		info.TypeName = type4Name

	case TagTypeUnknown:
		info.TypeName = unknownTagName
	default:
		info.TypeName = unknownTagName
	}

	return info, nil
}

func mifareSAK(target *nci.RemoteTarget) byte {
	a, ok := target.Info.(nci.NFCAInfo)
	if !ok || len(a.SelRes) == 0 {
		return 0
	}
	return a.SelRes[0]
}

// String returns a human-readable string representation of the tag type
func (t TagType) String() string {
	switch t {
	case TagTypeUnknown:
		return unknownTagName
	case TagTypeNTAG:
		return ntagTypeName
	case TagTypeMIFARE:
		return mifareClassicName
	case TagTypeType4:
		return type4Name
	default:
		return unknownTagName
	}
}

// DetectTagTypeFromUID guesses the tag type from UID characteristics when
// no activation data is available
func DetectTagTypeFromUID(uid []byte) TagType {
	if len(uid) == 7 {
		// 7-byte UIDs from NXP (0x04) are usually NTAG
		if uid[0] == 0x04 {
			return TagTypeNTAG
		}
	} else if len(uid) == 4 {
		return TagTypeMIFARE
	}

	return TagTypeUnknown
}

// IsNDEFCapable returns whether this package can read NDEF from the tag
func (t *TagOperations) IsNDEFCapable() bool {
	switch t.tagType {
	case TagTypeNTAG, TagTypeType4:
		return true
	case TagTypeMIFARE:
		// MIFARE Classic NDEF needs sector authentication, which is not
		// exposed over NCI.
		return false
	case TagTypeUnknown:
		return false
	default:
		return false
	}
}

// CompareUID compares two UIDs for equality
func CompareUID(uid1, uid2 []byte) bool {
	return bytes.Equal(uid1, uid2)
}
