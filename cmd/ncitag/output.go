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

package main

import (
	"fmt"
	"io"

	nci "github.com/ZaparooProject/go-nci"
	"github.com/ZaparooProject/go-nci/detection"
	"github.com/ZaparooProject/go-nci/tagops"
	"github.com/hsanjuan/go-ndef"
)

func printControllerInfo(w io.Writer, info nci.ControllerInfo) {
	_, _ = fmt.Fprintf(w, "Controller: NCI %d.%d, firmware %s, manufacturer 0x%02X\n",
		info.NCIVersion>>4, info.NCIVersion&0x0F, info.Firmware, info.ManufacturerID)
}

func printDevices(w io.Writer, devices []detection.DeviceInfo) {
	if len(devices) == 0 {
		_, _ = fmt.Fprintln(w, "No NCI controllers found")
		return
	}
	_, _ = fmt.Fprintf(w, "Found %d controller(s):\n", len(devices))
	for _, d := range devices {
		_, _ = fmt.Fprintf(w, "  %s\n", d)
	}
}

func printTarget(w io.Writer, target *nci.RemoteTarget) {
	_, _ = fmt.Fprintf(w, "\nCARD: %s tag detected (UID: %X)\n",
		tagops.DetectTagType(target), target.UID())
	_, _ = fmt.Fprintf(w, "  Protocol: %s, interface: %s, technology: %s\n",
		target.Protocol, target.Interface, target.ModeTech())
}

func printTagInfo(w io.Writer, info *tagops.TagInfo) {
	switch {
	case info.NTAGType != "":
		_, _ = fmt.Fprintf(w, "  Type: %s, %d pages, %d bytes user memory\n",
			info.NTAGType, info.TotalPages, info.UserMemory)
	case info.MIFAREType != "":
		_, _ = fmt.Fprintf(w, "  Type: %s, %d sectors\n", info.MIFAREType, info.Sectors)
	default:
		_, _ = fmt.Fprintf(w, "  Type: %s\n", info.TypeName)
	}
}

// printNDEF prints NDEF results in a standard format
func printNDEF(w io.Writer, msg *ndef.Message, err error) {
	if err != nil {
		_, _ = fmt.Fprintf(w, "  NDEF: %v\n", err)
		return
	}
	_, _ = fmt.Fprintf(w, "  NDEF: %d record(s)\n", len(msg.Records))
	for i, record := range msg.Records {
		_, _ = fmt.Fprintf(w, "    [%d] %s\n", i+1, record)
	}
}
