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

import "fmt"

// Status is the NCI status code carried in responses and some notifications
type Status uint8

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusRejected:
		return "REJECTED"
	case StatusRFFrameCorrupted:
		return "RF_FRAME_CORRUPTED"
	case StatusFailed:
		return "FAILED"
	case StatusNotInitialized:
		return "NOT_INITIALIZED"
	case StatusSyntaxError:
		return "SYNTAX_ERROR"
	case StatusSemanticError:
		return "SEMANTIC_ERROR"
	case StatusInvalidParam:
		return "INVALID_PARAM"
	case StatusMessageSizeExceed:
		return "MESSAGE_SIZE_EXCEEDED"
	case StatusDiscoveryActive:
		return "DISCOVERY_ALREADY_STARTED"
	case StatusActivationFailed:
		return "DISCOVERY_TARGET_ACTIVATION_FAILED"
	case StatusDiscoveryTearDown:
		return "DISCOVERY_TEAR_DOWN"
	case StatusRFTransmission:
		return "RF_TRANSMISSION_ERROR"
	case StatusRFProtocol:
		return "RF_PROTOCOL_ERROR"
	case StatusRFTimeout:
		return "RF_TIMEOUT_ERROR"
	default:
		return fmt.Sprintf("STATUS(0x%02X)", uint8(s))
	}
}

// RFProtocol identifies the protocol spoken by a remote target
type RFProtocol uint8

func (p RFProtocol) String() string {
	switch p {
	case ProtocolUndetermined:
		return "Undetermined"
	case ProtocolT1T:
		return "T1T"
	case ProtocolT2T:
		return "T2T"
	case ProtocolT3T:
		return "T3T"
	case ProtocolISODEP:
		return "ISO-DEP"
	case ProtocolNFCDEP:
		return "NFC-DEP"
	case ProtocolT5T:
		return "T5T"
	case ProtocolMIFARE:
		return "MIFARE"
	default:
		return fmt.Sprintf("Protocol(0x%02X)", uint8(p))
	}
}

// InterfaceFor returns the RF interface used to select a target speaking p
func InterfaceFor(p RFProtocol) RFInterface {
	switch p {
	case ProtocolISODEP:
		return InterfaceISODEP
	case ProtocolNFCDEP:
		return InterfaceNFCDEP
	case ProtocolMIFARE:
		return InterfaceTagCmd
	default:
		return InterfaceFrame
	}
}

// RFInterface identifies the controller interface bound to an activated target
type RFInterface uint8

func (i RFInterface) String() string {
	switch i {
	case InterfaceUndetermined:
		return "Undetermined"
	case InterfaceFrame:
		return "Frame"
	case InterfaceISODEP:
		return "ISO-DEP"
	case InterfaceNFCDEP:
		return "NFC-DEP"
	case InterfaceTagCmd:
		return "TagCmd"
	default:
		return fmt.Sprintf("Interface(0x%02X)", uint8(i))
	}
}

// ModeTech is the RF technology and mode byte (bit 7 set for listen mode)
type ModeTech uint8

func (m ModeTech) String() string {
	switch m {
	case ModeTechPassiveNFCA:
		return "NFC-A passive poll"
	case ModeTechPassiveNFCB:
		return "NFC-B passive poll"
	case ModeTechPassiveNFCF:
		return "NFC-F passive poll"
	case ModeTechActiveNFCA:
		return "NFC-A active poll"
	case ModeTechActiveNFCF:
		return "NFC-F active poll"
	case ModeTechPassiveISO15693:
		return "ISO15693 passive poll"
	case ModeTechUndetermined:
		return "Undetermined"
	default:
		if m&ModeTechListenFlag != 0 {
			return fmt.Sprintf("listen(0x%02X)", uint8(m&^ModeTechListenFlag))
		}
		return fmt.Sprintf("ModeTech(0x%02X)", uint8(m))
	}
}
