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

// Group identifiers
const (
	GroupCore        GroupID = 0x00
	GroupRF          GroupID = 0x01
	GroupNFCEE       GroupID = 0x02
	GroupProprietary GroupID = 0x0F
)

// Core group opcodes
const (
	OpCoreReset         OpcodeID = 0x00
	OpCoreInit          OpcodeID = 0x01
	OpCoreSetConfig     OpcodeID = 0x02
	OpCoreGetConfig     OpcodeID = 0x03
	OpCoreConnCreate    OpcodeID = 0x04
	OpCoreConnClose     OpcodeID = 0x05
	OpCoreConnCredits   OpcodeID = 0x06
	OpCoreGenericError  OpcodeID = 0x07
	OpCoreInterfaceErr  OpcodeID = 0x08
	OpCoreSetPowerState OpcodeID = 0x09
)

// RF group opcodes
const (
	OpRFDiscoverMap     OpcodeID = 0x00
	OpRFSetRouting      OpcodeID = 0x01
	OpRFGetRouting      OpcodeID = 0x02
	OpRFDiscover        OpcodeID = 0x03
	OpRFDiscoverSelect  OpcodeID = 0x04
	OpRFIntfActivated   OpcodeID = 0x05
	OpRFDeactivate      OpcodeID = 0x06
	OpRFFieldInfo       OpcodeID = 0x07
	OpRFT3TPolling      OpcodeID = 0x08
	OpRFNFCEEAction     OpcodeID = 0x09
	OpRFNFCEEDiscoveryR OpcodeID = 0x0A
	OpRFParameterUpdate OpcodeID = 0x0B
	OpRFISODEPNakPres   OpcodeID = 0x10
)

// NFCEE group opcodes
const (
	OpNFCEEDiscover  OpcodeID = 0x00
	OpNFCEEModeSet   OpcodeID = 0x01
	OpNFCEEStatus    OpcodeID = 0x02
	OpNFCEEPowerLink OpcodeID = 0x03
)

// Proprietary group opcodes (NXP NCI extensions)
const (
	OpPropSetPowerMode   OpcodeID = 0x00
	OpPropAct            OpcodeID = 0x02
	OpPropISODEPPresence OpcodeID = 0x11
	OpPropRFGetTransit   OpcodeID = 0x14
)

// Status codes
const (
	StatusOK                Status = 0x00
	StatusRejected          Status = 0x01
	StatusRFFrameCorrupted  Status = 0x02
	StatusFailed            Status = 0x03
	StatusNotInitialized    Status = 0x04
	StatusSyntaxError       Status = 0x05
	StatusSemanticError     Status = 0x06
	StatusInvalidParam      Status = 0x09
	StatusMessageSizeExceed Status = 0x0A
	StatusDiscoveryActive   Status = 0xA0
	StatusActivationFailed  Status = 0xA1
	StatusDiscoveryTearDown Status = 0xA2
	StatusRFTransmission    Status = 0xB0
	StatusRFProtocol        Status = 0xB1
	StatusRFTimeout         Status = 0xB2
)

// RF protocols
const (
	ProtocolUndetermined RFProtocol = 0x00
	ProtocolT1T          RFProtocol = 0x01
	ProtocolT2T          RFProtocol = 0x02
	ProtocolT3T          RFProtocol = 0x03
	ProtocolISODEP       RFProtocol = 0x04
	ProtocolNFCDEP       RFProtocol = 0x05
	ProtocolT5T          RFProtocol = 0x06
	ProtocolMIFARE       RFProtocol = 0x80
)

// RF interfaces
const (
	InterfaceUndetermined RFInterface = 0x00
	InterfaceFrame        RFInterface = 0x01
	InterfaceISODEP       RFInterface = 0x02
	InterfaceNFCDEP       RFInterface = 0x03
	InterfaceTagCmd       RFInterface = 0x80
)

// RF technology and mode values
const (
	ModeTechPassiveNFCA     ModeTech = 0x00
	ModeTechPassiveNFCB     ModeTech = 0x01
	ModeTechPassiveNFCF     ModeTech = 0x02
	ModeTechActiveNFCA      ModeTech = 0x03
	ModeTechActiveNFCF      ModeTech = 0x05
	ModeTechPassiveISO15693 ModeTech = 0x06
	ModeTechListenFlag      ModeTech = 0x80
	ModeTechUndetermined    ModeTech = 0xFF
)

// Deactivation types
const (
	DeactivateIdle      byte = 0x00
	DeactivateSleep     byte = 0x01
	DeactivateSleepAF   byte = 0x02
	DeactivateDiscovery byte = 0x03
)

// RF discover notification types (last byte of RF_DISCOVER_NTF)
const (
	discoverNtfLast        byte = 0x00
	discoverNtfLastLimit   byte = 0x01
	discoverNtfMoreToCome  byte = 0x02
	discoverFrequencyEvery byte = 0x01
)

// RF discovery identifiers used with RF_DISCOVER_SELECT_CMD
const (
	primaryDiscoveryID byte = 0x01
	nextDiscoveryID    byte = 0x02
)

// StaticConnID is the connection used for data exchange with the activated
// remote target.
const StaticConnID byte = 0x00

// Configuration parameter identifiers
const (
	ParamTotalDuration        uint16 = 0x0000
	ParamClockSelect          uint16 = 0xA003
	ParamRFTransition         uint16 = 0xA00D
	ParamPMU                  uint16 = 0xA00E
	ParamTagDetector          uint16 = 0xA040
	ParamTagDetectorThreshold uint16 = 0xA041
	ParamTagDetectorFallback  uint16 = 0xA043
)

// NCIVersion20 is the protocol version reported by NCI 2.0 controllers in
// CORE_RESET_NTF.
const NCIVersion20 byte = 0x20

// coreResetKeepConfig asks the controller to keep its configuration across
// the reset.
const coreResetKeepConfig byte = 0x01
