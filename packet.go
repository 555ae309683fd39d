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
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/ZaparooProject/go-nci/internal/frame"
)

// MessageType identifies the NCI packet class carried in header bits [7:5].
type MessageType uint8

// Message types
const (
	MessageTypeData         MessageType = frame.MessageTypeData
	MessageTypeCommand      MessageType = frame.MessageTypeCommand
	MessageTypeResponse     MessageType = frame.MessageTypeResponse
	MessageTypeNotification MessageType = frame.MessageTypeNotification
)

func (m MessageType) String() string {
	switch m {
	case MessageTypeData:
		return "DATA"
	case MessageTypeCommand:
		return "CMD"
	case MessageTypeResponse:
		return "RSP"
	case MessageTypeNotification:
		return "NTF"
	default:
		return fmt.Sprintf("MT(%d)", uint8(m))
	}
}

// GroupID is the 4-bit NCI group identifier
type GroupID uint8

// OpcodeID is the 6-bit NCI opcode identifier
type OpcodeID uint8

// Packet is either a *ControlPacket or a *DataPacket
type Packet interface {
	// MessageType returns the header message type
	MessageType() MessageType
	encode(buf []byte) ([]byte, error)
}

// ControlPacket is an NCI command, response or notification
type ControlPacket struct {
	Payload   []byte
	Type      MessageType
	GID       GroupID
	OID       OpcodeID
	Segmented bool // packet boundary flag: more segments follow
}

// MessageType implements Packet
func (p *ControlPacket) MessageType() MessageType {
	return p.Type
}

// Status returns the leading status byte of a response or status-carrying
// notification payload. An empty payload reports StatusSyntaxError.
func (p *ControlPacket) Status() Status {
	if len(p.Payload) == 0 {
		return StatusSyntaxError
	}
	return Status(p.Payload[0])
}

// Is reports whether the packet has the given type, group and opcode
func (p *ControlPacket) Is(mt MessageType, gid GroupID, oid OpcodeID) bool {
	return p != nil && p.Type == mt && p.GID == gid && p.OID == oid
}

func (p *ControlPacket) String() string {
	return fmt.Sprintf("%s %s len=%d %s", p.Type, messageName(p.GID, p.OID), len(p.Payload),
		hex.EncodeToString(p.Payload))
}

func (p *ControlPacket) encode(buf []byte) ([]byte, error) {
	if p.Type == MessageTypeData || p.Type > MessageTypeNotification {
		return nil, fmt.Errorf("%w: message type %s is not a control type", ErrUnknownMessage, p.Type)
	}
	if !isDefinedMessage(p.Type, p.GID, p.OID) {
		return nil, fmt.Errorf("%w: %s GID=0x%X OID=0x%02X", ErrUnknownMessage, p.Type, uint8(p.GID), uint8(p.OID))
	}
	b0, b1 := frame.ControlHeader(byte(p.Type), byte(p.GID), byte(p.OID), p.Segmented)
	return frame.Build(buf, b0, b1, p.Payload)
}

// DataPacket carries raw tag-level payload on a logical connection
type DataPacket struct {
	Payload []byte
	ConnID  uint8
}

// MessageType implements Packet
func (*DataPacket) MessageType() MessageType {
	return MessageTypeData
}

func (p *DataPacket) String() string {
	return fmt.Sprintf("DATA conn=%d len=%d %s", p.ConnID, len(p.Payload), hex.EncodeToString(p.Payload))
}

func (p *DataPacket) encode(buf []byte) ([]byte, error) {
	if p.ConnID > frame.ConnIDMask {
		return nil, fmt.Errorf("%w: connection id %d exceeds 4 bits", ErrInvalidParameter, p.ConnID)
	}
	b0, b1 := frame.DataHeader(p.ConnID)
	return frame.Build(buf, b0, b1, p.Payload)
}

// Encode serializes a packet into a new frame. Payloads longer than 255 bytes
// are rejected with ErrFrameTooLarge.
func Encode(p Packet) ([]byte, error) {
	buf := make([]byte, frame.MaxFrameSize)
	return encodeInto(buf, p)
}

func encodeInto(buf []byte, p Packet) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil packet", ErrInvalidParameter)
	}
	frm, err := p.encode(buf)
	if err != nil {
		return nil, fmt.Errorf("encode %s packet: %w", p.MessageType(), err)
	}
	return frm, nil
}

// Decode parses a complete frame. The returned packet does not alias b.
// Nil and empty payloads encode to the same frame; Decode always returns
// an empty payload as nil.
func Decode(b []byte) (Packet, error) {
	if len(b) < frame.HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrDecode, len(b))
	}
	n := int(b[2])
	if len(b) != frame.HeaderSize+n {
		return nil, fmt.Errorf("%w: declared payload %d bytes, frame carries %d",
			ErrDecode, n, len(b)-frame.HeaderSize)
	}
	var payload []byte
	if n > 0 {
		payload = bytes.Clone(b[frame.HeaderSize:])
	}

	mt := MessageType(frame.MessageType(b[0]))
	switch mt {
	case MessageTypeData:
		if b[0]&^frame.ConnIDMask != 0 || b[1] != 0 {
			return nil, fmt.Errorf("%w: reserved data header bits set (%02X %02X)", ErrDecode, b[0], b[1])
		}
		return &DataPacket{ConnID: b[0] & frame.ConnIDMask, Payload: payload}, nil
	case MessageTypeCommand, MessageTypeResponse, MessageTypeNotification:
		gid := GroupID(b[0] & frame.GroupIDMask)
		if b[1]&^frame.OpcodeIDMask != 0 {
			return nil, fmt.Errorf("%w: reserved opcode bits set (%02X)", ErrDecode, b[1])
		}
		oid := OpcodeID(b[1] & frame.OpcodeIDMask)
		if !isDefinedMessage(mt, gid, oid) {
			return nil, fmt.Errorf("%w: %s GID=0x%X OID=0x%02X", ErrUnknownMessage, mt, uint8(gid), uint8(oid))
		}
		return &ControlPacket{
			Type:      mt,
			GID:       gid,
			OID:       oid,
			Segmented: b[0]&frame.PBFBit != 0,
			Payload:   payload,
		}, nil
	default:
		return nil, fmt.Errorf("%w: message type %d", ErrUnknownMessage, uint8(mt))
	}
}

// Command builds a control command packet
func Command(gid GroupID, oid OpcodeID, payload ...byte) *ControlPacket {
	return &ControlPacket{Type: MessageTypeCommand, GID: gid, OID: oid, Payload: payload}
}

type messageKey struct {
	gid GroupID
	oid OpcodeID
}

type messageKinds uint8

const (
	kindCmd messageKinds = 1 << iota
	kindRsp
	kindNtf

	kindCR  = kindCmd | kindRsp
	kindCRN = kindCmd | kindRsp | kindNtf
)

type messageDef struct {
	name  string
	kinds messageKinds
}

var definedMessages = map[messageKey]messageDef{
	{GroupCore, OpCoreReset}:         {"CORE_RESET", kindCRN},
	{GroupCore, OpCoreInit}:          {"CORE_INIT", kindCR},
	{GroupCore, OpCoreSetConfig}:     {"CORE_SET_CONFIG", kindCR},
	{GroupCore, OpCoreGetConfig}:     {"CORE_GET_CONFIG", kindCR},
	{GroupCore, OpCoreConnCreate}:    {"CORE_CONN_CREATE", kindCR},
	{GroupCore, OpCoreConnClose}:     {"CORE_CONN_CLOSE", kindCRN},
	{GroupCore, OpCoreConnCredits}:   {"CORE_CONN_CREDITS", kindNtf},
	{GroupCore, OpCoreGenericError}:  {"CORE_GENERIC_ERROR", kindNtf},
	{GroupCore, OpCoreInterfaceErr}:  {"CORE_INTERFACE_ERROR", kindNtf},
	{GroupCore, OpCoreSetPowerState}: {"CORE_SET_POWER_SUB_STATE", kindCR},

	{GroupRF, OpRFDiscoverMap}:     {"RF_DISCOVER_MAP", kindCR},
	{GroupRF, OpRFSetRouting}:      {"RF_SET_LISTEN_MODE_ROUTING", kindCR},
	{GroupRF, OpRFGetRouting}:      {"RF_GET_LISTEN_MODE_ROUTING", kindCRN},
	{GroupRF, OpRFDiscover}:        {"RF_DISCOVER", kindCRN},
	{GroupRF, OpRFDiscoverSelect}:  {"RF_DISCOVER_SELECT", kindCR},
	{GroupRF, OpRFIntfActivated}:   {"RF_INTF_ACTIVATED", kindNtf},
	{GroupRF, OpRFDeactivate}:      {"RF_DEACTIVATE", kindCRN},
	{GroupRF, OpRFFieldInfo}:       {"RF_FIELD_INFO", kindNtf},
	{GroupRF, OpRFT3TPolling}:      {"RF_T3T_POLLING", kindCRN},
	{GroupRF, OpRFNFCEEAction}:     {"RF_NFCEE_ACTION", kindNtf},
	{GroupRF, OpRFNFCEEDiscoveryR}: {"RF_NFCEE_DISCOVERY_REQ", kindNtf},
	{GroupRF, OpRFParameterUpdate}: {"RF_PARAMETER_UPDATE", kindCR},
	{GroupRF, OpRFISODEPNakPres}:   {"RF_ISO_DEP_NAK_PRESENCE", kindCRN},

	{GroupNFCEE, OpNFCEEDiscover}:  {"NFCEE_DISCOVER", kindCRN},
	{GroupNFCEE, OpNFCEEModeSet}:   {"NFCEE_MODE_SET", kindCRN},
	{GroupNFCEE, OpNFCEEStatus}:    {"NFCEE_STATUS", kindNtf},
	{GroupNFCEE, OpNFCEEPowerLink}: {"NFCEE_POWER_AND_LINK_CNTRL", kindCR},

	{GroupProprietary, OpPropSetPowerMode}:   {"PROP_SET_POWER_MODE", kindCR},
	{GroupProprietary, OpPropAct}:            {"PROP_ACT", kindCR},
	{GroupProprietary, OpPropISODEPPresence}: {"PROP_ISO_DEP_PRES_CHECK", kindCRN},
	{GroupProprietary, OpPropRFGetTransit}:   {"PROP_RF_GET_TRANSITION", kindCR},
}

func isDefinedMessage(mt MessageType, gid GroupID, oid OpcodeID) bool {
	def, ok := definedMessages[messageKey{gid, oid}]
	if !ok {
		return false
	}
	switch mt {
	case MessageTypeCommand:
		return def.kinds&kindCmd != 0
	case MessageTypeResponse:
		return def.kinds&kindRsp != 0
	case MessageTypeNotification:
		return def.kinds&kindNtf != 0
	default:
		return false
	}
}

func messageName(gid GroupID, oid OpcodeID) string {
	if def, ok := definedMessages[messageKey{gid, oid}]; ok {
		return def.name
	}
	return fmt.Sprintf("GID=0x%X/OID=0x%02X", uint8(gid), uint8(oid))
}
