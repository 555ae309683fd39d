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
	"fmt"
	"slices"
)

// TechInfo is the technology-specific part of a RemoteTarget. The concrete
// type is one of NFCAInfo, NFCBInfo, NFCFInfo, NFCVInfo or RawTechInfo and
// always agrees with ModeTech.
type TechInfo interface {
	ModeTech() ModeTech
	techInfo()
}

// NFCAInfo holds NFC-A poll parameters
type NFCAInfo struct {
	NFCID   []byte
	SelRes  []byte
	RATS    []byte // RATS response, ISO-DEP only
	SensRes [2]byte
}

// NFCBInfo holds NFC-B poll parameters
type NFCBInfo struct {
	SensRes   []byte
	AttribRes []byte // ATTRIB response, ISO-DEP only
}

// NFCFInfo holds NFC-F poll parameters
type NFCFInfo struct {
	SensRes []byte
	Bitrate byte
}

// NFCVInfo holds ISO15693 poll parameters. ID is most significant byte first.
type NFCVInfo struct {
	ID    [8]byte
	AFI   byte
	DSFID byte
}

// RawTechInfo keeps the parameters of technologies without a decoder
type RawTechInfo struct {
	Params []byte
	Mode   ModeTech
}

// ModeTech implements TechInfo
func (NFCAInfo) ModeTech() ModeTech { return ModeTechPassiveNFCA }

// ModeTech implements TechInfo
func (NFCBInfo) ModeTech() ModeTech { return ModeTechPassiveNFCB }

// ModeTech implements TechInfo
func (NFCFInfo) ModeTech() ModeTech { return ModeTechPassiveNFCF }

// ModeTech implements TechInfo
func (NFCVInfo) ModeTech() ModeTech { return ModeTechPassiveISO15693 }

// ModeTech implements TechInfo
func (r RawTechInfo) ModeTech() ModeTech { return r.Mode }

func (NFCAInfo) techInfo()    {}
func (NFCBInfo) techInfo()    {}
func (NFCFInfo) techInfo()    {}
func (NFCVInfo) techInfo()    {}
func (RawTechInfo) techInfo() {}

// RemoteTarget describes a discovered or activated remote target
type RemoteTarget struct {
	Info        TechInfo
	Interface   RFInterface
	Protocol    RFProtocol
	DiscoveryID byte
	MoreTags    bool
}

// ModeTech returns the technology of the target, derived from Info
func (t *RemoteTarget) ModeTech() ModeTech {
	if t == nil || t.Info == nil {
		return ModeTechUndetermined
	}
	return t.Info.ModeTech()
}

// UID returns the target identifier: NFCID1 for NFC-A, NFCID0 for NFC-B,
// NFCID2 for NFC-F and the 8-byte UID for ISO15693.
func (t *RemoteTarget) UID() []byte {
	if t == nil {
		return nil
	}
	switch info := t.Info.(type) {
	case NFCAInfo:
		return slices.Clone(info.NFCID)
	case NFCBInfo:
		if len(info.SensRes) >= 5 {
			return slices.Clone(info.SensRes[1:5])
		}
	case NFCFInfo:
		if len(info.SensRes) >= 9 {
			return slices.Clone(info.SensRes[1:9])
		}
	case NFCVInfo:
		return slices.Clone(info.ID[:])
	}
	return nil
}

// Equal reports whether two descriptors identify the same target
func (t *RemoteTarget) Equal(o *RemoteTarget) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.Protocol == o.Protocol && t.ModeTech() == o.ModeTech() && bytes.Equal(t.UID(), o.UID())
}

func (t *RemoteTarget) String() string {
	if t == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s via %s interface (%s) uid=%X more=%t",
		t.Protocol, t.Interface, t.ModeTech(), t.UID(), t.MoreTags)
}

// parseActivation decodes an RF_INTF_ACTIVATED_NTF payload:
// discovery id, interface, protocol, mode/tech, max payload, credits,
// tech params length, tech params, then activation mode, tx and rx bit rates,
// activation params length and activation params.
func parseActivation(p []byte) (*RemoteTarget, error) {
	const paramsOffset = 7
	if len(p) < paramsOffset {
		return nil, fmt.Errorf("%w: RF_INTF_ACTIVATED_NTF payload %d bytes", ErrDecode, len(p))
	}
	n := int(p[6])
	if paramsOffset+n > len(p) {
		return nil, fmt.Errorf("%w: RF_INTF_ACTIVATED_NTF tech params length %d exceeds payload", ErrDecode, n)
	}
	params := p[paramsOffset : paramsOffset+n]

	var act []byte
	if off := paramsOffset + n; off+4 <= len(p) {
		m := int(p[off+3])
		if off+4+m > len(p) {
			return nil, fmt.Errorf("%w: RF_INTF_ACTIVATED_NTF activation params length %d exceeds payload", ErrDecode, m)
		}
		act = p[off+4 : off+4+m]
	}

	info, err := parseTechInfo(ModeTech(p[3]), params, act)
	if err != nil {
		return nil, err
	}
	return &RemoteTarget{
		DiscoveryID: p[0],
		Interface:   RFInterface(p[1]),
		Protocol:    RFProtocol(p[2]),
		Info:        info,
	}, nil
}

// discoverNotification is one decoded RF_DISCOVER_NTF
type discoverNotification struct {
	params   []byte
	id       byte
	protocol RFProtocol
	mode     ModeTech
	kind     byte
}

// parseDiscover decodes an RF_DISCOVER_NTF payload:
// discovery id, protocol, mode/tech, params length, params, notification type.
func parseDiscover(p []byte) (*discoverNotification, error) {
	if len(p) < 5 {
		return nil, fmt.Errorf("%w: RF_DISCOVER_NTF payload %d bytes", ErrDecode, len(p))
	}
	n := int(p[3])
	if 4+n+1 > len(p) {
		return nil, fmt.Errorf("%w: RF_DISCOVER_NTF params length %d exceeds payload", ErrDecode, n)
	}
	return &discoverNotification{
		id:       p[0],
		protocol: RFProtocol(p[1]),
		mode:     ModeTech(p[2]),
		params:   p[4 : 4+n],
		kind:     p[4+n],
	}, nil
}

func (d *discoverNotification) moreToCome() bool {
	return d.kind == discoverNtfMoreToCome
}

// parseTechInfo decodes poll-mode technology parameters. act carries the
// activation parameters (RATS or ATTRIB response) when present.
func parseTechInfo(mode ModeTech, params, act []byte) (TechInfo, error) {
	short := func(what string) error {
		return fmt.Errorf("%w: %s parameters truncated (%d bytes)", ErrDecode, what, len(params))
	}

	switch mode {
	case ModeTechPassiveNFCA:
		// SENS_RES(2), NFCID1 length, NFCID1, SEL_RES length, SEL_RES
		if len(params) < 3 {
			return nil, short("NFC-A")
		}
		info := NFCAInfo{SensRes: [2]byte{params[0], params[1]}}
		off := 2
		idLen := int(params[off])
		off++
		if off+idLen > len(params) {
			return nil, short("NFC-A")
		}
		info.NFCID = slices.Clone(params[off : off+idLen])
		off += idLen
		if off < len(params) {
			selLen := int(params[off])
			off++
			if off+selLen > len(params) {
				return nil, short("NFC-A")
			}
			info.SelRes = slices.Clone(params[off : off+selLen])
		}
		if len(act) > 0 && int(act[0])+1 <= len(act) {
			info.RATS = slices.Clone(act[1 : 1+int(act[0])])
		}
		return info, nil

	case ModeTechPassiveNFCB:
		// SENSB_RES length, SENSB_RES
		if len(params) < 1 || 1+int(params[0]) > len(params) {
			return nil, short("NFC-B")
		}
		info := NFCBInfo{SensRes: slices.Clone(params[1 : 1+int(params[0])])}
		if len(act) > 0 && int(act[0])+1 <= len(act) {
			info.AttribRes = slices.Clone(act[1 : 1+int(act[0])])
		}
		return info, nil

	case ModeTechPassiveNFCF:
		// bit rate, SENSF_RES length, SENSF_RES
		if len(params) < 2 || 2+int(params[1]) > len(params) {
			return nil, short("NFC-F")
		}
		return NFCFInfo{Bitrate: params[0], SensRes: slices.Clone(params[2 : 2+int(params[1])])}, nil

	case ModeTechPassiveISO15693:
		// AFI, DSFID, UID (least significant byte first)
		if len(params) < 10 {
			return nil, short("ISO15693")
		}
		info := NFCVInfo{AFI: params[0], DSFID: params[1]}
		for i := range 8 {
			info.ID[7-i] = params[2+i]
		}
		return info, nil

	default:
		return RawTechInfo{Mode: mode, Params: slices.Clone(params)}, nil
	}
}
