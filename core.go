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
	"context"
	"encoding/hex"
	"fmt"
)

// Proprietary power modes for PROP_SET_POWER_MODE_CMD
const (
	powerModeStandbyDisabled byte = 0x00
	powerModeStandbyEnabled  byte = 0x01
)

// FirmwareVersion is the controller firmware triplet reported in
// CORE_RESET_NTF
type FirmwareVersion struct {
	ROMCode byte
	Major   byte
	Minor   byte
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%02X.%02X.%02X", v.ROMCode, v.Major, v.Minor)
}

// ControllerInfo describes the controller as reported during bring-up
type ControllerInfo struct {
	ManufacturerInfo []byte
	Firmware         FirmwareVersion
	ResetTrigger     byte
	ConfigStatus     byte
	NCIVersion       byte
	ManufacturerID   byte
	MaxLogicalConns  byte
	MaxControlPacket byte
}

// FirmwareVersion returns the firmware version read during BringUp
func (s *Session) FirmwareVersion() FirmwareVersion {
	return s.info.Firmware
}

// ControllerInfo returns the controller description read during BringUp
func (s *Session) ControllerInfo() ControllerInfo {
	return s.info
}

// BringUp resets and configures the controller:
// CORE_RESET, CORE_INIT, the NXP proprietary activation and power mode,
// CORE_SET_CONFIG for every configured parameter set, CORE_INIT again to
// apply them, and finally RF_DISCOVER_MAP. The first failing step aborts.
func (s *Session) BringUp(ctx context.Context) error {
	s.state = StateIdle
	s.target = nil
	s.next = ProtocolUndetermined
	s.pending = nil
	s.info = ControllerInfo{}

	if err := s.coreReset(ctx); err != nil {
		return fmt.Errorf("core reset: %w", err)
	}
	if err := s.coreInit(ctx); err != nil {
		return fmt.Errorf("core init: %w", err)
	}

	if s.config.Proprietary {
		if _, err := s.command(ctx, 0, GroupProprietary, OpPropAct); err != nil {
			return fmt.Errorf("proprietary activation: %w", err)
		}
		mode := powerModeStandbyDisabled
		if s.config.Standby {
			mode = powerModeStandbyEnabled
		}
		if _, err := s.command(ctx, 0, GroupProprietary, OpPropSetPowerMode, mode); err != nil {
			return fmt.Errorf("set power mode: %w", err)
		}
	}

	if len(s.config.Parameters) > 0 {
		for i, set := range s.config.Parameters {
			payload, err := encodeParameterSet(set)
			if err != nil {
				return fmt.Errorf("parameter set %d: %w", i, err)
			}
			if _, err := s.command(ctx, 0, GroupCore, OpCoreSetConfig, payload...); err != nil {
				return fmt.Errorf("parameter set %d: %w", i, err)
			}
		}
		// Configuration only takes effect after a new CORE_INIT
		if err := s.coreInit(ctx); err != nil {
			return fmt.Errorf("core init after configuration: %w", err)
		}
	}

	if err := s.discoverMap(ctx); err != nil {
		return fmt.Errorf("discover map: %w", err)
	}

	s.log.Info("controller ready",
		"nci_version", fmt.Sprintf("0x%02X", s.info.NCIVersion),
		"firmware", s.info.Firmware.String(),
		"manufacturer", fmt.Sprintf("0x%02X", s.info.ManufacturerID))
	return nil
}

func (s *Session) coreReset(ctx context.Context) error {
	rsp, err := s.command(ctx, 0, GroupCore, OpCoreReset, coreResetKeepConfig)
	if err != nil {
		return err
	}

	// NCI 1.x answers with status, version and config status in the response
	// itself and sends no notification.
	if len(rsp.Payload) >= 3 {
		s.info.NCIVersion = rsp.Payload[1]
		s.info.ConfigStatus = rsp.Payload[2]
		return s.checkVersion(s.info.NCIVersion)
	}

	ntf, err := s.awaitNotification(ctx, s.config.PollTimeout, GroupCore, OpCoreReset)
	if err != nil {
		if IsTimeout(err) {
			s.log.Warn("no CORE_RESET_NTF received, continuing")
			return nil
		}
		return err
	}
	if err := s.parseResetNotification(ntf.Payload); err != nil {
		return err
	}
	return s.checkVersion(s.info.NCIVersion)
}

// parseResetNotification reads CORE_RESET_NTF:
// trigger, config status, NCI version, manufacturer id, info length, info.
// NXP controllers end the manufacturer info with the firmware triplet.
func (s *Session) parseResetNotification(p []byte) error {
	if len(p) < 5 {
		return fmt.Errorf("%w: CORE_RESET_NTF payload %d bytes", ErrDecode, len(p))
	}
	s.info.ResetTrigger = p[0]
	s.info.ConfigStatus = p[1]
	s.info.NCIVersion = p[2]
	s.info.ManufacturerID = p[3]

	n := int(p[4])
	if 5+n > len(p) {
		return fmt.Errorf("%w: CORE_RESET_NTF manufacturer info length %d exceeds payload", ErrDecode, n)
	}
	info := p[5 : 5+n]
	s.info.ManufacturerInfo = append([]byte(nil), info...)
	if n >= 3 {
		s.info.Firmware = FirmwareVersion{ROMCode: info[n-3], Major: info[n-2], Minor: info[n-1]}
	}
	s.log.Debug("controller reset",
		"trigger", s.info.ResetTrigger,
		"manufacturer_info", hex.EncodeToString(s.info.ManufacturerInfo))
	return nil
}

func (s *Session) checkVersion(v byte) error {
	if v != s.config.ExpectedVersion {
		return fmt.Errorf("%w: controller reports 0x%02X, expected 0x%02X",
			ErrVersionMismatch, v, s.config.ExpectedVersion)
	}
	return nil
}

// coreInit sends CORE_INIT. NCI 2.0 carries two feature bytes, all disabled.
func (s *Session) coreInit(ctx context.Context) error {
	var payload []byte
	if s.config.ExpectedVersion >= NCIVersion20 {
		payload = []byte{0x00, 0x00}
	}
	rsp, err := s.command(ctx, 0, GroupCore, OpCoreInit, payload...)
	if err != nil {
		return err
	}
	s.parseInitResponse(rsp.Payload)
	return nil
}

// parseInitResponse records the connection and packet limits. The layout
// differs between NCI 1.x and 2.0; short payloads are ignored.
func (s *Session) parseInitResponse(p []byte) {
	if s.config.ExpectedVersion >= NCIVersion20 {
		// status, features(4), max logical conns, max routing(2), max ctrl payload
		if len(p) >= 9 {
			s.info.MaxLogicalConns = p[5]
			s.info.MaxControlPacket = p[8]
		}
		return
	}
	// status, features(4), n interfaces, interfaces..., max logical conns,
	// max routing(2), max ctrl payload
	if len(p) < 6 {
		return
	}
	off := 6 + int(p[5])
	if off+4 <= len(p) {
		s.info.MaxLogicalConns = p[off]
		s.info.MaxControlPacket = p[off+3]
	}
}

// discoverMap binds protocols to RF interfaces for poll mode
func (s *Session) discoverMap(ctx context.Context) error {
	const modePoll = 0x01
	mapped := []RFProtocol{ProtocolISODEP, ProtocolNFCDEP, ProtocolMIFARE}

	payload := []byte{byte(len(mapped))}
	for _, p := range mapped {
		payload = append(payload, byte(p), modePoll, byte(InterfaceFor(p)))
	}
	_, err := s.command(ctx, 0, GroupRF, OpRFDiscoverMap, payload...)
	return err
}
