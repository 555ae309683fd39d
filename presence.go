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
	"fmt"
)

// Presence check commands
var (
	// T1T RID with a zeroed UID
	presenceT1T = []byte{0x78, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	// T2T READ of block 0
	presenceT2T = []byte{0x30, 0x00}
	// RF_T3T_POLLING: wildcard system code, request code 1, two time slots
	presenceT3T = []byte{0xFF, 0xFF, 0x01, 0x01}
)

const (
	// T2T READ returns 16 data bytes plus the status byte added by the
	// controller
	t2tReadResponseLen = 17

	iso15693FlagsInventory = 0x26
	iso15693CmdInventory   = 0x01
	iso15693FullMaskBits   = 0x40
)

// ProbePresence checks once whether the activated target still answers.
// A target that does not answer as expected is reported absent with a nil
// error; only link failures and cancellation are returned as errors.
func (s *Session) ProbePresence(ctx context.Context) (bool, error) {
	if s.target == nil || s.state != StateActivated {
		return false, ErrNotActivated
	}

	// The MIFARE probe reselects the target and clears it when that fails
	protocol := s.target.Protocol
	present, err := s.probe(ctx, s.target)
	switch {
	case err == nil:
		return present, nil
	case ctx.Err() != nil:
		return false, ctx.Err()
	case isRFFailure(err):
		s.log.Debug("presence probe failed", "protocol", protocol.String(), "error", err)
		return false, nil
	default:
		return false, fmt.Errorf("presence check: %w", err)
	}
}

// CheckPresence blocks while the activated target stays in the field,
// probing every presence interval. It returns nil once the target is gone,
// ctx.Err() when cancelled and ErrTargetStillPresent when the configured
// maximum number of checks is reached.
func (s *Session) CheckPresence(ctx context.Context) error {
	if s.target == nil || s.state != StateActivated {
		return ErrNotActivated
	}
	protocol := s.target.Protocol
	if !presenceSupported(protocol) {
		return fmt.Errorf("%w: presence check for %s", ErrUnsupportedProtocol, protocol)
	}

	for i := 0; s.config.MaxPresenceChecks == 0 || i < s.config.MaxPresenceChecks; i++ {
		if err := sleep(ctx, s.config.PresenceInterval); err != nil {
			return err
		}
		present, err := s.ProbePresence(ctx)
		if err != nil {
			return err
		}
		if !present {
			s.log.Info("target removed", "protocol", protocol.String())
			s.deactivated()
			s.next = ProtocolUndetermined
			return nil
		}
	}
	return ErrTargetStillPresent
}

func presenceSupported(p RFProtocol) bool {
	switch p {
	case ProtocolT1T, ProtocolT2T, ProtocolT3T, ProtocolISODEP, ProtocolT5T, ProtocolMIFARE:
		return true
	default:
		return false
	}
}

func (s *Session) probe(ctx context.Context, target *RemoteTarget) (bool, error) {
	timeout := s.config.PollTimeout

	switch target.Protocol {
	case ProtocolT1T:
		_, err := s.exchangeData(ctx, &DataPacket{ConnID: StaticConnID, Payload: presenceT1T}, timeout)
		return err == nil, err

	case ProtocolT2T:
		rsp, err := s.exchangeData(ctx, &DataPacket{ConnID: StaticConnID, Payload: presenceT2T}, timeout)
		if err != nil {
			return false, err
		}
		return len(rsp.Payload) == t2tReadResponseLen, nil

	case ProtocolT3T:
		if _, err := s.command(ctx, timeout, GroupRF, OpRFT3TPolling, presenceT3T...); err != nil {
			return false, err
		}
		ntf, err := s.awaitNotification(ctx, timeout, GroupRF, OpRFT3TPolling)
		if err != nil {
			return false, err
		}
		// status, number of responses, responses
		if len(ntf.Payload) < 2 {
			return false, nil
		}
		return ntf.Status() == StatusOK || ntf.Payload[1] > 0, nil

	case ProtocolISODEP:
		if _, err := s.command(ctx, timeout, GroupProprietary, OpPropISODEPPresence); err != nil {
			return false, err
		}
		ntf, err := s.awaitNotification(ctx, timeout, GroupProprietary, OpPropISODEPPresence)
		if err != nil {
			return false, err
		}
		// 0x01 reports the card answered, 0x00 that it did not
		return len(ntf.Payload) == 1 && ntf.Payload[0] != 0x00, nil

	case ProtocolT5T:
		info, ok := target.Info.(NFCVInfo)
		if !ok {
			return false, fmt.Errorf("%w: T5T target without ISO15693 parameters", ErrUnsupportedProtocol)
		}
		rsp, err := s.exchangeData(ctx, &DataPacket{ConnID: StaticConnID, Payload: t5tInventory(info.ID)}, timeout)
		if err != nil {
			return false, err
		}
		if len(rsp.Payload) == 0 {
			return false, nil
		}
		// The trailing status byte must be nonzero to keep polling.
		// TODO: confirm against ISO15693 flag semantics; every other protocol
		// continues on a positive indication.
		return rsp.Payload[len(rsp.Payload)-1] != 0x00, nil

	case ProtocolMIFARE:
		more := target.MoreTags
		next, err := s.reactivate(ctx, ProtocolMIFARE)
		if err != nil {
			return false, err
		}
		next.MoreTags = more
		return true, nil

	default:
		return false, fmt.Errorf("%w: presence check for %s", ErrUnsupportedProtocol, target.Protocol)
	}
}

// t5tInventory builds an ISO15693 INVENTORY masked with the full UID, which
// goes on the air least significant byte first.
func t5tInventory(id [8]byte) []byte {
	cmd := make([]byte, 0, 11)
	cmd = append(cmd, iso15693FlagsInventory, iso15693CmdInventory, iso15693FullMaskBits)
	for i := 7; i >= 0; i-- {
		cmd = append(cmd, id[i])
	}
	return cmd
}
