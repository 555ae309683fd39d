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
	"errors"
	"fmt"
)

// DiscoveryState is the RF discovery state of a session
type DiscoveryState int

const (
	// StateIdle means RF discovery is not running
	StateIdle DiscoveryState = iota
	// StateDiscovering means the controller is polling for targets
	StateDiscovering
	// StateActivated means a target is activated and Target is set
	StateActivated
	// StateDeactivated means the last target was put to sleep or lost;
	// discovery must be stopped before it can be restarted
	StateDeactivated
)

func (s DiscoveryState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateActivated:
		return "activated"
	case StateDeactivated:
		return "deactivated"
	default:
		return fmt.Sprintf("DiscoveryState(%d)", int(s))
	}
}

// StartDiscovery starts RF polling for the configured technologies, each
// polled every discovery period. On a non-OK status the session stays idle.
func (s *Session) StartDiscovery(ctx context.Context) error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: start discovery in state %s", ErrInvalidState, s.state)
	}

	techs := s.config.Technologies
	payload := make([]byte, 0, 1+2*len(techs))
	payload = append(payload, byte(len(techs)))
	for _, t := range techs {
		payload = append(payload, byte(t), discoverFrequencyEvery)
	}

	s.pending = nil
	if _, err := s.command(ctx, 0, GroupRF, OpRFDiscover, payload...); err != nil {
		return fmt.Errorf("start discovery: %w", err)
	}
	s.state = StateDiscovering
	s.log.Debug("discovery started", "technologies", len(techs))
	return nil
}

// StopDiscovery returns the controller to RF idle. It does nothing when
// discovery is not running. A semantic-error status means the controller was
// already idle and is accepted.
func (s *Session) StopDiscovery(ctx context.Context) error {
	if s.state == StateIdle {
		return nil
	}

	rsp, err := s.command(ctx, 0, GroupRF, OpRFDeactivate, DeactivateIdle)
	switch {
	case err == nil:
		if _, err := s.awaitNotification(ctx, s.config.PollTimeout, GroupRF, OpRFDeactivate); err != nil {
			s.log.Debug("no deactivation notification", "error", err)
		}
	case rsp != nil && rsp.Status() == StatusSemanticError:
		s.log.Debug("discovery already stopped")
	default:
		return fmt.Errorf("stop discovery: %w", err)
	}

	s.resetTarget()
	s.state = StateIdle
	return nil
}

// WaitForTarget blocks until a target is activated or ctx is done. A single
// target arrives as RF_INTF_ACTIVATED_NTF. Several targets arrive as a run of
// RF_DISCOVER_NTF; the first is selected and the protocol of the last one is
// kept for ActivateNext.
func (s *Session) WaitForTarget(ctx context.Context) (*RemoteTarget, error) {
	if s.state != StateDiscovering {
		return nil, fmt.Errorf("%w: wait for target in state %s", ErrInvalidState, s.state)
	}

	for {
		ntf, err := s.ReceiveNotification(ctx, Forever)
		if err != nil {
			return nil, fmt.Errorf("wait for target: %w", err)
		}

		switch {
		case ntf.Is(MessageTypeNotification, GroupRF, OpRFIntfActivated):
			target, err := parseActivation(ntf.Payload)
			if err != nil {
				return nil, fmt.Errorf("wait for target: %w", err)
			}
			s.next = ProtocolUndetermined
			s.activated(target)
			return target, nil

		case ntf.Is(MessageTypeNotification, GroupRF, OpRFDiscover):
			return s.selectFromDiscovery(ctx, ntf)

		default:
			s.log.Debug("ignoring notification while discovering", "ntf", ntf.String())
		}
	}
}

// selectFromDiscovery drains the RF_DISCOVER_NTF run starting with first and
// selects the first candidate.
func (s *Session) selectFromDiscovery(ctx context.Context, first *ControlPacket) (*RemoteTarget, error) {
	cand, err := parseDiscover(first.Payload)
	if err != nil {
		return nil, fmt.Errorf("wait for target: %w", err)
	}

	last := cand
	for last.moreToCome() {
		ntf, err := s.awaitNotification(ctx, s.config.PollTimeout, GroupRF, OpRFDiscover)
		if err != nil {
			return nil, fmt.Errorf("drain discover notifications: %w", err)
		}
		if last, err = parseDiscover(ntf.Payload); err != nil {
			return nil, fmt.Errorf("drain discover notifications: %w", err)
		}
	}

	s.next = ProtocolUndetermined
	if last != cand {
		s.next = last.protocol
	}
	s.log.Debug("multiple targets discovered",
		"selecting", cand.protocol.String(), "next", s.next.String())

	target, err := s.selectTarget(ctx, primaryDiscoveryID, cand.protocol)
	if err != nil {
		return nil, err
	}
	target.MoreTags = true
	return target, nil
}

// ActivateNext puts the current target to sleep and selects the candidate
// queued by a multi-target discovery. It fails with ErrNoPendingTarget,
// without any I/O, when no candidate is queued.
func (s *Session) ActivateNext(ctx context.Context) (*RemoteTarget, error) {
	if s.next == ProtocolUndetermined {
		return nil, ErrNoPendingTarget
	}
	if s.state != StateActivated {
		return nil, fmt.Errorf("%w: activate next in state %s", ErrInvalidState, s.state)
	}

	protocol := s.next
	if _, err := s.command(ctx, 0, GroupRF, OpRFDeactivate, DeactivateSleep); err != nil {
		return nil, fmt.Errorf("activate next: %w", err)
	}
	s.deactivated()
	// The pending target is consumed once the current one sleeps, whether or
	// not its selection succeeds.
	s.next = ProtocolUndetermined
	if _, err := s.awaitNotification(ctx, s.config.PollTimeout, GroupRF, OpRFDeactivate); err != nil {
		return nil, fmt.Errorf("activate next: %w", err)
	}

	return s.selectTarget(ctx, nextDiscoveryID, protocol)
}

// Reactivate puts the current target to sleep and selects it again with the
// same protocol and interface.
func (s *Session) Reactivate(ctx context.Context) (*RemoteTarget, error) {
	if s.target == nil || s.state != StateActivated {
		return nil, ErrNotActivated
	}
	more := s.target.MoreTags
	target, err := s.reactivate(ctx, s.target.Protocol)
	if err != nil {
		return nil, err
	}
	target.MoreTags = more
	return target, nil
}

// reactivate is the sleep/select cycle shared by Reactivate and the MIFARE
// presence check.
func (s *Session) reactivate(ctx context.Context, protocol RFProtocol) (*RemoteTarget, error) {
	if _, err := s.command(ctx, 0, GroupRF, OpRFDeactivate, DeactivateSleep); err != nil {
		return nil, fmt.Errorf("reactivate: %w", err)
	}
	s.deactivated()
	if _, err := s.awaitNotification(ctx, s.config.PollTimeout, GroupRF, OpRFDeactivate); err != nil {
		s.log.Debug("no deactivation notification", "error", err)
	}
	return s.selectTarget(ctx, primaryDiscoveryID, protocol)
}

// selectTarget sends RF_DISCOVER_SELECT_CMD for protocol on the interface
// derived from it and waits for the activation.
func (s *Session) selectTarget(ctx context.Context, discoveryID byte, protocol RFProtocol) (*RemoteTarget, error) {
	intf := InterfaceFor(protocol)
	if _, err := s.command(ctx, 0, GroupRF, OpRFDiscoverSelect, discoveryID, byte(protocol), byte(intf)); err != nil {
		return nil, fmt.Errorf("select %s: %w", protocol, err)
	}

	ntf, err := s.awaitNotification(ctx, s.config.PollTimeout, GroupRF, OpRFIntfActivated)
	if err != nil {
		s.deactivated()
		return nil, fmt.Errorf("select %s: %w", protocol, err)
	}
	target, err := parseActivation(ntf.Payload)
	if err != nil {
		s.deactivated()
		return nil, fmt.Errorf("select %s: %w", protocol, err)
	}
	s.activated(target)
	return target, nil
}

func (s *Session) activated(target *RemoteTarget) {
	s.target = target
	s.state = StateActivated
	s.log.Info("target activated",
		"protocol", target.Protocol.String(),
		"interface", target.Interface.String(),
		"tech", target.ModeTech().String(),
		"uid", fmt.Sprintf("%X", target.UID()))
}

func (s *Session) deactivated() {
	s.target = nil
	s.state = StateDeactivated
}

func (s *Session) resetTarget() {
	s.target = nil
	s.next = ProtocolUndetermined
}

// isRFFailure reports whether err is an expected negative RF outcome
// (timeout, mismatch, status or malformed answer) rather than a failure of
// the link to the controller.
func isRFFailure(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrCorrelation) ||
		errors.Is(err, ErrStatus) ||
		errors.Is(err, ErrDecode)
}
