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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ZaparooProject/go-nci/internal/frame"
	itransport "github.com/ZaparooProject/go-nci/internal/transport"
)

// Forever disables the timeout of a wait; only the context ends it.
const Forever time.Duration = -1

// maxPendingNotifications bounds the queue of notifications received while a
// response was awaited.
const maxPendingNotifications = 8

// Session is a host-side NCI session with one NFC controller. It owns the
// transport, the correlation state and the RF discovery state machine.
//
// Thread Safety: Session is NOT thread-safe. NCI is half-duplex and only one
// exchange may be in flight, so all methods must be called from a single
// goroutine or protected with external synchronization.
type Session struct {
	transport *TransportWithRetry
	config    *Config
	log       *slog.Logger
	target    *RemoteTarget
	pending   []*ControlPacket
	info      ControllerInfo
	id        uuid.UUID
	state     DiscoveryState
	next      RFProtocol
	rxBuf     [frame.MaxFrameSize]byte
	txBuf     [frame.MaxFrameSize]byte
}

// New creates a session on the given transport. No I/O is performed until
// BringUp is called.
func New(transport Transport, opts ...Option) (*Session, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}

	s := &Session{
		config: DefaultConfig(),
		id:     uuid.New(),
		state:  StateIdle,
		next:   ProtocolUndetermined,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	logger := s.config.Logger
	if logger == nil {
		logger = defaultLogger()
	}
	s.log = logger.With("component", "nci", "session", s.id.String())
	s.transport = NewTransportWithRetry(transport, s.config.RetryConfig)
	return s, nil
}

// ID returns the session identifier attached to every log record
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Transport returns the underlying transport
func (s *Session) Transport() Transport {
	return s.transport.Unwrap()
}

// Close closes the underlying transport
func (s *Session) Close() error {
	if err := s.transport.Close(); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}

// State returns the discovery state
func (s *Session) State() DiscoveryState {
	return s.state
}

// Target returns the activated remote target, or nil when none is active
func (s *Session) Target() *RemoteTarget {
	return s.target
}

// NextProtocol returns the protocol of the candidate queued by a
// multi-target discovery, or ProtocolUndetermined when none is pending.
func (s *Session) NextProtocol() RFProtocol {
	return s.next
}

// SendAndReceive transmits cmd and waits for its response. A response is
// accepted only when its group and opcode match cmd; anything else fails with
// a *CorrelationError. Notifications received meanwhile are queued for
// ReceiveNotification. A zero timeout uses the configured default and Forever
// waits until ctx is done. The response status is not checked.
func (s *Session) SendAndReceive(ctx context.Context, cmd *ControlPacket, timeout time.Duration) (*ControlPacket, error) {
	if cmd == nil || cmd.Type != MessageTypeCommand {
		return nil, fmt.Errorf("%w: SendAndReceive requires a command packet", ErrInvalidParameter)
	}
	deadline := s.deadline(timeout)
	if err := s.send(cmd); err != nil {
		return nil, fmt.Errorf("%s: %w", messageName(cmd.GID, cmd.OID), err)
	}

	for {
		pkt, err := s.receive(ctx, deadline)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", messageName(cmd.GID, cmd.OID), err)
		}

		if ctrl, ok := pkt.(*ControlPacket); ok {
			if ctrl.Type == MessageTypeNotification {
				s.queueNotification(ctrl)
				continue
			}
			if ctrl.Is(MessageTypeResponse, cmd.GID, cmd.OID) {
				return ctrl, nil
			}
		}
		return nil, &CorrelationError{
			Want: messageName(cmd.GID, cmd.OID) + " RSP",
			Got:  fmt.Sprint(pkt),
		}
	}
}

// ReceiveNotification returns the next notification, serving queued ones
// first. It does not correlate with any command. Data packets and credit
// notifications are discarded. A zero timeout uses the configured default
// and Forever waits until ctx is done.
func (s *Session) ReceiveNotification(ctx context.Context, timeout time.Duration) (*ControlPacket, error) {
	if len(s.pending) > 0 {
		ntf := s.pending[0]
		s.pending[0] = nil
		s.pending = s.pending[1:]
		return ntf, nil
	}

	deadline := s.deadline(timeout)
	for {
		pkt, err := s.receive(ctx, deadline)
		if err != nil {
			return nil, fmt.Errorf("receive notification: %w", err)
		}
		switch p := pkt.(type) {
		case *ControlPacket:
			if p.Type != MessageTypeNotification {
				return nil, &CorrelationError{Want: "notification", Got: p.String()}
			}
			if s.filterNotification(p) {
				continue
			}
			return p, nil
		case *DataPacket:
			s.log.Debug("discarding unsolicited data packet", "conn", p.ConnID, "len", len(p.Payload))
		}
	}
}

// command sends a command and checks that its response carries StatusOK.
// On a status failure the response is returned along with a *StatusError.
func (s *Session) command(ctx context.Context, timeout time.Duration, gid GroupID, oid OpcodeID,
	payload ...byte,
) (*ControlPacket, error) {
	rsp, err := s.SendAndReceive(ctx, Command(gid, oid, payload...), timeout)
	if err != nil {
		return nil, err
	}
	if rsp.Status() != StatusOK {
		return rsp, statusError(rsp)
	}
	return rsp, nil
}

// awaitNotification waits for a notification with the given group and
// opcode, skipping any other notification.
func (s *Session) awaitNotification(ctx context.Context, timeout time.Duration, gid GroupID,
	oid OpcodeID,
) (*ControlPacket, error) {
	deadline := s.deadline(timeout)
	for {
		ntf, err := s.ReceiveNotification(ctx, remaining(deadline))
		if err != nil {
			return nil, fmt.Errorf("await %s: %w", messageName(gid, oid), err)
		}
		if ntf.Is(MessageTypeNotification, gid, oid) {
			return ntf, nil
		}
		s.log.Debug("skipping notification", "want", messageName(gid, oid), "got", ntf.String())
	}
}

// exchangeData sends a data packet and waits for the data packet answering
// it on the same connection. CORE_INTERFACE_ERROR_NTF ends the wait with a
// *StatusError carrying the RF error.
func (s *Session) exchangeData(ctx context.Context, pkt *DataPacket, timeout time.Duration) (*DataPacket, error) {
	deadline := s.deadline(timeout)
	if err := s.send(pkt); err != nil {
		return nil, fmt.Errorf("data exchange: %w", err)
	}

	for {
		rx, err := s.receive(ctx, deadline)
		if err != nil {
			return nil, fmt.Errorf("data exchange: %w", err)
		}
		switch p := rx.(type) {
		case *DataPacket:
			if p.ConnID != pkt.ConnID {
				return nil, &CorrelationError{
					Want: fmt.Sprintf("DATA conn=%d", pkt.ConnID),
					Got:  p.String(),
				}
			}
			return p, nil
		case *ControlPacket:
			if p.Is(MessageTypeNotification, GroupCore, OpCoreInterfaceErr) {
				return nil, statusError(p)
			}
			if p.Type != MessageTypeNotification {
				return nil, &CorrelationError{Want: fmt.Sprintf("DATA conn=%d", pkt.ConnID), Got: p.String()}
			}
			s.queueNotification(p)
		}
	}
}

func (s *Session) send(p Packet) error {
	frm, err := encodeInto(s.txBuf[:], p)
	if err != nil {
		return err
	}
	if s.log.Enabled(context.Background(), slog.LevelDebug) {
		s.log.Debug("nci tx", "frame", hex.EncodeToString(frm))
	}
	return s.transport.Transmit(frm)
}

// receive waits for the ready line and reads one packet
func (s *Session) receive(ctx context.Context, deadline time.Time) (Packet, error) {
	err := itransport.PollUntil(ctx, remaining(deadline), s.config.ReadyPollInterval, s.transport.Ready)
	switch {
	case errors.Is(err, itransport.ErrPollTimeout):
		return nil, NewTimeoutError("Receive", "")
	case err != nil && ctx.Err() != nil:
		return nil, err
	case err != nil:
		return nil, &TransportError{
			Op:        "Ready",
			Err:       fmt.Errorf("%w: %w", ErrTransportRead, err),
			Type:      ErrorTypeTransient,
			Retryable: true,
		}
	}

	frm, err := frame.ReadFrame(s.transport.Receive, s.rxBuf[:])
	if err != nil {
		if errors.Is(err, frame.ErrTooLarge) {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		return nil, &TransportError{
			Op:        "Receive",
			Err:       fmt.Errorf("%w: %w", ErrTransportRead, err),
			Type:      ErrorTypeTransient,
			Retryable: true,
		}
	}
	if s.log.Enabled(ctx, slog.LevelDebug) {
		s.log.Debug("nci rx", "frame", hex.EncodeToString(frm))
	}

	pkt, err := Decode(frm)
	if err != nil {
		if !errors.Is(err, ErrDecode) {
			err = fmt.Errorf("%w: %w", ErrDecode, err)
		}
		return nil, err
	}
	return pkt, nil
}

// filterNotification consumes notifications that carry no information for
// the caller. It reports whether ntf was consumed.
func (s *Session) filterNotification(ntf *ControlPacket) bool {
	switch {
	case ntf.Is(MessageTypeNotification, GroupCore, OpCoreConnCredits):
		return true
	case ntf.Is(MessageTypeNotification, GroupCore, OpCoreGenericError):
		s.log.Warn("controller reported generic error", "status", ntf.Status().String())
		return true
	case ntf.Is(MessageTypeNotification, GroupCore, OpCoreReset) && s.state != StateIdle:
		s.log.Warn("unexpected controller reset", "payload", hex.EncodeToString(ntf.Payload))
		return false
	default:
		return false
	}
}

func (s *Session) queueNotification(ntf *ControlPacket) {
	if s.filterNotification(ntf) {
		return
	}
	if len(s.pending) >= maxPendingNotifications {
		s.log.Warn("notification queue full, dropping oldest", "dropped", s.pending[0].String())
		s.pending = s.pending[1:]
	}
	s.pending = append(s.pending, ntf)
}

func (s *Session) deadline(timeout time.Duration) time.Time {
	switch {
	case timeout == 0:
		timeout = s.config.Timeout
	case timeout < 0:
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// remaining converts a deadline back to a timeout. A passed deadline still
// yields a positive timeout so that one ready check is made.
func remaining(deadline time.Time) time.Duration {
	if deadline.IsZero() {
		return Forever
	}
	if d := time.Until(deadline); d > 0 {
		return d
	}
	return time.Nanosecond
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
