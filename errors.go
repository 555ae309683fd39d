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
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-nci/internal/frame"
)

// Transport errors
var (
	ErrTransportWrite  = errors.New("transport write failed")
	ErrTransportRead   = errors.New("transport read failed")
	ErrTransportClosed = errors.New("transport closed")
	ErrTimeout         = errors.New("operation timeout")
)

// Protocol errors
var (
	ErrCorrelation     = errors.New("response does not correlate with request")
	ErrStatus          = errors.New("non-OK status")
	ErrDecode          = errors.New("malformed packet")
	ErrUnknownMessage  = errors.New("undefined message type/GID/OID")
	ErrFrameTooLarge   = frame.ErrTooLarge
	ErrVersionMismatch = errors.New("unexpected NCI version")
)

// Session errors
var (
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrInvalidState        = errors.New("invalid state for operation")
	ErrNoPendingTarget     = errors.New("no further target pending selection")
	ErrNotActivated        = errors.New("no activated target")
	ErrUnsupportedProtocol = errors.New("unsupported RF protocol")
	ErrTargetStillPresent  = errors.New("target still present after maximum presence checks")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors will not succeed on retry
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on retry
	ErrorTypeTransient
	// ErrorTypeTimeout errors are timeouts waiting for the controller
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// TransportError wraps a byte-level transport failure with context
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a TransportError
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a TransportError for an expired wait
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTimeout, ErrorTypeTimeout)
}

// StatusError reports a correlated response carrying a non-OK status
type StatusError struct {
	GID    GroupID
	OID    OpcodeID
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %s", messageName(e.GID, e.OID), e.Status)
}

func (*StatusError) Unwrap() error {
	return ErrStatus
}

// CorrelationError reports a received packet that does not answer the
// outstanding request
type CorrelationError struct {
	Want string
	Got  string
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("expected %s, got %s", e.Want, e.Got)
}

func (*CorrelationError) Unwrap() error {
	return ErrCorrelation
}

// IsRetryable reports whether err may succeed when the caller retries
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return errors.Is(err, ErrTransportWrite) ||
		errors.Is(err, ErrTransportRead) ||
		errors.Is(err, ErrTimeout)
}

// GetErrorType returns the classification of err
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}
	switch {
	case errors.Is(err, ErrTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrTransportWrite), errors.Is(err, ErrTransportRead):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}

// IsTimeout reports whether err is a timeout rather than a hard failure
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func statusError(pkt *ControlPacket) error {
	return &StatusError{GID: pkt.GID, OID: pkt.OID, Status: pkt.Status()}
}
