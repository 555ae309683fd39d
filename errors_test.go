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
	"testing"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "timeout retryable", err: ErrTimeout, want: true},
		{name: "transport read retryable", err: ErrTransportRead, want: true},
		{name: "transport write retryable", err: ErrTransportWrite, want: true},
		{name: "wrapped transport write", err: fmt.Errorf("CORE_INIT: %w", ErrTransportWrite), want: true},
		{name: "correlation not retryable", err: ErrCorrelation, want: false},
		{name: "status not retryable", err: &StatusError{GID: GroupRF, OID: OpRFDiscover, Status: StatusFailed}, want: false},
		{name: "decode not retryable", err: ErrDecode, want: false},
		{name: "invalid parameter not retryable", err: ErrInvalidParameter, want: false},
		{name: "unwrapped text", err: errors.New("outer: " + ErrTimeout.Error()), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsRetryable(tt.err)
			if got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRetryable_TransportError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		transport *TransportError
		name      string
		want      bool
	}{
		{
			name: "transport error retryable=true",
			transport: &TransportError{
				Err:       errors.New("test error"),
				Op:        "Receive",
				Port:      "/dev/spidev0.0",
				Type:      ErrorTypeTransient,
				Retryable: true,
			},
			want: true,
		},
		{
			name: "retryable underlying error but retryable=false",
			transport: &TransportError{
				Err:       ErrTimeout,
				Op:        "Receive",
				Port:      "/dev/spidev0.0",
				Type:      ErrorTypeTimeout,
				Retryable: false,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsRetryable(tt.transport)
			if got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		name string
		want ErrorType
	}{
		{name: "nil error", err: nil, want: ErrorTypePermanent},
		{name: "timeout", err: ErrTimeout, want: ErrorTypeTimeout},
		{name: "transport read", err: ErrTransportRead, want: ErrorTypeTransient},
		{name: "transport write", err: ErrTransportWrite, want: ErrorTypeTransient},
		{name: "timeout transport error", err: NewTimeoutError("Receive", ""), want: ErrorTypeTimeout},
		{name: "correlation", err: &CorrelationError{Want: "a", Got: "b"}, want: ErrorTypePermanent},
		{name: "unknown error", err: errors.New("unknown error"), want: ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := GetErrorType(tt.err)
			if got != tt.want {
				t.Errorf("GetErrorType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewTransportError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err           error
		name          string
		op            string
		port          string
		wantMsg       string
		errType       ErrorType
		wantRetryable bool
	}{
		{
			name:          "transient with port",
			op:            "Transmit",
			port:          "/dev/ttyS0",
			err:           ErrTransportWrite,
			errType:       ErrorTypeTransient,
			wantMsg:       "Transmit on /dev/ttyS0: transport write failed",
			wantRetryable: true,
		},
		{
			name:          "permanent without port",
			op:            "Open",
			err:           errors.New("no such device"),
			errType:       ErrorTypePermanent,
			wantMsg:       "Open: no such device",
			wantRetryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NewTransportError(tt.op, tt.port, tt.err, tt.errType)
			if got.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got.Error(), tt.wantMsg)
			}
			if got.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.wantRetryable)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("errors.Is(%v, %v) = false", got, tt.err)
			}
		})
	}
}

func TestProtocolErrorsUnwrap(t *testing.T) {
	t.Parallel()

	se := &StatusError{GID: GroupRF, OID: OpRFDiscoverSelect, Status: StatusActivationFailed}
	if !errors.Is(se, ErrStatus) {
		t.Error("StatusError must unwrap to ErrStatus")
	}
	if want := "RF_DISCOVER_SELECT: status DISCOVERY_TARGET_ACTIVATION_FAILED"; se.Error() != want {
		t.Errorf("Error() = %q, want %q", se.Error(), want)
	}

	ce := &CorrelationError{Want: "CORE_INIT RSP", Got: "RSP CORE_RESET"}
	if !errors.Is(fmt.Errorf("wrapped: %w", ce), ErrCorrelation) {
		t.Error("CorrelationError must unwrap to ErrCorrelation")
	}
	if !IsTimeout(NewTimeoutError("Receive", "")) {
		t.Error("timeout error must report IsTimeout")
	}
}
