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
	"fmt"
	"time"

	itransport "github.com/ZaparooProject/go-nci/internal/transport"
)

// Transport is the half-duplex byte link to the NFC controller. Each call is a
// complete bus transaction; implementations add any bus-level prefix bytes.
type Transport interface {
	// Transmit writes one complete NCI frame
	Transmit(frame []byte) error

	// Ready reports whether the controller signals pending data
	Ready() (bool, error)

	// Receive reads exactly len(buf) bytes of the pending frame
	Receive(buf []byte) error

	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportSPI represents SPI bus transport.
	TransportSPI TransportType = "spi"
	// TransportI2C represents I2C bus transport.
	TransportI2C TransportType = "i2c"
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportKernel represents a kernel character device (pn5xx_i2c, nxpnfc).
	TransportKernel TransportType = "kernel"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// RetryConfig configures transmit retries
type RetryConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultRetryConfig retries a failed transmit once after 10ms, covering the
// controller's wake-up latency from standby.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
	}
}

// TransportWithRetry wraps a Transport with transmit retry
type TransportWithRetry struct {
	Transport
	config *RetryConfig
}

// NewTransportWithRetry creates a new transport wrapper with retry logic
func NewTransportWithRetry(transport Transport, config *RetryConfig) *TransportWithRetry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &TransportWithRetry{
		Transport: transport,
		config:    config,
	}
}

// Transmit sends a frame, retrying after RetryDelay on failure
func (t *TransportWithRetry) Transmit(frm []byte) error {
	var lastErr error
	_, err := itransport.WithRetry(itransport.RetryConfig{
		Description: "transmit",
		MaxRetries:  t.config.MaxRetries,
		RetryDelay:  t.config.RetryDelay,
		OnRetryFailed: func() error {
			return lastErr
		},
	}, func() (struct{}, bool, error) {
		if lastErr = t.Transport.Transmit(frm); lastErr != nil {
			debugf("transmit failed, retrying: %v", lastErr)
			return struct{}{}, true, nil
		}
		return struct{}{}, false, nil
	})
	if err != nil {
		return &TransportError{
			Op:        "Transmit",
			Err:       fmt.Errorf("%w: %w", ErrTransportWrite, err),
			Type:      ErrorTypeTransient,
			Retryable: true,
		}
	}
	return nil
}

// SetRetryConfig updates the retry configuration
func (t *TransportWithRetry) SetRetryConfig(config *RetryConfig) {
	if config != nil {
		t.config = config
	}
}

// Unwrap returns the underlying transport
func (t *TransportWithRetry) Unwrap() Transport {
	return t.Transport
}
