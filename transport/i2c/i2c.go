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

// Package i2c provides the I2C transport for NCI controllers (PN7150, PN7160)
package i2c

import (
	"fmt"

	nci "github.com/ZaparooProject/go-nci"
	"github.com/ZaparooProject/go-nci/internal/frame"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddress is the 7-bit address of a PN7150/PN7160 with both
	// address pins tied low.
	DefaultAddress = 0x28

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz
)

// Option configures the transport
type Option func(*Transport) error

// WithAddress overrides the controller's 7-bit I2C address
func WithAddress(addr uint16) Option {
	return func(t *Transport) error {
		if addr > 0x7F {
			return fmt.Errorf("%w: I2C address 0x%X", nci.ErrInvalidParameter, addr)
		}
		t.addr = addr
		return nil
	}
}

// WithIRQPin reads controller readiness from the named GPIO (e.g. "GPIO23").
// Without an IRQ line Ready reads the frame header ahead and treats a NACK
// as nothing queued.
func WithIRQPin(name string) Option {
	return func(t *Transport) error {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return fmt.Errorf("%w: unknown GPIO %q", nci.ErrInvalidParameter, name)
		}
		return WithIRQ(pin)(t)
	}
}

// WithIRQ uses an already-resolved pin as the IRQ line
func WithIRQ(pin gpio.PinIn) Option {
	return func(t *Transport) error {
		if err := pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
			return fmt.Errorf("failed to configure IRQ pin %s: %w", pin, err)
		}
		t.irq = pin
		return nil
	}
}

// Transport implements the nci.Transport interface for I2C communication
type Transport struct {
	bus     i2c.Bus
	closer  func() error
	irq     gpio.PinIn
	dev     *i2c.Dev
	busName string
	header  [frame.HeaderSize]byte
	addr    uint16
	peeked  bool
}

// New opens the named I2C bus (e.g. "/dev/i2c-1" or "1")
func New(busName string, opts ...Option) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	_ = bus.SetSpeed(maxClockFreq) // Ignore error, continue with default speed

	t, err := newTransport(bus, busName, opts...)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	t.closer = bus.Close
	return t, nil
}

func newTransport(bus i2c.Bus, busName string, opts ...Option) (*Transport, error) {
	t := &Transport{
		bus:     bus,
		busName: busName,
		addr:    DefaultAddress,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	t.dev = &i2c.Dev{Addr: t.addr, Bus: bus}
	return t, nil
}

// Transmit writes one NCI frame in a single I2C write
func (t *Transport) Transmit(frm []byte) error {
	if t.dev == nil {
		return nci.NewTransportError("Transmit", t.busName, nci.ErrTransportClosed, nci.ErrorTypePermanent)
	}
	if err := t.dev.Tx(frm, nil); err != nil {
		return nci.NewTransportError("Transmit", t.busName,
			fmt.Errorf("%w: %w", nci.ErrTransportWrite, err), nci.ErrorTypeTransient)
	}
	return nil
}

// Ready reports the IRQ line level
func (t *Transport) Ready() (bool, error) {
	if t.dev == nil {
		return false, nci.NewTransportError("Ready", t.busName, nci.ErrTransportClosed, nci.ErrorTypePermanent)
	}
	if t.irq == nil {
		return t.peekHeader(), nil
	}
	return t.irq.Read() == gpio.High, nil
}

// peekHeader reads the next frame header into t.header. The controller NACKs
// its address while it has nothing to send.
func (t *Transport) peekHeader() bool {
	if t.peeked {
		return true
	}
	if err := t.dev.Tx(nil, t.header[:]); err != nil {
		return false
	}
	t.peeked = true
	return true
}

// Receive reads len(buf) bytes in one I2C read. The controller keeps its
// position within a frame across reads, so header and payload are read
// separately. A header already read by Ready is served first.
func (t *Transport) Receive(buf []byte) error {
	if t.dev == nil {
		return nci.NewTransportError("Receive", t.busName, nci.ErrTransportClosed, nci.ErrorTypePermanent)
	}
	if t.peeked {
		t.peeked = false
		buf = buf[copy(buf, t.header[:]):]
		if len(buf) == 0 {
			return nil
		}
	}
	if err := t.dev.Tx(nil, buf); err != nil {
		return nci.NewTransportError("Receive", t.busName,
			fmt.Errorf("%w: %w", nci.ErrTransportRead, err), nci.ErrorTypeTransient)
	}
	return nil
}

// Close closes the transport connection
func (t *Transport) Close() error {
	t.dev = nil
	t.peeked = false
	if t.closer == nil {
		return nil
	}
	closer := t.closer
	t.closer = nil
	if err := closer(); err != nil {
		return fmt.Errorf("failed to close I2C bus %s: %w", t.busName, err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	return t.dev != nil
}

// Type returns the transport type
func (*Transport) Type() nci.TransportType {
	return nci.TransportI2C
}

// Ensure Transport implements nci.Transport
var _ nci.Transport = (*Transport)(nil)
