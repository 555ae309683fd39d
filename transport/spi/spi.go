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

// Package spi provides the SPI transport for NCI controllers (PN7160)
package spi

import (
	"fmt"

	nci "github.com/ZaparooProject/go-nci"
	"github.com/ZaparooProject/go-nci/internal/frame"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// Every transaction starts with a direction byte.
	spiWrite = 0x7F
	spiRead  = 0xFF

	// Default SPI settings
	defaultFreq = 1 * physic.MegaHertz
	mode        = spi.Mode0
)

// Option configures the transport
type Option func(*Transport) error

// WithFrequency overrides the SPI clock (the PN7160 accepts up to 7 MHz)
func WithFrequency(f physic.Frequency) Option {
	return func(t *Transport) error {
		if f <= 0 || f > 7*physic.MegaHertz {
			return fmt.Errorf("%w: SPI frequency %s", nci.ErrInvalidParameter, f)
		}
		t.freq = f
		return nil
	}
}

// WithIRQPin reads controller readiness from the named GPIO
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

// Transport implements the nci.Transport interface for SPI communication
type Transport struct {
	port     spi.PortCloser
	conn     spi.Conn
	irq      gpio.PinIn
	portName string
	freq     physic.Frequency
}

// New opens the named SPI port (e.g. "/dev/spidev0.0"). The SPI transport
// has no way to ask the controller for pending data, so an IRQ pin is
// required.
func New(portName string, opts ...Option) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", portName, err)
	}

	t, err := newTransport(port, portName, opts...)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

func newTransport(port spi.PortCloser, portName string, opts ...Option) (*Transport, error) {
	t := &Transport{
		port:     port,
		portName: portName,
		freq:     defaultFreq,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	if t.irq == nil {
		return nil, fmt.Errorf("%w: SPI transport requires an IRQ pin", nci.ErrInvalidParameter)
	}

	conn, err := port.Connect(t.freq, mode, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}
	t.conn = conn
	return t, nil
}

// Transmit writes the direction byte followed by the frame
func (t *Transport) Transmit(frm []byte) error {
	if t.conn == nil {
		return nci.NewTransportError("Transmit", t.portName, nci.ErrTransportClosed, nci.ErrorTypePermanent)
	}

	buf := frame.GetBuffer(len(frm) + 1)
	defer frame.PutBuffer(buf)
	buf[0] = spiWrite
	copy(buf[1:], frm)

	if err := t.conn.Tx(buf, nil); err != nil {
		return nci.NewTransportError("Transmit", t.portName,
			fmt.Errorf("%w: %w", nci.ErrTransportWrite, err), nci.ErrorTypeTransient)
	}
	return nil
}

// Ready reports the IRQ line level
func (t *Transport) Ready() (bool, error) {
	if t.conn == nil {
		return false, nci.NewTransportError("Ready", t.portName, nci.ErrTransportClosed, nci.ErrorTypePermanent)
	}
	return t.irq.Read() == gpio.High, nil
}

// Receive clocks out the read direction byte and len(buf) bytes. The byte
// shifted in alongside the direction byte is discarded.
func (t *Transport) Receive(buf []byte) error {
	if t.conn == nil {
		return nci.NewTransportError("Receive", t.portName, nci.ErrTransportClosed, nci.ErrorTypePermanent)
	}

	w := frame.GetBuffer(len(buf) + 1)
	defer frame.PutBuffer(w)
	r := frame.GetBuffer(len(buf) + 1)
	defer frame.PutBuffer(r)
	w[0] = spiRead

	if err := t.conn.Tx(w, r); err != nil {
		return nci.NewTransportError("Receive", t.portName,
			fmt.Errorf("%w: %w", nci.ErrTransportRead, err), nci.ErrorTypeTransient)
	}
	copy(buf, r[1:])
	return nil
}

// Close closes the transport connection
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	t.conn = nil
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("failed to close SPI port %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	return t.conn != nil
}

// Type returns the transport type
func (*Transport) Type() nci.TransportType {
	return nci.TransportSPI
}

// Ensure Transport implements nci.Transport
var _ nci.Transport = (*Transport)(nil)
