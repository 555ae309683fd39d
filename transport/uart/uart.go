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

// Package uart provides the UART transport for NCI controllers. NCI over UART
// carries bare frames with no bus framing; the controller may send at any
// time, so a background reader buffers incoming bytes.
package uart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	nci "github.com/ZaparooProject/go-nci"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the NCI UART default line rate.
	DefaultBaudRate = 115200

	// DefaultReadTimeout bounds Receive waiting for the rest of a frame.
	DefaultReadTimeout = 100 * time.Millisecond

	readChunk = 64
)

// port is the subset of serial.Port the transport uses
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Option configures the transport
type Option func(*Transport) error

// WithBaudRate overrides the line rate
func WithBaudRate(baud int) Option {
	return func(t *Transport) error {
		if baud <= 0 {
			return fmt.Errorf("%w: baud rate %d", nci.ErrInvalidParameter, baud)
		}
		t.baud = baud
		return nil
	}
}

// WithReadTimeout bounds how long Receive waits for missing bytes
func WithReadTimeout(d time.Duration) Option {
	return func(t *Transport) error {
		if d <= 0 {
			return fmt.Errorf("%w: read timeout %v", nci.ErrInvalidParameter, d)
		}
		t.timeout = d
		return nil
	}
}

// Transport implements the nci.Transport interface for UART communication
type Transport struct {
	port     port
	readErr  error
	arrived  chan struct{}
	done     chan struct{}
	portName string
	rx       bytes.Buffer
	wg       sync.WaitGroup
	timeout  time.Duration
	baud     int
	mu       sync.Mutex
	once     sync.Once
}

// New opens the named serial port (e.g. "/dev/ttyUSB0" or "COM3")
func New(portName string, opts ...Option) (*Transport, error) {
	t, err := configure(portName, opts)
	if err != nil {
		return nil, err
	}

	p, err := serial.Open(portName, &serial.Mode{
		BaudRate: t.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to flush UART port %s: %w", portName, err)
	}

	if err := t.start(p); err != nil {
		_ = p.Close()
		return nil, err
	}
	return t, nil
}

func newTransport(p port, portName string, opts ...Option) (*Transport, error) {
	t, err := configure(portName, opts)
	if err != nil {
		return nil, err
	}
	if err := t.start(p); err != nil {
		return nil, err
	}
	return t, nil
}

func configure(portName string, opts []Option) (*Transport, error) {
	t := &Transport{
		portName: portName,
		baud:     DefaultBaudRate,
		timeout:  DefaultReadTimeout,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Transport) start(p port) error {
	// A short port timeout lets the reader notice Close on platforms where
	// closing does not interrupt a blocked read.
	if err := p.SetReadTimeout(t.timeout); err != nil {
		return fmt.Errorf("failed to set UART read timeout: %w", err)
	}
	t.port = p
	t.arrived = make(chan struct{}, 1)
	t.done = make(chan struct{})
	t.wg.Add(1)
	go t.readLoop()
	return nil
}

func (t *Transport) readLoop() {
	defer t.wg.Done()
	chunk := make([]byte, readChunk)
	for {
		n, err := t.port.Read(chunk)

		select {
		case <-t.done:
			return
		default:
		}

		t.mu.Lock()
		if n > 0 {
			_, _ = t.rx.Write(chunk[:n])
		}
		if err != nil {
			t.readErr = err
		}
		t.mu.Unlock()

		if n > 0 || err != nil {
			select {
			case t.arrived <- struct{}{}:
			default:
			}
		}
		if err != nil {
			return
		}
	}
}

// Transmit writes one NCI frame
func (t *Transport) Transmit(frm []byte) error {
	if !t.IsConnected() {
		return nci.NewTransportError("Transmit", t.portName, nci.ErrTransportClosed, nci.ErrorTypePermanent)
	}
	n, err := t.port.Write(frm)
	if err == nil && n != len(frm) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return nci.NewTransportError("Transmit", t.portName,
			fmt.Errorf("%w: %w", nci.ErrTransportWrite, err), nci.ErrorTypeTransient)
	}
	return nil
}

// Ready reports whether any received bytes are buffered
func (t *Transport) Ready() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rx.Len() > 0 {
		return true, nil
	}
	if t.readErr != nil {
		return false, t.readError("Ready")
	}
	return false, nil
}

// Receive waits up to the read timeout for len(buf) buffered bytes
func (t *Transport) Receive(buf []byte) error {
	if !t.IsConnected() {
		return nci.NewTransportError("Receive", t.portName, nci.ErrTransportClosed, nci.ErrorTypePermanent)
	}

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	for {
		t.mu.Lock()
		if t.rx.Len() >= len(buf) {
			_, _ = t.rx.Read(buf)
			t.mu.Unlock()
			return nil
		}
		if t.readErr != nil {
			err := t.readError("Receive")
			t.mu.Unlock()
			return err
		}
		t.mu.Unlock()

		select {
		case <-t.arrived:
		case <-timer.C:
			return nci.NewTimeoutError("Receive", t.portName)
		case <-t.done:
			return nci.NewTransportError("Receive", t.portName, nci.ErrTransportClosed, nci.ErrorTypePermanent)
		}
	}
}

// readError must be called with mu held
func (t *Transport) readError(op string) error {
	if errors.Is(t.readErr, io.EOF) {
		return nci.NewTransportError(op, t.portName, nci.ErrTransportClosed, nci.ErrorTypePermanent)
	}
	return nci.NewTransportError(op, t.portName,
		fmt.Errorf("%w: %w", nci.ErrTransportRead, t.readErr), nci.ErrorTypePermanent)
}

// Close stops the reader and closes the port
func (t *Transport) Close() error {
	var err error
	t.once.Do(func() {
		if t.done == nil {
			return
		}
		close(t.done)
		err = t.port.Close()
		t.wg.Wait()
	})
	if err != nil {
		return fmt.Errorf("failed to close UART port %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	if t.done == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Type returns the transport type
func (*Transport) Type() nci.TransportType {
	return nci.TransportUART
}

// Ensure Transport implements nci.Transport
var _ nci.Transport = (*Transport)(nil)
