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

package testing

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by a closed VirtualController
var ErrClosed = errors.New("virtual controller closed")

// Handler answers a transmitted frame with zero or more frames
type Handler func(frame []byte) [][]byte

type expectation struct {
	match   []byte
	replies [][]byte
	err     error
}

// VirtualController is a scripted NCI controller speaking raw frames. Frames
// written with Transmit are matched against expectations in order; the
// replies of a matching expectation become readable and raise the ready
// line. Once all expectations are consumed, the Handler (if any) answers.
type VirtualController struct {
	Handler    Handler
	expect     []expectation
	sent       [][]byte
	unexpected [][]byte
	rx         [][]byte
	cur        []byte
	mu         sync.Mutex
	closed     bool
}

// NewVirtualController creates an empty controller
func NewVirtualController() *VirtualController {
	return &VirtualController{}
}

// Expect queues an expectation: the next transmitted frame must start with
// match and is answered with replies.
func (c *VirtualController) Expect(match []byte, replies ...[]byte) *VirtualController {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expect = append(c.expect, expectation{match: match, replies: replies})
	return c
}

// ExpectError queues an expectation whose Transmit call fails with err
func (c *VirtualController) ExpectError(match []byte, err error) *VirtualController {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expect = append(c.expect, expectation{match: match, err: err})
	return c
}

// Inject makes frames readable without a preceding command
func (c *VirtualController) Inject(frames ...[]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rx = append(c.rx, frames...)
}

// SetHandler installs the fallback handler
func (c *VirtualController) SetHandler(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Handler = h
}

// Transmit records frame and queues the scripted replies
func (c *VirtualController) Transmit(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	frm := bytes.Clone(frame)

	if len(c.expect) > 0 {
		e := c.expect[0]
		if !bytes.HasPrefix(frm, e.match) {
			c.unexpected = append(c.unexpected, frm)
			return nil
		}
		c.expect = c.expect[1:]
		if e.err != nil {
			return e.err
		}
		c.sent = append(c.sent, frm)
		c.rx = append(c.rx, e.replies...)
		return nil
	}

	c.sent = append(c.sent, frm)
	if c.Handler == nil {
		c.unexpected = append(c.unexpected, frm)
		return nil
	}
	c.rx = append(c.rx, c.Handler(frm)...)
	return nil
}

// Ready reports whether reply bytes are pending
func (c *VirtualController) Ready() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrClosed
	}
	return len(c.cur) > 0 || len(c.rx) > 0, nil
}

// Receive copies the next len(buf) pending bytes. Reads never span two
// frames.
func (c *VirtualController) Receive(buf []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if len(c.cur) == 0 {
		if len(c.rx) == 0 {
			return errors.New("receive with nothing pending")
		}
		c.cur, c.rx = c.rx[0], c.rx[1:]
	}
	if len(buf) > len(c.cur) {
		return fmt.Errorf("short frame: want %d bytes, have %d", len(buf), len(c.cur))
	}
	copy(buf, c.cur)
	c.cur = c.cur[len(buf):]
	return nil
}

// Close marks the controller closed
func (c *VirtualController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// IsConnected reports whether Close has not been called
func (c *VirtualController) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Sent returns the frames accepted so far
func (c *VirtualController) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

// Verify returns an error describing unexpected frames or unconsumed
// expectations.
func (c *VirtualController) Verify() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, frm := range c.unexpected {
		errs = append(errs, fmt.Errorf("unexpected frame %s", hex.EncodeToString(frm)))
	}
	for _, e := range c.expect {
		errs = append(errs, fmt.Errorf("missing frame %s", hex.EncodeToString(e.match)))
	}
	return errors.Join(errs...)
}
