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

import "sync"

// TagHandler answers data packets sent to an activated tag
type TagHandler interface {
	Handle(frame []byte) [][]byte
}

// RFField drives a VirtualController like a controller polling an RF field.
// RF_DISCOVER activates whatever tag is in the field, RF_DEACTIVATE answers
// with its notification, and data packets go to the activated tag.
type RFField struct {
	ctrl        *VirtualController
	tag         TagHandler
	activation  []byte
	discovering bool
	activated   bool
	mu          sync.Mutex
}

// NewRFField installs a field handler on c
func NewRFField(c *VirtualController) *RFField {
	f := &RFField{ctrl: c}
	c.SetHandler(f.handle)
	return f
}

// Place puts a tag in the field. If discovery is running the activation is
// reported immediately.
func (f *RFField) Place(activation []byte, tag TagHandler) {
	f.mu.Lock()
	f.tag = tag
	f.activation = activation
	notify := f.discovering && !f.activated
	if notify {
		f.activated = true
	}
	f.mu.Unlock()

	if notify {
		f.ctrl.Inject(activation)
	}
}

// Clear empties the field
func (f *RFField) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tag = nil
	f.activation = nil
}

// Discovering reports whether RF discovery is running
func (f *RFField) Discovering() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.discovering
}

// handle runs with the controller lock held
func (f *RFField) handle(frm []byte) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	if frm[0]&0xE0 == 0 {
		if f.activated && f.tag != nil {
			return f.tag.Handle(frm)
		}
		return [][]byte{Ntf(GIDCore, 0x08, statusRFTimeout, frm[0]&0x0F)}
	}

	gid, oid := frm[0]&0x0F, frm[1]&0x3F
	switch {
	case gid == GIDRF && oid == 0x03: // RF_DISCOVER
		f.discovering = true
		if f.tag != nil && !f.activated {
			f.activated = true
			return [][]byte{OK(gid, oid), f.activation}
		}
		return [][]byte{OK(gid, oid)}

	case gid == GIDRF && oid == 0x06: // RF_DEACTIVATE
		kind := byte(0x00)
		if len(frm) > 3 {
			kind = frm[3]
		}
		f.activated = false
		if kind == 0x00 {
			f.discovering = false
		}
		return [][]byte{OK(gid, oid), Ntf(gid, oid, kind, 0x00)}

	case gid == GIDRF && oid == 0x04: // RF_DISCOVER_SELECT
		if f.tag == nil {
			return [][]byte{OK(gid, oid), Ntf(GIDCore, 0x08, statusRFTimeout, 0x00)}
		}
		f.activated = true
		return [][]byte{OK(gid, oid), f.activation}

	case gid == GIDProprietary && oid == 0x11: // ISO-DEP presence
		present := byte(0x00)
		if f.tag != nil {
			present = 0x01
		}
		return [][]byte{OK(gid, oid), Ntf(gid, oid, present)}

	default:
		return [][]byte{OK(gid, oid)}
	}
}
