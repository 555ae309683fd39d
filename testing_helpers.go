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
	testutil "github.com/ZaparooProject/go-nci/internal/testing"
)

// VirtualTransport exposes a scripted virtual controller as a Transport.
// It is intended for tests.
type VirtualTransport struct {
	*testutil.VirtualController
}

// NewVirtualTransport wraps c as a Transport
func NewVirtualTransport(c *testutil.VirtualController) *VirtualTransport {
	return &VirtualTransport{VirtualController: c}
}

// Type implements Transport
func (*VirtualTransport) Type() TransportType {
	return TransportMock
}
