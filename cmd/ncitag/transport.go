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

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	nci "github.com/ZaparooProject/go-nci"
	"github.com/ZaparooProject/go-nci/detection"
	// Import all detectors to register them
	_ "github.com/ZaparooProject/go-nci/detection/i2c"
	_ "github.com/ZaparooProject/go-nci/detection/kernel"
	_ "github.com/ZaparooProject/go-nci/detection/uart"
	"github.com/ZaparooProject/go-nci/transport/i2c"
	"github.com/ZaparooProject/go-nci/transport/kernel"
	"github.com/ZaparooProject/go-nci/transport/spi"
	"github.com/ZaparooProject/go-nci/transport/uart"
)

const (
	transportUART   = "uart"
	transportI2C    = "i2c"
	transportSPI    = "spi"
	transportKernel = "kernel"
)

var kernelDevicePrefixes = []string{"/dev/pn5xx", "/dev/pn544", "/dev/nxpnfc", "/dev/nq-nci"}

// transportKind picks the transport for a device path. An I2C path may
// carry the controller address as a ":0x29" suffix.
func transportKind(path string) string {
	lower := strings.ToLower(path)
	for _, prefix := range kernelDevicePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return transportKernel
		}
	}
	switch {
	case strings.Contains(lower, "i2c"):
		return transportI2C
	case strings.Contains(lower, "spi"):
		return transportSPI
	default:
		return transportUART
	}
}

// splitAddress separates "bus:0x29" into bus and address
func splitAddress(path string) (string, uint16, error) {
	bus, addr, found := strings.Cut(path, ":")
	if !found {
		return path, i2c.DefaultAddress, nil
	}
	v, err := strconv.ParseUint(addr, 0, 16)
	if err != nil {
		return "", 0, fmt.Errorf("invalid I2C address %q: %w", addr, err)
	}
	return bus, uint16(v), nil
}

// newTransport creates a new transport from a device path.
func newTransport(path, irqPin string) (nci.Transport, error) {
	if path == "" {
		return nil, errors.New("empty device path")
	}
	return openKind(transportKind(path), path, irqPin)
}

// newTransportFromDevice creates a new transport from a detected device.
func newTransportFromDevice(device detection.DeviceInfo, irqPin string) (nci.Transport, error) {
	path := device.Path
	if addr, ok := device.Metadata["address"]; ok && device.Transport == transportI2C {
		path = device.Path + ":" + addr
	}
	return openKind(strings.ToLower(device.Transport), path, irqPin)
}

func openKind(kind, path, irqPin string) (nci.Transport, error) {
	switch kind {
	case transportKernel:
		transport, err := kernel.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create kernel transport: %w", err)
		}
		return transport, nil
	case transportI2C:
		bus, addr, err := splitAddress(path)
		if err != nil {
			return nil, err
		}
		opts := []i2c.Option{i2c.WithAddress(addr)}
		if irqPin != "" {
			opts = append(opts, i2c.WithIRQPin(irqPin))
		}
		transport, err := i2c.New(bus, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create I2C transport: %w", err)
		}
		return transport, nil
	case transportSPI:
		transport, err := spi.New(path, spi.WithIRQPin(irqPin))
		if err != nil {
			return nil, fmt.Errorf("failed to create SPI transport: %w", err)
		}
		return transport, nil
	case transportUART:
		transport, err := uart.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create UART transport: %w", err)
		}
		return transport, nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", kind)
	}
}
