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

// Package uart detects NCI controllers behind serial ports
package uart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ZaparooProject/go-nci/detection"
	"github.com/ZaparooProject/go-nci/transport/uart"
	"go.bug.st/serial/enumerator"
)

// nxpVendorID identifies NXP USB bridges (PN7220 eval boards, OM27160)
const nxpVendorID = "1FC9"

type (
	listFunc  func() ([]*enumerator.PortDetails, error)
	probeFunc func(ctx context.Context, path string, timeout time.Duration) (map[string]string, error)
)

type detector struct {
	list  listFunc
	probe probeFunc
}

// New creates a new UART detector
func New() detection.Detector {
	return &detector{list: enumerator.GetDetailedPortsList, probe: probePort}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "uart"
}

// Detect lists USB serial ports and, outside passive mode, probes them
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, port := range ports {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		if device, ok := d.deviceInfo(ctx, port, opts); ok {
			devices = append(devices, device)
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func (d *detector) deviceInfo(ctx context.Context, port *enumerator.PortDetails, opts *detection.Options) (
	detection.DeviceInfo, bool,
) {
	if !port.IsUSB || detection.IsPathIgnored(port.Name, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}
	vidpid := strings.ToUpper(port.VID + ":" + port.PID)
	if detection.IsBlocked(vidpid, opts.Blocklist) {
		return detection.DeviceInfo{}, false
	}

	device := detection.DeviceInfo{
		Transport:  "uart",
		Path:       port.Name,
		Name:       port.Product,
		Confidence: detection.Low,
		Metadata: map[string]string{
			"vid_pid": vidpid,
			"serial":  port.SerialNumber,
		},
	}
	if device.Name == "" {
		device.Name = port.Name
	}
	if strings.EqualFold(port.VID, nxpVendorID) {
		device.Confidence = detection.Medium
	}

	if opts.Mode == detection.Passive {
		return device, device.Confidence > detection.Low
	}
	if opts.Mode == detection.Safe && device.Confidence == detection.Low {
		return device, false
	}

	metadata, err := d.probe(ctx, port.Name, opts.ProbeTimeout)
	if err != nil {
		return device, false
	}
	device.Confidence = detection.High
	for k, v := range metadata {
		device.Metadata[k] = v
	}
	return device, true
}

func probePort(ctx context.Context, path string, timeout time.Duration) (map[string]string, error) {
	tr, err := uart.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = tr.Close() }()
	return detection.Probe(ctx, tr, timeout)
}
