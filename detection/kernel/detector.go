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

// Package kernel detects NCI controllers bound to a Linux kernel driver
package kernel

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/go-nci/detection"
)

// devicePatterns are the nodes created by the NXP kernel drivers
var devicePatterns = []string{
	"/dev/pn5xx_i2c*",
	"/dev/pn544",
	"/dev/nxpnfc*",
	"/dev/nq-nci",
}

type detector struct {
	patterns []string
}

// New creates a new kernel device detector
func New() detection.Detector {
	return &detector{patterns: devicePatterns}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "kernel"
}

// Detect lists driver nodes. The driver already bound the controller, so
// nodes are reported with high confidence and never probed.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	var devices []detection.DeviceInfo
	seen := make(map[string]bool)

	for _, pattern := range d.patterns {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, path := range matches {
			if seen[path] || detection.IsPathIgnored(path, opts.IgnorePaths) {
				continue
			}
			seen[path] = true

			info, err := os.Stat(path)
			if err != nil || info.Mode()&os.ModeCharDevice == 0 {
				continue
			}
			devices = append(devices, detection.DeviceInfo{
				Transport:  "kernel",
				Path:       path,
				Name:       filepath.Base(path),
				Confidence: detection.High,
				Metadata:   map[string]string{"driver_node": path},
			})
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}
