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

// Package detection finds NCI controllers attached to the host. Transport
// specific detectors register themselves on import:
//
//	import _ "github.com/ZaparooProject/go-nci/detection/i2c"
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	nci "github.com/ZaparooProject/go-nci"
)

var (
	// ErrNoDevicesFound is returned when no controller was found
	ErrNoDevicesFound = errors.New("no NCI devices found")
	// ErrUnsupportedPlatform is returned by detectors that cannot run here
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
	// ErrDetectionTimeout is returned when the context ends mid-scan
	ErrDetectionTimeout = errors.New("detection timed out")
)

// Mode controls how intrusive detection is
type Mode int

const (
	// Passive only inspects device nodes and descriptors
	Passive Mode = iota
	// Safe additionally sends CORE_RESET to candidates
	Safe
	// Full probes every candidate, including low-confidence ones
	Full
)

// Confidence ranks how likely a candidate is an NCI controller
type Confidence int

const (
	Low Confidence = iota
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// DeviceInfo describes one candidate controller
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	Confidence Confidence
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s:%s (%s, %s confidence)", d.Transport, d.Path, d.Name, d.Confidence)
}

// Options configures detection
type Options struct {
	IgnorePaths  []string
	Blocklist    []string
	Timeout      time.Duration
	ProbeTimeout time.Duration
	Mode         Mode
}

// DefaultOptions returns options for a safe scan
func DefaultOptions() Options {
	return Options{
		Mode:         Safe,
		Timeout:      5 * time.Second,
		ProbeTimeout: 500 * time.Millisecond,
		Blocklist:    DefaultBlocklist(),
	}
}

// Detector finds devices on one transport
type Detector interface {
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
	Transport() string
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Detector{}
)

// RegisterDetector adds d, replacing any detector for the same transport
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Transport()] = d
}

func detectors() []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ds := make([]Detector, 0, len(registry))
	for _, d := range registry {
		ds = append(ds, d)
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].Transport() < ds[j].Transport() })
	return ds
}

// DetectAll runs every registered detector
func DetectAll(opts *Options) ([]DeviceInfo, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultOptions().Timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return DetectAllContext(ctx, opts)
}

// DetectAllContext runs every registered detector and returns candidates
// ordered by confidence. Detector failures other than "nothing found" are
// joined into the returned error only when no device was found at all.
func DetectAllContext(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	var (
		devices []DeviceInfo
		errs    []error
	)
	for _, d := range detectors() {
		if err := ctx.Err(); err != nil {
			return devices, fmt.Errorf("%w: %w", ErrDetectionTimeout, err)
		}
		found, err := d.Detect(ctx, opts)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoDevicesFound), errors.Is(err, ErrUnsupportedPlatform):
		default:
			errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
		}
		devices = append(devices, found...)
	}

	if len(devices) == 0 {
		if len(errs) > 0 {
			return nil, errors.Join(append([]error{ErrNoDevicesFound}, errs...)...)
		}
		return nil, ErrNoDevicesFound
	}

	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})
	return devices, nil
}

// Probe resets the controller behind tr and reports what it answered. Any
// correlated CORE_RESET response identifies an NCI controller; the transport
// is left open.
func Probe(ctx context.Context, tr nci.Transport, timeout time.Duration) (map[string]string, error) {
	if timeout <= 0 {
		timeout = DefaultOptions().ProbeTimeout
	}
	s, err := nci.New(tr, nci.WithTimeout(timeout), nci.WithPollTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create probe session: %w", err)
	}

	rsp, err := s.SendAndReceive(ctx, nci.Command(nci.GroupCore, nci.OpCoreReset, 0x00), timeout)
	if err != nil {
		return nil, fmt.Errorf("CORE_RESET probe failed: %w", err)
	}

	metadata := map[string]string{"reset_status": rsp.Status().String()}
	// NCI 1.x answers with status, version and config; 2.0 with status only.
	if len(rsp.Payload) >= 3 {
		metadata["nci_version"] = fmt.Sprintf("%d.%d", rsp.Payload[1]>>4, rsp.Payload[1]&0x0F)
	} else {
		metadata["nci_version"] = "2.x"
	}
	return metadata, nil
}
