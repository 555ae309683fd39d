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

package polling

import (
	"errors"
	"time"

	nci "github.com/ZaparooProject/go-nci"
)

// CardDetectionState represents the finite state machine for card detection
type CardDetectionState int

const (
	StateIdle CardDetectionState = iota
	StateTagDetected
	StateReading
)

func (s CardDetectionState) String() string {
	switch s {
	case StateTagDetected:
		return "detected"
	case StateReading:
		return "reading"
	default:
		return "idle"
	}
}

// CardState tracks the state of a card on a reader
type CardState struct {
	LastSeenTime   time.Time
	ReadStartTime  time.Time
	LastUID        string
	LastProtocol   nci.RFProtocol
	DetectionState CardDetectionState
	Present        bool
}

var (
	// ErrMonitorRunning is returned by Start on a running monitor
	ErrMonitorRunning = errors.New("monitor is already running")
	// ErrTooManyErrors is returned when MaxConsecutiveErrors is reached
	ErrTooManyErrors = errors.New("too many consecutive polling errors")
)

// TransitionToDetected records a newly activated target
func (cs *CardState) TransitionToDetected(target *nci.RemoteTarget) {
	cs.DetectionState = StateTagDetected
	cs.Present = true
	cs.LastSeenTime = time.Now()
	cs.LastUID = hexUID(target)
	cs.LastProtocol = target.Protocol
}

// TransitionToReading marks the detection callback as running
func (cs *CardState) TransitionToReading() {
	cs.DetectionState = StateReading
	cs.ReadStartTime = time.Now()
}

// TransitionToIdle resets to idle state
func (cs *CardState) TransitionToIdle() {
	*cs = CardState{}
}
