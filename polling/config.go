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

import "time"

// Config holds monitor configuration
type Config struct {
	// ErrorBackoff is the pause after a failed polling cycle
	ErrorBackoff time.Duration
	// StopTimeout bounds the best-effort discovery stop on shutdown
	StopTimeout time.Duration
	// MaxConsecutiveErrors stops the monitor after this many failed cycles
	// in a row; 0 retries forever.
	MaxConsecutiveErrors int
	// ActivateAll hands every target of a multi-target discovery to the
	// callbacks instead of only the first one.
	ActivateAll bool
}

// DefaultConfig returns the default monitor configuration
func DefaultConfig() *Config {
	return &Config{
		ErrorBackoff:         250 * time.Millisecond,
		StopTimeout:          time.Second,
		MaxConsecutiveErrors: 5,
		ActivateAll:          true,
	}
}
