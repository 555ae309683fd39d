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
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	debugEnabled atomic.Bool
	debugLogger  atomic.Pointer[slog.Logger]
)

// SetDebugEnabled turns on debug output for the library. Sessions without an
// explicit logger, and package-level helpers, log at debug level to stderr.
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
	if enabled && debugLogger.Load() == nil {
		debugLogger.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
}

// SetLogger replaces the logger used when debug output is enabled
func SetLogger(logger *slog.Logger) {
	debugLogger.Store(logger)
}

// defaultLogger returns the logger new sessions start from
func defaultLogger() *slog.Logger {
	if debugEnabled.Load() {
		if l := debugLogger.Load(); l != nil {
			return l
		}
	}
	return slog.Default()
}

func debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	l := debugLogger.Load()
	if l == nil {
		return
	}
	l.Log(context.Background(), slog.LevelDebug, fmt.Sprintf(format, args...))
}
