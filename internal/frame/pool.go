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

package frame

import "sync"

var framePool = sync.Pool{
	New: func() any {
		buf := make([]byte, MaxFrameSize+1) // room for a bus prefix byte
		return &buf
	},
}

// GetBuffer returns a zeroed buffer of length size from the pool. Sizes above
// the pooled capacity are allocated directly.
func GetBuffer(size int) []byte {
	bp, ok := framePool.Get().(*[]byte)
	if !ok || cap(*bp) < size {
		return make([]byte, size)
	}
	buf := (*bp)[:size]
	clear(buf)
	return buf
}

// PutBuffer returns a buffer obtained from GetBuffer to the pool
func PutBuffer(buf []byte) {
	if cap(buf) < MaxFrameSize+1 {
		return
	}
	buf = buf[:cap(buf)]
	framePool.Put(&buf)
}
