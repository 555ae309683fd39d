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
	"context"

	nci "github.com/ZaparooProject/go-nci"
)

// setupEventHandlers configures the monitor callbacks to integrate with Scanner functionality
func (s *Scanner) setupEventHandlers() {
	s.monitor.OnCardDetected = func(ctx context.Context, target *nci.RemoteTarget) error {
		// Pending writes run first, while the target is freshly activated.
		s.processPendingWrites(ctx, target)

		if s.OnTagDetected != nil {
			return s.OnTagDetected(ctx, target)
		}
		return nil
	}

	s.monitor.OnCardRemoved = func(target *nci.RemoteTarget) {
		if s.OnTagRemoved != nil {
			s.OnTagRemoved(target)
		}
	}
}
