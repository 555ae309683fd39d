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
)

// TagCommand sends a raw tag command to the activated target on the static
// connection and waits for the tag's answer on the same connection. The
// connection id of pkt is ignored.
func (s *Session) TagCommand(ctx context.Context, pkt *DataPacket) (*DataPacket, error) {
	if pkt == nil {
		return nil, fmt.Errorf("%w: nil data packet", ErrInvalidParameter)
	}
	if s.target == nil || s.state != StateActivated {
		return nil, ErrNotActivated
	}

	rsp, err := s.exchangeData(ctx, &DataPacket{ConnID: StaticConnID, Payload: pkt.Payload}, s.config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("tag command: %w", err)
	}
	return rsp, nil
}

// Transceive is TagCommand on raw bytes
func (s *Session) Transceive(ctx context.Context, data []byte) ([]byte, error) {
	rsp, err := s.TagCommand(ctx, &DataPacket{Payload: data})
	if err != nil {
		return nil, err
	}
	return rsp.Payload, nil
}
