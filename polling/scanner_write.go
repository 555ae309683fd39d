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
	"time"

	nci "github.com/ZaparooProject/go-nci"
)

// WriteToNextTag waits for the next detected tag and executes operation on
// it. It blocks until the operation completes, times out or is cancelled.
func (s *Scanner) WriteToNextTag(ctx context.Context, timeout time.Duration, operation TagOperation) error {
	if !s.running.Load() {
		return ErrScannerNotRunning
	}

	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := &WriteRequest{
		operation: operation,
		result:    make(chan error, 1),
		ctx:       writeCtx,
		createdAt: time.Now(),
	}

	// Only one write may wait for a tag at a time
	if !s.pendingWrite.CompareAndSwap(nil, req) {
		return ErrWriteAlreadyPending
	}
	defer s.pendingWrite.CompareAndSwap(req, nil)

	select {
	case err := <-req.result:
		return err
	case <-writeCtx.Done():
		return writeCtx.Err()
	}
}

// processPendingWrites runs a queued operation against target. Called on
// the monitor goroutine.
func (s *Scanner) processPendingWrites(ctx context.Context, target *nci.RemoteTarget) {
	req := s.pendingWrite.Swap(nil)
	if req == nil {
		return
	}

	if err := req.ctx.Err(); err != nil {
		sendWriteResult(req, err)
		return
	}

	opCtx, cancel := mergeCancel(ctx, req.ctx)
	defer cancel()
	sendWriteResult(req, req.operation(opCtx, s.session, target))
}

// failPendingWrite releases a waiting writer when the scanner stops
func (s *Scanner) failPendingWrite(err error) {
	if req := s.pendingWrite.Swap(nil); req != nil {
		sendWriteResult(req, err)
	}
}

// sendWriteResult delivers the result without blocking
func sendWriteResult(req *WriteRequest, err error) {
	select {
	case req.result <- err:
	default:
	}
}

// mergeCancel returns a context cancelled when either parent is done
func mergeCancel(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
